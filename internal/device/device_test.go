package device_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smoozies-monitor/internal/device"
	"smoozies-monitor/internal/models"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (r *recordingNotifier) Notify(n models.Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notices)
}

func newDeviceServer(t *testing.T) (*httptest.Server, *device.CommandRequest) {
	t.Helper()
	var lastCommand device.CommandRequest

	mux := http.NewServeMux()
	mux.HandleFunc("/api/sensors/SMZ-001", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"heartRate":84,"temperature":36.5,"sleepQuality":85,"timestamp":"2026-10-15T08:00:00Z"}`))
	})
	mux.HandleFunc("/api/sensors/42", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	mux.HandleFunc("/api/devices/SMZ-001/command", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&lastCommand))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/api/devices/SMZ-001/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"version":"1.3.0","batteryLevel":64,"lastSync":"2026-10-15T08:00:00Z","isConnected":true}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &lastCommand
}

func TestClient_FetchSensorData(t *testing.T) {
	srv, _ := newDeviceServer(t)
	c := device.NewClient(srv.URL, time.Second, 0, zap.NewNop())

	reading, err := c.FetchSensorData(context.Background(), 7, "SMZ-001")
	require.NoError(t, err)
	require.NotNil(t, reading.HeartRate)
	assert.Equal(t, 84, *reading.HeartRate)
	assert.Equal(t, 36.5, *reading.Temperature)
	assert.Equal(t, "SMZ-001", reading.DeviceID)

	_, err = c.FetchSensorData(context.Background(), 42, "")
	assert.Error(t, err)
}

func TestClient_SendCommandAndStatus(t *testing.T) {
	srv, lastCommand := newDeviceServer(t)
	c := device.NewClient(srv.URL, time.Second, 0, zap.NewNop())

	err := c.SendCommand(context.Background(), "SMZ-001", "start_activity", map[string]string{"activity": "breathing"})
	require.NoError(t, err)
	assert.Equal(t, "start_activity", lastCommand.Command)
	assert.Equal(t, map[string]any{"activity": "breathing"}, lastCommand.Payload)

	status, err := c.CheckFirmwareStatus(context.Background(), "SMZ-001")
	require.NoError(t, err)
	assert.Equal(t, "1.3.0", status.Version)
	assert.Equal(t, 64, status.BatteryLevel)
	assert.True(t, status.IsConnected)

	assert.Error(t, c.SendCommand(context.Background(), "unknown", "ping", nil))
}

func TestSimulator_Ranges(t *testing.T) {
	mock := clock.NewMock()
	sim := device.NewSimulator(mock, 1, zap.NewNop())

	for i := 0; i < 50; i++ {
		r, err := sim.FetchSensorData(context.Background(), 1, "")
		require.NoError(t, err)
		assert.GreaterOrEqual(t, *r.HeartRate, 75)
		assert.Less(t, *r.HeartRate, 95)
		assert.GreaterOrEqual(t, *r.Temperature, 36.0)
		assert.LessOrEqual(t, *r.Temperature, 37.0)
		assert.GreaterOrEqual(t, *r.SleepQuality, 70)
		assert.Less(t, *r.SleepQuality, 100)
		assert.Equal(t, "ESP32_DEMO", r.DeviceID)
	}

	status, err := sim.CheckFirmwareStatus(context.Background(), "SMZ-001")
	require.NoError(t, err)
	assert.Equal(t, "1.2.4", status.Version)
	assert.Equal(t, 78, status.BatteryLevel)
}

func TestService_DegradesToNoData(t *testing.T) {
	srv, _ := newDeviceServer(t)
	notifier := &recordingNotifier{}
	svc := device.NewService(device.NewClient(srv.URL, time.Second, 0, zap.NewNop()), notifier, clock.NewMock(), zap.NewNop())

	reading, ok := svc.FetchSensorData(context.Background(), 42, "")
	assert.False(t, ok)
	assert.True(t, reading.IsEmpty())
	assert.Equal(t, 1, notifier.count())

	assert.False(t, svc.SendCommand(context.Background(), "unknown", "ping", nil))
	assert.Equal(t, 2, notifier.count())

	status := svc.CheckFirmwareStatus(context.Background(), "unknown")
	assert.Equal(t, device.UnknownFirmware, status.Version)
	assert.False(t, status.IsConnected)

	reading, ok = svc.FetchSensorData(context.Background(), 7, "SMZ-001")
	assert.True(t, ok)
	assert.Equal(t, 85, *reading.SleepQuality)
}
