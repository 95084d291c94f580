package consumer_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	mqttcommon "smoozies-monitor/common/mqtt"
	"smoozies-monitor/internal/consumer"
	"smoozies-monitor/internal/models"
	"smoozies-monitor/internal/store"
)

type memoryKV struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", store.ErrCacheMiss
	}
	return v, nil
}

func (m *memoryKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

type fakeSubscriber struct {
	topic   string
	qos     byte
	handler mqttcommon.MessageHandler
}

func (f *fakeSubscriber) Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error {
	f.topic = topic
	f.qos = qos
	f.handler = handler
	return nil
}

func (f *fakeSubscriber) Unsubscribe(topics ...string) error {
	f.handler = nil
	return nil
}

type fakeAlerts struct {
	pushed []models.Notification
}

func (f *fakeAlerts) Push(ctx context.Context, n models.Notification) (models.Notification, error) {
	f.pushed = append(f.pushed, n)
	return n, nil
}

func setup(t *testing.T) (*consumer.SensorConsumer, *fakeSubscriber, *fakeAlerts, *store.ProfileStore, models.ChildProfile) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC))

	profiles, err := store.NewProfileStore(context.Background(), &memoryKV{data: map[string]string{}}, "children-storage", zap.NewNop(), store.WithClock(mock))
	require.NoError(t, err)

	child, err := profiles.Add(context.Background(), store.NewChild{
		Name:      "Emma",
		Birthdate: models.NewDate(2019, time.June, 1),
		Gender:    "female",
		PlushID:   "SMZ-001",
	})
	require.NoError(t, err)

	sub := &fakeSubscriber{}
	alerts := &fakeAlerts{}
	c := consumer.NewSensorConsumer("smoozies/+/sensors", 2, sub, profiles, alerts, zap.NewNop())
	require.NoError(t, c.Start(context.Background()))
	require.NotNil(t, sub.handler)
	return c, sub, alerts, profiles, child
}

func TestSensorConsumer_SubscribesWithConfiguredQoS(t *testing.T) {
	_, sub, _, _, _ := setup(t)
	assert.Equal(t, "smoozies/+/sensors", sub.topic)
	assert.Equal(t, byte(2), sub.qos)
}

func TestSensorConsumer_VitalsAndStatus(t *testing.T) {
	_, sub, _, profiles, child := setup(t)

	payload := `[
		{"deviceId":"SMZ-001","dataKey":"vitals","timestamp":1760518800000,"data":{"heartRate":84,"temperature":36.5,"sleepQuality":85}},
		{"deviceId":"SMZ-001","dataKey":"vitals","data":"broken"},
		{"deviceId":"UNKNOWN","dataKey":"vitals","data":{"heartRate":70}},
		{"deviceId":"SMZ-001","dataKey":"connectionStatus","data":{"connected":false,"batteryLevel":15}},
		{"deviceId":"SMZ-001","dataKey":"alarmNotify","data":{}}
	]`
	require.NoError(t, sub.handler("smoozies/SMZ-001/sensors", []byte(payload)))

	got, ok := profiles.Get(child.ID)
	require.True(t, ok)

	data, ok := got.PhysicalState.Data()
	require.True(t, ok)
	assert.Equal(t, 84, *data.Latest.HeartRate)
	assert.Equal(t, time.UnixMilli(1760518800000).UTC(), data.Latest.Timestamp)
	assert.Len(t, data.History, 1)

	assert.Equal(t, models.StatusDisconnected, got.Status)
	assert.Equal(t, 15, got.BatteryLevel)
}

func TestSensorConsumer_InvalidPayload(t *testing.T) {
	_, sub, _, _, _ := setup(t)
	assert.Error(t, sub.handler("smoozies/SMZ-001/sensors", []byte("{not json")))
}

func TestSensorConsumer_EmotionPushesStressAlertOnce(t *testing.T) {
	_, sub, alerts, profiles, child := setup(t)

	stressed := `[{"deviceId":"SMZ-001","dataKey":"emotion","data":{"date":"2026-10-14","happy":40,"calm":20,"sad":10,"anxious":30,"time":"14:30","intensity":70}}]`
	require.NoError(t, sub.handler("t", []byte(stressed)))
	require.NoError(t, sub.handler("t", []byte(stressed)))

	require.Len(t, alerts.pushed, 1)
	assert.Equal(t, models.NotificationAlert, alerts.pushed[0].Type)
	assert.Equal(t, models.PriorityHigh, alerts.pushed[0].Priority)
	assert.Contains(t, alerts.pushed[0].Title, "Emma")
	assert.Equal(t, child.ID, alerts.pushed[0].ChildID)

	got, _ := profiles.Get(child.ID)
	data, ok := got.EmotionalState.Data()
	require.True(t, ok)
	assert.Len(t, data.History, 1)
	assert.Len(t, data.Intraday, 1)
	assert.Equal(t, models.EmotionHappy, data.Dominant)

	calm := `[{"deviceId":"SMZ-001","dataKey":"emotion","data":{"date":"2026-10-14","happy":70,"calm":20,"sad":5,"anxious":5}}]`
	require.NoError(t, sub.handler("t", []byte(calm)))
	require.NoError(t, sub.handler("t", []byte(stressed)))
	assert.Len(t, alerts.pushed, 2, "alert is pushed again after the stress advisory cleared")
}

func TestSensorConsumer_Stop(t *testing.T) {
	c, sub, _, _, _ := setup(t)
	require.NoError(t, c.Stop(context.Background()))
	assert.Nil(t, sub.handler)
}
