package device

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

const (
	simulatedDeviceID = "ESP32_DEMO"
	simulatedFirmware = "1.2.4"
	simulatedBattery  = 78
)

// Simulator 本地模拟设备，返回合理范围内的随机读数
type Simulator struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	clock  clock.Clock
	logger *zap.Logger
}

// NewSimulator 创建模拟设备；seed 为 0 时使用当前时间
func NewSimulator(clk clock.Clock, seed int64, logger *zap.Logger) *Simulator {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{
		rnd:    rand.New(rand.NewSource(seed)),
		clock:  clk,
		logger: logger,
	}
}

func (s *Simulator) FetchSensorData(ctx context.Context, childID int64, deviceID string) (models.SensorReading, error) {
	if err := ctx.Err(); err != nil {
		return models.SensorReading{}, err
	}

	s.mu.Lock()
	heartRate := 75 + s.rnd.Intn(20)
	temperature := math.Round((36+s.rnd.Float64())*10) / 10
	sleepQuality := 70 + s.rnd.Intn(30)
	activity := s.rnd.Intn(100)
	s.mu.Unlock()

	if deviceID == "" {
		deviceID = simulatedDeviceID
	}
	return models.SensorReading{
		HeartRate:    models.IntPtr(heartRate),
		Temperature:  models.FloatPtr(temperature),
		SleepQuality: models.IntPtr(sleepQuality),
		Activity:     models.IntPtr(activity),
		Timestamp:    s.clock.Now().UTC(),
		DeviceID:     deviceID,
	}, nil
}

func (s *Simulator) SendCommand(ctx context.Context, deviceID, command string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("Simulated device command",
		zap.String("device_id", deviceID),
		zap.String("command", command),
		zap.Any("payload", payload),
	)
	return nil
}

func (s *Simulator) CheckFirmwareStatus(ctx context.Context, deviceID string) (models.FirmwareStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.FirmwareStatus{}, err
	}
	return models.FirmwareStatus{
		Version:      simulatedFirmware,
		BatteryLevel: simulatedBattery,
		LastSync:     s.clock.Now().UTC(),
		IsConnected:  true,
	}, nil
}
