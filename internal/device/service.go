package device

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

// UnknownFirmware 固件状态查询失败时的版本号
const UnknownFirmware = "inconnu"

// Notifier 接收面向用户的提示
type Notifier interface {
	Notify(n models.Notice)
}

// Service 设备调用的安全封装
// 网络或解析失败时记录日志、发出提示，并返回“无数据”结果，不向上返回错误
type Service struct {
	api      API
	notifier Notifier
	clock    clock.Clock
	logger   *zap.Logger
}

// NewService 创建设备服务
func NewService(api API, notifier Notifier, clk clock.Clock, logger *zap.Logger) *Service {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		api:      api,
		notifier: notifier,
		clock:    clk,
		logger:   logger,
	}
}

// FetchSensorData 返回最新读数；失败时返回空读数和 false
func (s *Service) FetchSensorData(ctx context.Context, childID int64, deviceID string) (models.SensorReading, bool) {
	reading, err := s.api.FetchSensorData(ctx, childID, deviceID)
	if err != nil {
		s.logger.Warn("Failed to fetch sensor data",
			zap.Int64("child_id", childID),
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		s.notify(models.Notice{
			Level:   models.NoticeError,
			Title:   "Capteurs",
			Message: "Impossible de récupérer les données des capteurs",
			ChildID: childID,
		})
		return models.SensorReading{}, false
	}
	return reading, !reading.IsEmpty()
}

// SendCommand 发送命令，返回是否成功
func (s *Service) SendCommand(ctx context.Context, deviceID, command string, payload any) bool {
	if err := s.api.SendCommand(ctx, deviceID, command, payload); err != nil {
		s.logger.Warn("Failed to send device command",
			zap.String("device_id", deviceID),
			zap.String("command", command),
			zap.Error(err),
		)
		s.notify(models.Notice{
			Level:   models.NoticeError,
			Title:   "Peluche",
			Message: "Impossible d'envoyer la commande à l'appareil",
		})
		return false
	}
	return true
}

// CheckFirmwareStatus 查询固件状态；失败时返回离线的默认状态
func (s *Service) CheckFirmwareStatus(ctx context.Context, deviceID string) models.FirmwareStatus {
	status, err := s.api.CheckFirmwareStatus(ctx, deviceID)
	if err != nil {
		s.logger.Warn("Failed to check firmware status",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
		return models.FirmwareStatus{
			Version:      UnknownFirmware,
			BatteryLevel: 0,
			LastSync:     s.clock.Now().UTC(),
			IsConnected:  false,
		}
	}
	return status
}

func (s *Service) notify(n models.Notice) {
	if s.notifier != nil {
		s.notifier.Notify(n)
	}
}
