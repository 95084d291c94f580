// Package device 玩偶设备接口：HTTP 客户端、本地模拟器，以及失败时降级为“无数据”的安全封装
package device

import (
	"context"

	"smoozies-monitor/internal/models"
)

// API 设备后端接口（所有调用都可能失败）
type API interface {
	// FetchSensorData 获取最新传感器读数；deviceID 为空时按 childID 查询
	FetchSensorData(ctx context.Context, childID int64, deviceID string) (models.SensorReading, error)
	// SendCommand 向玩偶发送命令
	SendCommand(ctx context.Context, deviceID, command string, payload any) error
	// CheckFirmwareStatus 查询固件版本、电量和连接状态
	CheckFirmwareStatus(ctx context.Context, deviceID string) (models.FirmwareStatus, error)
}

// CommandRequest 命令请求体
type CommandRequest struct {
	Command string `json:"command"`
	Payload any    `json:"payload,omitempty"`
}
