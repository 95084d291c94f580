package models

import "time"

// SensorReading 传感器快照（按需获取，不直接保存在档案中）
type SensorReading struct {
	HeartRate    *int      `json:"heartRate,omitempty"`    // bpm
	Temperature  *float64  `json:"temperature,omitempty"`  // °C
	SleepQuality *int      `json:"sleepQuality,omitempty"` // 0-100
	Activity     *int      `json:"activity,omitempty"`     // 0-100
	Timestamp    time.Time `json:"timestamp"`
	DeviceID     string    `json:"deviceId,omitempty"`
}

// IsEmpty 没有任何指标（"无数据"）
func (r SensorReading) IsEmpty() bool {
	return r.HeartRate == nil && r.Temperature == nil && r.SleepQuality == nil && r.Activity == nil
}

// Clone 深拷贝指针字段
func (r SensorReading) Clone() SensorReading {
	out := r
	out.HeartRate = clonePtr(r.HeartRate)
	out.Temperature = clonePtr(r.Temperature)
	out.SleepQuality = clonePtr(r.SleepQuality)
	out.Activity = clonePtr(r.Activity)
	return out
}

// FirmwareStatus 固件状态
type FirmwareStatus struct {
	Version      string    `json:"version"`
	BatteryLevel int       `json:"batteryLevel"`
	LastSync     time.Time `json:"lastSync"`
	IsConnected  bool      `json:"isConnected"`
}

// IntPtr 辅助函数
func IntPtr(i int) *int {
	return &i
}

// FloatPtr 辅助函数
func FloatPtr(f float64) *float64 {
	return &f
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
