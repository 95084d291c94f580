package consumer

import "encoding/json"

// 玩偶上报的数据类型
const (
	DataKeyVitals           = "vitals"
	DataKeyEmotion          = "emotion"
	DataKeyConnectionStatus = "connectionStatus"
)

// ReceivedMessage 玩偶 MQTT 消息（payload 为该结构的数组）
type ReceivedMessage struct {
	DeviceID  string          `json:"deviceId"`
	DataKey   string          `json:"dataKey"`
	Timestamp int64           `json:"timestamp"` // 毫秒
	Data      json.RawMessage `json:"data"`
}

// VitalsData 体征数据
type VitalsData struct {
	HeartRate    *int     `json:"heartRate"`
	Temperature  *float64 `json:"temperature"`
	SleepQuality *int     `json:"sleepQuality"`
	Activity     *int     `json:"activity"`
}

// EmotionData 情绪数据：每日分布和/或日内强度
type EmotionData struct {
	Date    string `json:"date"`
	Happy   *int   `json:"happy"`
	Calm    *int   `json:"calm"`
	Sad     *int   `json:"sad"`
	Anxious *int   `json:"anxious"`

	Time      string `json:"time"`
	Intensity *int   `json:"intensity"`
}

// ConnectionData 连接状态
type ConnectionData struct {
	Connected    bool `json:"connected"`
	BatteryLevel *int `json:"batteryLevel"`
}
