package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"smoozies-monitor/common/config"
)

// 设备 API 模式
const (
	DeviceModeSimulated = "simulated"
	DeviceModeHTTP      = "http"
)

// Config 家长监控服务配置
type Config struct {
	Redis config.RedisConfig
	MQTT  config.MQTTConfig

	// 档案存储（本地 KV 快照）
	Store struct {
		Key string // 固定命名空间 key，如 "children-storage"
	}

	// 毛绒玩具设备 API
	Device struct {
		Mode       string // "simulated" 或 "http"
		BaseURL    string
		Timeout    time.Duration
		RetryCount int
	}

	// 传感器推送（MQTT）
	Sensor struct {
		Topic string // 如 "smoozies/+/sensors"
	}

	// 健康状态轮询
	Health struct {
		PollInterval time.Duration
	}

	// 语音助手
	Assistant struct {
		ListenTimeout time.Duration
		Persona       string // childish / friendly / educational
		Language      string // fr / en
	}

	Notification struct {
		Stream string // Redis Streams 通知流，如 "smoozies:notifications"
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（工作目录下有 .env 时先读入，已有的环境变量优先）
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	// Redis / MQTT 先设默认值，再由 common/config 按前缀覆盖
	cfg.Redis.Addr = "localhost:6379"
	cfg.Redis.PoolSize = 10
	cfg.Redis.LoadFromEnv("REDIS")

	cfg.MQTT.ClientID = "smoozies-monitor"
	cfg.MQTT.QoS = 1
	cfg.MQTT.LoadFromEnv("MQTT")

	cfg.Store.Key = getEnv("STORE_KEY", "children-storage")

	cfg.Device.Mode = getEnv("DEVICE_API_MODE", DeviceModeSimulated)
	if cfg.Device.Mode != DeviceModeHTTP {
		cfg.Device.Mode = DeviceModeSimulated
	}
	cfg.Device.BaseURL = getEnv("DEVICE_API_BASE_URL", "http://localhost:5000")
	cfg.Device.Timeout = time.Duration(getEnvInt("DEVICE_API_TIMEOUT_SECONDS", 10)) * time.Second
	cfg.Device.RetryCount = getEnvInt("DEVICE_API_RETRY_COUNT", 2)

	cfg.Sensor.Topic = getEnv("SENSOR_TOPIC", "smoozies/+/sensors")

	cfg.Health.PollInterval = time.Duration(getEnvInt("HEALTH_POLL_INTERVAL_SECONDS", 30)) * time.Second

	cfg.Assistant.ListenTimeout = time.Duration(getEnvInt("ASSISTANT_LISTEN_TIMEOUT_SECONDS", 5)) * time.Second
	cfg.Assistant.Persona = getEnv("ASSISTANT_PERSONA", "friendly")
	cfg.Assistant.Language = getEnv("ASSISTANT_LANGUAGE", "fr")

	cfg.Notification.Stream = getEnv("NOTIFICATION_STREAM", "smoozies:notifications")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt 非法值或负数时使用默认值
func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil && v >= 0 {
		return v
	}
	return defaultValue
}
