package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Expected REDIS_ADDR default 'localhost:6379', got '%s'", cfg.Redis.Addr)
	}

	if cfg.MQTT.Enabled() {
		t.Errorf("Expected MQTT disabled by default, got broker '%s'", cfg.MQTT.Broker)
	}

	if cfg.Store.Key != "children-storage" {
		t.Errorf("Expected STORE_KEY default 'children-storage', got '%s'", cfg.Store.Key)
	}

	if cfg.Device.Mode != DeviceModeSimulated {
		t.Errorf("Expected DEVICE_API_MODE default 'simulated', got '%s'", cfg.Device.Mode)
	}

	if cfg.Device.Timeout != 10*time.Second {
		t.Errorf("Expected device timeout 10s, got %s", cfg.Device.Timeout)
	}

	if cfg.Health.PollInterval != 30*time.Second {
		t.Errorf("Expected health poll interval 30s, got %s", cfg.Health.PollInterval)
	}

	if cfg.Assistant.ListenTimeout != 5*time.Second {
		t.Errorf("Expected listen timeout 5s, got %s", cfg.Assistant.ListenTimeout)
	}

	if cfg.Assistant.Language != "fr" {
		t.Errorf("Expected ASSISTANT_LANGUAGE default 'fr', got '%s'", cfg.Assistant.Language)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Expected LOG_LEVEL default 'info', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6380")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MQTT_BROKER", "tcp://broker:1883")
	t.Setenv("MQTT_QOS", "2")
	t.Setenv("STORE_KEY", "family-42")
	t.Setenv("DEVICE_API_MODE", "http")
	t.Setenv("DEVICE_API_BASE_URL", "http://esp32.local")
	t.Setenv("HEALTH_POLL_INTERVAL_SECONDS", "5")
	t.Setenv("ASSISTANT_LISTEN_TIMEOUT_SECONDS", "8")
	t.Setenv("ASSISTANT_LANGUAGE", "en")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Redis.Addr != "redis:6380" || cfg.Redis.DB != 2 {
		t.Errorf("Unexpected redis config: %+v", cfg.Redis)
	}

	if !cfg.MQTT.Enabled() {
		t.Errorf("Expected MQTT enabled")
	}

	if cfg.MQTT.QoS != 2 {
		t.Errorf("Expected MQTT_QOS 2, got %d", cfg.MQTT.QoS)
	}

	if cfg.Store.Key != "family-42" {
		t.Errorf("Expected STORE_KEY 'family-42', got '%s'", cfg.Store.Key)
	}

	if cfg.Device.Mode != DeviceModeHTTP || cfg.Device.BaseURL != "http://esp32.local" {
		t.Errorf("Unexpected device config: %+v", cfg.Device)
	}

	if cfg.Health.PollInterval != 5*time.Second {
		t.Errorf("Expected poll interval 5s, got %s", cfg.Health.PollInterval)
	}

	if cfg.Assistant.ListenTimeout != 8*time.Second {
		t.Errorf("Expected listen timeout 8s, got %s", cfg.Assistant.ListenTimeout)
	}

	if cfg.Assistant.Language != "en" {
		t.Errorf("Expected ASSISTANT_LANGUAGE 'en', got '%s'", cfg.Assistant.Language)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Expected LOG_LEVEL 'debug', got '%s'", cfg.Log.Level)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("DEVICE_API_MODE", "carrier-pigeon")
	t.Setenv("HEALTH_POLL_INTERVAL_SECONDS", "soon")
	t.Setenv("DEVICE_API_RETRY_COUNT", "-3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.Device.Mode != DeviceModeSimulated {
		t.Errorf("Expected unknown mode to fall back to simulated, got '%s'", cfg.Device.Mode)
	}
	if cfg.Health.PollInterval != 30*time.Second {
		t.Errorf("Expected invalid interval to fall back to 30s, got %s", cfg.Health.PollInterval)
	}
	if cfg.Device.RetryCount != 2 {
		t.Errorf("Expected negative retry count to fall back to 2, got %d", cfg.Device.RetryCount)
	}
}

func TestGetEnv(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	if value := getEnv("TEST_VAR", "default"); value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	if value := getEnv("NON_EXISTENT_VAR", "default-value"); value != "default-value" {
		t.Errorf("Expected 'default-value', got '%s'", value)
	}
}
