package mqtt

import (
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smoozies-monitor/common/config"
)

func TestNewClient_UnreachableBroker(t *testing.T) {
	cfg := &config.MQTTConfig{Broker: "tcp://127.0.0.1:1", ClientID: "smoozies-monitor-test"}

	c, err := NewClient(cfg, zap.NewNop())
	require.Error(t, err)
	assert.Nil(t, c)
}

func TestClient_IsConnectedBeforeConnect(t *testing.T) {
	opts := mqtt.NewClientOptions().AddBroker("tcp://127.0.0.1:1")
	c := &Client{
		client: mqtt.NewClient(opts),
		config: &config.MQTTConfig{Broker: "tcp://127.0.0.1:1"},
		logger: zap.NewNop(),
	}
	assert.False(t, c.IsConnected())
}
