// Package consumer 订阅玩偶上报的 MQTT 消息并写入儿童档案
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	mqttcommon "smoozies-monitor/common/mqtt"
	"smoozies-monitor/internal/analysis"
	"smoozies-monitor/internal/models"
	"smoozies-monitor/internal/store"
)

// Subscriber MQTT 订阅接口（common/mqtt.Client 实现）
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqttcommon.MessageHandler) error
	Unsubscribe(topics ...string) error
}

// AlertPusher 推送提醒（notify.Center 实现）
type AlertPusher interface {
	Push(ctx context.Context, n models.Notification) (models.Notification, error)
}

// SensorConsumer 玩偶数据消费者
type SensorConsumer struct {
	topic      string
	qos        byte
	subscriber Subscriber
	store      *store.ProfileStore
	alerts     AlertPusher
	logger     *zap.Logger

	mu sync.Mutex
	// lastAdvisory 每个儿童最近一次推送的压力提醒等级，等级不变时不重复推送
	lastAdvisory map[int64]analysis.AdvisorySeverity
}

// NewSensorConsumer 创建消费者
func NewSensorConsumer(topic string, qos byte, subscriber Subscriber, profiles *store.ProfileStore, alerts AlertPusher, logger *zap.Logger) *SensorConsumer {
	return &SensorConsumer{
		topic:        topic,
		qos:          qos,
		subscriber:   subscriber,
		store:        profiles,
		alerts:       alerts,
		logger:       logger,
		lastAdvisory: make(map[int64]analysis.AdvisorySeverity),
	}
}

// Start 订阅主题
func (c *SensorConsumer) Start(ctx context.Context) error {
	if c.topic == "" {
		return fmt.Errorf("sensor MQTT topic not configured")
	}
	if err := c.subscriber.Subscribe(c.topic, c.qos, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to sensor topic: %w", err)
	}

	c.logger.Info("Sensor consumer started", zap.String("topic", c.topic), zap.Uint8("qos", c.qos))
	return nil
}

// Stop 取消订阅
func (c *SensorConsumer) Stop(ctx context.Context) error {
	if c.topic != "" {
		if err := c.subscriber.Unsubscribe(c.topic); err != nil {
			c.logger.Error("Failed to unsubscribe", zap.Error(err))
		}
	}
	c.logger.Info("Sensor consumer stopped")
	return nil
}

// HandleMessage 处理一条 MQTT 消息；单条数据出错不影响同批其它数据
func (c *SensorConsumer) HandleMessage(topic string, payload []byte) error {
	c.logger.Debug("Received MQTT message",
		zap.String("topic", topic),
		zap.Int("payload_size", len(payload)),
	)

	var messages []ReceivedMessage
	if err := json.Unmarshal(payload, &messages); err != nil {
		c.logger.Error("Failed to unmarshal sensor MQTT message",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	ctx := context.Background()
	for _, msg := range messages {
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.String("device_id", msg.DeviceID),
				zap.String("data_key", msg.DataKey),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (c *SensorConsumer) processMessage(ctx context.Context, msg ReceivedMessage) error {
	child, ok := c.store.FindByDevice(msg.DeviceID)
	if !ok {
		c.logger.Warn("Device not paired with any child", zap.String("device_id", msg.DeviceID))
		return nil
	}

	switch msg.DataKey {
	case DataKeyVitals:
		return c.handleVitals(ctx, child, msg)
	case DataKeyEmotion:
		return c.handleEmotion(ctx, child, msg)
	case DataKeyConnectionStatus:
		return c.handleConnectionStatus(ctx, child, msg)
	default:
		c.logger.Debug("Unhandled data key",
			zap.String("data_key", msg.DataKey),
			zap.String("device_id", msg.DeviceID),
		)
		return nil
	}
}

func (c *SensorConsumer) handleVitals(ctx context.Context, child models.ChildProfile, msg ReceivedMessage) error {
	var data VitalsData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return fmt.Errorf("failed to unmarshal vitals data: %w", err)
	}

	reading := models.SensorReading{
		HeartRate:    data.HeartRate,
		Temperature:  data.Temperature,
		SleepQuality: data.SleepQuality,
		Activity:     data.Activity,
		DeviceID:     msg.DeviceID,
	}
	if msg.Timestamp > 0 {
		reading.Timestamp = time.UnixMilli(msg.Timestamp).UTC()
	}

	if _, err := c.store.RecordPhysicalReading(ctx, child.ID, reading); err != nil {
		return err
	}

	c.logger.Info("Recorded plush vitals",
		zap.Int64("child_id", child.ID),
		zap.String("device_id", msg.DeviceID),
	)
	return nil
}

func (c *SensorConsumer) handleEmotion(ctx context.Context, child models.ChildProfile, msg ReceivedMessage) error {
	var data EmotionData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return fmt.Errorf("failed to unmarshal emotion data: %w", err)
	}

	var sample store.EmotionSample
	if data.Happy != nil || data.Calm != nil || data.Sad != nil || data.Anxious != nil {
		sample.Daily = &models.DailyEmotion{
			Date:    data.Date,
			Happy:   intOrZero(data.Happy),
			Calm:    intOrZero(data.Calm),
			Sad:     intOrZero(data.Sad),
			Anxious: intOrZero(data.Anxious),
		}
	}
	if data.Intensity != nil {
		t := data.Time
		if t == "" && msg.Timestamp > 0 {
			t = time.UnixMilli(msg.Timestamp).UTC().Format("15:04")
		}
		sample.Intraday = &models.IntensitySample{Time: t, Intensity: *data.Intensity}
	}

	updated, err := c.store.RecordEmotion(ctx, child.ID, sample)
	if err != nil {
		return err
	}

	c.checkStress(ctx, updated)
	return nil
}

// checkStress 压力建议等级变化时推送提醒
func (c *SensorConsumer) checkStress(ctx context.Context, child models.ChildProfile) {
	advisory, ok := analysis.EmotionAdvisory(child.Name, child.EmotionalState)
	stressed := ok && advisory.Condition == analysis.ConditionStress

	c.mu.Lock()
	prev, had := c.lastAdvisory[child.ID]
	switch {
	case !stressed:
		delete(c.lastAdvisory, child.ID)
	case had && prev == advisory.Severity:
		stressed = false
	default:
		c.lastAdvisory[child.ID] = advisory.Severity
	}
	c.mu.Unlock()

	if !stressed || c.alerts == nil {
		return
	}

	priority := models.PriorityMedium
	if advisory.Severity == analysis.AdvisoryHigh {
		priority = models.PriorityHigh
	}
	if _, err := c.alerts.Push(ctx, models.Notification{
		Type:        models.NotificationAlert,
		Title:       advisory.Title,
		Description: advisory.Description,
		Priority:    priority,
		ChildID:     child.ID,
	}); err != nil {
		c.logger.Warn("Failed to push stress alert", zap.Int64("child_id", child.ID), zap.Error(err))
	}
}

func (c *SensorConsumer) handleConnectionStatus(ctx context.Context, child models.ChildProfile, msg ReceivedMessage) error {
	var data ConnectionData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		return fmt.Errorf("failed to unmarshal connection status: %w", err)
	}

	if _, err := c.store.UpdateDeviceStatus(ctx, child.ID, data.Connected, data.BatteryLevel); err != nil {
		return err
	}

	c.logger.Info("Plush connection status updated",
		zap.Int64("child_id", child.ID),
		zap.String("device_id", msg.DeviceID),
		zap.Bool("connected", data.Connected),
	)
	return nil
}

func intOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
