package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	mqttcommon "smoozies-monitor/common/mqtt"
	rediscommon "smoozies-monitor/common/redis"
	"smoozies-monitor/internal/activity"
	"smoozies-monitor/internal/analysis"
	"smoozies-monitor/internal/assistant"
	"smoozies-monitor/internal/config"
	"smoozies-monitor/internal/consumer"
	"smoozies-monitor/internal/device"
	"smoozies-monitor/internal/export"
	"smoozies-monitor/internal/models"
	"smoozies-monitor/internal/monitor"
	"smoozies-monitor/internal/notify"
	"smoozies-monitor/internal/store"
)

// Deps 外部依赖，测试时可替换
type Deps struct {
	KV         store.KVStore
	DeviceAPI  device.API
	Backend    assistant.Backend
	Subscriber consumer.Subscriber // 为空时不启动传感器消费者
	Publisher  notify.Publisher    // 为空时通知只保存在内存
	Clock      clock.Clock
}

// HealthCard 健康卡片数据
type HealthCard struct {
	ChildID    int64                        `json:"childId"`
	ChildName  string                       `json:"childName"`
	Reading    models.SensorReading         `json:"reading"`
	Vitals     analysis.VitalsStatus        `json:"vitals"`
	Report     analysis.DailyReport         `json:"report"`
	Advisory   *analysis.Advisory           `json:"advisory,omitempty"`
	Conditions []analysis.AdvisoryCondition `json:"conditions,omitempty"`
	Firmware   *models.FirmwareStatus       `json:"firmware,omitempty"`
}

// Dashboard 家长监控服务（整合各层）
type Dashboard struct {
	config *config.Config
	logger *zap.Logger
	clock  clock.Clock

	// 由 NewDashboardService 创建，Stop 时关闭
	redisClient *redis.Client
	mqttClient  *mqttcommon.Client

	profiles      *store.ProfileStore
	notifications *notify.Center
	devices       *device.Service
	backend       assistant.Backend
	monitor       *monitor.HealthMonitor
	consumer      *consumer.SensorConsumer
	planner       *activity.Planner

	mu       sync.Mutex
	sessions map[*assistant.Session]struct{}
	runCtx   context.Context
	// watched 当前轮询的儿童和玩偶，只有两者变化时才重启轮询
	watchedID    int64
	watchedPlush string
}

// NewDashboardService 连接 Redis / MQTT 并创建服务
func NewDashboardService(cfg *config.Config, logger *zap.Logger) (*Dashboard, error) {
	// 1. 连接 Redis
	redisClient := rediscommon.NewRedisClient(&cfg.Redis)

	ctx := context.Background()
	if err := rediscommon.Ping(ctx, redisClient); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 2. 设备 API
	var api device.API
	if cfg.Device.Mode == config.DeviceModeHTTP {
		api = device.NewClient(cfg.Device.BaseURL, cfg.Device.Timeout, cfg.Device.RetryCount, logger)
	} else {
		api = device.NewSimulator(nil, 0, logger)
	}

	deps := Deps{
		KV:        store.NewRedisKVStore(redisClient),
		DeviceAPI: api,
		Backend:   assistant.NewSimulatedBackend(logger),
		Publisher: rediscommon.NewStreamPublisher(redisClient),
	}

	// 3. MQTT（可选）
	var mqttClient *mqttcommon.Client
	if cfg.MQTT.Enabled() {
		c, err := mqttcommon.NewClient(&cfg.MQTT, logger)
		if err != nil {
			_ = rediscommon.Close(redisClient)
			return nil, fmt.Errorf("failed to connect mqtt: %w", err)
		}
		mqttClient = c
		deps.Subscriber = c
	} else {
		logger.Info("MQTT broker not configured, sensor push disabled")
	}

	d, err := NewDashboard(ctx, cfg, logger, deps)
	if err != nil {
		if mqttClient != nil {
			mqttClient.Disconnect()
		}
		_ = rediscommon.Close(redisClient)
		return nil, err
	}
	d.redisClient = redisClient
	d.mqttClient = mqttClient
	return d, nil
}

// NewDashboard 用已创建的依赖组装服务，加载档案快照
func NewDashboard(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps Deps) (*Dashboard, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.New()
	}

	profiles, err := store.NewProfileStore(ctx, deps.KV, cfg.Store.Key, logger, store.WithClock(clk))
	if err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}

	notifications := notify.NewCenter(deps.Publisher, cfg.Notification.Stream, clk, logger)
	devices := device.NewService(deps.DeviceAPI, notifications, clk, logger)

	d := &Dashboard{
		config:        cfg,
		logger:        logger,
		clock:         clk,
		profiles:      profiles,
		notifications: notifications,
		devices:       devices,
		backend:       deps.Backend,
		monitor:       monitor.NewHealthMonitor(devices, profiles, cfg.Health.PollInterval, clk, logger),
		planner:       activity.NewPlanner(devices, clk, logger),
		sessions:      make(map[*assistant.Session]struct{}),
	}
	if deps.Subscriber != nil {
		d.consumer = consumer.NewSensorConsumer(cfg.Sensor.Topic, cfg.MQTT.QoS, deps.Subscriber, profiles, notifications, logger)
	}

	profiles.OnChange(d.onActiveChange)
	return d, nil
}

// Store 档案存储
func (d *Dashboard) Store() *store.ProfileStore {
	return d.profiles
}

// Notifications 通知中心
func (d *Dashboard) Notifications() *notify.Center {
	return d.notifications
}

// Activities 活动计划
func (d *Dashboard) Activities() *activity.Planner {
	return d.planner
}

// Start 启动传感器消费者并轮询当前儿童
func (d *Dashboard) Start(ctx context.Context) error {
	d.logger.Info("Starting dashboard service")

	if d.mqttClient != nil {
		d.logger.Info("MQTT connection status",
			zap.String("broker", d.config.MQTT.Broker),
			zap.Bool("connected", d.mqttClient.IsConnected()),
		)
	}

	if d.consumer != nil {
		if err := d.consumer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sensor consumer: %w", err)
		}
	}

	d.mu.Lock()
	d.runCtx = ctx
	d.mu.Unlock()

	active, ok := d.profiles.GetActive()
	if ok {
		d.onActiveChange(&active)
	}
	return nil
}

// Stop 停止服务
func (d *Dashboard) Stop(ctx context.Context) error {
	d.logger.Info("Stopping dashboard service")

	d.mu.Lock()
	d.runCtx = nil
	d.watchedID = 0
	d.watchedPlush = ""
	sessions := make([]*assistant.Session, 0, len(d.sessions))
	for s := range d.sessions {
		sessions = append(sessions, s)
	}
	d.sessions = make(map[*assistant.Session]struct{})
	d.mu.Unlock()

	d.monitor.Close()
	for _, s := range sessions {
		s.Close()
	}

	if d.consumer != nil {
		if err := d.consumer.Stop(ctx); err != nil {
			d.logger.Error("Failed to stop sensor consumer", zap.Error(err))
		}
	}
	if d.mqttClient != nil {
		d.mqttClient.Disconnect()
	}
	if d.redisClient != nil {
		if err := rediscommon.Close(d.redisClient); err != nil {
			d.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}
	return nil
}

// HealthCard 汇总儿童体征状态、日报和情绪建议
// 没有身体数据且已配对玩偶时，先向设备拉取一次
func (d *Dashboard) HealthCard(ctx context.Context, childID int64) (HealthCard, error) {
	child, ok := d.profiles.Get(childID)
	if !ok {
		return HealthCard{}, store.ErrNotFound
	}

	var reading models.SensorReading
	if data, collected := child.PhysicalState.Data(); collected {
		reading = data.Latest
	} else if child.HasPlush() {
		if fetched, ok := d.devices.FetchSensorData(ctx, child.ID, child.PlushID); ok {
			reading = fetched
			if updated, err := d.profiles.RecordPhysicalReading(ctx, child.ID, fetched); err == nil {
				child = updated
			} else {
				d.logger.Warn("Failed to record fetched reading",
					zap.Int64("child_id", child.ID),
					zap.Error(err),
				)
			}
		}
	}

	card := HealthCard{
		ChildID:    child.ID,
		ChildName:  child.Name,
		Reading:    reading,
		Vitals:     analysis.ClassifyReading(reading),
		Report:     analysis.SummarizeDailyReport(child.Name, reading),
		Conditions: analysis.RelevantConditions(child.EmotionalState),
	}
	if adv, ok := analysis.EmotionAdvisory(child.Name, child.EmotionalState); ok {
		card.Advisory = &adv
	}
	if child.HasPlush() {
		fw := d.devices.CheckFirmwareStatus(ctx, child.PlushID)
		card.Firmware = &fw
	}
	return card, nil
}

// RecommendedActions 按当前情绪状态推荐的活动
func (d *Dashboard) RecommendedActions(childID int64) ([]activity.Action, error) {
	child, ok := d.profiles.Get(childID)
	if !ok {
		return nil, store.ErrNotFound
	}
	return activity.Recommend(analysis.RelevantConditions(child.EmotionalState)), nil
}

// StartActivity 让儿童的玩偶开始一个活动
func (d *Dashboard) StartActivity(ctx context.Context, childID int64, actionID string) (bool, error) {
	child, ok := d.profiles.Get(childID)
	if !ok {
		return false, store.ErrNotFound
	}
	return d.planner.Start(ctx, child, actionID)
}

// ExportReport 导出儿童报告（.xlsx）
func (d *Dashboard) ExportReport(childID int64) ([]byte, error) {
	child, ok := d.profiles.Get(childID)
	if !ok {
		return nil, store.ErrNotFound
	}
	return export.ChildReport(child, d.clock.Now())
}

// OpenAssistant 创建语音助手会话，有当前儿童时立即绑定
func (d *Dashboard) OpenAssistant() *assistant.Session {
	s := assistant.NewSession(d.backend, d.notifications, d.logger,
		assistant.WithSessionClock(d.clock),
		assistant.WithListenTimeout(d.config.Assistant.ListenTimeout),
	)

	d.mu.Lock()
	d.sessions[s] = struct{}{}
	d.mu.Unlock()

	if active, ok := d.profiles.GetActive(); ok {
		d.bindSession(s, &active)
	}
	return s
}

// CloseAssistant 关闭会话并停止跟随当前儿童
func (d *Dashboard) CloseAssistant(s *assistant.Session) {
	d.mu.Lock()
	delete(d.sessions, s)
	d.mu.Unlock()

	s.Close()
}

// onActiveChange 当前儿童切换或被修改时，重新绑定会话并切换健康轮询
func (d *Dashboard) onActiveChange(active *models.ChildProfile) {
	d.mu.Lock()
	sessions := make([]*assistant.Session, 0, len(d.sessions))
	for s := range d.sessions {
		sessions = append(sessions, s)
	}

	runCtx := d.runCtx
	restart := false
	stop := false
	if runCtx != nil {
		switch {
		case active == nil:
			stop = d.watchedID != 0
			d.watchedID = 0
			d.watchedPlush = ""
		case active.ID != d.watchedID || active.PlushID != d.watchedPlush:
			restart = true
			d.watchedID = active.ID
			d.watchedPlush = active.PlushID
		}
	}
	d.mu.Unlock()

	for _, s := range sessions {
		d.bindSession(s, active)
	}

	if stop {
		d.monitor.Stop()
	}
	if restart {
		if active.HasPlush() {
			d.monitor.Watch(runCtx, *active)
		} else {
			d.monitor.Stop()
		}
	}
}

func (d *Dashboard) bindSession(s *assistant.Session, active *models.ChildProfile) {
	var child *assistant.ChildContext
	if active != nil {
		c := assistant.ContextFor(*active, d.clock.Now(),
			assistant.ParsePersona(d.config.Assistant.Persona),
			assistant.ParseLanguage(d.config.Assistant.Language),
		)
		child = &c
	}
	// 会话忙碌时 Follow 记下新的上下文，回到 Idle 后生效
	if err := s.Follow(child); err != nil {
		d.logger.Warn("Failed to rebind assistant session", zap.Error(err))
	}
}
