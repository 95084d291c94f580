package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

// ErrNotFound 指定 id 的档案不存在
var ErrNotFound = errors.New("child profile not found")

const (
	// PhysicalHistoryLimit 每个档案保留的传感器读数条数
	PhysicalHistoryLimit = 48
	// EmotionHistoryDays 每日情绪分布保留的天数
	EmotionHistoryDays = 30
	// IntradayLimit 日内情绪强度采样上限
	IntradayLimit = 96
)

// ChangeListener 当前儿童变化（切换、修改、删除）时回调，active 为 nil 表示没有当前儿童
type ChangeListener func(active *models.ChildProfile)

// Option ProfileStore 可选项
type Option func(*ProfileStore)

// WithClock 注入时钟（测试用 clock.NewMock）
func WithClock(c clock.Clock) Option {
	return func(s *ProfileStore) { s.clock = c }
}

// WithRandom 注入随机数源（生成初始电量）
func WithRandom(intn func(n int) int) Option {
	return func(s *ProfileStore) { s.intn = intn }
}

// ProfileStore 儿童档案存储
// 内存中维护有序档案列表与当前儿童，每次修改后同步写入 KV 槽位
type ProfileStore struct {
	mu       sync.RWMutex
	kv       KVStore
	key      string
	logger   *zap.Logger
	clock    clock.Clock
	intn     func(n int) int
	children []models.ChildProfile
	activeID int64 // 0 表示没有当前儿童
	lastID   int64

	listenersMu sync.Mutex
	listeners   []ChangeListener
}

// NewProfileStore 创建档案存储并从 KV 槽位恢复快照
func NewProfileStore(ctx context.Context, kv KVStore, key string, logger *zap.Logger, opts ...Option) (*ProfileStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv store is required")
	}
	if key == "" {
		return nil, fmt.Errorf("store key is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &ProfileStore{
		kv:     kv,
		key:    key,
		logger: logger,
		clock:  clock.New(),
		intn:   rand.New(rand.NewSource(time.Now().UnixNano())).Intn,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ProfileStore) load(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			s.logger.Info("No profile snapshot found, starting empty", zap.String("key", s.key))
			return nil
		}
		return fmt.Errorf("failed to load profile snapshot: %w", err)
	}

	snap, err := DecodeSnapshot(raw)
	if err != nil {
		// 损坏的快照不阻止启动，下一次修改会覆盖
		s.logger.Warn("Discarding unreadable profile snapshot",
			zap.String("key", s.key),
			zap.Error(err),
		)
		return nil
	}

	s.children = snap.Children
	if snap.ActiveChildID != nil {
		s.activeID = *snap.ActiveChildID
	}
	for _, c := range s.children {
		if c.ID > s.lastID {
			s.lastID = c.ID
		}
	}

	s.logger.Info("Profile snapshot restored",
		zap.String("key", s.key),
		zap.Int("children", len(s.children)),
		zap.Int64("active_child_id", s.activeID),
	)
	return nil
}

// List 返回全部档案（按添加顺序）
func (s *ProfileStore) List() []models.ChildProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ChildProfile, len(s.children))
	for i, c := range s.children {
		out[i] = c.Clone()
	}
	return out
}

// Get 按 id 查询档案
func (s *ProfileStore) Get(id int64) (models.ChildProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.ChildProfile{}, false
	}
	return s.children[idx].Clone(), true
}

// GetActive 返回当前儿童
func (s *ProfileStore) GetActive() (models.ChildProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	active := s.activeLocked()
	if active == nil {
		return models.ChildProfile{}, false
	}
	return *active, true
}

// FindByDevice 按玩偶设备 id 查询档案
func (s *ProfileStore) FindByDevice(plushID string) (models.ChildProfile, bool) {
	if plushID == "" {
		return models.ChildProfile{}, false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.children {
		if c.PlushID == plushID {
			return c.Clone(), true
		}
	}
	return models.ChildProfile{}, false
}

// OnChange 注册当前儿童变化监听
func (s *ProfileStore) OnChange(l ChangeListener) {
	if l == nil {
		return
	}
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// SetActive 设置当前儿童（id 必须在列表中）
func (s *ProfileStore) SetActive(ctx context.Context, id int64) error {
	return s.mutate(ctx, "set_active", func() (bool, error) {
		if s.indexLocked(id) < 0 {
			return false, fmt.Errorf("%w: id=%d", ErrNotFound, id)
		}
		changed := s.activeID != id
		s.activeID = id
		return changed, nil
	})
}

// Add 添加新档案；没有当前儿童时新档案成为当前儿童
func (s *ProfileStore) Add(ctx context.Context, input NewChild) (models.ChildProfile, error) {
	if err := input.Validate(s.clock.Now()); err != nil {
		return models.ChildProfile{}, err
	}

	var created models.ChildProfile
	err := s.mutate(ctx, "add", func() (bool, error) {
		created = models.ChildProfile{
			ID:             s.nextIDLocked(),
			Name:           strings.TrimSpace(input.Name),
			Birthdate:      input.Birthdate,
			Gender:         input.Gender,
			PlushID:        input.PlushID,
			PlushName:      input.PlushName,
			Status:         models.StatusConnected,
			BatteryLevel:   s.intn(100),
			LastSync:       models.LastSyncJustNow,
			EmotionalState: models.Uncollected[models.EmotionalData](),
			PhysicalState:  models.Uncollected[models.PhysicalData](),
		}
		if input.Preferences != nil {
			prefs := *input.Preferences
			created.Preferences = &prefs
		}
		s.children = append(s.children, created)

		if s.activeID == 0 {
			s.activeID = created.ID
			return true, nil
		}
		return false, nil
	})
	if err != nil {
		return models.ChildProfile{}, err
	}
	return created.Clone(), nil
}

// Update 合并修改指定档案；修改当前儿童时当前儿童同步刷新
func (s *ProfileStore) Update(ctx context.Context, id int64, patch ProfilePatch) (models.ChildProfile, error) {
	if err := patch.Validate(s.clock.Now()); err != nil {
		return models.ChildProfile{}, err
	}
	return s.modify(ctx, "update", id, func(c *models.ChildProfile) {
		patch.apply(c)
	})
}

// Remove 删除档案；删除当前儿童时回退到剩余列表的第一个
func (s *ProfileStore) Remove(ctx context.Context, id int64) error {
	return s.mutate(ctx, "remove", func() (bool, error) {
		idx := s.indexLocked(id)
		if idx < 0 {
			return false, fmt.Errorf("%w: id=%d", ErrNotFound, id)
		}
		s.children = append(s.children[:idx], s.children[idx+1:]...)

		if s.activeID != id {
			return false, nil
		}
		s.activeID = 0
		if len(s.children) > 0 {
			s.activeID = s.children[0].ID
		}
		return true, nil
	})
}

// RecordPhysicalReading 记录一次传感器读数（更新 latest 并追加到历史）
func (s *ProfileStore) RecordPhysicalReading(ctx context.Context, id int64, reading models.SensorReading) (models.ChildProfile, error) {
	if reading.IsEmpty() {
		return models.ChildProfile{}, fmt.Errorf("sensor reading has no values")
	}
	if reading.Timestamp.IsZero() {
		reading.Timestamp = s.clock.Now()
	}

	return s.modify(ctx, "record_physical", id, func(c *models.ChildProfile) {
		data, _ := c.PhysicalState.Data()
		data.Latest = reading.Clone()
		data.History = append(data.History, reading.Clone())
		if over := len(data.History) - PhysicalHistoryLimit; over > 0 {
			data.History = data.History[over:]
		}
		c.PhysicalState = models.Collected(data)
		c.Status = models.StatusConnected
		c.LastSync = models.LastSyncJustNow
	})
}

// EmotionSample 一次情绪采集：每日分布（按日期覆盖）和/或日内强度
type EmotionSample struct {
	Daily    *models.DailyEmotion
	Intraday *models.IntensitySample
}

// RecordEmotion 记录情绪数据并重新计算主导情绪
func (s *ProfileStore) RecordEmotion(ctx context.Context, id int64, sample EmotionSample) (models.ChildProfile, error) {
	if sample.Daily == nil && sample.Intraday == nil {
		return models.ChildProfile{}, fmt.Errorf("emotion sample is empty")
	}
	if err := sample.validate(); err != nil {
		return models.ChildProfile{}, err
	}

	return s.modify(ctx, "record_emotion", id, func(c *models.ChildProfile) {
		data, _ := c.EmotionalState.Data()

		if sample.Daily != nil {
			day := *sample.Daily
			if day.Date == "" {
				day.Date = models.DateOf(s.clock.Now()).String()
			}
			replaced := false
			for i := range data.History {
				if data.History[i].Date == day.Date {
					data.History[i] = day
					replaced = true
					break
				}
			}
			if !replaced {
				data.History = append(data.History, day)
			}
			if over := len(data.History) - EmotionHistoryDays; over > 0 {
				data.History = data.History[over:]
			}
		}

		if sample.Intraday != nil {
			data.Intraday = append(data.Intraday, *sample.Intraday)
			if over := len(data.Intraday) - IntradayLimit; over > 0 {
				data.Intraday = data.Intraday[over:]
			}
		}

		if n := len(data.History); n > 0 {
			data.Dominant, data.DominantPercent = data.History[n-1].Dominant()
		}
		c.EmotionalState = models.Collected(data)
	})
}

func (e EmotionSample) validate() error {
	verr := &ValidationError{}
	if d := e.Daily; d != nil {
		for field, v := range map[string]int{"happy": d.Happy, "calm": d.Calm, "sad": d.Sad, "anxious": d.Anxious} {
			if v < 0 || v > 100 {
				verr.add(field, "percentage must be between 0 and 100")
			}
		}
	}
	if i := e.Intraday; i != nil && (i.Intensity < 0 || i.Intensity > 100) {
		verr.add("intensity", "intensity must be between 0 and 100")
	}
	return verr.orNil()
}

// UpdateDeviceStatus 更新玩偶连接状态和电量（battery 为 nil 表示未知，保持原值）
func (s *ProfileStore) UpdateDeviceStatus(ctx context.Context, id int64, connected bool, battery *int) (models.ChildProfile, error) {
	if battery != nil && (*battery < 0 || *battery > 100) {
		verr := &ValidationError{}
		verr.add("batteryLevel", "battery level must be between 0 and 100")
		return models.ChildProfile{}, verr
	}

	return s.modify(ctx, "update_device_status", id, func(c *models.ChildProfile) {
		c.Status = models.StatusDisconnected
		if connected {
			c.Status = models.StatusConnected
			c.LastSync = models.LastSyncJustNow
		}
		if battery != nil {
			c.BatteryLevel = *battery
		}
	})
}

// modify 修改单个档案，返回修改后的副本
func (s *ProfileStore) modify(ctx context.Context, op string, id int64, fn func(c *models.ChildProfile)) (models.ChildProfile, error) {
	var updated models.ChildProfile
	err := s.mutate(ctx, op, func() (bool, error) {
		idx := s.indexLocked(id)
		if idx < 0 {
			return false, fmt.Errorf("%w: id=%d", ErrNotFound, id)
		}
		c := s.children[idx].Clone()
		fn(&c)
		c.ID = id
		s.children[idx] = c
		updated = c
		return id == s.activeID, nil
	})
	if err != nil {
		return models.ChildProfile{}, err
	}
	return updated.Clone(), nil
}

// mutate 在写锁内执行修改并持久化，然后在锁外通知监听者
// fn 返回 true 表示当前儿童发生了变化
func (s *ProfileStore) mutate(ctx context.Context, op string, fn func() (bool, error)) error {
	s.mu.Lock()
	activeChanged, err := fn()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	active := s.activeLocked()
	s.persistLocked(ctx, op, snap)
	s.mu.Unlock()

	if activeChanged {
		s.notify(active)
	}
	return nil
}

// persistLocked 写入 KV 槽位；失败只记录日志，内存修改保留
func (s *ProfileStore) persistLocked(ctx context.Context, op string, snap Snapshot) {
	raw, err := EncodeSnapshot(snap)
	if err != nil {
		s.logger.Error("Failed to encode profile snapshot", zap.String("op", op), zap.Error(err))
		return
	}
	if err := s.kv.Set(ctx, s.key, raw, 0); err != nil {
		s.logger.Error("Failed to persist profile snapshot",
			zap.String("op", op),
			zap.String("key", s.key),
			zap.Error(err),
		)
		return
	}
	s.logger.Debug("Profile snapshot persisted",
		zap.String("op", op),
		zap.Int("children", len(snap.Children)),
	)
}

func (s *ProfileStore) notify(active *models.ChildProfile) {
	s.listenersMu.Lock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.listenersMu.Unlock()

	for _, l := range listeners {
		var arg *models.ChildProfile
		if active != nil {
			c := active.Clone()
			arg = &c
		}
		l(arg)
	}
}

func (s *ProfileStore) snapshotLocked() Snapshot {
	snap := Snapshot{Children: make([]models.ChildProfile, len(s.children))}
	for i, c := range s.children {
		snap.Children[i] = c.Clone()
	}
	if s.activeID != 0 {
		id := s.activeID
		snap.ActiveChildID = &id
	}
	return snap
}

func (s *ProfileStore) activeLocked() *models.ChildProfile {
	if s.activeID == 0 {
		return nil
	}
	idx := s.indexLocked(s.activeID)
	if idx < 0 {
		return nil
	}
	c := s.children[idx].Clone()
	return &c
}

func (s *ProfileStore) indexLocked(id int64) int {
	for i := range s.children {
		if s.children[i].ID == id {
			return i
		}
	}
	return -1
}

// nextIDLocked 基于毫秒时间戳生成 id，同一毫秒内递增保证唯一
func (s *ProfileStore) nextIDLocked() int64 {
	id := s.clock.Now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}
