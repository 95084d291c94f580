// Package monitor 当前儿童的体征定时刷新
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

// SensorSource 读数来源（device.Service 实现）
type SensorSource interface {
	FetchSensorData(ctx context.Context, childID int64, deviceID string) (models.SensorReading, bool)
}

// ReadingRecorder 读数写入（store.ProfileStore 实现）
type ReadingRecorder interface {
	RecordPhysicalReading(ctx context.Context, id int64, reading models.SensorReading) (models.ChildProfile, error)
}

// HealthMonitor 按固定间隔刷新一个儿童的体征
// 同一时间只跟踪一个儿童，切换儿童或 Stop 时取消上一个循环
// Watch 和 Stop 不等待旧循环退出（可以在循环触发的回调中调用），Close 等待全部退出
type HealthMonitor struct {
	source   SensorSource
	recorder ReadingRecorder
	interval time.Duration
	clock    clock.Clock
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	childID int64
	wg      sync.WaitGroup
}

// NewHealthMonitor 创建体征监控
func NewHealthMonitor(source SensorSource, recorder ReadingRecorder, interval time.Duration, clk clock.Clock, logger *zap.Logger) *HealthMonitor {
	if clk == nil {
		clk = clock.New()
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &HealthMonitor{
		source:   source,
		recorder: recorder,
		interval: interval,
		clock:    clk,
		logger:   logger,
	}
}

// Watch 开始跟踪 child（先立即刷新一次），之前的循环会被取消
func (m *HealthMonitor) Watch(ctx context.Context, child models.ChildProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.childID = child.ID
	m.wg.Add(1)

	m.logger.Info("Health monitoring started",
		zap.Int64("child_id", child.ID),
		zap.Duration("interval", m.interval),
	)

	go m.run(loopCtx, child)
}

// Stop 取消当前循环
func (m *HealthMonitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Close 取消当前循环并等待所有循环退出
func (m *HealthMonitor) Close() {
	m.Stop()
	m.wg.Wait()
}

// Watching 返回当前跟踪的儿童 id
func (m *HealthMonitor) Watching() (int64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.childID, m.cancel != nil
}

func (m *HealthMonitor) stopLocked() {
	if m.cancel == nil {
		return
	}
	m.cancel()

	m.logger.Info("Health monitoring stopped", zap.Int64("child_id", m.childID))
	m.cancel = nil
	m.childID = 0
}

func (m *HealthMonitor) run(ctx context.Context, child models.ChildProfile) {
	defer m.wg.Done()

	ticker := m.clock.Ticker(m.interval)
	defer ticker.Stop()

	m.refresh(ctx, child)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				return
			}
			m.refresh(ctx, child)
		}
	}
}

func (m *HealthMonitor) refresh(ctx context.Context, child models.ChildProfile) {
	reading, ok := m.source.FetchSensorData(ctx, child.ID, child.PlushID)
	if !ok {
		return
	}
	// 拉取期间已切换儿童，丢弃结果
	if ctx.Err() != nil {
		return
	}
	if _, err := m.recorder.RecordPhysicalReading(ctx, child.ID, reading); err != nil {
		m.logger.Warn("Failed to record polled reading",
			zap.Int64("child_id", child.ID),
			zap.Error(err),
		)
	}
}
