package activity

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

var (
	ErrUnknownAction = errors.New("unknown activity")
	ErrNotFound      = errors.New("scheduled activity not found")
	ErrNoDevice      = errors.New("child has no paired plush")
	ErrInPast        = errors.New("activity time is in the past")
)

// CommandStartActivity 启动活动的设备命令
const CommandStartActivity = "start_activity"

const recentLimit = 50

// Status 活动状态
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusStarted   Status = "started"
	StatusCancelled Status = "cancelled"
)

// Activity 计划或已启动的活动
type Activity struct {
	ID       string        `json:"id"`
	ChildID  int64         `json:"childId"`
	ActionID string        `json:"actionId"`
	Title    string        `json:"title"`
	At       time.Time     `json:"at"`
	Duration time.Duration `json:"duration"`
	Status   Status        `json:"status"`
}

// CommandSender 设备命令发送（device.Service 实现，失败时自行提示并返回 false）
type CommandSender interface {
	SendCommand(ctx context.Context, deviceID, command string, payload any) bool
}

// Planner 活动计划
type Planner struct {
	mu        sync.Mutex
	scheduled map[string]Activity
	recent    []Activity
	sender    CommandSender
	clock     clock.Clock
	logger    *zap.Logger
}

// NewPlanner 创建活动计划
func NewPlanner(sender CommandSender, clk clock.Clock, logger *zap.Logger) *Planner {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		scheduled: make(map[string]Activity),
		sender:    sender,
		clock:     clk,
		logger:    logger,
	}
}

// Schedule 为儿童安排活动
func (p *Planner) Schedule(childID int64, actionID string, at time.Time) (Activity, error) {
	action, ok := Lookup(actionID)
	if !ok {
		return Activity{}, fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	if at.Before(p.clock.Now()) {
		return Activity{}, ErrInPast
	}

	a := Activity{
		ID:       uuid.New().String(),
		ChildID:  childID,
		ActionID: action.ID,
		Title:    action.Title,
		At:       at,
		Duration: action.Duration,
		Status:   StatusScheduled,
	}

	p.mu.Lock()
	p.scheduled[a.ID] = a
	p.mu.Unlock()

	p.logger.Info("Activity scheduled",
		zap.String("activity_id", a.ID),
		zap.Int64("child_id", childID),
		zap.String("action", actionID),
		zap.Time("at", at),
	)
	return a, nil
}

// Upcoming 返回儿童尚未开始的计划活动（按时间升序）
func (p *Planner) Upcoming(childID int64, now time.Time) []Activity {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Activity
	for _, a := range p.scheduled {
		if a.ChildID == childID && !a.At.Before(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out
}

// Cancel 取消计划活动
func (p *Planner) Cancel(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.scheduled[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(p.scheduled, id)
	return nil
}

// Start 通过玩偶立即启动活动；设备命令失败时返回 false
func (p *Planner) Start(ctx context.Context, child models.ChildProfile, actionID string) (bool, error) {
	action, ok := Lookup(actionID)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownAction, actionID)
	}
	if !child.HasPlush() {
		return false, ErrNoDevice
	}

	if !p.sender.SendCommand(ctx, child.PlushID, CommandStartActivity, map[string]string{"activity": action.ID}) {
		return false, nil
	}

	started := Activity{
		ID:       uuid.New().String(),
		ChildID:  child.ID,
		ActionID: action.ID,
		Title:    action.Title,
		At:       p.clock.Now(),
		Duration: action.Duration,
		Status:   StatusStarted,
	}

	p.mu.Lock()
	p.recent = append([]Activity{started}, p.recent...)
	if len(p.recent) > recentLimit {
		p.recent = p.recent[:recentLimit]
	}
	p.mu.Unlock()

	p.logger.Info("Activity started",
		zap.Int64("child_id", child.ID),
		zap.String("device_id", child.PlushID),
		zap.String("action", action.ID),
	)
	return true, nil
}

// Recent 最近启动的活动（最新在前）
func (p *Planner) Recent(childID int64) []Activity {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []Activity
	for _, a := range p.recent {
		if a.ChildID == childID {
			out = append(out, a)
		}
	}
	return out
}
