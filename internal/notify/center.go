// Package notify 通知中心：保存面向家长的提醒与通知，并推送到 Redis Stream
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

// ErrNotFound 通知不存在
var ErrNotFound = errors.New("notification not found")

const (
	defaultLimit   = 100
	publishTimeout = 2 * time.Second
)

// Publisher Stream 发布接口（common/redis.StreamPublisher 实现）
type Publisher interface {
	PublishJSON(ctx context.Context, stream string, data interface{}) (string, error)
}

// Center 通知中心，按时间倒序保存最近的通知
type Center struct {
	mu        sync.Mutex
	items     []models.Notification
	limit     int
	publisher Publisher
	stream    string
	clock     clock.Clock
	logger    *zap.Logger
}

// NewCenter 创建通知中心；publisher 为 nil 时只在内存中保存
func NewCenter(publisher Publisher, stream string, clk clock.Clock, logger *zap.Logger) *Center {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Center{
		limit:     defaultLimit,
		publisher: publisher,
		stream:    stream,
		clock:     clk,
		logger:    logger,
	}
}

// Notify 将临时提示转换为通知（错误和警告作为提醒）
func (c *Center) Notify(n models.Notice) {
	notification := models.Notification{
		Type:        models.NotificationInfo,
		Title:       n.Title,
		Description: n.Message,
		Priority:    models.PriorityLow,
		ChildID:     n.ChildID,
	}
	switch n.Level {
	case models.NoticeError:
		notification.Type = models.NotificationAlert
		notification.Priority = models.PriorityHigh
	case models.NoticeWarning:
		notification.Type = models.NotificationAlert
		notification.Priority = models.PriorityMedium
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := c.Push(ctx, notification); err != nil {
		c.logger.Warn("Dropping notice", zap.String("title", n.Title), zap.Error(err))
	}
}

// Push 保存通知并推送到 Stream（推送失败只记录日志）
func (c *Center) Push(ctx context.Context, n models.Notification) (models.Notification, error) {
	if strings.TrimSpace(n.Title) == "" {
		return models.Notification{}, fmt.Errorf("notification title is required")
	}
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.Type == "" {
		n.Type = models.NotificationInfo
	}
	if n.Priority == "" {
		n.Priority = models.PriorityLow
	}
	if n.Status == "" {
		n.Status = models.NotificationUnread
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.clock.Now().UTC()
	}

	c.mu.Lock()
	c.items = append([]models.Notification{n}, c.items...)
	if len(c.items) > c.limit {
		c.items = c.items[:c.limit]
	}
	c.mu.Unlock()

	c.logger.Info("Notification pushed",
		zap.String("notification_id", n.ID),
		zap.String("type", string(n.Type)),
		zap.String("priority", string(n.Priority)),
		zap.Int64("child_id", n.ChildID),
	)

	if c.publisher != nil && c.stream != "" {
		streamID, err := c.publisher.PublishJSON(ctx, c.stream, n)
		if err != nil {
			c.logger.Warn("Failed to publish notification to stream",
				zap.String("stream", c.stream),
				zap.String("notification_id", n.ID),
				zap.Error(err),
			)
		} else {
			c.logger.Debug("Published notification to stream",
				zap.String("stream", c.stream),
				zap.String("stream_id", streamID),
			)
		}
	}

	return n, nil
}

// List 返回全部通知（最新在前）
func (c *Center) List() []models.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Notification(nil), c.items...)
}

// UnreadCount 未读数量
func (c *Center) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for _, n := range c.items {
		if n.Status == models.NotificationUnread {
			count++
		}
	}
	return count
}

// MarkAsRead 标记已读（已解决的通知保持不变）
func (c *Center) MarkAsRead(id string) error {
	return c.update(id, func(n *models.Notification) {
		if n.Status == models.NotificationUnread {
			n.Status = models.NotificationRead
		}
	})
}

// Resolve 标记为已处理
func (c *Center) Resolve(id string) error {
	return c.update(id, func(n *models.Notification) {
		n.Status = models.NotificationResolved
	})
}

// Dismiss 移除通知
func (c *Center) Dismiss(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (c *Center) update(id string, fn func(n *models.Notification)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ID == id {
			fn(&c.items[i])
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}
