package models

import "time"

// NoticeLevel 临时提示级别
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice 面向用户的临时提示（UI 层负责展示）
type Notice struct {
	Level   NoticeLevel
	Title   string
	Message string
	ChildID int64 // 0 表示与具体儿童无关
}

type NotificationType string

const (
	NotificationAlert NotificationType = "alert"
	NotificationInfo  NotificationType = "notification"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

type NotificationStatus string

const (
	NotificationUnread   NotificationStatus = "unread"
	NotificationRead     NotificationStatus = "read"
	NotificationResolved NotificationStatus = "resolved"
)

// Notification 通知中心条目
type Notification struct {
	ID          string             `json:"id"`
	Type        NotificationType   `json:"type"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Priority    Priority           `json:"priority"`
	Status      NotificationStatus `json:"status"`
	ChildID     int64              `json:"childId,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}
