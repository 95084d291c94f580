package models

// ConnectionStatus 毛绒玩具连接状态
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// LastSyncJustNow 新建档案时的同步描述
const LastSyncJustNow = "just now"

// ChildProfile 儿童档案（快照中的 JSON 字段与前端保持一致）
type ChildProfile struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Birthdate Date   `json:"birthdate"`
	Gender    string `json:"gender"`

	// 配对的毛绒玩具（可选，扫码或手动输入）
	PlushID   string `json:"plushId,omitempty"`
	PlushName string `json:"plushName,omitempty"`

	Status       ConnectionStatus `json:"status"`
	BatteryLevel int              `json:"batteryLevel"` // 0-100
	LastSync     string           `json:"lastSync"`

	Preferences *Preferences `json:"preferences,omitempty"`

	EmotionalState EmotionalState `json:"emotionalState"`
	PhysicalState  PhysicalState  `json:"physicalState"`
}

// Preferences 家长填写的偏好（均为自由文本）
type Preferences struct {
	FavoriteActivities string `json:"favoriteActivities,omitempty"`
	SleepHabits        string `json:"sleepHabits,omitempty"`
	SpecialNeeds       string `json:"specialNeeds,omitempty"`
}

// HasPlush 是否已配对毛绒玩具
func (c ChildProfile) HasPlush() bool {
	return c.PlushID != ""
}

// Clone 深拷贝，存储层只对外暴露副本
func (c ChildProfile) Clone() ChildProfile {
	out := c
	if c.Preferences != nil {
		p := *c.Preferences
		out.Preferences = &p
	}
	out.EmotionalState = c.EmotionalState.Clone()
	out.PhysicalState = c.PhysicalState.Clone()
	return out
}
