package models

import (
	"encoding/json"
)

// 情绪标签
const (
	EmotionHappy   = "happy"
	EmotionCalm    = "calm"
	EmotionSad     = "sad"
	EmotionAnxious = "anxious"
)

// CollectedState 传感器派生记录：Uncollected 或 Collected(T)
// 不存在 "collected=true 但没有数据" 的状态
type CollectedState[T interface{ Clone() T }] struct {
	data *T
}

// Uncollected 尚未收到任何传感器数据
func Uncollected[T interface{ Clone() T }]() CollectedState[T] {
	return CollectedState[T]{}
}

// Collected 已收集的数据
func Collected[T interface{ Clone() T }](data T) CollectedState[T] {
	return CollectedState[T]{data: &data}
}

// IsCollected 是否已收集
func (s CollectedState[T]) IsCollected() bool {
	return s.data != nil
}

// Data 返回数据副本；未收集时 ok=false
func (s CollectedState[T]) Data() (data T, ok bool) {
	if s.data == nil {
		return data, false
	}
	return (*s.data).Clone(), true
}

// Clone 深拷贝
func (s CollectedState[T]) Clone() CollectedState[T] {
	if s.data == nil {
		return s
	}
	return Collected((*s.data).Clone())
}

type collectedStateJSON[T any] struct {
	Collected bool `json:"collected"`
	Data      *T   `json:"data,omitempty"`
}

func (s CollectedState[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(collectedStateJSON[T]{Collected: s.data != nil, Data: s.data})
}

// UnmarshalJSON collected=false 时忽略 data；collected=true 但缺少 data 视为未收集
func (s *CollectedState[T]) UnmarshalJSON(raw []byte) error {
	var wire collectedStateJSON[T]
	if err := json.Unmarshal(raw, &wire); err != nil {
		return err
	}
	if !wire.Collected || wire.Data == nil {
		s.data = nil
		return nil
	}
	s.data = wire.Data
	return nil
}

// EmotionalState 情绪状态记录
type EmotionalState = CollectedState[EmotionalData]

// PhysicalState 身体状态记录
type PhysicalState = CollectedState[PhysicalData]

// DailyEmotion 每日情绪分布（百分比，不强制总和 <= 100）
type DailyEmotion struct {
	Date    string `json:"date"`
	Happy   int    `json:"happy"`
	Calm    int    `json:"calm"`
	Sad     int    `json:"sad"`
	Anxious int    `json:"anxious"`
}

// Dominant 返回占比最高的情绪；并列时按 happy, calm, sad, anxious 顺序取第一个
func (d DailyEmotion) Dominant() (string, int) {
	label, pct := EmotionHappy, d.Happy
	for _, e := range []struct {
		label string
		pct   int
	}{{EmotionCalm, d.Calm}, {EmotionSad, d.Sad}, {EmotionAnxious, d.Anxious}} {
		if e.pct > pct {
			label, pct = e.label, e.pct
		}
	}
	return label, pct
}

// IntensitySample 日内情绪强度采样
type IntensitySample struct {
	Time      string `json:"time"`
	Intensity int    `json:"intensity"` // 0-100
}

// EmotionalData 已收集的情绪数据
type EmotionalData struct {
	Dominant        string            `json:"dominant"`
	DominantPercent int               `json:"dominantPercent"`
	History         []DailyEmotion    `json:"history"`
	Intraday        []IntensitySample `json:"intraday"`
}

func (d EmotionalData) Clone() EmotionalData {
	out := d
	out.History = append([]DailyEmotion(nil), d.History...)
	out.Intraday = append([]IntensitySample(nil), d.Intraday...)
	return out
}

// PhysicalData 已收集的身体数据
type PhysicalData struct {
	Latest  SensorReading   `json:"latest"`
	History []SensorReading `json:"history,omitempty"`
}

func (d PhysicalData) Clone() PhysicalData {
	out := d
	out.Latest = d.Latest.Clone()
	if d.History != nil {
		out.History = make([]SensorReading, len(d.History))
		for i, r := range d.History {
			out.History[i] = r.Clone()
		}
	}
	return out
}
