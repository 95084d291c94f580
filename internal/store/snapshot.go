package store

import (
	"encoding/json"
	"fmt"

	"smoozies-monitor/internal/models"
)

// Snapshot 持久化到 KV 槽位的完整状态
type Snapshot struct {
	Children      []models.ChildProfile `json:"children"`
	ActiveChildID *int64                `json:"activeChildId"`
}

// EncodeSnapshot 序列化快照（children 为空时输出 []）
func EncodeSnapshot(s Snapshot) (string, error) {
	if s.Children == nil {
		s.Children = []models.ChildProfile{}
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return string(raw), nil
}

// DecodeSnapshot 反序列化快照，并修复不变量：
//   - 重复 id 只保留第一次出现的档案
//   - activeChildId 指向不存在的档案时回退到第一个档案（或空）
func DecodeSnapshot(raw string) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	seen := make(map[int64]bool, len(s.Children))
	children := make([]models.ChildProfile, 0, len(s.Children))
	for _, c := range s.Children {
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		children = append(children, c)
	}
	s.Children = children

	if s.ActiveChildID != nil && !seen[*s.ActiveChildID] {
		s.ActiveChildID = nil
		if len(children) > 0 {
			id := children[0].ID
			s.ActiveChildID = &id
		}
	}

	return s, nil
}
