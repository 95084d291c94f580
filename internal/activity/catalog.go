// Package activity 快捷活动目录与活动计划
package activity

import (
	"time"

	"smoozies-monitor/internal/analysis"
)

// Variant 活动类别
type Variant string

const (
	VariantDefault Variant = "default"
	VariantCalm    Variant = "calm"
	VariantLearn   Variant = "learn"
	VariantPlay    Variant = "play"
)

// Action 可由玩偶启动的活动
type Action struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Variant     Variant       `json:"variant"`
	Duration    time.Duration `json:"duration"`
	IsNew       bool          `json:"isNew,omitempty"`
	Recommended bool          `json:"recommended,omitempty"`
}

var catalog = []Action{
	{ID: "bedtime-story", Title: "Histoire du soir", Description: "Une histoire apaisante pour préparer au sommeil", Variant: VariantCalm, Duration: 10 * time.Minute},
	{ID: "breathing", Title: "Exercice de respiration", Description: "Exercice guidé de respiration pour se calmer", Variant: VariantCalm, Duration: 3 * time.Minute},
	{ID: "math-game", Title: "Jeu de mathématiques", Description: "Apprendre les bases du calcul de façon ludique", Variant: VariantLearn, Duration: 5 * time.Minute},
	{ID: "interactive-story", Title: "Histoire interactive", Description: "Une aventure où votre enfant fait des choix", Variant: VariantPlay, Duration: 15 * time.Minute, IsNew: true},
	{ID: "calming-music", Title: "Musique apaisante", Description: "Mélodies douces pour moments de stress", Variant: VariantCalm, Duration: 10 * time.Minute, Recommended: true},
	{ID: "morning-routine", Title: "Routine du matin", Description: "Commencer la journée avec énergie et joie", Variant: VariantDefault, Duration: 5 * time.Minute, IsNew: true, Recommended: true},
}

// Catalog 返回全部活动
func Catalog() []Action {
	return append([]Action(nil), catalog...)
}

// Lookup 按 id 查找活动
func Lookup(id string) (Action, bool) {
	for _, a := range catalog {
		if a.ID == id {
			return a, true
		}
	}
	return Action{}, false
}

// Recommend 推荐活动；有压力或焦虑建议时只推荐舒缓类活动
func Recommend(conditions []analysis.AdvisoryCondition) []Action {
	if len(conditions) == 0 {
		var out []Action
		for _, a := range catalog {
			if a.Recommended {
				out = append(out, a)
			}
		}
		return out
	}

	var out []Action
	for _, a := range catalog {
		if a.Variant == VariantCalm {
			out = append(out, a)
		}
	}
	return out
}
