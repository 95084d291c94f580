package analysis

import (
	"fmt"

	"smoozies-monitor/internal/models"
)

// DefaultTrendWindow 默认统计最近 3 天
const DefaultTrendWindow = 3

// EmotionTrend 最近若干天的情绪均值
type EmotionTrend struct {
	Days        int     `json:"days"`
	MeanAnxious float64 `json:"meanAnxious"`
	MeanHappy   float64 `json:"meanHappy"`
}

// AggregateRecentEmotionTrend 计算最近 window 天 anxious 和 happy 的平均值
// 历史不足 window 天时按实际天数平均；空历史返回 false
func AggregateRecentEmotionTrend(history []models.DailyEmotion, window int) (EmotionTrend, bool) {
	if window <= 0 {
		window = DefaultTrendWindow
	}
	if len(history) == 0 {
		return EmotionTrend{}, false
	}
	if len(history) > window {
		history = history[len(history)-window:]
	}

	var anxious, happy int
	for _, d := range history {
		anxious += d.Anxious
		happy += d.Happy
	}
	n := float64(len(history))
	return EmotionTrend{
		Days:        len(history),
		MeanAnxious: float64(anxious) / n,
		MeanHappy:   float64(happy) / n,
	}, true
}

// AdvisoryCondition 建议对应的问题类型
type AdvisoryCondition string

const (
	ConditionStress  AdvisoryCondition = "stress"
	ConditionAnxiety AdvisoryCondition = "anxiety"
)

// AdvisorySeverity 建议的紧急程度
type AdvisorySeverity string

const (
	AdvisoryHigh   AdvisorySeverity = "high"
	AdvisoryMedium AdvisorySeverity = "medium"
)

const (
	stressThreshold     = 15.0
	highStressThreshold = 25.0
	lowMoodThreshold    = 40.0
	anxiousDayThreshold = 20
)

// Advisory 个性化建议
type Advisory struct {
	Condition       AdvisoryCondition `json:"condition"`
	Severity        AdvisorySeverity  `json:"severity"`
	Title           string            `json:"title"`
	Description     string            `json:"description"`
	Recommendations []string          `json:"recommendations"`
}

// EmotionAdvisory 根据最近情绪趋势生成建议，压力优先于情绪低落；无建议时返回 false
func EmotionAdvisory(childName string, state models.EmotionalState) (Advisory, bool) {
	data, ok := state.Data()
	if !ok {
		return Advisory{}, false
	}
	trend, ok := AggregateRecentEmotionTrend(data.History, DefaultTrendWindow)
	if !ok {
		return Advisory{}, false
	}

	switch {
	case trend.MeanAnxious > stressThreshold:
		severity := AdvisoryMedium
		if trend.MeanAnxious > highStressThreshold {
			severity = AdvisoryHigh
		}
		return Advisory{
			Condition:   ConditionStress,
			Severity:    severity,
			Title:       fmt.Sprintf("%s pourrait souffrir de stress scolaire", childName),
			Description: "Nos analyses indiquent des niveaux d'anxiété plus élevés que la normale ces derniers jours.",
			Recommendations: []string{
				"Prenez le temps de discuter calmement avec votre enfant de sa journée d'école",
				"Observez s'il mentionne des difficultés avec certaines matières ou des camarades",
				"Assurez-vous qu'il dispose d'un espace calme pour faire ses devoirs",
				"Contactez son enseignant pour discuter de son comportement en classe",
			},
		}, true
	case trend.MeanHappy < lowMoodThreshold:
		return Advisory{
			Condition:   ConditionAnxiety,
			Severity:    AdvisoryMedium,
			Title:       fmt.Sprintf("%s semble moins heureux ces derniers jours", childName),
			Description: "Nos analyses montrent une baisse des émotions positives récemment.",
			Recommendations: []string{
				"Passez plus de temps en famille autour d'activités qu'il apprécie",
				"Encouragez-le à exprimer ses émotions à travers des activités créatives",
				"Identifiez ensemble les moments de la journée les plus difficiles",
			},
		}, true
	}
	return Advisory{}, false
}

// RelevantConditions 最近 3 天任一天 anxious 超过 20% 时返回 anxiety
func RelevantConditions(state models.EmotionalState) []AdvisoryCondition {
	data, ok := state.Data()
	if !ok {
		return nil
	}
	recent := data.History
	if len(recent) > DefaultTrendWindow {
		recent = recent[len(recent)-DefaultTrendWindow:]
	}
	for _, d := range recent {
		if d.Anxious > anxiousDayThreshold {
			return []AdvisoryCondition{ConditionAnxiety}
		}
	}
	return nil
}
