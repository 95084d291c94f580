package analysis

import (
	"fmt"

	"smoozies-monitor/internal/models"
)

// ReportKind 日报分支
type ReportKind string

const (
	ReportInsufficientData ReportKind = "insufficient_data"
	ReportPositive         ReportKind = "positive"
	ReportTemperature      ReportKind = "temperature_warning"
	ReportSleep            ReportKind = "sleep_warning"
	ReportOutOfRange       ReportKind = "out_of_range"
)

// DailyReport 健康日报
type DailyReport struct {
	Kind ReportKind `json:"kind"`
	Text string     `json:"text"`
}

// VitalsStatus 三项体征的分类结果（缺失的体征为 N/A）
type VitalsStatus struct {
	HeartRate    VitalStatus `json:"heartRate"`
	Temperature  VitalStatus `json:"temperature"`
	SleepQuality VitalStatus `json:"sleepQuality"`
}

var notAvailable = VitalStatus{Label: LabelNA, Severity: SeverityUnknown}

// ClassifyReading 对一次读数的三项体征分别分类
func ClassifyReading(reading models.SensorReading) VitalsStatus {
	out := VitalsStatus{HeartRate: notAvailable, Temperature: notAvailable, SleepQuality: notAvailable}
	if reading.HeartRate != nil {
		out.HeartRate = ClassifyVital(VitalHeartRate, float64(*reading.HeartRate))
	}
	if reading.Temperature != nil {
		out.Temperature = ClassifyVital(VitalTemperature, *reading.Temperature)
	}
	if reading.SleepQuality != nil {
		out.SleepQuality = ClassifyVital(VitalSleepQuality, float64(*reading.SleepQuality))
	}
	return out
}

type reportRule struct {
	kind     ReportKind
	match    func(s VitalsStatus) bool
	template string
}

// reportRules 按顺序匹配：数据不足 > 全部正常 > 体温 > 睡眠 > 其它
var reportRules = []reportRule{
	{
		kind: ReportInsufficientData,
		match: func(s VitalsStatus) bool {
			return s.HeartRate.Severity == SeverityUnknown ||
				s.Temperature.Severity == SeverityUnknown ||
				s.SleepQuality.Severity == SeverityUnknown
		},
		template: "Pas assez de données pour établir le rapport quotidien de %s. Vérifiez que la peluche est connectée.",
	},
	{
		kind: ReportPositive,
		match: func(s VitalsStatus) bool {
			return s.HeartRate.IsNominal() && s.Temperature.IsNominal() && s.SleepQuality.IsNominal()
		},
		template: "%s a eu un sommeil de bonne qualité la nuit dernière. Tous les paramètres vitaux sont dans les normes.",
	},
	{
		kind:     ReportTemperature,
		match:    func(s VitalsStatus) bool { return s.Temperature.Label == LabelHigh },
		template: "La température de %s est plus élevée que la normale. Surveillez l'apparition de fièvre.",
	},
	{
		kind:     ReportSleep,
		match:    func(s VitalsStatus) bool { return s.SleepQuality.Label != LabelGood },
		template: "%s n'a pas bien dormi la nuit dernière. Un coucher plus tôt pourrait l'aider.",
	},
	{
		kind:     ReportOutOfRange,
		match:    func(VitalsStatus) bool { return true },
		template: "Certains paramètres vitaux de %s sont hors des valeurs habituelles. Gardez un œil sur son état.",
	},
}

// SummarizeDailyReport 根据读数选择日报模板
func SummarizeDailyReport(childName string, reading models.SensorReading) DailyReport {
	status := ClassifyReading(reading)
	for _, r := range reportRules {
		if r.match(status) {
			return DailyReport{Kind: r.kind, Text: fmt.Sprintf(r.template, childName)}
		}
	}
	// 最后一条规则总是命中
	return DailyReport{Kind: ReportOutOfRange}
}
