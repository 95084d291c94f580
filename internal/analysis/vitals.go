// Package analysis 由传感器读数和情绪历史计算派生指标
// 所有函数都是全函数：缺失或非法输入返回 N/A 或“数据不足”，不返回错误
package analysis

import "math"

// VitalKind 体征类型
type VitalKind string

const (
	VitalHeartRate    VitalKind = "heartRate"
	VitalTemperature  VitalKind = "temperature"
	VitalSleepQuality VitalKind = "sleepQuality"
)

// Severity 严重程度
type Severity string

const (
	SeverityOK      Severity = "ok"
	SeverityCaution Severity = "caution"
	SeverityAlert   Severity = "alert"
	SeverityUnknown Severity = "unknown"
)

// 状态标签
const (
	LabelLow     = "Low"
	LabelHigh    = "High"
	LabelNormal  = "Normal"
	LabelPoor    = "Poor"
	LabelAverage = "Average"
	LabelGood    = "Good"
	LabelNA      = "N/A"
)

// VitalStatus 分类结果
type VitalStatus struct {
	Label    string   `json:"label"`
	Severity Severity `json:"severity"`
}

// IsNominal 是否处于正常范围
func (s VitalStatus) IsNominal() bool {
	return s.Severity == SeverityOK
}

type vitalRule struct {
	match    func(v float64) bool
	label    string
	severity Severity
}

// vitalRules 每种体征的规则按顺序匹配，第一条命中即返回
// 正常区间两端闭合：心率 60 和 100 都是 Normal
var vitalRules = map[VitalKind][]vitalRule{
	VitalHeartRate: {
		{func(v float64) bool { return v < 60 }, LabelLow, SeverityCaution},
		{func(v float64) bool { return v > 100 }, LabelHigh, SeverityAlert},
		{func(float64) bool { return true }, LabelNormal, SeverityOK},
	},
	VitalTemperature: {
		{func(v float64) bool { return v < 36 }, LabelLow, SeverityCaution},
		{func(v float64) bool { return v > 37.5 }, LabelHigh, SeverityAlert},
		{func(float64) bool { return true }, LabelNormal, SeverityOK},
	},
	VitalSleepQuality: {
		{func(v float64) bool { return v < 50 }, LabelPoor, SeverityAlert},
		{func(v float64) bool { return v < 70 }, LabelAverage, SeverityCaution},
		{func(float64) bool { return true }, LabelGood, SeverityOK},
	},
}

// ClassifyVital 将单个体征数值分类为状态标签和严重程度
func ClassifyVital(kind VitalKind, value float64) VitalStatus {
	rules, ok := vitalRules[kind]
	if !ok || math.IsNaN(value) || math.IsInf(value, 0) {
		return VitalStatus{Label: LabelNA, Severity: SeverityUnknown}
	}
	for _, r := range rules {
		if r.match(value) {
			return VitalStatus{Label: r.label, Severity: r.severity}
		}
	}
	return VitalStatus{Label: LabelNA, Severity: SeverityUnknown}
}
