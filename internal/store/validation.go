package store

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"smoozies-monitor/internal/models"
)

const minNameLength = 2

// earliestBirthdate 出生日期下限
var earliestBirthdate = models.NewDate(1900, time.January, 1)

var plushIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidationError 表单校验错误（按字段给出提示）
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	e.Fields[field] = msg
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

// NewChild 新建档案输入（id、状态、电量、同步、情绪/身体记录由存储生成）
type NewChild struct {
	Name        string
	Birthdate   models.Date
	Gender      string
	PlushID     string
	PlushName   string
	Preferences *models.Preferences
}

// Validate 校验必填字段
func (n NewChild) Validate(now time.Time) error {
	verr := &ValidationError{}
	validateName(verr, n.Name)
	validateBirthdate(verr, n.Birthdate, now)
	if strings.TrimSpace(n.Gender) == "" {
		verr.add("gender", "gender is required")
	}
	validatePlushID(verr, n.PlushID)
	return verr.orNil()
}

// ProfilePatch 部分更新（nil 字段保持不变，id 不可修改）
type ProfilePatch struct {
	Name         *string
	Birthdate    *models.Date
	Gender       *string
	PlushID      *string
	PlushName    *string
	Status       *models.ConnectionStatus
	BatteryLevel *int
	LastSync     *string
	Preferences  *models.Preferences

	EmotionalState *models.EmotionalState
	PhysicalState  *models.PhysicalState
}

// Validate 只校验被修改的字段
func (p ProfilePatch) Validate(now time.Time) error {
	verr := &ValidationError{}
	if p.Name != nil {
		validateName(verr, *p.Name)
	}
	if p.Birthdate != nil {
		validateBirthdate(verr, *p.Birthdate, now)
	}
	if p.Gender != nil && strings.TrimSpace(*p.Gender) == "" {
		verr.add("gender", "gender is required")
	}
	if p.PlushID != nil {
		validatePlushID(verr, *p.PlushID)
	}
	if p.Status != nil && *p.Status != models.StatusConnected && *p.Status != models.StatusDisconnected {
		verr.add("status", fmt.Sprintf("unknown status %q", *p.Status))
	}
	if p.BatteryLevel != nil && (*p.BatteryLevel < 0 || *p.BatteryLevel > 100) {
		verr.add("batteryLevel", "battery level must be between 0 and 100")
	}
	return verr.orNil()
}

func (p ProfilePatch) apply(c *models.ChildProfile) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Birthdate != nil {
		c.Birthdate = *p.Birthdate
	}
	if p.Gender != nil {
		c.Gender = *p.Gender
	}
	if p.PlushID != nil {
		c.PlushID = *p.PlushID
	}
	if p.PlushName != nil {
		c.PlushName = *p.PlushName
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.BatteryLevel != nil {
		c.BatteryLevel = *p.BatteryLevel
	}
	if p.LastSync != nil {
		c.LastSync = *p.LastSync
	}
	if p.Preferences != nil {
		prefs := *p.Preferences
		c.Preferences = &prefs
	}
	if p.EmotionalState != nil {
		c.EmotionalState = p.EmotionalState.Clone()
	}
	if p.PhysicalState != nil {
		c.PhysicalState = p.PhysicalState.Clone()
	}
}

func validateName(verr *ValidationError, name string) {
	if utf8.RuneCountInString(strings.TrimSpace(name)) < minNameLength {
		verr.add("name", fmt.Sprintf("name must contain at least %d characters", minNameLength))
	}
}

func validateBirthdate(verr *ValidationError, birthdate models.Date, now time.Time) {
	switch {
	case birthdate.IsZero():
		verr.add("birthdate", "birthdate is required")
	case birthdate.After(now):
		verr.add("birthdate", "birthdate cannot be in the future")
	case birthdate.Before(earliestBirthdate.Time):
		verr.add("birthdate", "birthdate cannot be before 1900-01-01")
	}
}

func validatePlushID(verr *ValidationError, plushID string) {
	if plushID != "" && !plushIDPattern.MatchString(plushID) {
		verr.add("plushId", "plush id must be alphanumeric")
	}
}
