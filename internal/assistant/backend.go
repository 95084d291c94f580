// Package assistant 语音助手会话：绑定儿童上下文，管理 监听 → 处理 → 空闲 的状态流转
package assistant

import (
	"context"
	"time"

	"smoozies-monitor/internal/models"
)

// Persona 助手说话风格
type Persona string

const (
	PersonaChildish    Persona = "childish"
	PersonaFriendly    Persona = "friendly"
	PersonaEducational Persona = "educational"
)

// Language 助手语言
type Language string

const (
	LanguageFR Language = "fr"
	LanguageEN Language = "en"
)

// ParsePersona 未知值回退到 friendly
func ParsePersona(s string) Persona {
	switch Persona(s) {
	case PersonaChildish, PersonaEducational:
		return Persona(s)
	default:
		return PersonaFriendly
	}
}

// ParseLanguage 未知值回退到 fr
func ParseLanguage(s string) Language {
	if Language(s) == LanguageEN {
		return LanguageEN
	}
	return LanguageFR
}

// ChildContext 会话绑定的儿童上下文
type ChildContext struct {
	ChildID   int64    `json:"childId"`
	ChildName string   `json:"childName"`
	AgeYears  int      `json:"ageYears"`
	Persona   Persona  `json:"persona"`
	Language  Language `json:"language"`
}

// ContextFor 由儿童档案构造会话上下文
func ContextFor(child models.ChildProfile, now time.Time, persona Persona, language Language) ChildContext {
	return ChildContext{
		ChildID:   child.ID,
		ChildName: child.Name,
		AgeYears:  models.CalculateAge(child.Birthdate, now),
		Persona:   persona,
		Language:  language,
	}
}

// Response 助手回复（Audio 为可选的音频句柄）
type Response struct {
	Text  string `json:"text"`
	Audio string `json:"audio,omitempty"`
}

// Backend 对话后端
type Backend interface {
	// GenerateResponse 根据文字输入生成回复
	GenerateResponse(ctx context.Context, input string, child ChildContext) (Response, error)
	// ProcessVoiceInput 语音转文字后生成回复，并附带语音
	ProcessVoiceInput(ctx context.Context, audio []byte, child ChildContext) (Response, error)
	TextToSpeech(ctx context.Context, text string) (string, error)
}
