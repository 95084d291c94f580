package assistant

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

const (
	defaultGenerateLatency = time.Second
	defaultVoiceLatency    = 1500 * time.Millisecond

	simulatedAudioHandle = "audio_simulation_url"
)

// 模拟后端在内部出错时返回的兜底文本
var (
	fallbackText = map[Language]string{
		LanguageFR: "Je suis désolé, je ne peux pas te répondre pour le moment.",
		LanguageEN: "I'm sorry, I can't answer right now.",
	}
	recognizedText = map[Language]string{
		LanguageFR: "Bonjour, comment ça va aujourd'hui ?",
		LanguageEN: "Hello, how are you today?",
	}
)

// SimulatedBackend 本地模拟的对话后端（固定延迟 + 随机回复）
type SimulatedBackend struct {
	clock           clock.Clock
	logger          *zap.Logger
	intn            func(n int) int
	generateLatency time.Duration
	voiceLatency    time.Duration
}

// SimulatedOption 模拟后端可选项
type SimulatedOption func(*SimulatedBackend)

func WithBackendClock(c clock.Clock) SimulatedOption {
	return func(b *SimulatedBackend) { b.clock = c }
}

func WithBackendRandom(intn func(n int) int) SimulatedOption {
	return func(b *SimulatedBackend) { b.intn = intn }
}

// WithLatency 设置生成回复和语音处理的模拟延迟（0 表示不等待）
func WithLatency(generate, voice time.Duration) SimulatedOption {
	return func(b *SimulatedBackend) {
		b.generateLatency = generate
		b.voiceLatency = voice
	}
}

// NewSimulatedBackend 创建模拟后端
func NewSimulatedBackend(logger *zap.Logger, opts ...SimulatedOption) *SimulatedBackend {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &SimulatedBackend{
		clock:           clock.New(),
		logger:          logger,
		intn:            rand.New(rand.NewSource(time.Now().UnixNano())).Intn,
		generateLatency: defaultGenerateLatency,
		voiceLatency:    defaultVoiceLatency,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *SimulatedBackend) GenerateResponse(ctx context.Context, input string, child ChildContext) (Response, error) {
	b.logger.Debug("Generating assistant response",
		zap.Int64("child_id", child.ChildID),
		zap.String("input", input),
	)

	if err := b.wait(ctx, b.generateLatency); err != nil {
		return Response{Text: FallbackText(child.Language)}, err
	}

	responses := b.responses(child)
	return Response{Text: responses[b.intn(len(responses))]}, nil
}

func (b *SimulatedBackend) ProcessVoiceInput(ctx context.Context, audio []byte, child ChildContext) (Response, error) {
	b.logger.Debug("Processing voice input",
		zap.Int64("child_id", child.ChildID),
		zap.Int("audio_bytes", len(audio)),
	)

	if err := b.wait(ctx, b.voiceLatency); err != nil {
		return Response{Text: FallbackText(child.Language)}, err
	}

	resp, err := b.GenerateResponse(ctx, recognizedText[child.Language], child)
	if err != nil {
		return resp, err
	}

	audioHandle, err := b.TextToSpeech(ctx, resp.Text)
	if err != nil {
		// 语音合成失败时仍返回文本
		b.logger.Warn("Text to speech failed", zap.Error(err))
		return resp, nil
	}
	resp.Audio = audioHandle
	return resp, nil
}

func (b *SimulatedBackend) TextToSpeech(ctx context.Context, text string) (string, error) {
	return simulatedAudioHandle, nil
}

// FallbackText 后端不可用时展示给儿童的文本
func FallbackText(lang Language) string {
	if text, ok := fallbackText[lang]; ok {
		return text
	}
	return fallbackText[LanguageFR]
}

func (b *SimulatedBackend) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := b.clock.Timer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *SimulatedBackend) responses(child ChildContext) []string {
	mood := "content"
	if b.intn(2) == 1 {
		mood = "un peu fatigué"
	}

	if child.Language == LanguageEN {
		mood = "happy"
		if b.intn(2) == 1 {
			mood = "a little tired"
		}
		out := []string{
			fmt.Sprintf("Hello %s! How can I help you today?", child.ChildName),
			fmt.Sprintf("You look %s today. How do you feel?", mood),
			"Would you like me to tell you a story?",
		}
		return append(out, personaLine(child)...)
	}

	out := []string{
		fmt.Sprintf("Bonjour %s ! Comment puis-je t'aider aujourd'hui ?", child.ChildName),
		fmt.Sprintf("Tu as l'air %s aujourd'hui. Comment te sens-tu ?", mood),
		"Est-ce que tu veux que je te raconte une histoire ?",
	}
	return append(out, personaLine(child)...)
}

func personaLine(child ChildContext) []string {
	switch {
	case child.Persona == PersonaEducational && child.Language == LanguageEN:
		return []string{fmt.Sprintf("Did you know that octopuses have three hearts? You're %d, ready for a quiz?", child.AgeYears)}
	case child.Persona == PersonaEducational:
		return []string{fmt.Sprintf("Savais-tu que la pieuvre a trois cœurs ? Tu as %d ans, prêt pour un petit quiz ?", child.AgeYears)}
	case child.Language == LanguageEN:
		return []string{"I'm your friend Pulche! Do you want to play a game?"}
	default:
		return []string{"Je suis ton ami Pulche ! Tu veux jouer à un jeu ?"}
	}
}
