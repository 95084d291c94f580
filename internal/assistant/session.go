package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"smoozies-monitor/internal/models"
)

var (
	ErrNotInitialized    = errors.New("assistant not initialized")
	ErrBusy              = errors.New("assistant is listening or processing")
	ErrInvalidTransition = errors.New("invalid assistant state transition")
	ErrEmptyInput        = errors.New("empty input")
)

// State 会话状态
type State string

const (
	StateUninitialized State = "uninitialized"
	StateIdle          State = "idle"
	StateListening     State = "listening"
	StateProcessing    State = "processing"
)

// DefaultListenTimeout 监听自动结束的时间
const DefaultListenTimeout = 5 * time.Second

// FailureText 文字输入处理失败时返回给调用方的固定文本
const FailureText = "Erreur de traitement"

// Notifier 接收面向用户的提示
type Notifier interface {
	Notify(n models.Notice)
}

// Status 会话状态快照，供界面层渲染
type Status struct {
	State         State         `json:"state"`
	IsInitialized bool          `json:"isInitialized"`
	IsListening   bool          `json:"isListening"`
	IsProcessing  bool          `json:"isProcessing"`
	LastResponse  *string       `json:"lastResponse"`
	LastError     string        `json:"lastError,omitempty"`
	Child         *ChildContext `json:"child,omitempty"`
}

// Session 语音助手会话
type Session struct {
	mu            sync.Mutex
	backend       Backend
	notifier      Notifier
	logger        *zap.Logger
	clock         clock.Clock
	listenTimeout time.Duration

	state        State
	child        *ChildContext
	lastResponse *string
	lastError    error

	// seq 最近一次发起的请求序号，只有最新请求的结果会写入 lastResponse
	seq      uint64
	inflight int

	listenGen   uint64
	listenTimer *clock.Timer

	// pending 忙碌期间收到的跟随请求，回到 Idle 时生效
	pending *pendingBind

	wg sync.WaitGroup
}

type pendingBind struct {
	child *ChildContext // nil 表示清除
}

// SessionOption 会话可选项
type SessionOption func(*Session)

func WithSessionClock(c clock.Clock) SessionOption {
	return func(s *Session) { s.clock = c }
}

func WithListenTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.listenTimeout = d
		}
	}
}

// NewSession 创建未初始化的会话
func NewSession(backend Backend, notifier Notifier, logger *zap.Logger, opts ...SessionOption) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Session{
		backend:       backend,
		notifier:      notifier,
		logger:        logger,
		clock:         clock.New(),
		listenTimeout: DefaultListenTimeout,
		state:         StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init 绑定儿童上下文并进入 Idle；监听或处理中不允许重新绑定
func (s *Session) Init(child ChildContext) error {
	child, err := normalizeContext(child)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busyLocked() {
		return ErrBusy
	}
	s.pending = nil
	s.bindLocked(&child)
	return nil
}

// Clear 解除儿童上下文，回到 Uninitialized
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busyLocked() {
		return ErrBusy
	}
	s.pending = nil
	s.bindLocked(nil)
	return nil
}

// Follow 跟随当前儿童（child 为 nil 时清除）
// 空闲时立即生效；监听或处理中先记下，回到 Idle 时生效，多次调用以最后一次为准
func (s *Session) Follow(child *ChildContext) error {
	if child != nil {
		c, err := normalizeContext(*child)
		if err != nil {
			return err
		}
		child = &c
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.boundToLocked(child) {
		s.pending = nil
		return nil
	}
	if s.busyLocked() {
		s.pending = &pendingBind{child: child}
		s.logger.Debug("Assistant busy, rebind deferred", zap.String("state", string(s.state)))
		return nil
	}
	s.pending = nil
	s.bindLocked(child)
	return nil
}

func (s *Session) boundToLocked(child *ChildContext) bool {
	if child == nil || s.child == nil {
		return child == nil && s.child == nil
	}
	return *child == *s.child
}

func normalizeContext(child ChildContext) (ChildContext, error) {
	if strings.TrimSpace(child.ChildName) == "" {
		return child, fmt.Errorf("child name is required")
	}
	if child.Persona == "" {
		child.Persona = PersonaFriendly
	}
	if child.Language == "" {
		child.Language = LanguageFR
	}
	return child, nil
}

func (s *Session) busyLocked() bool {
	return s.state == StateListening || s.state == StateProcessing
}

// bindLocked 绑定或清除上下文；换了儿童时丢弃上一次的回复
func (s *Session) bindLocked(child *ChildContext) {
	if child == nil {
		s.child = nil
		s.lastResponse = nil
		s.lastError = nil
		s.state = StateUninitialized
		s.logger.Info("Voice assistant cleared")
		return
	}

	if s.child != nil && s.child.ChildID != child.ChildID {
		s.lastResponse = nil
		s.lastError = nil
	}
	s.child = child
	s.state = StateIdle

	s.logger.Info("Voice assistant initialized",
		zap.Int64("child_id", child.ChildID),
		zap.String("child_name", child.ChildName),
		zap.Int("age_years", child.AgeYears),
		zap.String("persona", string(child.Persona)),
		zap.String("language", string(child.Language)),
	)
}

// applyPendingLocked 回到 Idle 后应用忙碌期间记下的跟随请求
func (s *Session) applyPendingLocked() {
	if s.pending == nil || s.state != StateIdle {
		return
	}
	p := s.pending
	s.pending = nil
	s.bindLocked(p.child)
}

// StartListening Idle → Listening，超时后自动结束监听
func (s *Session) StartListening() error {
	notice, err := s.startListening()
	s.notify(notice)
	return err
}

func (s *Session) startListening() (*models.Notice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUninitialized {
		return notInitializedNotice(), ErrNotInitialized
	}
	if s.state != StateIdle {
		return nil, fmt.Errorf("%w: cannot start listening while %s", ErrInvalidTransition, s.state)
	}

	s.state = StateListening
	s.listenGen++
	gen := s.listenGen
	s.listenTimer = s.clock.AfterFunc(s.listenTimeout, func() {
		s.stopListening(gen, true)
	})

	s.logger.Debug("Voice assistant listening", zap.Int64("child_id", s.child.ChildID))
	return &models.Notice{
		Level:   models.NoticeInfo,
		Title:   "Écoute en cours",
		Message: "L'assistant vocal vous écoute...",
		ChildID: s.child.ChildID,
	}, nil
}

// StopListening Listening → Processing，异步处理语音；非监听状态下为空操作
func (s *Session) StopListening() error {
	s.mu.Lock()
	gen := s.listenGen
	s.mu.Unlock()

	s.stopListening(gen, false)
	return nil
}

func (s *Session) stopListening(gen uint64, fromTimer bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateListening || s.listenGen != gen {
		return
	}
	if !fromTimer && s.listenTimer != nil {
		s.listenTimer.Stop()
	}
	s.listenTimer = nil

	s.state = StateProcessing
	s.inflight++
	s.seq++
	req := s.seq
	child := *s.child

	s.wg.Add(1)
	go s.processVoice(req, child)
}

func (s *Session) processVoice(req uint64, child ChildContext) {
	defer s.wg.Done()

	resp, err := s.backend.ProcessVoiceInput(context.Background(), nil, child)

	if err != nil {
		s.logger.Warn("Voice input processing failed",
			zap.Int64("child_id", child.ChildID),
			zap.Error(err),
		)
		s.mu.Lock()
		s.lastError = err
		s.finishLocked()
		s.mu.Unlock()

		s.notify(&models.Notice{
			Level:   models.NoticeError,
			Title:   "Erreur",
			Message: "Impossible de traiter votre demande vocale.",
			ChildID: child.ChildID,
		})
		return
	}

	s.mu.Lock()
	s.recordResponseLocked(req, resp.Text)
	s.finishLocked()
	s.mu.Unlock()

	if resp.Audio != "" {
		s.logger.Debug("Playing assistant audio", zap.String("audio", resp.Audio))
	}
}

// SendTextInput 发送文字输入并同步返回回复文本；失败时返回 FailureText 和错误
func (s *Session) SendTextInput(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}

	s.mu.Lock()
	switch {
	case s.state == StateUninitialized:
		s.mu.Unlock()
		s.notify(notInitializedNotice())
		return "", ErrNotInitialized
	case s.state == StateListening:
		s.mu.Unlock()
		return "", fmt.Errorf("%w: cannot send text while listening", ErrInvalidTransition)
	case s.pending != nil:
		// 当前儿童已变化，等正在处理的请求结束后再接受新输入
		s.mu.Unlock()
		return "", ErrBusy
	}

	s.state = StateProcessing
	s.inflight++
	s.seq++
	req := s.seq
	child := *s.child
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()

	resp, err := s.backend.GenerateResponse(ctx, text, child)

	if err != nil {
		s.logger.Warn("Text input processing failed",
			zap.Int64("child_id", child.ChildID),
			zap.Error(err),
		)
		s.mu.Lock()
		s.lastError = err
		s.finishLocked()
		s.mu.Unlock()

		s.notify(&models.Notice{
			Level:   models.NoticeError,
			Title:   "Erreur",
			Message: "Impossible de traiter votre message texte.",
			ChildID: child.ChildID,
		})
		return FailureText, fmt.Errorf("generate response: %w", err)
	}

	s.mu.Lock()
	s.recordResponseLocked(req, resp.Text)
	s.finishLocked()
	s.mu.Unlock()

	return resp.Text, nil
}

// Status 返回当前状态快照
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		State:         s.state,
		IsInitialized: s.child != nil,
		IsListening:   s.state == StateListening,
		IsProcessing:  s.state == StateProcessing,
	}
	if s.lastResponse != nil {
		text := *s.lastResponse
		st.LastResponse = &text
	}
	if s.lastError != nil {
		st.LastError = s.lastError.Error()
	}
	if s.child != nil {
		child := *s.child
		st.Child = &child
	}
	return st
}

// Close 取消监听并等待正在处理的请求结束
func (s *Session) Close() {
	s.mu.Lock()
	if s.state == StateListening {
		if s.listenTimer != nil {
			s.listenTimer.Stop()
			s.listenTimer = nil
		}
		s.listenGen++
		s.state = StateIdle
		s.applyPendingLocked()
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// finishLocked 最后一个请求结束时回到 Idle，并应用等待中的跟随请求
func (s *Session) finishLocked() {
	s.inflight--
	if s.inflight == 0 && s.state == StateProcessing {
		s.state = StateIdle
		s.applyPendingLocked()
	}
}

func (s *Session) recordResponseLocked(req uint64, text string) {
	if req != s.seq {
		s.logger.Debug("Dropping stale assistant response", zap.Uint64("request", req), zap.Uint64("latest", s.seq))
		return
	}
	s.lastResponse = &text
	s.lastError = nil
}

// notify 在锁外调用，通知方可能有网络 I/O
func (s *Session) notify(n *models.Notice) {
	if n != nil && s.notifier != nil {
		s.notifier.Notify(*n)
	}
}

func notInitializedNotice() *models.Notice {
	return &models.Notice{
		Level:   models.NoticeWarning,
		Title:   "Assistant non initialisé",
		Message: "Veuillez patienter pendant l'initialisation de l'assistant vocal.",
	}
}
