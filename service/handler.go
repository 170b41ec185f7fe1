package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"twitch-chat-guard/model"
	"twitch-chat-guard/moderation"
	"twitch-chat-guard/telemetry"
)

// LogLimit — сколько последних действий хранится в журнале канала.
const LogLimit = 50

var (
	// ErrNotConnected — команда не отправлена, соединение не открыто.
	ErrNotConnected = errors.New("service: connection is not open")
	// ErrInvalidAction — ручное действие заполнено неверно.
	ErrInvalidAction = errors.New("service: invalid action")
)

// Commander исполняет команды модерации в канале (реализуется twitch.Session).
type Commander interface {
	Delete(messageID string) bool
	Timeout(username string, d time.Duration, reason string) bool
	Ban(username, reason string) bool
}

// EventSink принимает сообщения на запись (storage.Batcher).
type EventSink interface {
	Enqueue(model.ChatEvent) bool
}

// ActionStore сохраняет выполненные действия (storage.ActionLog).
type ActionStore interface {
	Save(ctx context.Context, action model.ModerationAction) error
}

// Printer выводит ленту в консоль (console.Printer).
type Printer interface {
	PrintMessage(model.ChatEvent)
	PrintStatus(channel string, s model.ConnectionStatus)
	PrintAction(a model.ModerationAction, sent bool)
}

// Deps — необязательные зависимости обработчика. Nil отключает соответствующую функцию.
type Deps struct {
	Events  EventSink
	Actions ActionStore
	Printer Printer
	Log     *zap.Logger
	// Timeout ограничивает обращения к Redis и базе из обработчика.
	Timeout time.Duration
}

// ActionRequest — ручное действие модератора.
type ActionRequest struct {
	Type      model.ActionType `json:"type"`
	Username  string           `json:"username"`
	MessageID string           `json:"messageId"`
	Reason    string           `json:"reason"`
	Duration  time.Duration    `json:"-"`
}

// Handler реализует twitch.Listener одного канала: статистика, метрики,
// запись в хранилище и автоматическая модерация.
type Handler struct {
	channel string
	policy  *moderation.Policy
	deps    Deps
	cmd     Commander

	mu      sync.Mutex
	status  model.ConnectionStatus
	stats   model.ChannelStats
	actions []model.ModerationAction
}

// NewHandler собирает Handler канала. Commander подключается через Attach.
func NewHandler(channel string, policy *moderation.Policy, deps Deps) *Handler {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Timeout <= 0 {
		deps.Timeout = 5 * time.Second
	}
	return &Handler{channel: channel, policy: policy, deps: deps}
}

// Attach задаёт исполнителя команд. Вызывается до подключения сессии.
func (h *Handler) Attach(cmd Commander) {
	h.cmd = cmd
}

// OnMessage учитывает сообщение и применяет политику модерации.
func (h *Handler) OnMessage(ev model.ChatEvent) {
	h.mu.Lock()
	h.stats.TotalMessages++
	if ev.Classification.IsSpam {
		h.stats.SpamDetected++
	}
	h.mu.Unlock()

	telemetry.ObserveMessage(h.channel, ev.Classification)

	if h.deps.Events != nil && !h.deps.Events.Enqueue(ev) {
		telemetry.ObserveStorageDrop()
	}
	if h.deps.Printer != nil {
		h.deps.Printer.PrintMessage(ev)
	}

	if h.policy == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.deps.Timeout)
	defer cancel()

	for _, action := range h.policy.Decide(ctx, ev) {
		h.execute(ctx, action)
	}
}

// OnStatus запоминает состояние соединения.
func (h *Handler) OnStatus(s model.ConnectionStatus) {
	h.mu.Lock()
	h.status = s
	h.mu.Unlock()

	telemetry.ObserveStatus(h.channel, s)
	if h.deps.Printer != nil {
		h.deps.Printer.PrintStatus(h.channel, s)
	}

	h.deps.Log.Info("twitch: статус соединения", zap.String("channel", h.channel), zap.Stringer("status", s))
}

// Act выполняет ручное действие модератора.
func (h *Handler) Act(ctx context.Context, req ActionRequest) (model.ModerationAction, error) {
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.MessageID = strings.TrimSpace(req.MessageID)

	switch req.Type {
	case model.ActionDelete:
		if req.MessageID == "" {
			return model.ModerationAction{}, fmt.Errorf("%w: delete requires messageId", ErrInvalidAction)
		}
	case model.ActionTimeout, model.ActionBan:
		if req.Username == "" {
			return model.ModerationAction{}, fmt.Errorf("%w: %s requires username", ErrInvalidAction, req.Type)
		}
		if req.Type == model.ActionTimeout && req.Duration <= 0 && h.policy != nil {
			req.Duration = h.policy.Settings().TimeoutDuration
		}
	default:
		return model.ModerationAction{}, fmt.Errorf("%w: unknown type %q", ErrInvalidAction, req.Type)
	}

	action := model.ModerationAction{
		ID:        uuid.NewString(),
		Type:      req.Type,
		Channel:   h.channel,
		Username:  req.Username,
		MessageID: req.MessageID,
		Reason:    strings.TrimSpace(req.Reason),
		Duration:  req.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if !h.execute(ctx, action) {
		return action, ErrNotConnected
	}
	return action, nil
}

// Status возвращает последнее известное состояние соединения.
func (h *Handler) Status() model.ConnectionStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Stats возвращает копию счётчиков канала.
func (h *Handler) Stats() model.ChannelStats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.stats
}

// Log возвращает журнал действий, новые первыми.
func (h *Handler) Log() []model.ModerationAction {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]model.ModerationAction(nil), h.actions...)
}

func (h *Handler) execute(ctx context.Context, action model.ModerationAction) bool {
	sent := h.send(action)

	telemetry.ObserveAction(action, sent)
	if h.deps.Printer != nil {
		h.deps.Printer.PrintAction(action, sent)
	}

	if !sent {
		h.deps.Log.Warn("модерация: команда не отправлена",
			zap.String("channel", h.channel),
			zap.String("type", string(action.Type)),
			zap.String("user", action.Username),
		)
		return false
	}

	h.record(action)

	if h.deps.Actions != nil {
		if err := h.deps.Actions.Save(ctx, action); err != nil {
			h.deps.Log.Error("модерация: не удалось сохранить действие", zap.String("channel", h.channel), zap.Error(err))
		}
	}
	return true
}

func (h *Handler) send(action model.ModerationAction) bool {
	if h.cmd == nil {
		return false
	}
	switch action.Type {
	case model.ActionDelete:
		return h.cmd.Delete(action.MessageID)
	case model.ActionTimeout:
		return h.cmd.Timeout(action.Username, action.Duration, action.Reason)
	case model.ActionBan:
		return h.cmd.Ban(action.Username, action.Reason)
	}
	return false
}

func (h *Handler) record(action model.ModerationAction) {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch action.Type {
	case model.ActionDelete:
		h.stats.Deletes++
	case model.ActionTimeout:
		h.stats.Timeouts++
	case model.ActionBan:
		h.stats.Bans++
	}

	h.actions = append([]model.ModerationAction{action}, h.actions...)
	if len(h.actions) > LogLimit {
		h.actions = h.actions[:LogLimit]
	}
}
