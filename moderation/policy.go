// Package moderation решает, какие действия применить к сообщению со спамом.
package moderation

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"twitch-chat-guard/classifier"
	"twitch-chat-guard/model"
)

// Settings — настройки автоматической модерации канала.
type Settings struct {
	AutoDelete      bool          `yaml:"auto_delete" json:"autoDelete"`
	AutoTimeout     bool          `yaml:"auto_timeout" json:"autoTimeout"`
	AutoBan         bool          `yaml:"auto_ban" json:"autoBan"`
	TimeoutDuration time.Duration `yaml:"timeout_duration" json:"timeoutDuration"`
	SpamThreshold   int           `yaml:"spam_threshold" json:"spamThreshold"`
	BanAfterStrikes int           `yaml:"ban_after_strikes" json:"banAfterStrikes"`
	StrikeWindow    time.Duration `yaml:"strike_window" json:"strikeWindow"`
}

// DefaultSettings: только удаление сообщений, таймаут 5 минут, порог классификатора.
func DefaultSettings() Settings {
	return Settings{
		AutoDelete:      true,
		TimeoutDuration: 300 * time.Second,
		SpamThreshold:   classifier.SpamThreshold,
		StrikeWindow:    time.Hour,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.TimeoutDuration <= 0 {
		s.TimeoutDuration = def.TimeoutDuration
	}
	if s.SpamThreshold <= 0 {
		s.SpamThreshold = def.SpamThreshold
	}
	if s.StrikeWindow <= 0 {
		s.StrikeWindow = def.StrikeWindow
	}
	return s
}

// StrikeStore считает нарушения пользователя в окне времени.
type StrikeStore interface {
	Add(ctx context.Context, channel, username string, window time.Duration) (int, error)
}

// Policy превращает вердикт классификатора в действия модерации.
type Policy struct {
	settings atomic.Pointer[Settings]
	strikes  StrikeStore
	log      *zap.Logger
	now      func() time.Time
}

// NewPolicy создаёт политику. strikes может быть nil, тогда эскалация отключена.
func NewPolicy(settings Settings, strikes StrikeStore, log *zap.Logger) *Policy {
	if log == nil {
		log = zap.NewNop()
	}
	p := &Policy{strikes: strikes, log: log, now: time.Now}
	p.SetSettings(settings)
	return p
}

// Settings возвращает текущие настройки.
func (p *Policy) Settings() Settings {
	return *p.settings.Load()
}

// SetSettings атомарно заменяет настройки.
func (p *Policy) SetSettings(s Settings) {
	s = s.withDefaults()
	p.settings.Store(&s)
}

// Decide возвращает действия для сообщения. Стример и модераторы не модерируются.
func (p *Policy) Decide(ctx context.Context, ev model.ChatEvent) []model.ModerationAction {
	s := p.Settings()
	if ev.Classification.Score < s.SpamThreshold || ev.IsPrivileged() {
		return nil
	}

	strikes := 0
	if p.strikes != nil && s.BanAfterStrikes > 0 {
		n, err := p.strikes.Add(ctx, ev.Channel, ev.Username, s.StrikeWindow)
		if err != nil {
			p.log.Warn("модерация: не удалось записать нарушение",
				zap.String("channel", ev.Channel), zap.String("user", ev.Username), zap.Error(err))
		}
		strikes = n
	}

	reason := Reason(ev.Classification)
	var actions []model.ModerationAction

	if s.AutoDelete {
		actions = append(actions, p.action(model.ActionDelete, ev, reason, 0))
	}

	switch {
	case s.AutoBan || (s.BanAfterStrikes > 0 && strikes >= s.BanAfterStrikes):
		actions = append(actions, p.action(model.ActionBan, ev, reason, 0))
	case s.AutoTimeout:
		actions = append(actions, p.action(model.ActionTimeout, ev, reason, s.TimeoutDuration))
	}

	return actions
}

func (p *Policy) action(t model.ActionType, ev model.ChatEvent, reason string, d time.Duration) model.ModerationAction {
	return model.ModerationAction{
		ID:        uuid.NewString(),
		Type:      t,
		Channel:   ev.Channel,
		Username:  ev.Username,
		MessageID: ev.ID,
		Reason:    reason,
		Duration:  d,
		Automatic: true,
		CreatedAt: p.now().UTC(),
	}
}

// Reason кратко описывает вердикт для журнала и причины бана.
func Reason(c model.Classification) string {
	if len(c.Reasons) == 0 {
		return fmt.Sprintf("spam score %d", c.Score)
	}
	return fmt.Sprintf("spam score %d: %s", c.Score, c.Reasons[0])
}
