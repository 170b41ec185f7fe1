package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"twitch-chat-guard/classifier"
	"twitch-chat-guard/model"
	"twitch-chat-guard/moderation"
	"twitch-chat-guard/tokens"
	"twitch-chat-guard/twitch"
)

// ErrUnknownChannel — канал не обслуживается сервисом.
var ErrUnknownChannel = errors.New("service: unknown channel")

// Config описывает каналы и общие для них настройки.
type Config struct {
	Channels   []string
	Identity   tokens.Provider
	Session    twitch.Options
	Classifier classifier.Config
	Policy     moderation.Settings
	Strikes    moderation.StrikeStore
	Deps       Deps
}

// ChannelState — снимок канала для административного API.
type ChannelState struct {
	Channel        string             `json:"channel"`
	Status         string             `json:"status"`
	Stats          model.ChannelStats `json:"stats"`
	Blacklist      []string           `json:"blacklist"`
	BlockAllLinks  bool               `json:"blockAllLinks"`
	AllowedDomains []string           `json:"allowedDomains"`
}

type channel struct {
	session *twitch.Session
	handler *Handler
}

// Service управляет сессиями модерации по одной на канал.
type Service struct {
	identity tokens.Provider
	order    []string
	channels map[string]channel
	log      *zap.Logger
}

// New собирает сессии для всех каналов. Подключение происходит в Run.
func New(cfg Config) *Service {
	log := cfg.Deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		identity: cfg.Identity,
		channels: make(map[string]channel, len(cfg.Channels)),
		log:      log,
	}

	for _, name := range cfg.Channels {
		name = normalizeChannel(name)
		if _, ok := s.channels[name]; ok || name == "" {
			continue
		}

		chLog := log.With(zap.String("channel", name))
		deps := cfg.Deps
		deps.Log = chLog

		handler := NewHandler(name, moderation.NewPolicy(cfg.Policy, cfg.Strikes, chLog), deps)

		opts := cfg.Session
		opts.Logger = chLog
		if opts.Credentials == nil && cfg.Identity != nil {
			opts.Credentials = credentialsFrom(cfg.Identity)
		}
		session := twitch.NewSession(handler, opts)
		session.SetClassifierConfig(cfg.Classifier)
		handler.Attach(session)

		s.order = append(s.order, name)
		s.channels[name] = channel{session: session, handler: handler}
	}

	return s
}

// credentialsFrom перечитывает Identity перед каждым подключением сессии,
// так что обновлённый токен подхватывается без рестарта.
func credentialsFrom(p tokens.Provider) twitch.CredentialsFunc {
	return func(ctx context.Context) (string, string, error) {
		id, err := p.Identity(ctx)
		if err != nil {
			return "", "", err
		}
		return id.Token, id.Username, nil
	}
}

// Run получает учётные данные, подключает все каналы и блокируется до отмены контекста.
func (s *Service) Run(ctx context.Context) error {
	if s.identity == nil {
		return fmt.Errorf("service run: %w", tokens.ErrNoToken)
	}
	id, err := s.identity.Identity(ctx)
	if err != nil {
		return fmt.Errorf("service run: identity: %w", err)
	}

	var wg sync.WaitGroup
	for _, name := range s.order {
		ch := s.channels[name]
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ch.session.Run(ctx)
		}()
		ch.session.Connect(name, id.Token, id.Username)
	}

	s.log.Info("сервис запущен", zap.Strings("channels", s.order), zap.String("username", id.Username))

	wg.Wait()
	return ctx.Err()
}

// Channels возвращает состояние всех каналов в порядке конфигурации.
func (s *Service) Channels() []ChannelState {
	out := make([]ChannelState, 0, len(s.order))
	for _, name := range s.order {
		ch := s.channels[name]
		cfg := ch.session.ClassifierConfig()
		out = append(out, ChannelState{
			Channel:        name,
			Status:         ch.session.Status().String(),
			Stats:          ch.handler.Stats(),
			Blacklist:      cfg.Blacklist,
			BlockAllLinks:  cfg.BlockAllLinks,
			AllowedDomains: cfg.AllowedDomains,
		})
	}
	return out
}

// Log возвращает журнал действий канала.
func (s *Service) Log(channel string) ([]model.ModerationAction, error) {
	ch, err := s.lookup(channel)
	if err != nil {
		return nil, err
	}
	return ch.handler.Log(), nil
}

// SetBlacklist заменяет чёрный список канала.
func (s *Service) SetBlacklist(channel string, words []string) error {
	ch, err := s.lookup(channel)
	if err != nil {
		return err
	}
	ch.session.SetBlacklist(words)
	return nil
}

// SetLinkPolicy заменяет политику ссылок канала.
func (s *Service) SetLinkPolicy(channel string, blockAllLinks bool, allowedDomains []string) error {
	ch, err := s.lookup(channel)
	if err != nil {
		return err
	}
	ch.session.SetLinkPolicy(blockAllLinks, allowedDomains)
	return nil
}

// Act выполняет ручное действие в канале.
func (s *Service) Act(ctx context.Context, channel string, req ActionRequest) (model.ModerationAction, error) {
	ch, err := s.lookup(channel)
	if err != nil {
		return model.ModerationAction{}, err
	}
	return ch.handler.Act(ctx, req)
}

// Classify оценивает текст по настройкам канала, а без канала по настройкам по умолчанию.
func (s *Service) Classify(channel, text string) (model.Classification, error) {
	if strings.TrimSpace(channel) == "" {
		return classifier.Classify(text, classifier.DefaultConfig()), nil
	}
	ch, err := s.lookup(channel)
	if err != nil {
		return model.Classification{}, err
	}
	return classifier.Classify(text, ch.session.ClassifierConfig()), nil
}

func (s *Service) lookup(name string) (channel, error) {
	ch, ok := s.channels[normalizeChannel(name)]
	if !ok {
		return channel{}, fmt.Errorf("%w: %s", ErrUnknownChannel, name)
	}
	return ch, nil
}

func normalizeChannel(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}
