package twitch

import (
	"context"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"twitch-chat-guard/classifier"
	"twitch-chat-guard/irc"
	"twitch-chat-guard/model"
)

// Listener получает события сессии. Методы вызываются из одной горутины
// (Session.Run) строго в порядке возникновения событий и могут вызывать
// любые методы сессии.
type Listener interface {
	OnMessage(model.ChatEvent)
	OnStatus(model.ConnectionStatus)
}

type nopListener struct{}

func (nopListener) OnMessage(model.ChatEvent)       {}
func (nopListener) OnStatus(model.ConnectionStatus) {}

// Session — модерационная сессия одного канала: соединение, разбор
// протокола и классификация входящих сообщений.
type Session struct {
	conn     *Connection
	parser   *irc.Parser
	listener Listener
	queue    *dispatcher
	log      *zap.Logger
	now      func() time.Time

	cfgMu sync.Mutex
	cfg   atomic.Pointer[classifier.Config]
}

// NewSession собирает сессию с единственным слушателем.
func NewSession(listener Listener, opts Options) *Session {
	opts = opts.withDefaults()
	if listener == nil {
		listener = nopListener{}
	}

	s := &Session{
		parser:   irc.NewParser(),
		listener: listener,
		queue:    newDispatcher(),
		log:      opts.Logger,
		now:      time.Now,
	}
	cfg := classifier.DefaultConfig()
	s.cfg.Store(&cfg)
	s.conn = newConnection(opts, s.queue.pushStatus, s.handleFrame)

	return s
}

// Run доставляет события слушателю и блокируется до отмены контекста.
// При выходе сессия отключается, а оставшиеся события доставляются.
func (s *Session) Run(ctx context.Context) error {
	s.queue.run(ctx, s.listener)
	s.conn.Disconnect()
	s.queue.drain(s.listener)
	return ctx.Err()
}

// Connect подключает сессию к каналу, заменяя текущее соединение.
func (s *Session) Connect(channel, token, username string) {
	s.log.Info("twitch: подключение", zap.String("channel", channel), zap.String("username", username))
	s.conn.Connect(channel, token, username)
}

// Disconnect отключает сессию без автоматического переподключения.
func (s *Session) Disconnect() {
	s.conn.Disconnect()
}

// Status возвращает текущее состояние соединения.
func (s *Session) Status() model.ConnectionStatus {
	return s.conn.Status()
}

// Channel возвращает канал сессии.
func (s *Session) Channel() string {
	return s.conn.Channel()
}

// SendRaw отправляет команду чата (/delete, /timeout, /ban) строкой PRIVMSG
// в канал сессии. Всё после первого перевода строки отбрасывается.
// Если соединение не открыто, команда молча теряется и возвращается false.
func (s *Session) SendRaw(command string) bool {
	if i := strings.IndexAny(command, "\r\n"); i >= 0 {
		command = command[:i]
	}
	if strings.TrimSpace(command) == "" {
		return false
	}
	return s.conn.sendChat(command)
}

// Delete удаляет сообщение по id.
func (s *Session) Delete(messageID string) bool {
	return s.SendRaw(DeleteCommand(messageID))
}

// Timeout временно блокирует пользователя.
func (s *Session) Timeout(username string, d time.Duration, reason string) bool {
	return s.SendRaw(TimeoutCommand(username, d, reason))
}

// Ban блокирует пользователя навсегда.
func (s *Session) Ban(username, reason string) bool {
	return s.SendRaw(BanCommand(username, reason))
}

// ClassifierConfig возвращает копию действующей конфигурации классификатора.
func (s *Session) ClassifierConfig() classifier.Config {
	cfg := *s.cfg.Load()
	cfg.Blacklist = slices.Clone(cfg.Blacklist)
	cfg.AllowedDomains = slices.Clone(cfg.AllowedDomains)
	return cfg
}

// SetClassifierConfig атомарно заменяет конфигурацию целиком.
func (s *Session) SetClassifierConfig(cfg classifier.Config) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	cfg = classifier.NewConfig(cfg.Blacklist, cfg.BlockAllLinks, cfg.AllowedDomains)
	s.cfg.Store(&cfg)
}

// SetBlacklist заменяет пользовательский чёрный список.
func (s *Session) SetBlacklist(words []string) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	next := s.cfg.Load().WithBlacklist(words)
	s.cfg.Store(&next)
}

// SetLinkPolicy заменяет политику ссылок.
func (s *Session) SetLinkPolicy(blockAllLinks bool, allowedDomains []string) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	next := s.cfg.Load().WithLinkPolicy(blockAllLinks, allowedDomains)
	s.cfg.Store(&next)
}

// handleFrame вызывается горутиной чтения соединения поколения gen.
func (s *Session) handleFrame(gen uint64, frame string) {
	for _, line := range irc.SplitLines(frame) {
		switch msg := s.parser.Parse(line).(type) {
		case irc.Ping:
			s.conn.sendLine(gen, "PONG :tmi.twitch.tv")
		case irc.JoinConfirmed:
			s.conn.confirmJoin(gen)
		case irc.Utterance:
			ev := s.toEvent(msg)
			s.conn.deliver(gen, func() { s.queue.pushMessage(ev) })
		case irc.Notice:
			s.log.Info("twitch: notice",
				zap.String("channel", msg.Channel),
				zap.String("msg_id", msg.MsgID),
				zap.String("text", msg.Text),
			)
		case irc.Reconnect:
			s.log.Info("twitch: сервер запросил RECONNECT")
			s.conn.serverReconnect(gen)
		}
	}
}

func (s *Session) toEvent(u irc.Utterance) model.ChatEvent {
	return model.ChatEvent{
		ID:             u.ID,
		Channel:        u.Channel,
		UserID:         u.UserID,
		Username:       u.Username,
		DisplayName:    u.DisplayName,
		Text:           u.Text,
		Color:          u.Color,
		Badges:         u.Badges,
		SentAt:         u.SentAt,
		ReceivedAt:     s.now().UTC(),
		Classification: classifier.Classify(u.Text, *s.cfg.Load()),
	}
}
