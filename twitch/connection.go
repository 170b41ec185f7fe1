package twitch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"twitch-chat-guard/model"
)

const (
	// DefaultReconnectDelay — пауза перед повторным подключением.
	DefaultReconnectDelay = 3 * time.Second
	// DefaultMaxReconnects — сколько раз подряд переподключаться после обрыва.
	DefaultMaxReconnects = 5
	// DefaultStableAfter — сколько соединение должно провисеть после JOIN,
	// чтобы счётчик попыток сбросился.
	DefaultStableAfter = time.Minute
)

// CredentialsFunc выдаёт актуальные токен и логин. Вызывается перед каждым подключением.
type CredentialsFunc func(ctx context.Context) (token, username string, err error)

// Options задаёт транспорт и политику переподключения.
// Credentials, если задан, заменяет токен и логин из Connect при каждом подключении.
type Options struct {
	Transport      Transport
	ReconnectDelay time.Duration
	MaxReconnects  int
	StableAfter    time.Duration
	Credentials    CredentialsFunc
	Logger         *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Transport == nil {
		o.Transport = NewWebSocketTransport(DefaultURL)
	}
	if o.ReconnectDelay <= 0 {
		o.ReconnectDelay = DefaultReconnectDelay
	}
	if o.MaxReconnects < 0 {
		o.MaxReconnects = 0
	} else if o.MaxReconnects == 0 {
		o.MaxReconnects = DefaultMaxReconnects
	}
	if o.StableAfter <= 0 {
		o.StableAfter = DefaultStableAfter
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

type credentials struct {
	channel  string
	token    string
	username string
}

// Connection — конечный автомат соединения с IRC-шлюзом.
//
// Каждая попытка подключения получает номер поколения. Горутина чтения,
// результат Dial и таймер переподключения сверяют свой номер с текущим и
// ничего не делают, если соединение уже заменено или закрыто.
// onStatus вызывается под mu, поэтому порядок статусов совпадает с порядком переходов.
type Connection struct {
	transport   Transport
	resolve     CredentialsFunc
	delay       time.Duration
	maxRetries  int
	stableAfter time.Duration
	log         *zap.Logger
	onStatus    func(model.ConnectionStatus)
	onFrame     func(gen uint64, frame string)

	mu       sync.Mutex
	status   model.ConnectionStatus
	gen      uint64
	retries  int
	creds    credentials
	joinedAt time.Time
	conn     Conn
	open     bool
	cancel   context.CancelFunc
	timer    *time.Timer
}

func newConnection(opts Options, onStatus func(model.ConnectionStatus), onFrame func(uint64, string)) *Connection {
	opts = opts.withDefaults()
	return &Connection{
		transport:   opts.Transport,
		resolve:     opts.Credentials,
		delay:       opts.ReconnectDelay,
		maxRetries:  opts.MaxReconnects,
		stableAfter: opts.StableAfter,
		log:         opts.Logger,
		onStatus:    onStatus,
		onFrame:     onFrame,
		status:      model.StatusDisconnected,
	}
}

// Connect закрывает текущее соединение, сбрасывает счётчик попыток и подключается заново.
func (c *Connection) Connect(channel, token, username string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopTimerLocked()
	c.releaseLocked()
	c.creds = credentials{
		channel:  strings.ToLower(strings.TrimPrefix(strings.TrimSpace(channel), "#")),
		token:    strings.TrimSpace(token),
		username: strings.ToLower(strings.TrimSpace(username)),
	}
	c.retries = 0
	c.joinedAt = time.Time{}
	c.dialLocked()
}

// Disconnect закрывает соединение и запрещает автоматическое переподключение.
// Вызывать можно в любом состоянии.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.retries = c.maxRetries
	c.joinedAt = time.Time{}
	c.stopTimerLocked()
	c.gen++
	c.releaseLocked()
	c.setStatusLocked(model.StatusDisconnected)
}

// Status возвращает текущее состояние.
func (c *Connection) Status() model.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Channel возвращает канал последнего Connect.
func (c *Connection) Channel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.channel
}

func (c *Connection) dialLocked() {
	c.gen++
	gen := c.gen
	creds := c.creds

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setStatusLocked(model.StatusConnecting)

	go c.run(ctx, gen, creds)
}

func (c *Connection) run(ctx context.Context, gen uint64, creds credentials) {
	if c.resolve != nil {
		token, username, err := c.resolve(ctx)
		if err != nil {
			c.fail(gen, fmt.Errorf("credentials: %w", err))
			return
		}
		creds.token = strings.TrimSpace(token)
		creds.username = strings.ToLower(strings.TrimSpace(username))

		c.mu.Lock()
		if gen == c.gen {
			c.creds.token, c.creds.username = creds.token, creds.username
		}
		c.mu.Unlock()
	}

	conn, err := c.transport.Dial(ctx)
	if err != nil {
		c.fail(gen, err)
		return
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.conn = conn
	c.mu.Unlock()

	for _, line := range handshake(creds) {
		if err := conn.WriteLine(line); err != nil {
			c.fail(gen, err)
			return
		}
	}

	c.mu.Lock()
	if gen == c.gen {
		c.open = true
	}
	c.mu.Unlock()

	for {
		frame, err := conn.ReadFrame()
		if err != nil {
			if errors.Is(err, ErrClosed) {
				c.closed(gen)
			} else {
				c.fail(gen, err)
			}
			return
		}
		c.onFrame(gen, frame)
	}
}

func handshake(creds credentials) []string {
	token := creds.token
	if !strings.HasPrefix(token, "oauth:") {
		token = "oauth:" + token
	}
	return []string{
		"PASS " + token,
		"NICK " + creds.username,
		"CAP REQ :twitch.tv/tags twitch.tv/commands",
		"JOIN #" + creds.channel,
	}
}

// fail переводит соединение в Error и далее обрабатывает как закрытие.
func (c *Connection) fail(gen uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.log.Warn("twitch: ошибка соединения", zap.String("channel", c.creds.channel), zap.Error(err))
	c.setStatusLocked(model.StatusError)
	c.closeLocked()
}

func (c *Connection) closed(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	c.log.Info("twitch: соединение закрыто сервером", zap.String("channel", c.creds.channel))
	c.closeLocked()
}

// serverReconnect обрабатывает RECONNECT от Twitch как штатное закрытие.
func (c *Connection) serverReconnect(gen uint64) {
	c.closed(gen)
}

func (c *Connection) closeLocked() {
	if !c.joinedAt.IsZero() && time.Since(c.joinedAt) >= c.stableAfter {
		c.retries = 0
	}
	c.joinedAt = time.Time{}
	c.gen++
	c.releaseLocked()
	c.setStatusLocked(model.StatusDisconnected)

	if c.retries >= c.maxRetries {
		c.log.Warn("twitch: попытки переподключения исчерпаны",
			zap.String("channel", c.creds.channel), zap.Int("attempts", c.retries))
		return
	}

	c.retries++
	gen := c.gen
	c.log.Info("twitch: переподключение",
		zap.String("channel", c.creds.channel),
		zap.Int("attempt", c.retries),
		zap.Duration("delay", c.delay),
	)
	c.timer = time.AfterFunc(c.delay, func() { c.reconnect(gen) })
}

func (c *Connection) reconnect(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.timer == nil {
		return
	}
	c.timer = nil
	c.dialLocked()
}

// confirmJoin переводит соединение в Connected. Счётчик попыток сбросится
// при закрытии, если соединение продержалось не меньше stableAfter.
func (c *Connection) confirmJoin(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}
	if c.joinedAt.IsZero() {
		c.joinedAt = time.Now()
	}
	c.setStatusLocked(model.StatusConnected)
}

// deliver выполняет fn под mu, только если поколение ещё актуально.
func (c *Connection) deliver(gen uint64, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen == c.gen {
		fn()
	}
}

// sendLine пишет строку в открытое соединение. Если gen не ноль, строка
// отправляется только в соединение этого поколения.
func (c *Connection) sendLine(gen uint64, line string) bool {
	c.mu.Lock()
	conn, open := c.conn, c.open
	if gen != 0 && gen != c.gen {
		open = false
	}
	c.mu.Unlock()

	if !open {
		return false
	}
	if err := conn.WriteLine(line); err != nil {
		c.log.Warn("twitch: не удалось отправить строку", zap.Error(err))
		return false
	}
	return true
}

// sendChat отправляет текст в канал текущего соединения.
func (c *Connection) sendChat(text string) bool {
	c.mu.Lock()
	channel := c.creds.channel
	c.mu.Unlock()

	return c.sendLine(0, "PRIVMSG #"+channel+" :"+text)
}

func (c *Connection) setStatusLocked(s model.ConnectionStatus) {
	if c.status == s {
		return
	}
	c.status = s
	if c.onStatus != nil {
		c.onStatus(s)
	}
}

func (c *Connection) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Connection) releaseLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.open = false
}
