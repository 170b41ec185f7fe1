package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config агрегирует значения конфигурации из переменных окружения.
type Config struct {
	Twitch         TwitchConfig
	Reconnect      ReconnectConfig
	Postgres       PostgresConfig
	Batch          BatchConfig
	Redis          RedisConfig
	HTTP           HTTPConfig
	Log            LogConfig
	ModerationFile string
	Console        bool
}

// TwitchConfig содержит учётные данные и каналы для сессий чата.
// Токен берётся либо из TWITCH_OAUTH_TOKEN, либо из файла TWITCH_TOKEN_FILE.
type TwitchConfig struct {
	Username     string
	OAuthToken   string
	Channels     []string
	URL          string
	TokenFile    string
	ClientID     string
	ClientSecret string
}

// ReconnectConfig задаёт паузу и число попыток переподключения.
type ReconnectConfig struct {
	Delay       time.Duration
	MaxAttempts int
}

// PostgresConfig хранит параметры подключения к пулу базы данных.
// Блок необязателен: либо задан целиком, либо не задан вовсе.
type PostgresConfig struct {
	Host     string
	Port     string
	DB       string
	User     string
	Password string
}

// Enabled сообщает, настроено ли хранилище.
func (p PostgresConfig) Enabled() bool {
	return p.Host != "" || p.Port != "" || p.DB != "" || p.User != "" || p.Password != ""
}

// DSN собирает строку подключения для pgx/pgxpool.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", p.User, p.Password, p.Host, p.Port, p.DB)
}

// BatchConfig задаёт параметры батчинга и флашей при записи чатов.
type BatchConfig struct {
	MaxBatch      int
	FlushEvery    time.Duration
	ChanBuffer    int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

// RedisConfig — счётчики нарушений. Пустой Addr означает счётчики в памяти.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// HTTPConfig — адрес административного API. Пустая строка отключает API.
type HTTPConfig struct {
	Addr string
}

// LogConfig — уровень и формат логов zap.
type LogConfig struct {
	Level  string
	Format string
}

// Load читает переменные окружения и возвращает валидированную Config.
func Load() (Config, error) {
	cfg := Config{
		Twitch: TwitchConfig{
			Username:     strings.TrimSpace(os.Getenv("TWITCH_USERNAME")),
			OAuthToken:   strings.TrimSpace(os.Getenv("TWITCH_OAUTH_TOKEN")),
			Channels:     splitAndTrim(os.Getenv("TWITCH_CHANNELS")),
			URL:          envOr("TWITCH_IRC_URL", "wss://irc-ws.chat.twitch.tv:443"),
			TokenFile:    strings.TrimSpace(os.Getenv("TWITCH_TOKEN_FILE")),
			ClientID:     strings.TrimSpace(os.Getenv("TWITCH_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("TWITCH_CLIENT_SECRET")),
		},
		Postgres: PostgresConfig{
			Host:     strings.TrimSpace(os.Getenv("POSTGRES_HOST")),
			Port:     strings.TrimSpace(os.Getenv("POSTGRES_PORT")),
			DB:       strings.TrimSpace(os.Getenv("POSTGRES_DB")),
			User:     strings.TrimSpace(os.Getenv("POSTGRES_USER")),
			Password: strings.TrimSpace(os.Getenv("POSTGRES_PASSWORD")),
		},
		Batch: BatchConfig{
			MaxBatch:      100,
			FlushEvery:    1500 * time.Millisecond,
			ChanBuffer:    4096,
			StatsLogEvery: 5 * time.Minute,
			FlushTimeout:  5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(os.Getenv("REDIS_ADDR")),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		HTTP: HTTPConfig{
			Addr: envOr("HTTP_ADDR", ":8080"),
		},
		Log: LogConfig{
			Level:  envOr("LOG_LEVEL", "info"),
			Format: envOr("LOG_FORMAT", "json"),
		},
		ModerationFile: strings.TrimSpace(os.Getenv("MODERATION_FILE")),
	}

	var err error
	if cfg.Reconnect.Delay, err = durationEnv("RECONNECT_DELAY", 3*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.Reconnect.MaxAttempts, err = intEnv("RECONNECT_MAX_ATTEMPTS", 5); err != nil {
		return Config{}, err
	}
	if cfg.Redis.DB, err = intEnv("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	if cfg.Console, err = boolEnv("CONSOLE_OUTPUT", false); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	if len(c.Twitch.Channels) == 0 {
		return fmt.Errorf("требуется TWITCH_CHANNELS")
	}
	if c.Twitch.OAuthToken == "" && c.Twitch.TokenFile == "" {
		return fmt.Errorf("требуется TWITCH_OAUTH_TOKEN или TWITCH_TOKEN_FILE")
	}
	if c.Twitch.OAuthToken != "" && c.Twitch.Username == "" {
		return fmt.Errorf("требуется TWITCH_USERNAME")
	}
	if (c.Twitch.ClientID == "") != (c.Twitch.ClientSecret == "") {
		return fmt.Errorf("TWITCH_CLIENT_ID и TWITCH_CLIENT_SECRET задаются вместе")
	}

	if c.Reconnect.Delay <= 0 {
		return fmt.Errorf("RECONNECT_DELAY должен быть больше нуля")
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("RECONNECT_MAX_ATTEMPTS не может быть отрицательным")
	}

	if c.Postgres.Enabled() {
		if c.Postgres.Host == "" {
			return fmt.Errorf("требуется POSTGRES_HOST")
		}
		if c.Postgres.Port == "" {
			return fmt.Errorf("требуется POSTGRES_PORT")
		}
		if c.Postgres.DB == "" {
			return fmt.Errorf("требуется POSTGRES_DB")
		}
		if c.Postgres.User == "" {
			return fmt.Errorf("требуется POSTGRES_USER")
		}
		if c.Postgres.Password == "" {
			return fmt.Errorf("требуется POSTGRES_PASSWORD")
		}
	}

	if c.Batch.MaxBatch <= 0 {
		return fmt.Errorf("Batch.MaxBatch должен быть больше нуля")
	}
	if c.Batch.FlushEvery <= 0 {
		return fmt.Errorf("Batch.FlushEvery должен быть больше нуля")
	}
	if c.Batch.ChanBuffer <= 0 {
		return fmt.Errorf("Batch.ChanBuffer должен быть больше нуля")
	}
	if c.Batch.StatsLogEvery <= 0 {
		return fmt.Errorf("Batch.StatsLogEvery должен быть больше нуля")
	}
	if c.Batch.FlushTimeout <= 0 {
		return fmt.Errorf("Batch.FlushTimeout должен быть больше нуля")
	}

	return nil
}

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(p), "#")))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
