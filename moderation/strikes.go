package moderation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryStrikes хранит счётчики нарушений в памяти процесса (фиксированное окно).
type MemoryStrikes struct {
	mu      sync.Mutex
	entries map[string]strikeEntry
	now     func() time.Time
}

type strikeEntry struct {
	count   int
	resetAt time.Time
}

// NewMemoryStrikes создаёт пустое хранилище.
func NewMemoryStrikes() *MemoryStrikes {
	return &MemoryStrikes{entries: make(map[string]strikeEntry), now: time.Now}
}

// Add увеличивает счётчик и возвращает его значение в текущем окне.
func (m *MemoryStrikes) Add(_ context.Context, channel, username string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	key := strikeKey(channel, username)
	e := m.entries[key]
	if !now.Before(e.resetAt) {
		e = strikeEntry{resetAt: now.Add(window)}
	}
	e.count++
	m.entries[key] = e

	if len(m.entries) > 10000 {
		for k, v := range m.entries {
			if !now.Before(v.resetAt) {
				delete(m.entries, k)
			}
		}
	}

	return e.count, nil
}

// RedisStrikes хранит счётчики в Redis, чтобы эскалация переживала перезапуски.
type RedisStrikes struct {
	client redis.Cmdable
	prefix string
}

// NewRedisStrikes создаёт хранилище; пустой prefix заменяется на "chatguard:strikes".
func NewRedisStrikes(client redis.Cmdable, prefix string) *RedisStrikes {
	if prefix == "" {
		prefix = "chatguard:strikes"
	}
	return &RedisStrikes{client: client, prefix: prefix}
}

// Add выполняет INCR и выставляет TTL окна при первом нарушении.
func (r *RedisStrikes) Add(ctx context.Context, channel, username string, window time.Duration) (int, error) {
	key := r.prefix + ":" + strikeKey(channel, username)

	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis strikes: incr %s: %w", key, err)
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return int(n), fmt.Errorf("redis strikes: expire %s: %w", key, err)
		}
	}
	return int(n), nil
}

func strikeKey(channel, username string) string {
	return strings.ToLower(channel) + ":" + strings.ToLower(username)
}
