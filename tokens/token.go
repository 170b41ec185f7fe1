package tokens

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoToken — токен не настроен и не найден в хранилище.
var ErrNoToken = errors.New("tokens: token not found")

// Token описывает пользовательский OAuth токен бота.
type Token struct {
	Access    string
	Refresh   string
	Login     string
	UserID    string
	ExpiresAt time.Time
}

// ExpiringSoon — токен истекает в ближайшие пять минут. Нулевой срок означает «неизвестно».
func (t Token) ExpiringSoon(now time.Time) bool {
	if t.ExpiresAt.IsZero() {
		return false
	}
	return t.ExpiresAt.Before(now.Add(5 * time.Minute))
}

// TokenStore описывает хранилище токена бота.
type TokenStore interface {
	Load() (*Token, error)
	Save(Token) error
}

// Identity — учётные данные для входа в чат.
type Identity struct {
	Username string
	Token    string
}

// Provider выдаёт учётные данные для сессии.
type Provider interface {
	Identity(ctx context.Context) (Identity, error)
}

// Static отдаёт учётные данные из конфигурации.
type Static Identity

// Identity реализует Provider.
func (s Static) Identity(ctx context.Context) (Identity, error) {
	if err := ctx.Err(); err != nil {
		return Identity{}, err
	}
	if strings.TrimSpace(s.Token) == "" || strings.TrimSpace(s.Username) == "" {
		return Identity{}, ErrNoToken
	}
	return Identity(s), nil
}
