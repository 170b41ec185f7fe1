package tokens

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"twitch-chat-guard/auth"
)

// RefreshFunc обменивает refresh-токен на новую пару токенов.
type RefreshFunc func(ctx context.Context, refreshToken string) (Token, error)

// Validator проверяет access-токен и сообщает логин владельца.
type Validator interface {
	Validate(ctx context.Context, token string) (auth.Validation, error)
}

// Manager отдаёт учётные данные из TokenStore, обновляя токен при необходимости.
type Manager struct {
	store     TokenStore
	refresh   RefreshFunc
	validator Validator
	now       func() time.Time
	mu        sync.Mutex
}

// NewManager создаёт менеджер. refresh и validator могут быть nil.
func NewManager(store TokenStore, refresh RefreshFunc, validator Validator) *Manager {
	return &Manager{
		store:     store,
		refresh:   refresh,
		validator: validator,
		now:       time.Now,
	}
}

// Identity реализует Provider.
func (manager *Manager) Identity(ctx context.Context) (Identity, error) {
	token, err := manager.Get(ctx)
	if err != nil {
		return Identity{}, err
	}
	return Identity{Username: token.Login, Token: token.Access}, nil
}

// Get возвращает токен, обновляя его, если он скоро истечёт, и
// дозаполняя логин через Validator.
func (manager *Manager) Get(ctx context.Context) (Token, error) {
	if err := ctx.Err(); err != nil {
		return Token{}, err
	}

	manager.mu.Lock()
	defer manager.mu.Unlock()

	stored, err := manager.store.Load()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Token{}, fmt.Errorf("%w: %v", ErrNoToken, err)
		}
		return Token{}, err
	}
	if stored == nil || stored.Access == "" {
		return Token{}, ErrNoToken
	}

	token := *stored
	changed := false

	if token.ExpiringSoon(manager.now()) && token.Refresh != "" && manager.refresh != nil {
		fresh, err := manager.refresh(ctx, token.Refresh)
		if err != nil {
			return Token{}, fmt.Errorf("refresh token: %w", err)
		}
		if fresh.Refresh == "" {
			fresh.Refresh = token.Refresh
		}
		fresh.Login, fresh.UserID = token.Login, token.UserID
		token = fresh
		changed = true
	}

	if token.Login == "" && manager.validator != nil {
		v, err := manager.validator.Validate(ctx, token.Access)
		if err != nil {
			return Token{}, fmt.Errorf("validate token: %w", err)
		}
		token.Login, token.UserID = v.Login, v.UserID
		if token.ExpiresAt.IsZero() {
			token.ExpiresAt = v.ExpiresAt(manager.now())
		}
		changed = true
	}

	if token.Login == "" {
		return Token{}, fmt.Errorf("%w: login is unknown", ErrNoToken)
	}

	if changed {
		if err := manager.store.Save(token); err != nil {
			return Token{}, err
		}
	}

	return token, nil
}
