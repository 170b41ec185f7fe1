package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const twitchOAuthValidateURL = "https://id.twitch.tv/oauth2/validate"

// ErrInvalidToken — Twitch отклонил токен (401).
var ErrInvalidToken = errors.New("twitch oauth: invalid token")

// Validation — ответ эндпоинта проверки токена.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	UserID    string   `json:"user_id"`
	Scopes    []string `json:"scopes"`
	ExpiresIn int64    `json:"expires_in"`
}

// ExpiresAt переводит expires_in в абсолютное время относительно now.
func (v Validation) ExpiresAt(now time.Time) time.Time {
	if v.ExpiresIn <= 0 {
		return time.Time{}
	}
	return now.Add(time.Duration(v.ExpiresIn) * time.Second)
}

// HasScope сообщает, выдан ли токену scope.
func (v Validation) HasScope(scope string) bool {
	for _, s := range v.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Validator проверяет пользовательские токены через id.twitch.tv.
type Validator struct {
	URL    string
	Client *http.Client
}

// NewValidator создаёт Validator с боевым адресом и таймаутом клиента.
func NewValidator() *Validator {
	return &Validator{
		URL:    twitchOAuthValidateURL,
		Client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Validate возвращает логин и срок жизни токена. Префикс "oauth:" допускается.
func (v *Validator) Validate(ctx context.Context, token string) (Validation, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "oauth:")
	if token == "" {
		return Validation{}, fmt.Errorf("twitch oauth: validate: %w", ErrInvalidToken)
	}

	url := v.URL
	if url == "" {
		url = twitchOAuthValidateURL
	}
	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+token)

	resp, err := client.Do(req)
	if err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return Validation{}, fmt.Errorf("twitch oauth: validate: %w", ErrInvalidToken)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return Validation{}, fmt.Errorf("twitch oauth: unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload Validation
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Validation{}, fmt.Errorf("twitch oauth: decode response: %w", err)
	}

	return payload, nil
}
