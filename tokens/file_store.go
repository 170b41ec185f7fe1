package tokens

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const TOKEN_FILE = ".secrets/twitch_tokens.json"

// FileTokenStore сохраняет токен в JSON файле.
type FileTokenStore struct {
	Path string
}

type fileToken struct {
	Access    string `json:"access"`
	Refresh   string `json:"refresh,omitempty"`
	Login     string `json:"login,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

func (store FileTokenStore) tokenPath() string {
	if strings.TrimSpace(store.Path) == "" {
		return TOKEN_FILE
	}
	return store.Path
}

// Load загружает токен бота из JSON файла.
func (store FileTokenStore) Load() (*Token, error) {
	path := store.tokenPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load token: read file: %w", err)
	}

	var payload fileToken
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("load token: decode json: %w", err)
	}

	var expiresAt time.Time
	if payload.ExpiresAt != "" {
		expiresAt, err = time.Parse(time.RFC3339, payload.ExpiresAt)
		if err != nil {
			return nil, fmt.Errorf("load token: parse expires_at: %w", err)
		}
	}

	return &Token{
		Access:    payload.Access,
		Refresh:   payload.Refresh,
		Login:     payload.Login,
		UserID:    payload.UserID,
		ExpiresAt: expiresAt,
	}, nil
}

// Save сохраняет токен бота в JSON файл с правами 0600.
func (store FileTokenStore) Save(token Token) error {
	path := store.tokenPath()
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save token: create dir: %w", err)
	}

	payload := fileToken{
		Access:  token.Access,
		Refresh: token.Refresh,
		Login:   token.Login,
		UserID:  token.UserID,
	}
	if !token.ExpiresAt.IsZero() {
		payload.ExpiresAt = token.ExpiresAt.UTC().Format(time.RFC3339)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("save token: encode json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save token: write file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("save token: chmod file: %w", err)
	}

	return nil
}
