package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"twitch-chat-guard/auth"
	"twitch-chat-guard/tokens"
)

func main() {
	if len(os.Args) < 2 || (os.Args[1] != "import" && os.Args[1] != "refresh") {
		fmt.Fprintln(os.Stderr, "usage: twitch-auth import|refresh")
		os.Exit(1)
	}

	_ = godotenv.Load()

	store := tokens.FileTokenStore{Path: strings.TrimSpace(os.Getenv("TWITCH_TOKEN_FILE"))}
	validator := auth.NewValidator()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var (
		token tokens.Token
		err   error
	)
	switch os.Args[1] {
	case "import":
		token, err = importToken(ctx, store, validator)
	case "refresh":
		token, err = refreshToken(ctx, store, validator)
	}
	if err != nil {
		log.Fatal(err)
	}

	expires := "unknown"
	if !token.ExpiresAt.IsZero() {
		expires = token.ExpiresAt.Format(time.RFC3339)
	}
	fmt.Printf("ok, login %s, expires at %s\n", token.Login, expires)
}

// importToken проверяет токен из окружения и сохраняет его вместе с логином.
func importToken(ctx context.Context, store tokens.FileTokenStore, validator *auth.Validator) (tokens.Token, error) {
	access := strings.TrimPrefix(strings.TrimSpace(os.Getenv("TWITCH_OAUTH_TOKEN")), "oauth:")
	if access == "" {
		return tokens.Token{}, fmt.Errorf("TWITCH_OAUTH_TOKEN is required")
	}

	v, err := validator.Validate(ctx, access)
	if err != nil {
		return tokens.Token{}, fmt.Errorf("validate token: %w", err)
	}
	for _, scope := range []string{"chat:read", "chat:edit"} {
		if !v.HasScope(scope) {
			log.Printf("warning: token has no %s scope", scope)
		}
	}

	token := tokens.Token{
		Access:    access,
		Refresh:   strings.TrimSpace(os.Getenv("TWITCH_REFRESH_TOKEN")),
		Login:     v.Login,
		UserID:    v.UserID,
		ExpiresAt: v.ExpiresAt(time.Now()),
	}
	if err := store.Save(token); err != nil {
		return tokens.Token{}, err
	}
	return token, nil
}

// refreshToken обновляет сохранённый токен через OAuth.
func refreshToken(ctx context.Context, store tokens.FileTokenStore, validator *auth.Validator) (tokens.Token, error) {
	clientID := strings.TrimSpace(os.Getenv("TWITCH_CLIENT_ID"))
	clientSecret := strings.TrimSpace(os.Getenv("TWITCH_CLIENT_SECRET"))
	if clientID == "" || clientSecret == "" {
		return tokens.Token{}, fmt.Errorf("TWITCH_CLIENT_ID and TWITCH_CLIENT_SECRET are required")
	}

	manager := tokens.NewManager(store, tokens.OAuthRefresher(clientID, clientSecret), validator)
	token, err := manager.Get(ctx)
	if err != nil {
		return tokens.Token{}, fmt.Errorf("get token: %w", err)
	}
	return token, nil
}
