package tokens

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/oauth2"
	twitchoauth "golang.org/x/oauth2/twitch"
)

// OAuthRefresher обновляет пользовательский токен через id.twitch.tv/oauth2/token.
func OAuthRefresher(clientID, clientSecret string) RefreshFunc {
	cfg := &oauth2.Config{
		ClientID:     strings.TrimSpace(clientID),
		ClientSecret: strings.TrimSpace(clientSecret),
		Endpoint:     twitchoauth.Endpoint,
	}

	return func(ctx context.Context, refreshToken string) (Token, error) {
		src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
		t, err := src.Token()
		if err != nil {
			return Token{}, fmt.Errorf("twitch oauth: refresh: %w", err)
		}
		return Token{
			Access:    t.AccessToken,
			Refresh:   t.RefreshToken,
			ExpiresAt: t.Expiry,
		}, nil
	}
}
