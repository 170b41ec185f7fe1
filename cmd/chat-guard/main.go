package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"twitch-chat-guard/api"
	"twitch-chat-guard/auth"
	"twitch-chat-guard/config"
	"twitch-chat-guard/console"
	"twitch-chat-guard/logger"
	"twitch-chat-guard/moderation"
	"twitch-chat-guard/service"
	"twitch-chat-guard/storage"
	"twitch-chat-guard/telemetry"
	"twitch-chat-guard/tokens"
	"twitch-chat-guard/twitch"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	telemetry.Init()

	rules, err := config.LoadModeration(cfg.ModerationFile)
	if err != nil {
		zl.Fatal("moderation rules load failed", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps := service.Deps{Log: zl, Timeout: cfg.Batch.FlushTimeout}

	var batcher *storage.Batcher
	if cfg.Postgres.Enabled() {
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN())
		if err != nil {
			zl.Fatal("pgxpool.New", zap.Error(err))
		}
		defer pool.Close()

		if err := storage.EnsureSchema(ctx, pool); err != nil {
			zl.Fatal("schema init failed", zap.Error(err))
		}

		batcher = storage.NewBatcher(ctx, pool, storage.BatchConfig{
			MaxBatch:      cfg.Batch.MaxBatch,
			FlushEvery:    cfg.Batch.FlushEvery,
			ChanBuffer:    cfg.Batch.ChanBuffer,
			StatsLogEvery: cfg.Batch.StatsLogEvery,
			FlushTimeout:  cfg.Batch.FlushTimeout,
		}, zl)
		deps.Events = batcher
		deps.Actions = storage.ActionLog{DB: pool, Timeout: cfg.Batch.FlushTimeout}
	} else {
		zl.Info("POSTGRES_* не заданы, сообщения не сохраняются")
	}

	var strikes moderation.StrikeStore = moderation.NewMemoryStrikes()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			zl.Fatal("redis ping failed", zap.Error(err))
		}
		strikes = moderation.NewRedisStrikes(rdb, "chatguard:strikes")
	}

	if cfg.Console {
		deps.Printer = console.NewPrinter(os.Stdout)
	}

	svc := service.New(service.Config{
		Channels: cfg.Twitch.Channels,
		Identity: identityProvider(cfg.Twitch),
		Session: twitch.Options{
			Transport:      twitch.NewWebSocketTransport(cfg.Twitch.URL),
			ReconnectDelay: cfg.Reconnect.Delay,
			MaxReconnects:  maxReconnects(cfg.Reconnect.MaxAttempts),
		},
		Classifier: rules.Classifier,
		Policy:     rules.Settings,
		Strikes:    strikes,
		Deps:       deps,
	})

	var httpSrv *http.Server
	if cfg.HTTP.Addr != "" {
		httpSrv = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.NewRouter(svc, zl),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			zl.Info("api: слушаю", zap.String("addr", cfg.HTTP.Addr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl.Error("api: сервер остановлен", zap.Error(err))
				cancel()
			}
		}()
	}

	if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("service run failed", zap.Error(err))
	}

	zl.Info("shutting down...")

	if httpSrv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			zl.Warn("api: shutdown", zap.Error(err))
		}
	}

	cancel()
	if batcher != nil {
		<-batcher.Done()
	}
}

// identityProvider выбирает учётные данные: файл токена с обновлением или переменные окружения.
func identityProvider(cfg config.TwitchConfig) tokens.Provider {
	if cfg.OAuthToken != "" {
		return tokens.Static{Username: cfg.Username, Token: cfg.OAuthToken}
	}

	var refresh tokens.RefreshFunc
	if cfg.ClientID != "" {
		refresh = tokens.OAuthRefresher(cfg.ClientID, cfg.ClientSecret)
	}
	return tokens.NewManager(tokens.FileTokenStore{Path: cfg.TokenFile}, refresh, auth.NewValidator())
}

// maxReconnects: в конфигурации 0 отключает переподключение, а в Options 0 означает значение по умолчанию.
func maxReconnects(n int) int {
	if n == 0 {
		return -1
	}
	return n
}
