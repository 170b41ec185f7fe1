package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"twitch-chat-guard/model"
)

// Execer — общий интерфейс pgxpool.Pool и pgx.Tx для одиночных запросов.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// SaveAction сохраняет модерационное действие в базе с учётом заданного таймаута.
func SaveAction(ctx context.Context, db Execer, action model.ModerationAction, timeout time.Duration) error {
	dbCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var duration *int64
	if action.Duration > 0 {
		secs := int64(action.Duration / time.Second)
		duration = &secs
	}

	_, err := db.Exec(dbCtx, `
insert into moderation_actions (
  action_id, channel, action_type, username, message_id, reason, duration_seconds, automatic, created_at
) values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
on conflict (action_id) do nothing;
`, action.ID, action.Channel, string(action.Type), action.Username, ptr(action.MessageID), action.Reason,
		duration, action.Automatic, action.CreatedAt.UTC())

	return err
}

// ActionLog сохраняет действия модерации с фиксированным таймаутом.
type ActionLog struct {
	DB      Execer
	Timeout time.Duration
}

// Save реализует хранилище действий для сервиса.
func (l ActionLog) Save(ctx context.Context, action model.ModerationAction) error {
	if err := SaveAction(ctx, l.DB, action, l.Timeout); err != nil {
		return fmt.Errorf("save action %s: %w", action.ID, err)
	}
	return nil
}
