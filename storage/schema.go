package storage

import (
	"context"
	"fmt"
)

const schema = `
create table if not exists chat_events (
  message_id   text primary key,
  channel      text not null,
  user_id      text,
  username     text not null,
  display_name text not null,
  text         text not null,
  badges       jsonb not null default '{}'::jsonb,
  color        text,
  is_spam      boolean not null default false,
  spam_score   smallint not null default 0,
  spam_reasons text[] not null default '{}',
  sent_at      timestamptz not null,
  received_at  timestamptz not null
);

create index if not exists chat_events_channel_sent_at_idx on chat_events (channel, sent_at desc);
create index if not exists chat_events_spam_idx on chat_events (channel, sent_at desc) where is_spam;

create table if not exists moderation_actions (
  action_id        text primary key,
  channel          text not null,
  action_type      text not null,
  username         text not null,
  message_id       text,
  reason           text not null default '',
  duration_seconds bigint,
  automatic        boolean not null,
  created_at       timestamptz not null
);

create index if not exists moderation_actions_channel_idx on moderation_actions (channel, created_at desc);
`

// EnsureSchema создаёт таблицы, если их ещё нет.
func EnsureSchema(ctx context.Context, db Execer) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
