package storage

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"twitch-chat-guard/model"
)

// BatchConfig задаёт параметры батчинга для вставки событий чата.
type BatchConfig struct {
	MaxBatch      int
	FlushEvery    time.Duration
	ChanBuffer    int
	StatsLogEvery time.Duration
	FlushTimeout  time.Duration
}

// Batcher асинхронно вставляет классифицированные сообщения через pgx.Batch.
type Batcher struct {
	input   chan model.ChatEvent
	config  BatchConfig
	sender  batchSender
	log     *zap.Logger
	dropped atomic.Uint64
	done    chan struct{}
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// NewBatcher создаёт батчер и запускает фоновые флаши.
func NewBatcher(ctx context.Context, pool *pgxpool.Pool, cfg BatchConfig, log *zap.Logger) *Batcher {
	return newBatcher(ctx, pool, cfg, log)
}

// Enqueue пытается добавить событие в очередь; при переполнении возвращает false.
func (b *Batcher) Enqueue(ev model.ChatEvent) bool {
	select {
	case b.input <- ev:
		return true
	default:
		dropped := b.dropped.Add(1)
		if dropped%100 == 0 {
			b.log.Warn("батчер: очередь заполнена", zap.Uint64("dropped_total", dropped))
		}
		return false
	}
}

// Dropped возвращает число событий, отброшенных из-за переполнения.
func (b *Batcher) Dropped() uint64 {
	return b.dropped.Load()
}

// Done закрывается после финального флаша при отмене контекста.
func (b *Batcher) Done() <-chan struct{} {
	return b.done
}

const insertEvent = `
insert into chat_events (
  message_id, channel, user_id, username, display_name, text, badges, color,
  is_spam, spam_score, spam_reasons, sent_at, received_at
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
on conflict (message_id) do nothing;`

func (b *Batcher) run(ctx context.Context) {
	defer close(b.done)

	flushTicker := time.NewTicker(b.config.FlushEvery)
	statsTicker := time.NewTicker(b.config.StatsLogEvery)
	defer flushTicker.Stop()
	defer statsTicker.Stop()

	var (
		batch            = &pgx.Batch{}
		pending          = 0
		totalInserted    uint64
		intervalInserted uint64
		intervalSpam     uint64
	)

	flush := func() {
		if pending == 0 {
			return
		}

		dbCtx, cancel := context.WithTimeout(context.Background(), b.config.FlushTimeout)
		defer cancel()

		br := b.sender.SendBatch(dbCtx, batch)
		if err := br.Close(); err != nil {
			b.log.Error("ошибка флаша батчера", zap.Int("rows", pending), zap.Error(err))
		}

		totalInserted += uint64(pending)
		intervalInserted += uint64(pending)

		batch = &pgx.Batch{}
		pending = 0
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			b.log.Info("батчер: контекст отменён", zap.Uint64("inserted_total", totalInserted))
			return
		case <-flushTicker.C:
			flush()
		case <-statsTicker.C:
			b.log.Info("батчер: статистика",
				zap.Uint64("inserted", intervalInserted),
				zap.Uint64("spam", intervalSpam),
				zap.Duration("interval", b.config.StatsLogEvery),
				zap.Uint64("inserted_total", totalInserted),
			)
			intervalInserted = 0
			intervalSpam = 0
		case ev := <-b.input:
			badgesJSON, _ := json.Marshal(ev.Badges)
			reasons := ev.Classification.Reasons
			if reasons == nil {
				reasons = []string{}
			}
			batch.Queue(insertEvent,
				ev.ID, ev.Channel, ptr(ev.UserID), ev.Username, ev.DisplayName, ev.Text, badgesJSON, ptr(ev.Color),
				ev.Classification.IsSpam, ev.Classification.Score, reasons, sentAt(ev), ev.ReceivedAt.UTC(),
			)
			if ev.Classification.IsSpam {
				intervalSpam++
			}
			pending++
			if pending >= b.config.MaxBatch {
				flush()
			}
		}
	}
}

// ptr превращает пустую строку в NULL.
func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func sentAt(ev model.ChatEvent) time.Time {
	if ev.SentAt.IsZero() {
		return ev.ReceivedAt.UTC()
	}
	return ev.SentAt.UTC()
}

func newBatcher(ctx context.Context, sender batchSender, cfg BatchConfig, log *zap.Logger) *Batcher {
	if log == nil {
		log = zap.NewNop()
	}
	b := &Batcher{
		input:  make(chan model.ChatEvent, cfg.ChanBuffer),
		config: cfg,
		sender: sender,
		log:    log,
		done:   make(chan struct{}),
	}

	go b.run(ctx)

	return b
}
