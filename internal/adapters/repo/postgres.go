package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
)

// querier — часть pgxpool.Pool, которой пользуется адаптер.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres хранит пользователей бота в таблице bot_users.
type Postgres struct {
	db querier
}

var _ domain.UserRegistry = (*Postgres)(nil)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bot_users (
    tg_user_id     BIGINT PRIMARY KEY,
    first_seen_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_seen_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    messages_total BIGINT NOT NULL DEFAULT 1
)`

// NewPostgres создаёт адаптер БД поверх пула.
func NewPostgres(db querier) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу, если её нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.db.Exec(ctx, schemaSQL)
	metrics.ObserveNetworkRequest("postgres", "bot_users_schema", start, err)
	if err != nil {
		return fmt.Errorf("create bot_users: %w", err)
	}
	return nil
}

// Touch отмечает пользователя и увеличивает счётчик его сообщений.
func (p *Postgres) Touch(ctx context.Context, tgUserID int64) error {
	if tgUserID == 0 {
		return nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.db.Exec(ctx, `
INSERT INTO bot_users (tg_user_id) VALUES ($1)
ON CONFLICT (tg_user_id) DO UPDATE
SET last_seen_at = now(), messages_total = bot_users.messages_total + 1
`, tgUserID)
	metrics.ObserveNetworkRequest("postgres", "bot_users_upsert", start, err)
	if err != nil {
		return fmt.Errorf("upsert bot user %d: %w", tgUserID, err)
	}
	return nil
}

// Count возвращает число известных пользователей.
func (p *Postgres) Count(ctx context.Context) (int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var n int
	start := time.Now()
	err := p.db.QueryRow(ctx, `SELECT count(*) FROM bot_users`).Scan(&n)
	metrics.ObserveNetworkRequest("postgres", "bot_users_count", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("count bot users: %w", err)
	}
	return n, nil
}
