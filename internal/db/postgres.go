package db

import (
	"context"
	"time"

	"backend-ecotrack/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	newPoolFn  = pgxpool.New
	pingPoolFn = func(ctx context.Context, pool *pgxpool.Pool) error { return pool.Ping(ctx) }
)

func ConnectPostgres(cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := newPoolFn(ctx, cfg.PostgresURL)
	if err != nil {
		return nil, err
	}
	if err := pingPoolFn(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate creates the tables the service writes to. It is safe to run on every start.
func Migrate(ctx context.Context, q Querier) error {
	_, err := q.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS journey_events (
			seq        BIGSERIAL,
			id         UUID PRIMARY KEY,
			session_id TEXT NOT NULL,
			kind       TEXT NOT NULL,
			payload    JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}
