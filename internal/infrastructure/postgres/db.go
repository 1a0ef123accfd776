package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// One run at a time reads a handful of rows per resource.
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS scheduler_items (
	pk           TEXT NOT NULL CHECK (pk IN ('schedule', 'period')),
	sk           TEXT NOT NULL,
	days_of_week TEXT NOT NULL DEFAULT '',
	start_time   TEXT NOT NULL DEFAULT '',
	stop_time    TEXT NOT NULL DEFAULT '',
	periods      TEXT[] NOT NULL DEFAULT '{}',
	timezone     TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (pk, sk)
)`

// EnsureSchema creates the items table if it is missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create scheduler_items: %w", err)
	}
	return nil
}
