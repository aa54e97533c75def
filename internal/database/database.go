// Package database provides PostgreSQL connection management using pgx.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const connectAttempts = 5

// NewPool creates and validates a pgxpool connection pool.
// It retries a few times to accommodate containers starting up.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}

	// Submissions are bursty but small; a modest pool is plenty.
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 1
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	var pool *pgxpool.Pool
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err = pgxpool.NewWithConfig(ctx, poolCfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		slog.Warn("db connect attempt failed", "attempt", attempt, "of", connectAttempts, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("connect to postgres: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	return nil, fmt.Errorf("connect to postgres: %w", err)
}

// schema creates the collector tables. Every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	name             TEXT PRIMARY KEY,
	mode             TEXT NOT NULL,
	fee              INTEGER NOT NULL,
	min_team_size    INTEGER NOT NULL,
	max_team_size    INTEGER NOT NULL DEFAULT 0,
	community_link   TEXT NOT NULL DEFAULT '',
	registered_count INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS registrations (
	id             TEXT PRIMARY KEY,
	event_name     TEXT NOT NULL REFERENCES events (name),
	team_type      TEXT NOT NULL,
	team_name      TEXT NOT NULL DEFAULT '',
	name           TEXT NOT NULL,
	roll_number    TEXT NOT NULL,
	program        TEXT NOT NULL,
	semester       TEXT NOT NULL,
	mobile_number  TEXT NOT NULL,
	college        TEXT NOT NULL,
	email          TEXT NOT NULL,
	upi_id         TEXT NOT NULL,
	transaction_id TEXT NOT NULL UNIQUE,
	whatsapp_link  TEXT NOT NULL DEFAULT '',
	receipt_path   TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS registrations_event_created_idx
	ON registrations (event_name, created_at);

CREATE TABLE IF NOT EXISTS team_members (
	registration_id TEXT NOT NULL REFERENCES registrations (id) ON DELETE CASCADE,
	position        INTEGER NOT NULL,
	name            TEXT NOT NULL,
	roll_number     TEXT NOT NULL,
	program         TEXT NOT NULL,
	semester        TEXT NOT NULL,
	college         TEXT NOT NULL,
	PRIMARY KEY (registration_id, position)
);
`

// Migrate creates any missing tables.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
