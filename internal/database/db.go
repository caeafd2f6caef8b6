// internal/database/db.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect creates a pgx pool for dsn and checks it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	return pool, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS matches (
	code        TEXT        NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	ended_at    TIMESTAMPTZ,
	status      TEXT        NOT NULL DEFAULT 'in_progress',
	PRIMARY KEY (code, created_at)
);

CREATE TABLE IF NOT EXISTS match_actions (
	id            BIGSERIAL   PRIMARY KEY,
	match_code    TEXT        NOT NULL,
	action_index  INTEGER     NOT NULL,
	round         INTEGER     NOT NULL,
	actor         TEXT,
	action_type   TEXT        NOT NULL,
	payload       JSONB,
	recorded_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS match_rounds (
	match_code    TEXT        NOT NULL,
	round         INTEGER     NOT NULL,
	winner        TEXT        NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the archive tables when they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
