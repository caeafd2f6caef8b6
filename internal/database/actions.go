// internal/database/actions.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/codenames/internal/cache"
)

// Store archives action records in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wraps pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// SaveBatch writes recs in a single transaction.
func (s *Store) SaveBatch(ctx context.Context, recs []cache.ActionRecord) error {
	return BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := InsertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("InsertActionTx(%s #%d): %w", rec.Match, rec.ActionIndex, err)
			}
		}
		return nil
	})
}

// InsertActionTx inserts a single record into match_actions and applies its
// side effects: match_created opens a matches row, round_over adds a
// match_rounds row and match_disposed closes the match.
func InsertActionTx(ctx context.Context, tx pgx.Tx, rec cache.ActionRecord) error {
	at := time.UnixMilli(rec.Timestamp)

	switch rec.ActionType {
	case cache.TypeMatchCreated:
		q := `INSERT INTO matches (code, created_at, status) VALUES ($1, $2, 'in_progress')`
		if _, err := tx.Exec(ctx, q, rec.Match, at); err != nil {
			return err
		}
	case cache.TypeRoundOver:
		var result struct {
			Winner string `json:"winner"`
		}
		if err := json.Unmarshal(rec.Payload, &result); err != nil {
			return fmt.Errorf("round_over payload: %w", err)
		}
		q := `INSERT INTO match_rounds (match_code, round, winner, finished_at) VALUES ($1, $2, $3, $4)`
		if _, err := tx.Exec(ctx, q, rec.Match, rec.Round, result.Winner, at); err != nil {
			return err
		}
	case cache.TypeMatchDisposed:
		q := `
			UPDATE matches
			SET status = 'closed', ended_at = $2
			WHERE code = $1 AND status = 'in_progress'
		`
		if _, err := tx.Exec(ctx, q, rec.Match, at); err != nil {
			return err
		}
	}

	var payload []byte
	if len(rec.Payload) > 0 {
		payload = rec.Payload
	}
	q := `
		INSERT INTO match_actions (
			match_code, action_index, round, actor, action_type, payload, recorded_at
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
	`
	_, err := tx.Exec(ctx, q, rec.Match, rec.ActionIndex, rec.Round, rec.Actor, rec.ActionType, payload, at)
	return err
}

// MarkAbandoned closes an in-progress match that stopped producing actions.
func (s *Store) MarkAbandoned(ctx context.Context, code string) error {
	return BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			UPDATE matches
			SET status = 'abandoned', ended_at = NOW()
			WHERE code = $1 AND status = 'in_progress'
		`
		_, err := tx.Exec(ctx, q, code)
		return err
	})
}

// BeginTxFunc starts a transaction on pool, calls f with it, and commits or
// rolls back depending on f's result.
func BeginTxFunc(ctx context.Context, pool *pgxpool.Pool, txOptions pgx.TxOptions, f func(tx pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}
	if err := f(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx rollback error: %v; original error: %w", rbErr, err)
		}
		return err
	}
	return tx.Commit(ctx)
}
