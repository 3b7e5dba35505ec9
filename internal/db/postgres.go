package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSink writes exports to a Postgres database
type PostgresSink struct {
	pool *pgxpool.Pool
}

// NewPostgresSink creates a connection pool and ensures the schema exists
func NewPostgresSink(ctx context.Context, dbURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &PostgresSink{pool: pool}
	if err := s.createTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Name identifies the sink in logs
func (s *PostgresSink) Name() string { return "postgres" }

// Close closes the connection pool
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSink) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS export_runs (
			run_id TEXT PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			player TEXT NOT NULL,
			match_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			match_start TIMESTAMPTZ NOT NULL,
			match_end TIMESTAMPTZ,
			PRIMARY KEY (player, match_id)
		)`,
		`CREATE TABLE IF NOT EXISTS match_events (
			player TEXT NOT NULL,
			match_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts TIMESTAMPTZ NOT NULL,
			rounded TIMESTAMPTZ NOT NULL,
			event_type TEXT NOT NULL,
			actor TEXT,
			opponent TEXT,
			assistants JSONB,
			PRIMARY KEY (player, match_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_buckets (
			player TEXT NOT NULL,
			match_id TEXT NOT NULL,
			second TIMESTAMPTZ NOT NULL,
			count_messages INTEGER NOT NULL,
			timecategory TEXT NOT NULL,
			PRIMARY KEY (player, match_id, second)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_type ON match_events(match_id, event_type)`,
	}

	for _, query := range queries {
		if _, err := s.pool.Exec(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Begin records the start of an export run
func (s *PostgresSink) Begin(ctx context.Context, runID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO export_runs (run_id, started_at) VALUES ($1, $2)
		ON CONFLICT (run_id) DO NOTHING
	`, runID, time.Now().UTC())
	return err
}

// WriteMatch replaces the match and its rows in one transaction
func (s *PostgresSink) WriteMatch(ctx context.Context, m *MatchExport) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO matches (player, match_id, run_id, match_start, match_end)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (player, match_id) DO UPDATE
		SET run_id = EXCLUDED.run_id, match_start = EXCLUDED.match_start, match_end = EXCLUDED.match_end
	`, m.Player, m.MatchID, m.RunID, m.Start.UTC(), m.End); err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	for _, table := range []string{"match_events", "chat_buckets"} {
		if _, err := tx.Exec(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE player = $1 AND match_id = $2", table), m.Player, m.MatchID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}
	for seq, e := range m.Events {
		assistants, err := assistantsJSON(e.Assistants)
		if err != nil {
			return err
		}
		batch.Queue(`
			INSERT INTO match_events (player, match_id, seq, ts, rounded, event_type, actor, opponent, assistants)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, m.Player, m.MatchID, seq, e.Timestamp.UTC(), e.Rounded.UTC(), e.Type, e.Actor, e.Opponent, assistants)
	}
	for _, b := range m.Buckets {
		batch.Queue(`
			INSERT INTO chat_buckets (player, match_id, second, count_messages, timecategory)
			VALUES ($1, $2, $3, $4, $5)
		`, m.Player, m.MatchID, b.Second.UTC(), b.Count, string(b.Phase))
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert rows: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MatchCount returns how many matches the sink holds
func (s *PostgresSink) MatchCount(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}
