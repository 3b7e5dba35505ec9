package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

const timeLayout = time.RFC3339Nano

// SQLSink writes exports through database/sql using the SQLite dialect.
// Both a local SQLite file and a Turso database speak it.
type SQLSink struct {
	db   *sql.DB
	name string
}

// NewSQLiteSink opens (or creates) a local SQLite export file
func NewSQLiteSink(path string) (*SQLSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY on the file
	db.SetMaxOpenConns(1)

	return newSQLSink(db, "sqlite")
}

// NewTursoSink connects to a Turso database
func NewTursoSink(url, authToken string) (*SQLSink, error) {
	connStr := url
	if authToken != "" {
		connStr = fmt.Sprintf("%s?authToken=%s", url, authToken)
	}

	db, err := sql.Open("libsql", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Turso: %w", err)
	}

	return newSQLSink(db, "turso")
}

func newSQLSink(db *sql.DB, name string) (*SQLSink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", name, err)
	}

	s := &SQLSink{db: db, name: name}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Name identifies the sink in logs
func (s *SQLSink) Name() string { return s.name }

// Close closes the connection
func (s *SQLSink) Close() error {
	return s.db.Close()
}

func (s *SQLSink) createTables(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS export_runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			player TEXT NOT NULL,
			match_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			match_start TEXT NOT NULL,
			match_end TEXT,
			PRIMARY KEY (player, match_id)
		)`,
		`CREATE TABLE IF NOT EXISTS match_events (
			player TEXT NOT NULL,
			match_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			ts TEXT NOT NULL,
			rounded TEXT NOT NULL,
			event_type TEXT NOT NULL,
			actor TEXT,
			opponent TEXT,
			assistants TEXT,
			PRIMARY KEY (player, match_id, seq)
		)`,
		`CREATE TABLE IF NOT EXISTS chat_buckets (
			player TEXT NOT NULL,
			match_id TEXT NOT NULL,
			second TEXT NOT NULL,
			count_messages INTEGER NOT NULL,
			timecategory TEXT NOT NULL,
			PRIMARY KEY (player, match_id, second)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_type ON match_events(match_id, event_type)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_actor ON match_events(match_id, actor)`,
	}

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Begin records the start of an export run
func (s *SQLSink) Begin(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO export_runs (run_id, started_at) VALUES (?, ?)`,
		runID, time.Now().UTC().Format(timeLayout))
	return err
}

// WriteMatch replaces the match row with its events and chat buckets
func (s *SQLSink) WriteMatch(ctx context.Context, m *MatchExport) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var end *string
	if m.End != nil {
		v := m.End.UTC().Format(timeLayout)
		end = &v
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO matches (player, match_id, run_id, match_start, match_end) VALUES (?, ?, ?, ?, ?)`,
		m.Player, m.MatchID, m.RunID, m.Start.UTC().Format(timeLayout), end); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to insert match: %w", err)
	}
	for _, table := range []string{"match_events", "chat_buckets"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE player = ? AND match_id = ?", table), m.Player, m.MatchID); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	if err := s.insertEvents(ctx, m); err != nil {
		return fmt.Errorf("failed to insert events: %w", err)
	}
	if err := s.insertBuckets(ctx, m); err != nil {
		return fmt.Errorf("failed to insert chat buckets: %w", err)
	}
	return nil
}

func (s *SQLSink) insertEvents(ctx context.Context, m *MatchExport) error {
	for i := 0; i < len(m.Events); i += batchSize {
		end := min(i+batchSize, len(m.Events))

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO match_events (player, match_id, seq, ts, rounded, event_type, actor, opponent, assistants)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}

		for seq := i; seq < end; seq++ {
			e := m.Events[seq]
			assistants, err := assistantsJSON(e.Assistants)
			if err == nil {
				_, err = stmt.ExecContext(ctx, m.Player, m.MatchID, seq,
					e.Timestamp.UTC().Format(timeLayout), e.Rounded.UTC().Format(timeLayout),
					e.Type, e.Actor, e.Opponent, assistants)
			}
			if err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLSink) insertBuckets(ctx context.Context, m *MatchExport) error {
	for i := 0; i < len(m.Buckets); i += batchSize {
		batch := m.Buckets[i:min(i+batchSize, len(m.Buckets))]

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO chat_buckets (player, match_id, second, count_messages, timecategory) VALUES (?, ?, ?, ?, ?)`)
		if err != nil {
			tx.Rollback()
			return err
		}

		for _, b := range batch {
			if _, err := stmt.ExecContext(ctx, m.Player, m.MatchID, b.Second.UTC().Format(timeLayout), b.Count, string(b.Phase)); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}

		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
	}
	return nil
}

// MatchCount returns how many matches the sink holds
func (s *SQLSink) MatchCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM matches`).Scan(&count)
	return count, err
}

// EventCount returns how many event rows are stored for a match
func (s *SQLSink) EventCount(ctx context.Context, player, matchID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM match_events WHERE player = ? AND match_id = ?`, player, matchID).Scan(&count)
	return count, err
}
