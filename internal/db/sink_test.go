package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"epicdash/internal/chat"
	"epicdash/internal/timeline"
)

func str(s string) *string { return &s }

func testExport(runID string, events int) *MatchExport {
	start := time.Date(2022, 1, 15, 20, 0, 0, 0, time.UTC)
	end := start.Add(30 * time.Minute)
	m := &MatchExport{
		RunID:   runID,
		Player:  "streamer",
		MatchID: "EUW1_1",
		Start:   start,
		End:     &end,
		Buckets: []chat.Bucket{
			{Second: start, Count: 2, Phase: chat.PhaseDuring},
			{Second: start.Add(time.Second), Count: 0, Phase: chat.PhaseDuring},
		},
	}
	for i := 0; i < events; i++ {
		ts := start.Add(time.Duration(i) * time.Second)
		e := timeline.Event{Timestamp: ts, Rounded: ts, Type: "CHAMPION_KILL", Actor: str("P1"), Opponent: str("P6")}
		if i%2 == 0 {
			e.Assistants = []*string{str("P2"), nil, str("P3")}
		}
		m.Events = append(m.Events, e)
	}
	return m
}

func TestSQLiteSink(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "export", "epic.db")

	sink, err := NewSQLiteSink(path)
	if err != nil {
		t.Fatalf("NewSQLiteSink: %v", err)
	}
	defer sink.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("Expected database file to be created: %v", err)
	}
	if sink.Name() != "sqlite" {
		t.Errorf("Expected name sqlite, got %s", sink.Name())
	}

	if err := sink.Begin(ctx, "run-1"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	// more than one batch
	if err := sink.WriteMatch(ctx, testExport("run-1", 250)); err != nil {
		t.Fatalf("WriteMatch: %v", err)
	}

	count, err := sink.EventCount(ctx, "streamer", "EUW1_1")
	if err != nil {
		t.Fatalf("EventCount: %v", err)
	}
	if count != 250 {
		t.Errorf("Expected 250 events, got %d", count)
	}

	var assistants *string
	if err := sink.db.QueryRowContext(ctx,
		`SELECT assistants FROM match_events WHERE seq = 1`).Scan(&assistants); err != nil {
		t.Fatalf("query: %v", err)
	}
	if assistants != nil {
		t.Errorf("Expected NULL assistants for an event without an assist list, got %q", *assistants)
	}
	if err := sink.db.QueryRowContext(ctx,
		`SELECT assistants FROM match_events WHERE seq = 0`).Scan(&assistants); err != nil {
		t.Fatalf("query: %v", err)
	}
	if assistants == nil || *assistants != `["P2",null,"P3"]` {
		t.Errorf("Unexpected assistants %v", assistants)
	}
}

func TestSQLiteSink_Rewrite(t *testing.T) {
	ctx := context.Background()
	sink, err := NewSQLiteSink(filepath.Join(t.TempDir(), "epic.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSink: %v", err)
	}
	defer sink.Close()

	if err := sink.WriteMatch(ctx, testExport("run-1", 10)); err != nil {
		t.Fatalf("WriteMatch: %v", err)
	}
	if err := sink.WriteMatch(ctx, testExport("run-2", 4)); err != nil {
		t.Fatalf("WriteMatch (again): %v", err)
	}

	matches, err := sink.MatchCount(ctx)
	if err != nil {
		t.Fatalf("MatchCount: %v", err)
	}
	events, _ := sink.EventCount(ctx, "streamer", "EUW1_1")
	if matches != 1 || events != 4 {
		t.Errorf("Expected the second write to replace the first, got %d matches %d events", matches, events)
	}

	var buckets int
	sink.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_buckets`).Scan(&buckets)
	if buckets != 2 {
		t.Errorf("Expected 2 chat buckets, got %d", buckets)
	}
}

func TestTursoSink_Integration(t *testing.T) {
	url := os.Getenv("TURSO_DATABASE_URL")
	if url == "" {
		t.Skip("TURSO_DATABASE_URL not set, skipping integration test")
	}

	sink, err := NewTursoSink(url, os.Getenv("TURSO_AUTH_TOKEN"))
	if err != nil {
		t.Fatalf("NewTursoSink: %v", err)
	}
	defer sink.Close()

	ctx := context.Background()
	if err := sink.Begin(ctx, "integration"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := sink.WriteMatch(ctx, testExport("integration", 3)); err != nil {
		t.Fatalf("WriteMatch: %v", err)
	}
}

func TestPostgresSink_Integration(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	sink, err := NewPostgresSink(ctx, dbURL)
	if err != nil {
		t.Fatalf("NewPostgresSink: %v", err)
	}
	defer sink.Close()

	if err := sink.Begin(ctx, "integration"); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := sink.WriteMatch(ctx, testExport("integration", 3)); err != nil {
		t.Fatalf("WriteMatch: %v", err)
	}
	count, err := sink.MatchCount(ctx)
	if err != nil || count < 1 {
		t.Errorf("Expected at least one match, got %d (%v)", count, err)
	}
}
