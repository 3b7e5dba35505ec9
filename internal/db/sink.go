package db

import (
	"context"
	"time"

	"epicdash/internal/chat"
	"epicdash/internal/timeline"

	"github.com/goccy/go-json"
)

// MatchExport is everything written for one reconstructed match
type MatchExport struct {
	RunID   string
	Player  string
	MatchID string
	Start   time.Time
	End     *time.Time
	Events  []timeline.Event
	Buckets []chat.Bucket
}

// Sink receives exported matches. Writing the same match twice replaces
// the earlier rows.
type Sink interface {
	Name() string
	Begin(ctx context.Context, runID string) error
	WriteMatch(ctx context.Context, m *MatchExport) error
	Close() error
}

// batchSize caps rows per transaction
const batchSize = 100

// assistantsJSON encodes an assist list, nil when the event has none.
// Unresolved assistants encode as null entries.
func assistantsJSON(assistants []*string) (*string, error) {
	if assistants == nil {
		return nil, nil
	}
	b, err := json.Marshal(assistants)
	if err != nil {
		return nil, err
	}
	s := string(b)
	return &s, nil
}
