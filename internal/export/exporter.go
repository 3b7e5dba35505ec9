package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"epicdash/internal/chat"
	"epicdash/internal/data"
	"epicdash/internal/db"
	"epicdash/internal/discord"
	"epicdash/internal/storage"
	"epicdash/internal/timeline"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultWorkerCount = 4
	jobBuffer          = 100

	expectedMatches = 100000
	falsePositive   = 0.001
)

// Notifier is told about each finished run
type Notifier interface {
	SendExportSummary(ctx context.Context, s discord.ExportSummary) error
}

// Exporter reconstructs every streamer's matches and writes them to the sinks
type Exporter struct {
	data     *data.Service
	sinks    []db.Sink
	notifier Notifier
	workers  int

	// a match played by two tracked streamers is exported once
	seen   *bloom.BloomFilter
	seenMu sync.Mutex

	summaryMu sync.Mutex
	summary   discord.ExportSummary
}

// New creates an exporter. notifier may be nil.
func New(svc *data.Service, sinks []db.Sink, notifier Notifier, workers int) *Exporter {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}
	return &Exporter{
		data:     svc,
		sinks:    sinks,
		notifier: notifier,
		workers:  workers,
		seen:     bloom.NewWithEstimates(expectedMatches, falsePositive),
	}
}

type job struct {
	player string
	match  data.Match
}

// Run exports everything once and returns the run summary. A cancelled
// context stops dispatching; matches already in flight finish.
func (e *Exporter) Run(ctx context.Context) (discord.ExportSummary, error) {
	started := time.Now()
	runID := uuid.NewString()
	e.summary = discord.ExportSummary{RunID: runID}
	e.seen.ClearAll()
	log.Printf("[Export] Starting run %s with %d sinks, %d workers", runID, len(e.sinks), e.workers)

	for _, sink := range e.sinks {
		if err := sink.Begin(ctx, runID); err != nil {
			return e.summary, fmt.Errorf("begin run on %s: %w", sink.Name(), err)
		}
	}

	players, err := e.data.Streamers(ctx)
	if err != nil {
		return e.summary, fmt.Errorf("list streamers: %w", err)
	}
	e.summary.Streamers = len(players)

	jobs := make(chan job, jobBuffer)
	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				e.exportMatch(context.WithoutCancel(ctx), runID, j)
			}
		}()
	}

	e.dispatch(ctx, players, jobs)
	close(jobs)
	wg.Wait()

	e.summary.Runtime = time.Since(started)
	e.summary.Cancelled = ctx.Err() != nil
	log.Printf("[Export] Run %s done: %d exported, %d duplicates, %d skipped, %d failed in %v",
		runID, e.summary.Exported, e.summary.Duplicates, len(e.summary.Skipped), e.summary.Failed, e.summary.Runtime)

	if e.notifier != nil {
		if err := e.notifier.SendExportSummary(context.WithoutCancel(ctx), e.summary); err != nil {
			log.Warnf("[Export] Failed to send summary: %v", err)
		}
	}
	return e.summary, nil
}

// dispatch walks each streamer's history and queues unseen matches
func (e *Exporter) dispatch(ctx context.Context, players []string, jobs chan<- job) {
	for _, player := range players {
		if ctx.Err() != nil {
			return
		}
		history, err := e.data.MatchHistory(ctx, player)
		if err != nil {
			log.Errorf("[Export] Skipping streamer %s: %v", player, err)
			e.addFailed()
			continue
		}

		for _, m := range history {
			if !e.markSeen(m.MatchID) {
				e.summaryMu.Lock()
				e.summary.Duplicates++
				e.summaryMu.Unlock()
				continue
			}

			select {
			case jobs <- job{player: player, match: m}:
			case <-ctx.Done():
				log.Println("[Export] Cancelled, no more matches dispatched")
				return
			}
		}
	}
}

// markSeen reports whether the match was new
func (e *Exporter) markSeen(matchID string) bool {
	e.seenMu.Lock()
	defer e.seenMu.Unlock()
	if e.seen.TestString(matchID) {
		return false
	}
	e.seen.AddString(matchID)
	return true
}

func (e *Exporter) exportMatch(ctx context.Context, runID string, j job) {
	m, err := e.buildExport(ctx, runID, j)
	if errors.Is(err, timeline.ErrMalformedInput) {
		log.WithFields(log.Fields{"player": j.player, "matchId": j.match.MatchID}).Warnf("[Export] Skipping malformed match: %v", err)
		e.summaryMu.Lock()
		e.summary.Skipped = append(e.summary.Skipped, j.match.MatchID)
		e.summaryMu.Unlock()
		return
	}
	if err != nil {
		log.WithFields(log.Fields{"player": j.player, "matchId": j.match.MatchID}).Errorf("[Export] %v", err)
		e.addFailed()
		return
	}

	for _, sink := range e.sinks {
		if err := sink.WriteMatch(ctx, m); err != nil {
			log.Errorf("[Export] Failed to write %s to %s: %v", j.match.MatchID, sink.Name(), err)
			e.addFailed()
			return
		}
	}

	e.summaryMu.Lock()
	e.summary.Exported++
	e.summaryMu.Unlock()
	log.Debugf("[Export] %s/%s: %d events, %d chat seconds", j.player, j.match.MatchID, len(m.Events), len(m.Buckets))
}

// buildExport reconstructs one match and its chat activity
func (e *Exporter) buildExport(ctx context.Context, runID string, j job) (*db.MatchExport, error) {
	summaries, err := e.data.MatchSummaries(ctx, j.player, j.match.MatchID)
	if err != nil {
		return nil, err
	}
	raw, err := e.data.Timeline(ctx, j.player, j.match.MatchID)
	if err != nil {
		return nil, err
	}
	tl, err := timeline.Reconstruct(raw, summaries)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", j.match.MatchID, err)
	}

	messages, err := e.data.ChatOfMatch(ctx, j.player, j.match.MatchID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return &db.MatchExport{
		RunID:   runID,
		Player:  j.player,
		MatchID: j.match.MatchID,
		Start:   tl.MatchStart,
		End:     tl.MatchEnd,
		Events:  tl.Events,
		Buckets: chat.Resample(messages),
	}, nil
}

func (e *Exporter) addFailed() {
	e.summaryMu.Lock()
	e.summary.Failed++
	e.summaryMu.Unlock()
}
