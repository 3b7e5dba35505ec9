package data

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"epicdash/internal/chat"
	"epicdash/internal/riot"
	"epicdash/internal/storage"
)

// Artifact names inside a streamer's directory
const (
	fileMatchSummaries     = "match_summaries"
	fileSummonerMapping    = "summoner_mapping"
	fileChat               = "chat_df"
	fileParticipantSummary = "match_participant_summaries_%s"
	fileTimeline           = "match_timeline_%s"

	colSummonerName = "summoner_name"

	// durations below this are stored in seconds, otherwise in milliseconds
	durationSecondsCutoff = 10000
)

// Artifacts is the subset of the vault the service needs
type Artifacts interface {
	ReadJSON(ctx context.Context, player, file string, out interface{}) error
	ReadCSV(ctx context.Context, player, file string) ([][]string, error)
	Source() storage.Source
}

// Service loads and lightly shapes a streamer's artifacts. Every call goes
// back to the source; nothing is cached between calls.
type Service struct {
	artifacts Artifacts
}

// NewService creates a data service over the given artifacts
func NewService(artifacts Artifacts) *Service {
	return &Service{artifacts: artifacts}
}

// Match is one entry of a streamer's match history
type Match struct {
	MatchID string    `json:"matchId"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Label   string    `json:"label"`
}

// Streamers lists the streamers with artifacts
func (s *Service) Streamers(ctx context.Context) ([]string, error) {
	return s.artifacts.Source().ListPlayers(ctx)
}

// MatchHistory returns the streamer's matches with start/end times and selector labels
func (s *Service) MatchHistory(ctx context.Context, player string) ([]Match, error) {
	var entries []riot.MatchHistoryEntry
	if err := s.artifacts.ReadJSON(ctx, player, fileMatchSummaries, &entries); err != nil {
		return nil, fmt.Errorf("match history of %s: %w", player, err)
	}

	matches := make([]Match, 0, len(entries))
	for i, e := range entries {
		start := time.UnixMilli(e.GameStartTimestamp).UTC()
		end := start.Add(GameDuration(e.GameDuration))
		matches = append(matches, Match{
			MatchID: e.MatchID,
			Start:   start,
			End:     end,
			Label: fmt.Sprintf("%d | %s (%s to %s)", i+1, e.MatchID,
				start.Round(time.Second).Format("2006-01-02 15:04:05"),
				end.Round(time.Second).Format("15:04:05")),
		})
	}
	return matches, nil
}

// GameDuration interprets a stored duration: small values are seconds, larger ones milliseconds
func GameDuration(v int64) time.Duration {
	if v < durationSecondsCutoff {
		return time.Duration(v) * time.Second
	}
	return time.Duration(v) * time.Millisecond
}

// SummonerMapping returns the summoner names the streamer plays under
func (s *Service) SummonerMapping(ctx context.Context, player string) ([]string, error) {
	records, err := s.artifacts.ReadCSV(ctx, player, fileSummonerMapping)
	if err != nil {
		return nil, fmt.Errorf("summoner mapping of %s: %w", player, err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := -1
	for i, name := range records[0] {
		if strings.TrimSpace(name) == colSummonerName {
			col = i
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("summoner mapping of %s: missing %s column", player, colSummonerName)
	}

	names := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if col < len(rec) && rec[col] != "" {
			names = append(names, rec[col])
		}
	}
	return names, nil
}

// MatchSummaries returns the ten participant summaries of a match
func (s *Service) MatchSummaries(ctx context.Context, player, matchID string) ([]riot.MatchSummary, error) {
	var summaries []riot.MatchSummary
	if err := s.artifacts.ReadJSON(ctx, player, fmt.Sprintf(fileParticipantSummary, matchID), &summaries); err != nil {
		return nil, fmt.Errorf("summaries of %s: %w", matchID, err)
	}
	return summaries, nil
}

// Timeline returns the raw event log of a match
func (s *Service) Timeline(ctx context.Context, player, matchID string) (*riot.TimelineResponse, error) {
	var raw riot.TimelineResponse
	if err := s.artifacts.ReadJSON(ctx, player, fmt.Sprintf(fileTimeline, matchID), &raw); err != nil {
		return nil, fmt.Errorf("timeline of %s: %w", matchID, err)
	}
	return &raw, nil
}

// ChatOfMatch returns the streamer's chat messages tagged with matchID, ordered by time
func (s *Service) ChatOfMatch(ctx context.Context, player, matchID string) ([]chat.Message, error) {
	all, err := s.Chat(ctx, player)
	if err != nil {
		return nil, err
	}

	var out []chat.Message
	for _, m := range all {
		if m.MatchID == matchID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

// Chat returns the streamer's full chat log in file order
func (s *Service) Chat(ctx context.Context, player string) ([]chat.Message, error) {
	records, err := s.artifacts.ReadCSV(ctx, player, fileChat)
	if err != nil {
		return nil, fmt.Errorf("chat of %s: %w", player, err)
	}
	messages, err := chat.ParseRecords(records)
	if err != nil {
		return nil, fmt.Errorf("chat of %s: %w", player, err)
	}
	return messages, nil
}
