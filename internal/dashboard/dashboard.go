package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"epicdash/internal/chat"
	"epicdash/internal/data"
	"epicdash/internal/riot"
	"epicdash/internal/timeline"

	log "github.com/sirupsen/logrus"
)

// ErrUnknownSummoner is returned when a summoner did not play in the selected match
var ErrUnknownSummoner = errors.New("summoner not in match")

// DefaultWindow is the chat window opened after a selected event
const DefaultWindow = 15 * time.Second

// Dashboard computes the views behind each user selection. Nothing is cached:
// every call reloads and recomputes from the artifacts.
type Dashboard struct {
	data *data.Service
}

// New creates a dashboard over a data service
func New(svc *data.Service) *Dashboard {
	return &Dashboard{data: svc}
}

// Streamers lists the streamers that can be selected
func (d *Dashboard) Streamers(ctx context.Context) ([]string, error) {
	return d.data.Streamers(ctx)
}

// StreamerView is the streamer overview: match history and activity
type StreamerView struct {
	Player   string               `json:"player"`
	Matches  []data.Match         `json:"matches"`
	PerDay   []data.DayCount      `json:"perDay"`
	Weekdays data.WeekdayOverview `json:"weekdays"`
}

// StreamerView loads the match history of a streamer and derives the activity charts
func (d *Dashboard) StreamerView(ctx context.Context, player string) (*StreamerView, error) {
	matches, err := d.data.MatchHistory(ctx, player)
	if err != nil {
		return nil, err
	}
	perDay := data.MatchesPerDay(matches)
	return &StreamerView{
		Player:   player,
		Matches:  matches,
		PerDay:   perDay,
		Weekdays: data.AverageByWeekday(perDay),
	}, nil
}

// SummonerOption is one entry of the summoner selector
type SummonerOption struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Streamer bool   `json:"streamer"`
}

// MatchView is the per-match event overview
type MatchView struct {
	MatchID         string                      `json:"matchId"`
	EventTypes      []string                    `json:"eventTypes"`
	EventType       string                      `json:"eventType"`
	ByParticipant   []timeline.ParticipantCount `json:"byParticipant"`
	Outcome         timeline.OutcomeTotals      `json:"outcome"`
	Summoners       []SummonerOption            `json:"summoners"`
	DefaultSummoner string                      `json:"defaultSummoner"`
}

type match struct {
	summaries []riot.MatchSummary
	timeline  *timeline.Timeline
}

func (d *Dashboard) loadMatch(ctx context.Context, player, matchID string) (*match, error) {
	summaries, err := d.data.MatchSummaries(ctx, player, matchID)
	if err != nil {
		return nil, err
	}
	raw, err := d.data.Timeline(ctx, player, matchID)
	if err != nil {
		return nil, err
	}
	tl, err := timeline.Reconstruct(raw, summaries)
	if err != nil {
		return nil, fmt.Errorf("match %s: %w", matchID, err)
	}
	log.WithFields(log.Fields{"player": player, "matchId": matchID, "rows": len(tl.Events)}).
		Debug("[Dashboard] timeline reconstructed")
	return &match{summaries: summaries, timeline: tl}, nil
}

// MatchView counts the selected event type per participant. An empty eventType
// selects every type.
func (d *Dashboard) MatchView(ctx context.Context, player, matchID, eventType string) (*MatchView, error) {
	m, err := d.loadMatch(ctx, player, matchID)
	if err != nil {
		return nil, err
	}
	if eventType == "" {
		eventType = timeline.AllEventTypes
	}

	streamerNames, err := d.data.SummonerMapping(ctx, player)
	if err != nil {
		return nil, err
	}
	summoners, def := summonerOptions(m.summaries, streamerNames, player)

	rows := timeline.EventsByParticipant(m.timeline, m.summaries, eventType)
	return &MatchView{
		MatchID:         matchID,
		EventTypes:      timeline.EventTypesPresent(m.timeline, "", true),
		EventType:       eventType,
		ByParticipant:   rows,
		Outcome:         timeline.CountsByOutcome(rows),
		Summoners:       summoners,
		DefaultSummoner: def,
	}, nil
}

// summonerOptions marks the streamer's own summoner and makes it the default.
// Without a match the first summoner is the default.
func summonerOptions(summaries []riot.MatchSummary, streamerNames []string, player string) ([]SummonerOption, string) {
	own := make(map[string]bool, len(streamerNames))
	for _, n := range streamerNames {
		own[n] = true
	}

	var (
		opts []SummonerOption
		def  string
	)
	for i, s := range summaries {
		opt := SummonerOption{Name: s.SummonerName, Label: s.SummonerName}
		if own[s.SummonerName] {
			opt.Streamer = true
			opt.Label = fmt.Sprintf("%s (%s)", s.SummonerName, player)
			def = s.SummonerName
		}
		if i == 0 && def == "" {
			def = s.SummonerName
		}
		opts = append(opts, opt)
	}
	return opts, def
}

// MetricShare is one damage figure with its share of the match total
type MetricShare struct {
	Metric  string `json:"metric"`
	Value   int    `json:"value"`
	Percent int    `json:"percent"`
}

// SummonerDetail is the end-of-match card of one summoner
type SummonerDetail struct {
	riot.MatchSummary
	Shares []MetricShare `json:"shares"`
}

// SummonerView is the summoner card plus the event types it can be filtered by
type SummonerView struct {
	Detail       SummonerDetail           `json:"detail"`
	EventTypes   []string                 `json:"eventTypes"`
	DefaultTypes []string                 `json:"defaultTypes"`
	Events       []timeline.SummonerEvent `json:"events"`
}

// SummonerView describes one summoner of a match
func (d *Dashboard) SummonerView(ctx context.Context, player, matchID, summoner string, types []string) (*SummonerView, error) {
	m, err := d.loadMatch(ctx, player, matchID)
	if err != nil {
		return nil, err
	}
	summary := riot.FindSummary(m.summaries, summoner)
	if summary == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSummoner, summoner)
	}

	eventTypes := timeline.EventTypesPresent(m.timeline, summoner, false)
	return &SummonerView{
		Detail:       Detail(*summary, m.summaries),
		EventTypes:   eventTypes,
		DefaultTypes: DefaultEventTypes(eventTypes),
		Events:       timeline.SummonerEvents(m.timeline, summoner, types),
	}, nil
}

// Detail computes the damage shares of a summary against all summaries of the match
func Detail(s riot.MatchSummary, all []riot.MatchSummary) SummonerDetail {
	metrics := []struct {
		name string
		get  func(riot.MatchSummary) int
	}{
		{"physicalDamageDealt", func(m riot.MatchSummary) int { return m.PhysicalDamageDealt }},
		{"magicDamageDealt", func(m riot.MatchSummary) int { return m.MagicDamageDealt }},
		{"physicalDamageDealtToChampions", func(m riot.MatchSummary) int { return m.PhysicalDamageDealtToChampions }},
		{"magicDamageDealtToChampions", func(m riot.MatchSummary) int { return m.MagicDamageDealtToChampions }},
		{"physicalDamageTaken", func(m riot.MatchSummary) int { return m.PhysicalDamageTaken }},
		{"magicDamageTaken", func(m riot.MatchSummary) int { return m.MagicDamageTaken }},
	}

	detail := SummonerDetail{MatchSummary: s}
	for _, metric := range metrics {
		total := 0
		for _, other := range all {
			total += metric.get(other)
		}
		value := metric.get(s)
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(value) / float64(total) * 100))
		}
		detail.Shares = append(detail.Shares, MetricShare{Metric: metric.name, Value: value, Percent: pct})
	}
	return detail
}

// DefaultEventTypes preselects the kill events, except ward kills
func DefaultEventTypes(types []string) []string {
	var out []string
	for _, t := range types {
		if strings.Contains(t, "KILL") && !strings.Contains(t, "WARD") {
			out = append(out, t)
		}
	}
	return out
}

// EventMarker places a summoner event on the aligned chat axis
type EventMarker struct {
	timeline.NumberedEvent
	Position int `json:"position"`
}

// ChatView lines up a summoner's events with the chat volume of the match
type ChatView struct {
	HasChat       bool             `json:"hasChat"`
	MessageCount  int              `json:"messageCount"`
	MessagePhases chat.PhaseCounts `json:"messagePhases"`
	Buckets       []chat.Bucket    `json:"buckets"`
	Aligned       []chat.Bucket    `json:"aligned"`
	AlignedPhases chat.PhaseCounts `json:"alignedPhases"`
	Lanes         []string         `json:"lanes"`
	Markers       []EventMarker    `json:"markers"`
	ChatStart     time.Time        `json:"chatStart"`
	ChatEnd       time.Time        `json:"chatEnd"`
}

// ChatView resamples the match chat and projects it onto the span of the
// summoner's events. A match without chat yields HasChat == false.
func (d *Dashboard) ChatView(ctx context.Context, player, matchID, summoner string, types []string) (*ChatView, error) {
	m, err := d.loadMatch(ctx, player, matchID)
	if err != nil {
		return nil, err
	}
	if riot.FindSummary(m.summaries, summoner) == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSummoner, summoner)
	}

	messages, err := d.data.ChatOfMatch(ctx, player, matchID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		log.WithField("matchId", matchID).Info("[Dashboard] no chat captured for match")
		return &ChatView{}, nil
	}

	buckets := chat.Resample(messages)
	view := &ChatView{
		HasChat:       true,
		MessageCount:  len(messages),
		MessagePhases: chat.TimeCategoryCounts(messages),
		Buckets:       buckets,
		ChatStart:     buckets[0].Second,
		ChatEnd:       buckets[len(buckets)-1].Second,
	}

	from, to, ok := timeline.Span(timeline.SummonerEvents(m.timeline, summoner, nil))
	if !ok {
		return view, nil
	}
	view.Aligned = chat.Reindex(buckets, from, to)
	view.AlignedPhases = chat.TimeCategoryCounts(view.Aligned)

	selected := timeline.SummonerEvents(m.timeline, summoner, types)
	view.Lanes = lanes(selected)
	for _, e := range timeline.NumberEvents(selected) {
		view.Markers = append(view.Markers, EventMarker{
			NumberedEvent: e,
			Position:      int(e.Rounded.Truncate(time.Second).Sub(from.Truncate(time.Second)) / time.Second),
		})
	}
	return view, nil
}

// lanes returns the distinct event types, reverse sorted
func lanes(events []timeline.SummonerEvent) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range events {
		if !seen[e.Type] {
			seen[e.Type] = true
			out = append(out, e.Type)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// ChatWindow returns the conversational messages of the match between the
// messages nearest to start and end. A zero end means start + DefaultWindow.
func (d *Dashboard) ChatWindow(ctx context.Context, player, matchID string, start, end time.Time) ([]chat.Message, error) {
	messages, err := d.data.ChatOfMatch(ctx, player, matchID)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = start.Add(DefaultWindow)
	}
	return chat.Window(messages, start, end), nil
}
