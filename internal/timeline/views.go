package timeline

import (
	"sort"

	"epicdash/internal/riot"
)

// AllEventTypes is the selector sentinel meaning "every event type aggregated"
const AllEventTypes = "ALL"

// ParticipantCount is one bar of the events-by-participant view
type ParticipantCount struct {
	Participant string `json:"participant"`
	Count       int    `json:"count"`
	Win         *bool  `json:"win"` // nil when the actor has no match summary
}

// EventsByParticipant counts timeline rows per acting participant, optionally
// restricted to one event type ("" or AllEventTypes means every type).
// Rows are grouped losers first, winners second, each group by descending count.
// Actors without a match summary (the environment) come last with no outcome.
func EventsByParticipant(tl *Timeline, summaries []riot.MatchSummary, eventType string) []ParticipantCount {
	if eventType == AllEventTypes {
		eventType = ""
	}

	counts := make(map[string]int)
	var order []string
	for _, e := range tl.Events {
		if eventType != "" && e.Type != eventType {
			continue
		}
		if e.Actor == nil {
			continue
		}
		if _, seen := counts[*e.Actor]; !seen {
			order = append(order, *e.Actor)
		}
		counts[*e.Actor]++
	}

	wins := make(map[string]bool, len(summaries))
	for _, s := range summaries {
		wins[s.SummonerName] = s.Win
	}

	rows := make([]ParticipantCount, 0, len(order))
	for _, name := range order {
		row := ParticipantCount{Participant: name, Count: counts[name]}
		if win, ok := wins[name]; ok {
			row.Win = &win
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if gi, gj := outcomeGroup(rows[i].Win), outcomeGroup(rows[j].Win); gi != gj {
			return gi < gj
		}
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Participant < rows[j].Participant
	})
	return rows
}

func outcomeGroup(win *bool) int {
	switch {
	case win == nil:
		return 2
	case *win:
		return 1
	default:
		return 0
	}
}

// OutcomeTotals is the per-team split of an events-by-participant view
type OutcomeTotals struct {
	Won  int `json:"won"`
	Lost int `json:"lost"`
}

// CountsByOutcome sums participant counts by match outcome. Rows without an
// outcome belong to neither team.
func CountsByOutcome(rows []ParticipantCount) OutcomeTotals {
	var t OutcomeTotals
	for _, r := range rows {
		switch {
		case r.Win == nil:
		case *r.Win:
			t.Won += r.Count
		default:
			t.Lost += r.Count
		}
	}
	return t
}

// EventTypesPresent lists the distinct event types of the timeline in order of
// first appearance, leaving out the all-player markers. If participant is not
// empty only that participant's actions are considered. withAll prepends the
// AllEventTypes sentinel.
func EventTypesPresent(tl *Timeline, participant string, withAll bool) []string {
	var types []string
	if withAll {
		types = append(types, AllEventTypes)
	}

	seen := make(map[string]bool)
	for _, e := range tl.Events {
		if participant != "" && (e.Actor == nil || *e.Actor != participant) {
			continue
		}
		if riot.AppliesToAll(e.Type) || seen[e.Type] {
			continue
		}
		seen[e.Type] = true
		types = append(types, e.Type)
	}
	return types
}
