package timeline

import (
	"fmt"
	"sort"
	"time"
)

// PassiveSuffix marks an event in which the summoner was the opponent (e.g. was killed)
const PassiveSuffix = "_PASSIVE"

// SummonerEvent is an event seen from one summoner's point of view, keyed on
// the rounded second used to line it up with the chat series.
type SummonerEvent struct {
	Rounded time.Time `json:"rounded"`
	Type    string    `json:"eventType"`
}

// SummonerEvents collects the summoner's own actions plus the events where the
// summoner was the opponent (suffixed with PassiveSuffix), sorted by second.
// When types is non-empty only those types are kept.
func SummonerEvents(tl *Timeline, summoner string, types []string) []SummonerEvent {
	var out []SummonerEvent
	for _, e := range tl.Events {
		if e.Actor != nil && *e.Actor == summoner {
			out = append(out, SummonerEvent{Rounded: e.Rounded, Type: e.Type})
		}
	}
	for _, e := range tl.Events {
		if e.Opponent != nil && *e.Opponent == summoner {
			out = append(out, SummonerEvent{Rounded: e.Rounded, Type: e.Type + PassiveSuffix})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Rounded.Before(out[j].Rounded)
	})

	if len(types) == 0 {
		return out
	}
	keep := make(map[string]bool, len(types))
	for _, t := range types {
		keep[t] = true
	}
	filtered := out[:0:0]
	for _, e := range out {
		if keep[e.Type] {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

// Span returns the first and last rounded second of the events
func Span(events []SummonerEvent) (from, to time.Time, ok bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	from, to = events[0].Rounded, events[0].Rounded
	for _, e := range events[1:] {
		if e.Rounded.Before(from) {
			from = e.Rounded
		}
		if e.Rounded.After(to) {
			to = e.Rounded
		}
	}
	return from, to, true
}

// NumberedEvent is a selectable event: the n-th occurrence of its type
type NumberedEvent struct {
	SummonerEvent
	Number int    `json:"number"`
	Label  string `json:"label"`
}

// NumberEvents orders events by type and numbers the occurrences of each type
// from 1, producing labels like "2 | CHAMPION_KILL".
func NumberEvents(events []SummonerEvent) []NumberedEvent {
	sorted := make([]SummonerEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Type < sorted[j].Type
	})

	seen := make(map[string]int)
	out := make([]NumberedEvent, 0, len(sorted))
	for _, e := range sorted {
		seen[e.Type]++
		n := seen[e.Type]
		out = append(out, NumberedEvent{
			SummonerEvent: e,
			Number:        n,
			Label:         fmt.Sprintf("%d | %s", n, e.Type),
		})
	}
	return out
}
