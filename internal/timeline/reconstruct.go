package timeline

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"epicdash/internal/riot"

	log "github.com/sirupsen/logrus"
)

// ErrMalformedInput is returned when the event log is missing a structurally
// required field. The whole match is rejected; no partial timeline is produced.
var ErrMalformedInput = errors.New("malformed event log")

// Event is one row of the reconstructed timeline
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"eventType"`
	Actor      *string   `json:"actor"`
	Opponent   *string   `json:"opponent"`
	Assistants []*string `json:"assistants"` // nil when the event carries no assist list; unresolved ids stay as nil entries
	Rounded    time.Time `json:"rounded"`    // Timestamp rounded up to the whole second
}

// Timeline is the flat, chronological event table of one match
type Timeline struct {
	Events       []Event             `json:"events"`
	Participants riot.ParticipantMap `json:"participants"`
	MatchStart   time.Time           `json:"matchStart"`
	MatchEnd     *time.Time          `json:"matchEnd,omitempty"`
}

// Reconstruct flattens a raw event log into one row per (event, affected participant),
// anchoring in-match offsets to the first real-world timestamp found in the log.
// Events listed before that anchor are still offset from it.
func Reconstruct(raw *riot.TimelineResponse, summaries []riot.MatchSummary) (*Timeline, error) {
	if raw == nil || raw.Info == nil {
		return nil, fmt.Errorf("%w: missing info block", ErrMalformedInput)
	}
	if raw.Info.Participants == nil {
		return nil, fmt.Errorf("%w: missing participants list", ErrMalformedInput)
	}
	if raw.Info.Frames == nil {
		return nil, fmt.Errorf("%w: missing frames", ErrMalformedInput)
	}

	participants := riot.BuildParticipantMap(raw.Info, summaries)

	start, ok := anchor(raw.Info.Frames)
	if !ok {
		return nil, fmt.Errorf("%w: no realTimestamp in event log", ErrMalformedInput)
	}

	var (
		events   []Event
		end      *time.Time
		anchored bool
		resolver = nameResolver{participants: participants}
	)

	for fi, frame := range raw.Info.Frames {
		if frame.Events == nil {
			return nil, fmt.Errorf("%w: frame %d has no events list", ErrMalformedInput, fi)
		}

		for ei := range frame.Events {
			evt := &frame.Events[ei]
			if evt.Type == "" {
				return nil, fmt.Errorf("%w: frame %d event %d missing type", ErrMalformedInput, fi, ei)
			}
			if evt.Timestamp == nil {
				return nil, fmt.Errorf("%w: frame %d event %d missing timestamp", ErrMalformedInput, fi, ei)
			}

			actor, err := resolver.field(evt, fi, ei, riot.ActorField)
			if err != nil {
				return nil, err
			}
			opponent, err := resolver.field(evt, fi, ei, riot.OpponentField)
			if err != nil {
				return nil, err
			}

			// The first real timestamp anchors the match; later ones only move the end marker.
			var ts time.Time
			switch {
			case evt.RealTimestamp != nil && !anchored:
				anchored = true
				ts = start
			case evt.RealTimestamp != nil:
				t := time.UnixMilli(*evt.RealTimestamp).UTC()
				end = &t
				ts = t
			default:
				ts = start.Add(time.Duration(*evt.Timestamp) * time.Millisecond)
			}

			var assistants []*string
			if evt.AssistingParticipantIDs != nil {
				assistants = make([]*string, len(evt.AssistingParticipantIDs))
				for i, id := range evt.AssistingParticipantIDs {
					if name, ok := resolver.name(evt.Type, id); ok {
						assistants[i] = &name
					}
				}
			}

			rounded := CeilSecond(ts)

			if riot.AppliesToAll(evt.Type) {
				for slot := 1; slot <= riot.PlayerSlots; slot++ {
					var player *string
					if name, ok := resolver.name(evt.Type, slot); ok {
						player = &name
					}
					events = append(events, Event{
						Timestamp:  ts,
						Type:       evt.Type,
						Actor:      player,
						Opponent:   opponent,
						Assistants: assistants,
						Rounded:    rounded,
					})
				}
				continue
			}

			events = append(events, Event{
				Timestamp:  ts,
				Type:       evt.Type,
				Actor:      actor,
				Opponent:   opponent,
				Assistants: assistants,
				Rounded:    rounded,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	return &Timeline{
		Events:       events,
		Participants: participants,
		MatchStart:   start,
		MatchEnd:     end,
	}, nil
}

// anchor finds the first realTimestamp in log order
func anchor(frames []riot.TimelineFrame) (time.Time, bool) {
	for _, frame := range frames {
		for _, evt := range frame.Events {
			if evt.RealTimestamp != nil {
				return time.UnixMilli(*evt.RealTimestamp).UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// CeilSecond rounds a timestamp up to the next whole second (unchanged if already whole)
func CeilSecond(t time.Time) time.Time {
	floor := t.Truncate(time.Second)
	if floor.Equal(t) {
		return t
	}
	return floor.Add(time.Second)
}

type nameResolver struct {
	participants riot.ParticipantMap
}

// field resolves the actor or opponent of an event. A known field that is absent
// from the event is malformed input; an unknown event type or unknown id is not.
func (r nameResolver) field(evt *riot.TimelineEvent, fi, ei int, key func(string) (string, bool)) (*string, error) {
	field, ok := key(evt.Type)
	if !ok {
		return nil, nil
	}
	id, present := evt.Field(field)
	if !present {
		return nil, fmt.Errorf("%w: frame %d event %d (%s) missing %s",
			ErrMalformedInput, fi, ei, evt.Type, field)
	}
	name, ok := r.name(evt.Type, id)
	if !ok {
		return nil, nil
	}
	return &name, nil
}

func (r nameResolver) name(eventType string, id int) (string, bool) {
	name, ok := r.participants.Name(id)
	if !ok {
		log.WithFields(log.Fields{
			"eventType":     eventType,
			"participantId": strconv.Itoa(id),
		}).Warn("[Timeline] unresolved participant")
	}
	return name, ok
}
