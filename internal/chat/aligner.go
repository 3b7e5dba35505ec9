package chat

import "time"

// Resample turns a chat stream into a contiguous per-second series spanning
// the first to the last message (all messages, bots included). Each second
// counts its conversational messages and takes the phase of the first message
// seen in it; silent seconds count zero and inherit the last known phase.
// Seconds before any labelled message keep an empty phase.
func Resample(messages []Message) []Bucket {
	if len(messages) == 0 {
		return nil
	}

	first, last := messages[0].Timestamp, messages[0].Timestamp
	for _, m := range messages[1:] {
		if m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	from := first.Truncate(time.Second)
	to := last.Truncate(time.Second)

	counts := make(map[int64]int)
	labels := make(map[int64]Phase)
	for _, m := range messages {
		sec := m.Timestamp.Truncate(time.Second).Unix()
		if _, seen := labels[sec]; !seen {
			labels[sec] = m.Phase
		}
		if m.Conversational() {
			counts[sec]++
		}
	}

	n := int(to.Sub(from)/time.Second) + 1
	buckets := make([]Bucket, 0, n)
	carry := PhaseUnknown
	for i := 0; i < n; i++ {
		second := from.Add(time.Duration(i) * time.Second)
		key := second.Unix()
		if label, ok := labels[key]; ok && label != PhaseUnknown {
			carry = label
		}
		buckets = append(buckets, Bucket{
			Second: second,
			Count:  counts[key],
			Phase:  carry,
		})
	}
	return buckets
}

// Reindex projects a bucket series onto the closed range [from, to] at one
// second resolution. Seconds outside the series have a zero count and no phase.
func Reindex(buckets []Bucket, from, to time.Time) []Bucket {
	from = from.Truncate(time.Second)
	to = to.Truncate(time.Second)
	if to.Before(from) {
		return nil
	}

	byKey := make(map[int64]Bucket, len(buckets))
	for _, b := range buckets {
		byKey[b.Second.Unix()] = b
	}

	n := int(to.Sub(from)/time.Second) + 1
	out := make([]Bucket, 0, n)
	for i := 0; i < n; i++ {
		second := from.Add(time.Duration(i) * time.Second)
		if b, ok := byKey[second.Unix()]; ok {
			out = append(out, b)
			continue
		}
		out = append(out, Bucket{Second: second})
	}
	return out
}

// TimeCategoryCounts counts rows per phase. Phases with no rows count zero.
func TimeCategoryCounts[T Phased](rows []T) PhaseCounts {
	var c PhaseCounts
	for _, r := range rows {
		switch r.PhaseLabel() {
		case PhaseBefore:
			c.Before++
		case PhaseDuring:
			c.During++
		case PhaseAfter:
			c.After++
		}
	}
	return c
}

// Nearest returns the position of the timestamp closest to target, preferring
// the earliest position on ties. It returns -1 for an empty index.
func Nearest(index []time.Time, target time.Time) int {
	best := -1
	var bestDiff time.Duration
	for i, t := range index {
		diff := t.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if best == -1 || diff < bestDiff {
			best = i
			bestDiff = diff
		}
	}
	return best
}

// Timestamps returns the message times in order
func Timestamps(messages []Message) []time.Time {
	out := make([]time.Time, len(messages))
	for i, m := range messages {
		out[i] = m.Timestamp
	}
	return out
}

// Seconds returns the bucket seconds in order
func Seconds(buckets []Bucket) []time.Time {
	out := make([]time.Time, len(buckets))
	for i, b := range buckets {
		out[i] = b.Second
	}
	return out
}

// Window returns the conversational messages between the messages nearest to
// start (inclusive) and nearest to end (exclusive).
func Window(messages []Message, start, end time.Time) []Message {
	index := Timestamps(messages)
	lo := Nearest(index, start)
	hi := Nearest(index, end)
	if lo < 0 || hi <= lo {
		return nil
	}

	var out []Message
	for _, m := range messages[lo:hi] {
		if m.Conversational() {
			out = append(out, m)
		}
	}
	return out
}
