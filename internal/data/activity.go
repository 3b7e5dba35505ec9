package data

import "time"

// DayCount is the number of matches started on one calendar day
type DayCount struct {
	Day   time.Time `json:"date"`
	Count int       `json:"count"`
}

// WeekdayAverage is the mean number of matches on the active days of one weekday
type WeekdayAverage struct {
	Weekday time.Weekday `json:"-"`
	Name    string       `json:"dayname"`
	Mean    float64      `json:"count"`
}

// WeekdayOverview is the per-weekday averages plus the mean across them
type WeekdayOverview struct {
	Days    []WeekdayAverage `json:"days"`
	Overall float64          `json:"overall"`
}

var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
	time.Friday, time.Saturday, time.Sunday,
}

// MatchesPerDay counts matches per start day over the full range of days,
// including days without any match.
func MatchesPerDay(history []Match) []DayCount {
	if len(history) == 0 {
		return nil
	}

	counts := make(map[time.Time]int)
	first, last := dayOf(history[0].Start), dayOf(history[0].Start)
	for _, m := range history {
		d := dayOf(m.Start)
		counts[d]++
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var out []DayCount
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		out = append(out, DayCount{Day: d, Count: counts[d]})
	}
	return out
}

// AverageByWeekday averages the active (non-zero) days per weekday, Monday first.
// Weekdays without an active day are left out.
func AverageByWeekday(perDay []DayCount) WeekdayOverview {
	sums := make(map[time.Weekday]int)
	days := make(map[time.Weekday]int)
	for _, d := range perDay {
		if d.Count == 0 {
			continue
		}
		sums[d.Day.Weekday()] += d.Count
		days[d.Day.Weekday()]++
	}

	var overview WeekdayOverview
	var total float64
	for _, wd := range weekOrder {
		if days[wd] == 0 {
			continue
		}
		mean := float64(sums[wd]) / float64(days[wd])
		overview.Days = append(overview.Days, WeekdayAverage{Weekday: wd, Name: wd.String(), Mean: mean})
		total += mean
	}
	if len(overview.Days) > 0 {
		overview.Overall = total / float64(len(overview.Days))
	}
	return overview
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
