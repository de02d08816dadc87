// Package timeframe resolves relative and explicit date expressions in
// questions to half-open UTC-independent civil date ranges.
package timeframe

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Range is a half-open interval [Start, End) in the warehouse timezone.
type Range struct {
	Start time.Time
	End   time.Time
	Label string
}

// Days returns the number of civil days the range spans.
func (r *Range) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24 + 0.5)
}

// Resolver turns timeframe vocabulary into concrete ranges. Day boundaries are
// computed with civil arithmetic via time.Date so DST transitions never shift
// a boundary off midnight.
type Resolver struct {
	loc       *time.Location
	weekStart time.Weekday
}

func NewResolver(timezone, weekStart string) (*Resolver, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	ws := time.Monday
	if strings.EqualFold(weekStart, "sunday") {
		ws = time.Sunday
	}
	return &Resolver{loc: loc, weekStart: ws}, nil
}

// Location returns the configured warehouse timezone.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// explicitRangePattern matches "between 01/06/2025 and 07/06/2025" and the
// dash form "01/06/2025 - 07/06/2025". Dates are dd/mm/yyyy.
var explicitRangePattern = regexp.MustCompile(
	`(\d{1,2}/\d{1,2}/\d{4})\s*(?:-|–|to|and|至)\s*(\d{1,2}/\d{1,2}/\d{4})`)

var singleDatePattern = regexp.MustCompile(`\b(\d{1,2}/\d{1,2}/\d{4})\b`)

// vocabulary entries are checked in order; more specific phrases come first
// so "day before yesterday" is not swallowed by "yesterday".
type vocabEntry struct {
	phrases []string
	resolve func(r *Resolver, now time.Time) Range
}

var vocabulary = []vocabEntry{
	{
		phrases: []string{"day before yesterday", "two days ago", "2 days ago", "前天", "前日"},
		resolve: func(r *Resolver, now time.Time) Range {
			return r.dayRange(now, -2, "day before yesterday")
		},
	},
	{
		phrases: []string{"yesterday", "昨天", "昨日", "尋日"},
		resolve: func(r *Resolver, now time.Time) Range {
			return r.dayRange(now, -1, "yesterday")
		},
	},
	{
		phrases: []string{"today", "今天", "今日"},
		resolve: func(r *Resolver, now time.Time) Range {
			return r.dayRange(now, 0, "today")
		},
	},
	{
		phrases: []string{"last week", "上週", "上周", "上星期"},
		resolve: func(r *Resolver, now time.Time) Range {
			this := r.weekRange(now, "this week")
			y, m, d := this.Start.Date()
			return Range{
				Start: time.Date(y, m, d-7, 0, 0, 0, 0, r.loc),
				End:   this.Start,
				Label: "last week",
			}
		},
	},
	{
		phrases: []string{"this week", "本週", "本周", "今個星期"},
		resolve: func(r *Resolver, now time.Time) Range {
			return r.weekRange(now, "this week")
		},
	},
	{
		phrases: []string{"past 7 days", "last 7 days", "過去7天", "過去七天"},
		resolve: func(r *Resolver, now time.Time) Range {
			y, m, d := now.In(r.loc).Date()
			return Range{
				Start: time.Date(y, m, d-6, 0, 0, 0, 0, r.loc),
				End:   time.Date(y, m, d+1, 0, 0, 0, 0, r.loc),
				Label: "past 7 days",
			}
		},
	},
	{
		phrases: []string{"last month", "上月", "上個月"},
		resolve: func(r *Resolver, now time.Time) Range {
			y, m, _ := now.In(r.loc).Date()
			return Range{
				Start: time.Date(y, m-1, 1, 0, 0, 0, 0, r.loc),
				End:   time.Date(y, m, 1, 0, 0, 0, 0, r.loc),
				Label: "last month",
			}
		},
	},
	{
		phrases: []string{"this month", "本月", "當月", "今個月"},
		resolve: func(r *Resolver, now time.Time) Range {
			y, m, _ := now.In(r.loc).Date()
			return Range{
				Start: time.Date(y, m, 1, 0, 0, 0, 0, r.loc),
				End:   time.Date(y, m+1, 1, 0, 0, 0, 0, r.loc),
				Label: "this month",
			}
		},
	},
}

// Resolve scans a normalized question for timeframe vocabulary or explicit
// dates. Returns nil when the question carries no time expression.
func (r *Resolver) Resolve(question string, now time.Time) (*Range, error) {
	if m := explicitRangePattern.FindStringSubmatch(question); m != nil {
		start, err1 := r.parseDate(m[1])
		end, err2 := r.parseDate(m[2])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("unparseable explicit date range %q", m[0])
		}
		if end.Before(start) {
			start, end = end, start
		}
		y, mo, d := end.Date()
		return &Range{
			Start: start,
			End:   time.Date(y, mo, d+1, 0, 0, 0, 0, r.loc),
			Label: "between",
		}, nil
	}

	for _, entry := range vocabulary {
		for _, phrase := range entry.phrases {
			if strings.Contains(question, phrase) {
				rng := entry.resolve(r, now)
				return &rng, nil
			}
		}
	}

	if m := singleDatePattern.FindString(question); m != "" {
		day, err := r.parseDate(m)
		if err != nil {
			return nil, fmt.Errorf("unparseable date %q", m)
		}
		y, mo, d := day.Date()
		return &Range{
			Start: day,
			End:   time.Date(y, mo, d+1, 0, 0, 0, 0, r.loc),
			Label: "on",
		}, nil
	}

	return nil, nil
}

func (r *Resolver) dayRange(now time.Time, offset int, label string) Range {
	y, m, d := now.In(r.loc).Date()
	return Range{
		Start: time.Date(y, m, d+offset, 0, 0, 0, 0, r.loc),
		End:   time.Date(y, m, d+offset+1, 0, 0, 0, 0, r.loc),
		Label: label,
	}
}

func (r *Resolver) weekRange(now time.Time, label string) Range {
	local := now.In(r.loc)
	y, m, d := local.Date()
	back := (int(local.Weekday()) - int(r.weekStart) + 7) % 7
	start := time.Date(y, m, d-back, 0, 0, 0, 0, r.loc)
	sy, sm, sd := start.Date()
	return Range{
		Start: start,
		End:   time.Date(sy, sm, sd+7, 0, 0, 0, 0, r.loc),
		Label: label,
	}
}

func (r *Resolver) parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2/1/2006", s, r.loc)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc), nil
}
