// Package conversion decides whether a journey participant converted within
// the journey's conversion window.
package conversion

import (
	"strings"
	"time"
)

// TimeUnit is the unit of a conversion time limit.
type TimeUnit string

const (
	Minutes TimeUnit = "Minutes"
	Hours   TimeUnit = "Hours"
	Days    TimeUnit = "Days"
	Weeks   TimeUnit = "Weeks"
)

// ParseTimeUnit resolves a unit name case-insensitively. Singular forms are accepted.
func ParseTimeUnit(s string) (TimeUnit, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minutes", "minute":
		return Minutes, true
	case "hours", "hour":
		return Hours, true
	case "days", "day":
		return Days, true
	case "weeks", "week":
		return Weeks, true
	default:
		return "", false
	}
}

// Duration returns the exact length of one unit. Days and weeks are fixed
// multiples of 24 hours; there is no calendar arithmetic.
func (u TimeUnit) Duration() time.Duration {
	switch u {
	case Minutes:
		return time.Minute
	case Hours:
		return time.Hour
	case Days:
		return 24 * time.Hour
	case Weeks:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Valid reports whether u is a known unit.
func (u TimeUnit) Valid() bool { return u.Duration() > 0 }

// TimeLimit is the length of the conversion window.
type TimeLimit struct {
	Unit  TimeUnit `json:"unit"`
	Value int64    `json:"value"`
}

// Duration returns Value units as an absolute duration.
func (l TimeLimit) Duration() time.Duration {
	return time.Duration(l.Value) * l.Unit.Duration()
}

// Settings configure conversion tracking for a journey.
type Settings struct {
	Enabled       bool       `json:"enabled"`
	TrackedEvents []string   `json:"events"`
	TimeLimit     *TimeLimit `json:"timeLimit,omitempty"`
}

// Active reports whether evaluation can ever produce a conversion. Disabled
// settings, settings without a time limit and settings without tracked events
// are inert and never need the participant's events.
func (s Settings) Active() bool {
	return s.Enabled && s.TimeLimit != nil && len(s.TrackedEvents) > 0
}

// Deadline returns the end of the window that starts at entryAt. Without a
// time limit the window is empty and the deadline equals entryAt.
func (s Settings) Deadline(entryAt time.Time) time.Time {
	if s.TimeLimit == nil {
		return entryAt
	}
	return entryAt.Add(s.TimeLimit.Duration())
}

// Occurrence is a single event observed for a participant.
type Occurrence struct {
	Name       string    `json:"name"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Window holds everything observed for one participant of a journey.
type Window struct {
	EntryAt time.Time
	Events  []Occurrence
}

// Result is the outcome of Evaluate.
type Result struct {
	Converted   bool       `json:"converted"`
	ConvertedAt *time.Time `json:"converted_at,omitempty"`
	DeadlineAt  time.Time  `json:"deadline_at"`
}

// Evaluate reports whether the participant converted.
//
// The deadline is always computed. Inactive settings return early without
// looking at w.Events. Otherwise the earliest tracked event at or before the
// deadline wins; among equal timestamps the first one in w.Events wins.
func Evaluate(s Settings, w Window) Result {
	res := Result{DeadlineAt: s.Deadline(w.EntryAt)}
	if !s.Active() {
		return res
	}

	tracked := make(map[string]struct{}, len(s.TrackedEvents))
	for _, name := range s.TrackedEvents {
		tracked[name] = struct{}{}
	}

	var best *time.Time
	for i := range w.Events {
		ev := w.Events[i]
		if _, ok := tracked[ev.Name]; !ok {
			continue
		}
		if ev.OccurredAt.After(res.DeadlineAt) {
			continue
		}
		if best == nil || ev.OccurredAt.Before(*best) {
			at := ev.OccurredAt
			best = &at
		}
	}

	if best != nil {
		res.Converted = true
		res.ConvertedAt = best
	}
	return res
}
