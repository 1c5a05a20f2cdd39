package conversion

import (
	"fmt"
	"strings"
	"time"
)

// NoTrackingMessage is shown when a journey does not track conversions.
const NoTrackingMessage = "No conversion tracking"

// Display is the presentation of a journey's conversion tracking: either the
// tracked events with their deadline, or a message when tracking is off.
type Display struct {
	Enabled       bool       `json:"enabled"`
	TrackedEvents []string   `json:"tracked_events,omitempty"`
	TimeLimit     string     `json:"time_limit,omitempty"`
	DeadlineAt    *time.Time `json:"deadline_at,omitempty"`
	Message       string     `json:"message,omitempty"`
}

// Describe builds the display for settings and an evaluation result.
func Describe(s Settings, r Result) Display {
	if !s.Enabled {
		return Display{Message: NoTrackingMessage}
	}

	d := Display{
		Enabled:       true,
		TrackedEvents: append([]string(nil), s.TrackedEvents...),
	}
	if s.TimeLimit != nil {
		d.TimeLimit = s.TimeLimit.String()
		deadline := r.DeadlineAt
		d.DeadlineAt = &deadline
	}
	return d
}

// String renders the limit as e.g. "3 Days".
func (l TimeLimit) String() string {
	return fmt.Sprintf("%d %s", l.Value, l.Unit)
}

// Lines renders d as plain text: a bullet per tracked event followed by the
// deadline, or the message when tracking is off.
func (d Display) Lines() []string {
	if !d.Enabled {
		return []string{d.Message}
	}

	lines := make([]string, 0, len(d.TrackedEvents)+2)
	lines = append(lines, "Tracked events:")
	for _, name := range d.TrackedEvents {
		lines = append(lines, "  - "+name)
	}
	if d.DeadlineAt != nil {
		lines = append(lines, fmt.Sprintf("Deadline: %s (%s)", d.DeadlineAt.UTC().Format(time.RFC3339), d.TimeLimit))
	}
	return lines
}

// String joins Lines with newlines.
func (d Display) String() string {
	return strings.Join(d.Lines(), "\n")
}
