package timespec

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/lockstep/pkg/simtime"
)

// Parse parses a simulated-time value.
// Supports two formats:
//   - Go duration format: "100ms", "1.5s", "250us", "1m30s"
//   - Bare numbers, read as seconds: "2", "0.25"
//
// Durations are measured from simulated time zero, so the result can be used
// both as a duration (timestep, lookahead) and as an instant (time limit).
func Parse(text string) (simtime.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return simtime.Zero, fmt.Errorf("empty time value")
	}

	// Try parsing as bare seconds first
	if s, err := strconv.ParseFloat(text, 64); err == nil {
		t, err := simtime.FromSeconds(s)
		if err != nil {
			return simtime.Zero, fmt.Errorf("invalid time value %q: %w", text, err)
		}
		return t, nil
	}

	// Try parsing as Go duration
	if d, err := time.ParseDuration(text); err == nil {
		if d < 0 {
			return simtime.Zero, fmt.Errorf("invalid time value %q: must not be negative", text)
		}
		if d%time.Microsecond != 0 {
			return simtime.Zero, fmt.Errorf("invalid time value %q: must be a whole number of microseconds", text)
		}
		t, err := simtime.FromMicros(uint64(d.Microseconds()))
		if err != nil {
			return simtime.Zero, fmt.Errorf("invalid time value %q: %w", text, err)
		}
		return t, nil
	}

	return simtime.Zero, fmt.Errorf("invalid time value: %s (use a duration like '100ms' or seconds like '2.5')", text)
}

// ParseStep parses a timestep and time limit together.
// Validates that the timestep is positive and no larger than the limit.
func ParseStep(timestep, limit string) (simtime.Time, simtime.Time, error) {
	step, err := Parse(timestep)
	if err != nil {
		return simtime.Zero, simtime.Zero, fmt.Errorf("invalid timestep: %w", err)
	}
	if step.IsZero() {
		return simtime.Zero, simtime.Zero, fmt.Errorf("invalid timestep: must be positive")
	}

	end, err := Parse(limit)
	if err != nil {
		return simtime.Zero, simtime.Zero, fmt.Errorf("invalid time limit: %w", err)
	}

	// Validate range
	if end.Before(step) {
		return simtime.Zero, simtime.Zero, fmt.Errorf("time limit %s is shorter than timestep %s", end, step)
	}

	return step, end, nil
}
