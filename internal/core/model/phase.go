package model

import (
	"fmt"
	"strings"
	"time"
)

// Phase identifies which part of the pomodoro cycle is counting down.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

const (
	WorkDuration       = 25 * time.Minute
	ShortBreakDuration = 5 * time.Minute
	LongBreakDuration  = 15 * time.Minute

	// LongBreakEvery is the number of work intervals per long-break cycle.
	LongBreakEvery = 4
)

// Phases lists every phase in display order.
var Phases = []Phase{PhaseWork, PhaseShortBreak, PhaseLongBreak}

// Valid reports whether phase is one of the known phases.
func (phase Phase) Valid() bool {
	switch phase {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return true
	}
	return false
}

// Duration returns the countdown length of phase.
func (phase Phase) Duration() time.Duration {
	switch phase {
	case PhaseShortBreak:
		return ShortBreakDuration
	case PhaseLongBreak:
		return LongBreakDuration
	default:
		return WorkDuration
	}
}

// Seconds returns the countdown length of phase in whole seconds.
func (phase Phase) Seconds() int {
	return int(phase.Duration() / time.Second)
}

// IsBreak reports whether phase is a rest phase.
func (phase Phase) IsBreak() bool {
	return phase == PhaseShortBreak || phase == PhaseLongBreak
}

// Label returns the human readable name.
func (phase Phase) Label() string {
	switch phase {
	case PhaseShortBreak:
		return "Short Break"
	case PhaseLongBreak:
		return "Long Break"
	default:
		return "Work"
	}
}

// Subtitle describes the purpose of phase.
func (phase Phase) Subtitle() string {
	switch phase {
	case PhaseShortBreak:
		return "Quick Rest"
	case PhaseLongBreak:
		return "Extended Rest"
	default:
		return "Focus Time"
	}
}

// ParsePhase converts a persisted or user supplied name to a Phase.
func ParsePhase(value string) (Phase, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "work":
		return PhaseWork, nil
	case "short_break", "shortbreak", "short":
		return PhaseShortBreak, nil
	case "long_break", "longbreak", "long":
		return PhaseLongBreak, nil
	}
	return "", fmt.Errorf("unknown phase %q", value)
}
