package timer

import (
	"time"

	"pomodoro/internal/core/model"
)

// EventType defines the type of Engine event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventTick        EventType = "tick"
	EventComplete    EventType = "complete"
	EventStatsReset  EventType = "stats_reset"
)

// Snapshot is a read-only copy of the engine state.
type Snapshot struct {
	EngineID              string
	Generation            uint64
	Phase                 model.Phase
	RemainingSeconds      int
	Running               bool
	Paused                bool
	CompletedWorkSessions int
	CurrentStreak         int
	LongestStreak         int
}

// Idle reports whether the countdown is neither running nor paused.
func (snapshot Snapshot) Idle() bool {
	return !snapshot.Running && !snapshot.Paused
}

// Progress returns the elapsed fraction of the current phase in [0, 1].
func (snapshot Snapshot) Progress() float64 {
	total := snapshot.Phase.Seconds()
	if total <= 0 {
		return 1
	}
	progress := float64(total-snapshot.RemainingSeconds) / float64(total)
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// CyclePosition returns which work interval of the long-break cycle is
// current, from 1 to model.LongBreakEvery.
func (snapshot Snapshot) CyclePosition() int {
	return snapshot.CompletedWorkSessions%model.LongBreakEvery + 1
}

// Status returns the short state line shown under the countdown.
func (snapshot Snapshot) Status() string {
	switch {
	case snapshot.Running:
		switch snapshot.Phase {
		case model.PhaseShortBreak:
			return "Short Break..."
		case model.PhaseLongBreak:
			return "Long Break..."
		}
		return "Working..."
	case snapshot.Paused:
		return "Paused"
	case snapshot.Phase == model.PhaseWork:
		return "Ready to Work"
	}
	return snapshot.Phase.Label()
}

// Event represents an Engine update for observers.
type Event struct {
	Type     EventType
	Snapshot Snapshot
	// EndedPhase is set on EventComplete to the phase whose countdown ended.
	EndedPhase model.Phase
	At         time.Time
}
