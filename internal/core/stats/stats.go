package stats

import (
	"context"
	"fmt"
	"time"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/storage"
)

// KeySnapshot is the stats namespace key of the published blob.
const KeySnapshot = "snapshot"

// MinutesPerSession is the length credited for each completed work interval.
var MinutesPerSession = int(model.WorkDuration / time.Minute)

// CounterReader reads integer counters owned by another component.
type CounterReader interface {
	Int(ctx context.Context, name string, fallback int) int
}

// Snapshot holds derived display statistics.
type Snapshot struct {
	CompletedWorkSessions int    `json:"sessionsCompleted"`
	TotalMinutes          int    `json:"totalTimeSpent"`
	AverageSessionMinutes int    `json:"averageSessionTime"`
	CurrentStreak         int    `json:"currentStreak"`
	LongestStreak         int    `json:"longestStreak"`
	ProductivityTier      int    `json:"productivityScore"`
	Achievement           string `json:"achievement,omitempty"`
}

// TotalFormatted renders TotalMinutes as "1h 15m" or "25m".
func (snapshot Snapshot) TotalFormatted() string {
	return FormatTotal(snapshot.TotalMinutes)
}

// Aggregator derives statistics from the timer's persisted counters. It holds
// no state of its own, so every call observes the latest counter.
type Aggregator struct {
	counters CounterReader
	output   *storage.Bucket
}

// NewAggregator creates an Aggregator reading counters and publishing into
// output. output may be nil when publishing is not needed.
func NewAggregator(counters CounterReader, output *storage.Bucket) *Aggregator {
	return &Aggregator{counters: counters, output: output}
}

// Snapshot computes statistics from a fresh read of the counters.
func (aggregator *Aggregator) Snapshot(ctx context.Context) Snapshot {
	sessions := aggregator.counters.Int(ctx, timer.KeyCompletedSessions, 0)
	current := aggregator.counters.Int(ctx, timer.KeyCurrentStreak, 0)
	longest := aggregator.counters.Int(ctx, timer.KeyLongestStreak, 0)
	return Compute(sessions, current, longest)
}

// Publish computes a snapshot and stores it as the stats blob.
func (aggregator *Aggregator) Publish(ctx context.Context) (Snapshot, error) {
	snapshot := aggregator.Snapshot(ctx)
	if aggregator.output == nil {
		return snapshot, nil
	}
	if err := aggregator.output.SetJSON(ctx, KeySnapshot, snapshot); err != nil {
		return snapshot, fmt.Errorf("publish stats: %w", err)
	}
	return snapshot, nil
}

// Compute derives statistics from raw counters.
func Compute(sessions, currentStreak, longestStreak int) Snapshot {
	if sessions < 0 {
		sessions = 0
	}
	snapshot := Snapshot{
		CompletedWorkSessions: sessions,
		TotalMinutes:          sessions * MinutesPerSession,
		CurrentStreak:         max(currentStreak, 0),
		LongestStreak:         max(longestStreak, 0),
		ProductivityTier:      Tier(sessions),
		Achievement:           Achievement(sessions),
	}
	if sessions > 0 {
		snapshot.AverageSessionMinutes = MinutesPerSession
	}
	return snapshot
}

// Tier maps a completed session count to a productivity bucket.
func Tier(sessions int) int {
	switch {
	case sessions <= 0:
		return 0
	case sessions < 5:
		return 25
	case sessions < 10:
		return 50
	case sessions < 20:
		return 75
	}
	return 100
}

// Achievement returns the milestone message for a session count.
func Achievement(sessions int) string {
	switch {
	case sessions == 1:
		return "First session completed!"
	case sessions == 5:
		return "5 sessions! You're on fire!"
	case sessions == 10:
		return "10 sessions! Consistency is key!"
	case sessions == 25:
		return "25 sessions! You're a Pomodoro master!"
	case sessions > 25:
		return "Keep up the amazing work!"
	}
	return ""
}

// FormatTotal renders minutes as "1h 15m", or "25m" below one hour.
func FormatTotal(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hours := minutes / 60
	rest := minutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, rest)
	}
	return fmt.Sprintf("%dm", rest)
}
