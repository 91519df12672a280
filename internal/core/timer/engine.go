package timer

import (
	"context"
	"sync"
	"time"

	"pomodoro/internal/core/clock"
	"pomodoro/internal/core/model"
	"pomodoro/internal/metrics"
	"pomodoro/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store keys inside the timer namespace.
const (
	KeyCompletedSessions = "completed_sessions"
	KeyCurrentStreak     = "current_streak"
	KeyLongestStreak     = "longest_streak"
)

const persistTimeout = 3 * time.Second

// Config contains runtime options for Engine.
type Config struct {
	TickInterval time.Duration
	Logger       logrus.FieldLogger
}

// Engine is the pomodoro countdown state machine. It is the only writer of
// the completed work session counter.
type Engine struct {
	mu      sync.Mutex
	id      string
	clock   clock.Clock
	writer  *storage.Writer
	options Config
	logger  logrus.FieldLogger

	phase         model.Phase
	remaining     int
	running       bool
	paused        bool
	completed     int
	currentStreak int
	longestStreak int
	generation    uint64

	tickHandle clock.Handle
	tickToken  uint64
	events     []chan Event
	closed     bool
}

// New creates an idle Engine in the work phase, restoring persisted counters
// from bucket.
func New(ctx context.Context, bucket *storage.Bucket, clk clock.Clock, options Config) *Engine {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}

	engine := &Engine{
		id:            uuid.NewString(),
		clock:         clk,
		writer:        storage.NewWriter(bucket, persistTimeout),
		options:       options,
		phase:         model.PhaseWork,
		remaining:     model.PhaseWork.Seconds(),
		completed:     nonNegative(bucket.Int(ctx, KeyCompletedSessions, 0)),
		currentStreak: nonNegative(bucket.Int(ctx, KeyCurrentStreak, 0)),
		longestStreak: nonNegative(bucket.Int(ctx, KeyLongestStreak, 0)),
	}
	engine.logger = options.Logger.WithFields(logrus.Fields{
		"component": "timer",
		"engine":    engine.id,
	})
	if engine.longestStreak < engine.currentStreak {
		engine.longestStreak = engine.currentStreak
	}
	return engine
}

// ID returns the identity of this engine instance.
func (engine *Engine) ID() string {
	return engine.id
}

// Generation returns a counter that changes on every phase change.
func (engine *Engine) Generation() uint64 {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.generation
}

// Snapshot returns the current state.
func (engine *Engine) Snapshot() Snapshot {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.snapshotLocked()
}

// Subscribe registers a new observer channel. Sends never block; a full
// channel misses events.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		close(ch)
		return ch
	}
	engine.events = append(engine.events, ch)
	return ch
}

// Start runs the countdown from the current remaining time.
func (engine *Engine) Start() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || engine.running || engine.remaining == 0 {
		return
	}
	engine.running = true
	engine.paused = false
	engine.startTickerLocked()
	engine.emitLocked(EventStateChange, "")
}

// Pause freezes the countdown.
func (engine *Engine) Pause() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || !engine.running {
		return
	}
	engine.stopTickerLocked()
	engine.running = false
	engine.paused = true
	engine.emitLocked(EventStateChange, "")
}

// Reset restores the full duration of the current phase and goes idle.
func (engine *Engine) Reset() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	engine.stopTickerLocked()
	engine.abandonWorkLocked()
	engine.remaining = engine.phase.Seconds()
	engine.running = false
	engine.paused = false
	engine.emitLocked(EventStateChange, "")
}

// SwitchMode moves to target without counting a completion.
func (engine *Engine) SwitchMode(target model.Phase) {
	if !target.Valid() {
		return
	}
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	engine.stopTickerLocked()
	engine.abandonWorkLocked()
	if target != engine.phase {
		engine.generation++
	}
	engine.phase = target
	engine.remaining = target.Seconds()
	engine.running = false
	engine.paused = false
	metrics.RecordSwitch(string(target))
	engine.emitLocked(EventStateChange, "")
}

// ResetStats clears the completed session counter and streaks.
func (engine *Engine) ResetStats() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}
	engine.completed = 0
	engine.currentStreak = 0
	engine.longestStreak = 0
	engine.persistLocked(KeyCompletedSessions, 0)
	engine.persistLocked(KeyCurrentStreak, 0)
	engine.persistLocked(KeyLongestStreak, 0)
	engine.logger.Info("stats reset")
	engine.emitLocked(EventStatsReset, "")
}

// Flush waits until queued counter writes have reached the store.
func (engine *Engine) Flush(ctx context.Context) error {
	return engine.writer.Flush(ctx)
}

// Close cancels the countdown, writes pending counters and closes observers.
// Later intents and ticks are ignored.
func (engine *Engine) Close() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	engine.stopTickerLocked()
	engine.running = false
	engine.closed = true
	events := engine.events
	engine.events = nil
	engine.mu.Unlock()

	engine.writer.Close()
	for _, ch := range events {
		close(ch)
	}
}

func (engine *Engine) startTickerLocked() {
	engine.stopTickerLocked()
	engine.tickToken++
	token := engine.tickToken
	engine.tickHandle = engine.clock.Every(engine.options.TickInterval, func(tickTime time.Time) {
		engine.tick(token, tickTime)
	})
}

func (engine *Engine) stopTickerLocked() {
	if engine.tickHandle != 0 {
		engine.clock.Cancel(engine.tickHandle)
		engine.tickHandle = 0
	}
	engine.tickToken++
}

func (engine *Engine) tick(token uint64, tickTime time.Time) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || !engine.running || token != engine.tickToken {
		return
	}

	if engine.remaining > 0 {
		engine.remaining--
		metrics.RecordTick()
	}
	if engine.remaining > 0 {
		engine.emitLockedAt(EventTick, "", tickTime)
		return
	}
	engine.completeLocked(tickTime)
}

func (engine *Engine) completeLocked(now time.Time) {
	engine.stopTickerLocked()

	ended := engine.phase
	next := model.PhaseWork
	if ended == model.PhaseWork {
		engine.completed++
		engine.currentStreak++
		if engine.currentStreak > engine.longestStreak {
			engine.longestStreak = engine.currentStreak
			engine.persistLocked(KeyLongestStreak, engine.longestStreak)
		}
		engine.persistLocked(KeyCompletedSessions, engine.completed)
		engine.persistLocked(KeyCurrentStreak, engine.currentStreak)

		next = model.PhaseShortBreak
		if (engine.completed-1)%model.LongBreakEvery == model.LongBreakEvery-1 {
			next = model.PhaseLongBreak
		}
	}

	engine.phase = next
	engine.remaining = next.Seconds()
	engine.running = false
	engine.paused = false
	engine.generation++
	metrics.RecordCompletion(string(ended))

	engine.logger.WithFields(logrus.Fields{
		"ended":     ended,
		"next":      next,
		"completed": engine.completed,
	}).Info("phase complete")
	engine.emitLockedAt(EventComplete, ended, now)
}

// abandonWorkLocked breaks the streak when a started work interval is
// discarded by Reset or SwitchMode.
func (engine *Engine) abandonWorkLocked() {
	if engine.phase != model.PhaseWork || engine.remaining >= model.PhaseWork.Seconds() {
		return
	}
	if engine.currentStreak == 0 {
		return
	}
	engine.currentStreak = 0
	engine.persistLocked(KeyCurrentStreak, 0)
}

// persistLocked queues a counter write. Failures are logged by the bucket;
// in-memory state stays authoritative.
func (engine *Engine) persistLocked(name string, value int) {
	engine.writer.SetInt(name, value)
}

func (engine *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		EngineID:              engine.id,
		Generation:            engine.generation,
		Phase:                 engine.phase,
		RemainingSeconds:      engine.remaining,
		Running:               engine.running,
		Paused:                engine.paused,
		CompletedWorkSessions: engine.completed,
		CurrentStreak:         engine.currentStreak,
		LongestStreak:         engine.longestStreak,
	}
}

func (engine *Engine) emitLocked(eventType EventType, ended model.Phase) {
	engine.emitLockedAt(eventType, ended, engine.clock.Now())
}

func (engine *Engine) emitLockedAt(eventType EventType, ended model.Phase, at time.Time) {
	event := Event{
		Type:       eventType,
		Snapshot:   engine.snapshotLocked(),
		EndedPhase: ended,
		At:         at,
	}
	for _, ch := range engine.events {
		select {
		case ch <- event:
		default:
		}
	}
}

func nonNegative(value int) int {
	if value < 0 {
		return 0
	}
	return value
}
