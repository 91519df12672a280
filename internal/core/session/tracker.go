package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pomodoro/internal/core/clock"
	"pomodoro/internal/metrics"
	"pomodoro/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store keys inside the session namespace.
const (
	KeyID      = "id"
	KeyStart   = "start"
	KeyElapsed = "elapsed"
)

// ProgressHorizon is the session length that counts as a full progress bar.
const ProgressHorizon = 4 * time.Hour

const persistTimeout = 3 * time.Second

// Config contains runtime options for Tracker.
type Config struct {
	TickInterval time.Duration
	Logger       logrus.FieldLogger
}

// Snapshot is a read-only copy of the tracker state.
type Snapshot struct {
	ID             string
	StartedAt      time.Time
	ElapsedSeconds int
	Active         bool
}

// Progress returns elapsed time as a fraction of ProgressHorizon, capped at 1.
func (snapshot Snapshot) Progress() float64 {
	progress := float64(snapshot.ElapsedSeconds) / ProgressHorizon.Seconds()
	if progress > 1 {
		return 1
	}
	return progress
}

// Formatted renders elapsed time as h:mm:ss, or m:ss below one hour.
func (snapshot Snapshot) Formatted() string {
	return FormatElapsed(snapshot.ElapsedSeconds)
}

// FormatElapsed renders seconds as h:mm:ss, or m:ss below one hour.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	secs := seconds % 60
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, secs)
	}
	return fmt.Sprintf("%d:%02d", minutes, secs)
}

// Tracker accumulates wall-clock time of the current presence session. It
// runs its own clock handle, independent of the timer engine.
type Tracker struct {
	mu      sync.Mutex
	clock   clock.Clock
	bucket  *storage.Bucket
	writer  *storage.Writer
	options Config
	logger  logrus.FieldLogger

	id        string
	startedAt time.Time
	elapsed   int
	active    bool
	loaded    bool

	tickHandle clock.Handle
	tickToken  uint64
	events     []chan Snapshot
	closed     bool
}

// New creates an inactive Tracker. Nothing is read from the store until the
// first activation.
func New(bucket *storage.Bucket, clk clock.Clock, options Config) *Tracker {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	return &Tracker{
		clock:   clk,
		bucket:  bucket,
		writer:  storage.NewWriter(bucket, persistTimeout),
		options: options,
		logger:  options.Logger.WithField("component", "session"),
	}
}

// Snapshot returns the current state.
func (tracker *Tracker) Snapshot() Snapshot {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.snapshotLocked()
}

// Subscribe registers an observer channel receiving a snapshot after every
// change. Sends never block.
func (tracker *Tracker) Subscribe(buffer int) <-chan Snapshot {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Snapshot, buffer)
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if tracker.closed {
		close(ch)
		return ch
	}
	tracker.events = append(tracker.events, ch)
	return ch
}

// SetActive reports surface visibility. Becoming active recomputes elapsed
// time from the persisted start and resumes counting; becoming inactive
// stops counting without touching the start. The persisted start is read
// once, before the first activation takes the lock.
func (tracker *Tracker) SetActive(active bool) {
	var record storedRecord
	if active && !tracker.isLoaded() {
		record = tracker.readRecord()
	}

	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if tracker.closed || tracker.active == active {
		return
	}

	if !active {
		tracker.stopTickerLocked()
		tracker.active = false
		tracker.logger.Debug("session inactive")
		tracker.emitLocked()
		return
	}

	if !tracker.loaded {
		tracker.loadLocked(record)
	}
	tracker.recomputeLocked()
	tracker.persistElapsedLocked()
	tracker.active = true
	tracker.startTickerLocked()
	tracker.emitLocked()
}

// Restart begins a new session from now, keeping the current activity.
func (tracker *Tracker) Restart() {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if tracker.closed {
		return
	}

	tracker.beginLocked(tracker.clock.Now())
	tracker.loaded = true
	if tracker.active {
		tracker.startTickerLocked()
	}
	tracker.emitLocked()
}

// Flush waits until queued session writes have reached the store.
func (tracker *Tracker) Flush(ctx context.Context) error {
	return tracker.writer.Flush(ctx)
}

// Close stops counting, writes pending values and closes observers.
func (tracker *Tracker) Close() {
	tracker.mu.Lock()
	if tracker.closed {
		tracker.mu.Unlock()
		return
	}
	tracker.stopTickerLocked()
	tracker.active = false
	tracker.closed = true
	events := tracker.events
	tracker.events = nil
	tracker.mu.Unlock()

	tracker.writer.Close()
	for _, ch := range events {
		close(ch)
	}
}

// storedRecord is the persisted session as read from the bucket.
type storedRecord struct {
	id        string
	startedAt time.Time
	found     bool
}

func (tracker *Tracker) isLoaded() bool {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	return tracker.loaded
}

func (tracker *Tracker) readRecord() storedRecord {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	startMillis, found := tracker.bucket.Int64(ctx, KeyStart)
	if !found || startMillis <= 0 {
		return storedRecord{}
	}
	id, _ := tracker.bucket.String(ctx, KeyID)
	return storedRecord{id: id, startedAt: time.UnixMilli(startMillis), found: true}
}

func (tracker *Tracker) loadLocked(record storedRecord) {
	tracker.loaded = true
	if !record.found {
		tracker.beginLocked(tracker.clock.Now())
		return
	}

	tracker.startedAt = record.startedAt
	if record.id != "" {
		tracker.id = record.id
	} else {
		tracker.id = uuid.NewString()
		tracker.writer.SetString(KeyID, tracker.id)
	}
	tracker.logger.WithFields(logrus.Fields{
		"session": tracker.id,
		"started": tracker.startedAt,
	}).Info("session resumed")
}

func (tracker *Tracker) beginLocked(now time.Time) {
	tracker.id = uuid.NewString()
	tracker.startedAt = time.UnixMilli(now.UnixMilli())
	tracker.elapsed = 0
	tracker.writer.SetString(KeyID, tracker.id)
	tracker.writer.SetInt64(KeyStart, tracker.startedAt.UnixMilli())
	tracker.persistElapsedLocked()
	tracker.logger.WithField("session", tracker.id).Info("session started")
}

func (tracker *Tracker) recomputeLocked() {
	elapsed := int(tracker.clock.Now().Sub(tracker.startedAt) / time.Second)
	if elapsed < 0 {
		elapsed = 0
	}
	tracker.elapsed = elapsed
}

func (tracker *Tracker) startTickerLocked() {
	tracker.stopTickerLocked()
	tracker.tickToken++
	token := tracker.tickToken
	tracker.tickHandle = tracker.clock.Every(tracker.options.TickInterval, func(time.Time) {
		tracker.tick(token)
	})
}

func (tracker *Tracker) stopTickerLocked() {
	if tracker.tickHandle != 0 {
		tracker.clock.Cancel(tracker.tickHandle)
		tracker.tickHandle = 0
	}
	tracker.tickToken++
}

func (tracker *Tracker) tick(token uint64) {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	if tracker.closed || !tracker.active || token != tracker.tickToken {
		return
	}
	tracker.elapsed++
	tracker.persistElapsedLocked()
	tracker.emitLocked()
}

func (tracker *Tracker) persistElapsedLocked() {
	metrics.SetSessionElapsed(tracker.elapsed)
	tracker.writer.SetInt(KeyElapsed, tracker.elapsed)
}

func (tracker *Tracker) snapshotLocked() Snapshot {
	return Snapshot{
		ID:             tracker.id,
		StartedAt:      tracker.startedAt,
		ElapsedSeconds: tracker.elapsed,
		Active:         tracker.active,
	}
}

func (tracker *Tracker) emitLocked() {
	snapshot := tracker.snapshotLocked()
	for _, ch := range tracker.events {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
