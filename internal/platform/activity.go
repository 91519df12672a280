package platform

import (
	"errors"
	"sync"
	"time"

	"pomodoro/internal/core/clock"

	"github.com/sirupsen/logrus"
)

// ActivityTarget receives the combined activity state.
type ActivityTarget interface {
	SetActive(active bool)
}

// ActivityConfig controls idle polling. A zero IdleAfter disables it.
type ActivityConfig struct {
	IdleAfter  time.Duration
	CheckEvery time.Duration
	Logger     logrus.FieldLogger
}

// ActivityMonitor marks the user active while the window is visible and
// input was seen within IdleAfter.
type ActivityMonitor struct {
	mu      sync.Mutex
	target  ActivityTarget
	idle    IdleProvider
	clock   clock.Clock
	options ActivityConfig
	logger  logrus.FieldLogger

	foreground bool
	away       bool
	applied    bool
	hasApplied bool

	pollHandle clock.Handle
	closed     bool
}

// NewActivityMonitor creates a monitor that starts in the foreground. idle
// may be nil when idle detection is not wanted.
func NewActivityMonitor(target ActivityTarget, idle IdleProvider, clk clock.Clock, options ActivityConfig) *ActivityMonitor {
	if options.CheckEvery <= 0 {
		options.CheckEvery = 5 * time.Second
	}
	if options.Logger == nil {
		options.Logger = logrus.StandardLogger()
	}
	return &ActivityMonitor{
		target:     target,
		idle:       idle,
		clock:      clk,
		options:    options,
		logger:     options.Logger.WithField("component", "activity"),
		foreground: true,
	}
}

// Start applies the initial state and begins idle polling.
func (monitor *ActivityMonitor) Start() {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	if monitor.closed {
		return
	}
	if monitor.idle != nil && monitor.options.IdleAfter > 0 && monitor.pollHandle == 0 {
		monitor.pollHandle = monitor.clock.Every(monitor.options.CheckEvery, func(time.Time) {
			monitor.poll()
		})
	}
	monitor.applyLocked()
}

// SetForeground records whether the window is visible.
func (monitor *ActivityMonitor) SetForeground(foreground bool) {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	if monitor.closed {
		return
	}
	monitor.foreground = foreground
	monitor.applyLocked()
}

// Active reports the last state pushed to the target.
func (monitor *ActivityMonitor) Active() bool {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	return monitor.applied
}

// Close stops polling. The target keeps its last state.
func (monitor *ActivityMonitor) Close() {
	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	monitor.stopPollingLocked()
	monitor.closed = true
}

func (monitor *ActivityMonitor) poll() {
	idleFor, err := monitor.idle.IdleDuration()

	monitor.mu.Lock()
	defer monitor.mu.Unlock()
	if monitor.closed {
		return
	}
	if err != nil {
		if errors.Is(err, ErrIdleUnsupported) {
			monitor.logger.Info("idle detection unsupported, tracking window visibility only")
			monitor.stopPollingLocked()
			monitor.away = false
			monitor.applyLocked()
			return
		}
		monitor.logger.Debugf("idle check failed: %v", err)
		return
	}

	away := idleFor >= monitor.options.IdleAfter
	if away != monitor.away {
		monitor.logger.WithField("idle", idleFor.Truncate(time.Second)).Debugf("away=%t", away)
	}
	monitor.away = away
	monitor.applyLocked()
}

func (monitor *ActivityMonitor) applyLocked() {
	active := monitor.foreground && !monitor.away
	if monitor.hasApplied && active == monitor.applied {
		return
	}
	monitor.applied = active
	monitor.hasApplied = true
	monitor.target.SetActive(active)
}

func (monitor *ActivityMonitor) stopPollingLocked() {
	if monitor.pollHandle != 0 {
		monitor.clock.Cancel(monitor.pollHandle)
		monitor.pollHandle = 0
	}
}
