package platform

import (
	"errors"
	"sync"
	"testing"
	"time"

	"pomodoro/internal/core/clock"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTarget struct {
	mu    sync.Mutex
	calls []bool
}

func (target *recordingTarget) SetActive(active bool) {
	target.mu.Lock()
	defer target.mu.Unlock()
	target.calls = append(target.calls, active)
}

func (target *recordingTarget) Calls() []bool {
	target.mu.Lock()
	defer target.mu.Unlock()
	return append([]bool(nil), target.calls...)
}

type scriptedIdle struct {
	mu    sync.Mutex
	idle  time.Duration
	err   error
	calls int
}

func (idle *scriptedIdle) IdleDuration() (time.Duration, error) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.calls++
	return idle.idle, idle.err
}

func (idle *scriptedIdle) set(value time.Duration, err error) {
	idle.mu.Lock()
	defer idle.mu.Unlock()
	idle.idle = value
	idle.err = err
}

func newTestMonitor(t *testing.T, idle IdleProvider) (*ActivityMonitor, *recordingTarget, *clock.Manual) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	manual := clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	target := &recordingTarget{}
	monitor := NewActivityMonitor(target, idle, manual, ActivityConfig{
		IdleAfter:  time.Minute,
		CheckEvery: 5 * time.Second,
		Logger:     logger,
	})
	t.Cleanup(monitor.Close)
	return monitor, target, manual
}

func TestStartActivatesTarget(t *testing.T) {
	monitor, target, manual := newTestMonitor(t, &scriptedIdle{})

	monitor.Start()
	monitor.Start()

	assert.Equal(t, []bool{true}, target.Calls())
	assert.True(t, monitor.Active())
	assert.Equal(t, 1, manual.Active())
}

func TestForegroundChangesAreForwardedOnce(t *testing.T) {
	monitor, target, _ := newTestMonitor(t, nil)
	monitor.Start()

	monitor.SetForeground(false)
	monitor.SetForeground(false)
	monitor.SetForeground(true)

	assert.Equal(t, []bool{true, false, true}, target.Calls())
}

func TestIdleUserBecomesInactive(t *testing.T) {
	idle := &scriptedIdle{}
	monitor, target, manual := newTestMonitor(t, idle)
	monitor.Start()

	idle.set(2*time.Minute, nil)
	manual.Advance(5 * time.Second)
	assert.False(t, monitor.Active())

	idle.set(time.Second, nil)
	manual.Advance(5 * time.Second)
	assert.True(t, monitor.Active())
	assert.Equal(t, []bool{true, false, true}, target.Calls())
}

func TestHiddenWindowStaysInactiveWhenInputReturns(t *testing.T) {
	idle := &scriptedIdle{}
	monitor, _, manual := newTestMonitor(t, idle)
	monitor.Start()
	monitor.SetForeground(false)

	manual.Advance(30 * time.Second)
	assert.False(t, monitor.Active())
}

func TestTransientIdleErrorKeepsState(t *testing.T) {
	idle := &scriptedIdle{}
	monitor, target, manual := newTestMonitor(t, idle)
	monitor.Start()

	idle.set(0, errors.New("xprintidle: exit status 1"))
	manual.Advance(15 * time.Second)

	assert.True(t, monitor.Active())
	assert.Equal(t, []bool{true}, target.Calls())
	assert.Equal(t, 1, manual.Active())
}

func TestUnsupportedIdleStopsPolling(t *testing.T) {
	idle := &scriptedIdle{err: ErrIdleUnsupported}
	monitor, _, manual := newTestMonitor(t, idle)
	monitor.Start()

	manual.Advance(20 * time.Second)

	assert.True(t, monitor.Active())
	assert.Equal(t, 0, manual.Active())
	idle.mu.Lock()
	defer idle.mu.Unlock()
	assert.Equal(t, 1, idle.calls)
}

func TestZeroIdleAfterDisablesPolling(t *testing.T) {
	logger, _ := test.NewNullLogger()
	manual := clock.NewManual(time.Unix(0, 0))
	monitor := NewActivityMonitor(&recordingTarget{}, &scriptedIdle{}, manual, ActivityConfig{Logger: logger})
	monitor.Start()
	assert.Equal(t, 0, manual.Active())
}

func TestCloseStopsPollingAndIgnoresLaterChanges(t *testing.T) {
	monitor, target, manual := newTestMonitor(t, IdleFunc(func() (time.Duration, error) { return 0, nil }))
	monitor.Start()
	monitor.Close()

	monitor.SetForeground(false)
	monitor.Start()

	require.Equal(t, 0, manual.Active())
	assert.Equal(t, []bool{true}, target.Calls())
}
