package app

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"pomodoro/internal/core/clock"
	"pomodoro/internal/core/model"
	"pomodoro/internal/core/notify"
	"pomodoro/internal/core/session"
	"pomodoro/internal/core/stats"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/storage"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type grantedSink struct {
	mu     sync.Mutex
	titles []string
}

func (sink *grantedSink) Permission() notify.Permission { return notify.PermissionGranted }

func (sink *grantedSink) RequestPermission(context.Context) (notify.Permission, error) {
	return notify.PermissionGranted, nil
}

func (sink *grantedSink) Fire(title, _ string) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.titles = append(sink.titles, title)
	return nil
}

func (sink *grantedSink) Titles() []string {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]string(nil), sink.titles...)
}

// surface records what Run pushes to the rendering surface.
type surface struct {
	mu       sync.Mutex
	timer    timer.Snapshot
	session  session.Snapshot
	stats    []stats.Snapshot
	dark     []bool
	timerSeq int
}

func (s *surface) handlers() Handlers {
	return Handlers{
		OnTimer: func(snapshot timer.Snapshot) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.timer = snapshot
			s.timerSeq++
		},
		OnSession: func(snapshot session.Snapshot) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.session = snapshot
		},
		OnStats: func(snapshot stats.Snapshot) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.stats = append(s.stats, snapshot)
		},
		OnTheme: func(dark bool) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.dark = append(s.dark, dark)
		},
	}
}

func (s *surface) lastTimer() timer.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

func (s *surface) lastSession() session.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func (s *surface) lastStats() (stats.Snapshot, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.stats) == 0 {
		return stats.Snapshot{}, 0
	}
	return s.stats[len(s.stats)-1], len(s.stats)
}

func (s *surface) themes() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.dark...)
}

type harness struct {
	app     *App
	store   *storage.Memory
	clock   *clock.Manual
	sink    *grantedSink
	surface *surface
}

func newHarness(t *testing.T, store *storage.Memory) *harness {
	t.Helper()
	if store == nil {
		store = storage.NewMemory()
	}
	logger, _ := test.NewNullLogger()
	h := &harness{
		store:   store,
		clock:   clock.NewManual(testStart),
		sink:    &grantedSink{},
		surface: &surface{},
	}
	h.app = New(context.Background(), Options{
		Store:       store,
		Clock:       h.clock,
		Sink:        h.sink,
		Logger:      logger,
		EventBuffer: 4096,
	})
	return h
}

func (h *harness) run(t *testing.T) {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- h.app.Run(context.Background(), h.surface.handlers())
	}()
	require.Eventually(t, func() bool {
		_, published := h.surface.lastStats()
		return published > 0
	}, time.Second, time.Millisecond)

	t.Cleanup(func() {
		h.app.Close()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("Run did not return after Close")
		}
	})
}

func TestRunPushesInitialState(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	snapshot := h.surface.lastTimer()
	assert.Equal(t, model.PhaseWork, snapshot.Phase)
	assert.Equal(t, 1500, snapshot.RemainingSeconds)
	assert.Equal(t, []bool{false}, h.surface.themes())

	published, _ := h.surface.lastStats()
	assert.Equal(t, 0, published.ProductivityTier)
}

func TestWorkCompletionRepublishesStatsAndNotifies(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.app.Dispatch(Intent{Action: ActionStart})
	h.clock.Advance(1500 * time.Second)

	require.Eventually(t, func() bool {
		published, _ := h.surface.lastStats()
		return published.CompletedWorkSessions == 1
	}, time.Second, time.Millisecond)

	published, _ := h.surface.lastStats()
	assert.Equal(t, 25, published.TotalMinutes)
	assert.Equal(t, 25, published.ProductivityTier)
	assert.Equal(t, "First session completed!", published.Achievement)
	assert.Equal(t, model.PhaseShortBreak, h.surface.lastTimer().Phase)

	raw, found, err := h.store.Get(context.Background(), "stats.snapshot")
	require.NoError(t, err)
	require.True(t, found)
	var blob map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &blob))
	assert.Equal(t, float64(1), blob["sessionsCompleted"])

	require.Eventually(t, func() bool { return len(h.sink.Titles()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, "Work Session Complete!", h.sink.Titles()[0])
}

func TestResetStatsRepublishesTierZero(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.app.Dispatch(Intent{Action: ActionStart})
	h.clock.Advance(1500 * time.Second)
	require.Eventually(t, func() bool {
		published, _ := h.surface.lastStats()
		return published.CompletedWorkSessions == 1
	}, time.Second, time.Millisecond)

	h.app.Dispatch(Intent{Action: ActionResetStats})
	require.Eventually(t, func() bool {
		published, _ := h.surface.lastStats()
		return published.CompletedWorkSessions == 0
	}, time.Second, time.Millisecond)

	published, _ := h.surface.lastStats()
	assert.Equal(t, 0, published.ProductivityTier)
	assert.Equal(t, 0, h.app.Stats(context.Background()).CompletedWorkSessions)
}

func TestTimerAndSessionUseIndependentHandles(t *testing.T) {
	h := newHarness(t, nil)
	h.run(t)

	h.app.Tracker().SetActive(true)
	h.app.Dispatch(Intent{Action: ActionToggleRunning})
	assert.Equal(t, 2, h.clock.Active())

	h.clock.Advance(10 * time.Second)
	h.app.Dispatch(Intent{Action: ActionToggleRunning})
	assert.Equal(t, 1, h.clock.Active())
	assert.True(t, h.app.Engine().Snapshot().Paused)

	h.clock.Advance(5 * time.Second)
	assert.Equal(t, 1490, h.app.Engine().Snapshot().RemainingSeconds)
	assert.Equal(t, 15, h.app.Tracker().Snapshot().ElapsedSeconds)

	require.Eventually(t, func() bool {
		return h.surface.lastSession().ElapsedSeconds == 15
	}, time.Second, time.Millisecond)
}

func TestDispatchRoutesIntents(t *testing.T) {
	h := newHarness(t, nil)

	h.app.Dispatch(Intent{Action: ActionStart})
	h.clock.Advance(3 * time.Second)
	h.app.Dispatch(Intent{Action: ActionPause})
	assert.Equal(t, 1497, h.app.Engine().Snapshot().RemainingSeconds)

	h.app.Dispatch(Intent{Action: ActionReset})
	assert.Equal(t, 1500, h.app.Engine().Snapshot().RemainingSeconds)

	h.app.Dispatch(Intent{Action: ActionSwitchMode, Phase: model.PhaseLongBreak})
	assert.Equal(t, model.PhaseLongBreak, h.app.Engine().Snapshot().Phase)

	h.app.Dispatch(Intent{Action: ActionSwitchMode, Phase: model.Phase("nap")})
	assert.Equal(t, model.PhaseLongBreak, h.app.Engine().Snapshot().Phase)

	h.app.Tracker().SetActive(true)
	h.clock.Advance(30 * time.Second)
	previous := h.app.Tracker().Snapshot().ID
	h.app.Dispatch(Intent{Action: ActionRestartSession})
	assert.NotEqual(t, previous, h.app.Tracker().Snapshot().ID)
	assert.Equal(t, 0, h.app.Tracker().Snapshot().ElapsedSeconds)

	assert.NotPanics(t, func() { h.app.Dispatch(Intent{Action: Action("launch")}) })
	h.app.Close()
}

func TestThemeFlagPersists(t *testing.T) {
	store := storage.NewMemory()
	first := newHarness(t, store)
	first.run(t)

	first.app.Dispatch(Intent{Action: ActionToggleTheme})
	assert.True(t, first.app.DarkMode())
	assert.Equal(t, []bool{false, true}, first.surface.themes())

	require.Eventually(t, func() bool {
		value, found, err := store.Get(context.Background(), "ui.dark_mode")
		return err == nil && found && value == "true"
	}, time.Second, time.Millisecond)

	second := newHarness(t, store)
	assert.True(t, second.app.DarkMode())
	second.app.Close()
}

func TestCorruptThemeFlagDefaultsToLight(t *testing.T) {
	store := storage.NewMemory()
	require.NoError(t, store.Set(context.Background(), "ui.dark_mode", "dusk"))

	h := newHarness(t, store)
	assert.False(t, h.app.DarkMode())
	h.app.Close()
}

func TestRunAfterCloseFails(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Close()
	h.app.Close()

	assert.ErrorIs(t, h.app.Run(context.Background(), Handlers{}), ErrClosed)
}

func TestRunReturnsContextError(t *testing.T) {
	h := newHarness(t, nil)
	defer h.app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.app.Run(ctx, Handlers{}), context.Canceled)
}
