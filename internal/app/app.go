package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"pomodoro/internal/core/clock"
	"pomodoro/internal/core/notify"
	"pomodoro/internal/core/session"
	"pomodoro/internal/core/stats"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/storage"

	"github.com/sirupsen/logrus"
)

// KeyDarkMode is the ui namespace key of the theme flag.
const KeyDarkMode = "dark_mode"

const (
	defaultEventBuffer = 64
	persistWindow      = 3 * time.Second
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("app closed")

// Options configures an App.
type Options struct {
	Store  storage.Store
	Clock  clock.Clock
	Sink   notify.Sink
	Logger logrus.FieldLogger

	TickInterval time.Duration
	// EventBuffer sizes the subscriptions Run reads from. Ticks beyond it
	// are dropped while a handler is slow.
	EventBuffer int
}

// Handlers receive state pushed to the rendering surface. Timer, session and
// stats updates arrive on the Run goroutine, OnTheme on the goroutine that
// changed the flag. Nil handlers are skipped.
type Handlers struct {
	OnTimer   func(timer.Snapshot)
	OnSession func(session.Snapshot)
	OnStats   func(stats.Snapshot)
	OnTheme   func(dark bool)
}

// App owns the timer, session tracker, stats aggregator and notification
// bridge built over a single store.
type App struct {
	logger      logrus.FieldLogger
	eventBuffer int

	ui         *storage.Writer
	engine     *timer.Engine
	tracker    *session.Tracker
	aggregator *stats.Aggregator
	bridge     *notify.Bridge

	mu       sync.Mutex
	dark     bool
	handlers Handlers
	cancel   context.CancelFunc
	closed   bool
}

// New wires the components over options.Store. Persisted counters, the
// session start and the theme flag are read during construction.
func New(ctx context.Context, options Options) *App {
	logger := options.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	clk := options.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}
	store := options.Store
	if store == nil {
		store = storage.NewMemory()
	}

	timerBucket := storage.NewBucket(store, storage.NamespaceTimer, logger)
	app := &App{
		logger:      logger.WithField("component", "app"),
		eventBuffer: options.EventBuffer,
	}
	if app.eventBuffer <= 0 {
		app.eventBuffer = defaultEventBuffer
	}
	app.engine = timer.New(ctx, timerBucket, clk, timer.Config{
		TickInterval: options.TickInterval,
		Logger:       logger,
	})
	app.tracker = session.New(storage.NewBucket(store, storage.NamespaceSession, logger), clk, session.Config{
		TickInterval: options.TickInterval,
		Logger:       logger,
	})
	app.aggregator = stats.NewAggregator(timerBucket, storage.NewBucket(store, storage.NamespaceStats, logger))
	if options.Sink != nil {
		app.bridge = notify.NewBridge(options.Sink, app.engine, logger)
	}

	uiBucket := storage.NewBucket(store, storage.NamespaceUI, logger)
	var dark bool
	if uiBucket.JSON(ctx, KeyDarkMode, &dark) {
		app.dark = dark
	}
	app.ui = storage.NewWriter(uiBucket, persistWindow)
	return app
}

// Engine returns the timer engine.
func (app *App) Engine() *timer.Engine {
	return app.engine
}

// Tracker returns the session tracker.
func (app *App) Tracker() *session.Tracker {
	return app.tracker
}

// Stats recomputes statistics from the store once the engine's queued
// counter writes have landed.
func (app *App) Stats(ctx context.Context) stats.Snapshot {
	app.flushCounters(ctx)
	return app.aggregator.Snapshot(ctx)
}

// DarkMode reports the theme flag.
func (app *App) DarkMode() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.dark
}

// SetDarkMode persists the theme flag and notifies the surface.
func (app *App) SetDarkMode(dark bool) {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return
	}
	app.dark = dark
	onTheme := app.handlers.OnTheme
	app.mu.Unlock()

	if err := app.ui.SetJSON(KeyDarkMode, dark); err != nil {
		app.logger.Debugf("store theme: %v", err)
	}

	if onTheme != nil {
		onTheme(dark)
	}
}

// ToggleTheme flips the theme flag.
func (app *App) ToggleTheme() {
	app.SetDarkMode(!app.DarkMode())
}

// Run pushes the initial state to handlers, then forwards timer and session
// updates until ctx ends or Close is called. Stats are republished after
// every completion and stats reset.
func (app *App) Run(ctx context.Context, handlers Handlers) error {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return ErrClosed
	}
	if app.cancel != nil {
		app.mu.Unlock()
		return errors.New("app already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	app.cancel = cancel
	app.handlers = handlers
	dark := app.dark
	app.mu.Unlock()

	events := app.engine.Subscribe(app.eventBuffer)
	sessions := app.tracker.Subscribe(app.eventBuffer)

	var wg sync.WaitGroup
	if app.bridge != nil {
		completions := app.engine.Subscribe(app.eventBuffer)
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.bridge.Run(ctx, completions)
		}()
	}
	defer func() {
		cancel()
		wg.Wait()
		if app.bridge != nil {
			app.bridge.Wait()
		}
		app.mu.Lock()
		app.cancel = nil
		app.mu.Unlock()
	}()

	if handlers.OnTheme != nil {
		handlers.OnTheme(dark)
	}
	if handlers.OnTimer != nil {
		handlers.OnTimer(app.engine.Snapshot())
	}
	if handlers.OnSession != nil {
		handlers.OnSession(app.tracker.Snapshot())
	}
	app.publish(ctx, handlers)

	for {
		select {
		case <-ctx.Done():
			if app.isClosed() {
				return nil
			}
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			if handlers.OnTimer != nil {
				handlers.OnTimer(event.Snapshot)
			}
			if event.Type == timer.EventComplete || event.Type == timer.EventStatsReset {
				app.publish(ctx, handlers)
			}
		case snapshot, ok := <-sessions:
			if !ok {
				sessions = nil
				continue
			}
			if handlers.OnSession != nil {
				handlers.OnSession(snapshot)
			}
		}
	}
}

// Close stops the timer and tracker, writes pending values and ends Run.
func (app *App) Close() {
	app.mu.Lock()
	if app.closed {
		app.mu.Unlock()
		return
	}
	app.closed = true
	cancel := app.cancel
	app.mu.Unlock()

	app.engine.Close()
	app.tracker.Close()
	app.ui.Close()
	if cancel != nil {
		cancel()
	}
}

func (app *App) publish(ctx context.Context, handlers Handlers) {
	app.flushCounters(ctx)
	snapshot, err := app.aggregator.Publish(ctx)
	if err != nil {
		app.logger.Debugf("stats publish: %v", err)
	}
	if handlers.OnStats != nil {
		handlers.OnStats(snapshot)
	}
}

func (app *App) flushCounters(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, persistWindow)
	defer cancel()
	if err := app.engine.Flush(ctx); err != nil {
		app.logger.Debugf("stats read before counters were stored: %v", err)
	}
}

func (app *App) isClosed() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.closed
}
