package notify

import (
	"context"
	"strings"
	"sync"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/metrics"

	"github.com/sirupsen/logrus"
)

// Permission mirrors the host notification permission.
type Permission string

const (
	PermissionUnrequested Permission = "unrequested"
	PermissionGranted     Permission = "granted"
	PermissionDenied      Permission = "denied"
)

// ParsePermission converts a persisted value, defaulting to unrequested.
func ParsePermission(value string) Permission {
	switch Permission(strings.ToLower(strings.TrimSpace(value))) {
	case PermissionGranted:
		return PermissionGranted
	case PermissionDenied:
		return PermissionDenied
	}
	return PermissionUnrequested
}

// Sink delivers user-visible notifications.
type Sink interface {
	Permission() Permission
	RequestPermission(ctx context.Context) (Permission, error)
	Fire(title, body string) error
}

// Identity exposes the engine identity checked before a delayed notification.
type Identity interface {
	ID() string
	Generation() uint64
}

// Completion describes a countdown that reached zero.
type Completion struct {
	EngineID   string
	Generation uint64
	EndedPhase model.Phase
}

// CompletionFromEvent extracts a Completion from an engine event.
func CompletionFromEvent(event timer.Event) (Completion, bool) {
	if event.Type != timer.EventComplete {
		return Completion{}, false
	}
	return Completion{
		EngineID:   event.Snapshot.EngineID,
		Generation: event.Snapshot.Generation,
		EndedPhase: event.EndedPhase,
	}, true
}

// Message returns the notification text for a phase that just ended.
func Message(ended model.Phase) (title, body string) {
	switch ended {
	case model.PhaseShortBreak:
		return "Short Break Complete!", "Short break over. Ready to work?"
	case model.PhaseLongBreak:
		return "Long Break Complete!", "Long break over. Ready for the next cycle?"
	}
	return "Work Session Complete!", "Great job! Time for a break."
}

type permissionRequest struct {
	done   chan struct{}
	result Permission
}

// Bridge turns completions into notifications, gated by permission.
type Bridge struct {
	sink   Sink
	source Identity
	logger logrus.FieldLogger

	mu      sync.Mutex
	pending *permissionRequest
	wg      sync.WaitGroup
}

// NewBridge creates a Bridge. source is consulted before firing a
// notification that waited for a permission prompt.
func NewBridge(sink Sink, source Identity, logger logrus.FieldLogger) *Bridge {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Bridge{
		sink:   sink,
		source: source,
		logger: logger.WithField("component", "notify"),
	}
}

// Run handles completions from events until the channel closes or ctx ends.
func (bridge *Bridge) Run(ctx context.Context, events <-chan timer.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if completion, isCompletion := CompletionFromEvent(event); isCompletion {
				bridge.Handle(ctx, completion)
			}
		}
	}
}

// Handle processes one completion without blocking on a permission prompt.
func (bridge *Bridge) Handle(ctx context.Context, completion Completion) {
	switch bridge.sink.Permission() {
	case PermissionGranted:
		bridge.fire(completion)
	case PermissionDenied:
		metrics.RecordNotification(metrics.NotificationDenied)
	default:
		bridge.wg.Add(1)
		go func() {
			defer bridge.wg.Done()
			bridge.handleUnrequested(ctx, completion)
		}()
	}
}

// Wait blocks until in-flight permission prompts have been handled.
func (bridge *Bridge) Wait() {
	bridge.wg.Wait()
}

func (bridge *Bridge) handleUnrequested(ctx context.Context, completion Completion) {
	permission := bridge.awaitPermission(ctx)
	if permission != PermissionGranted {
		metrics.RecordNotification(metrics.NotificationDenied)
		return
	}
	if !bridge.isCurrent(completion) {
		metrics.RecordNotification(metrics.NotificationStale)
		bridge.logger.WithField("phase", completion.EndedPhase).Debug("suppressing stale notification")
		return
	}
	bridge.fire(completion)
}

// awaitPermission shares a single prompt between concurrent completions.
func (bridge *Bridge) awaitPermission(ctx context.Context) Permission {
	bridge.mu.Lock()
	request := bridge.pending
	if request == nil {
		request = &permissionRequest{done: make(chan struct{})}
		bridge.pending = request
		metrics.RecordNotification(metrics.NotificationRequested)
		go bridge.request(ctx, request)
	}
	bridge.mu.Unlock()

	select {
	case <-request.done:
		return request.result
	case <-ctx.Done():
		return PermissionUnrequested
	}
}

func (bridge *Bridge) request(ctx context.Context, request *permissionRequest) {
	result, err := bridge.sink.RequestPermission(ctx)
	if err != nil {
		bridge.logger.Warnf("notification permission request failed: %v", err)
		result = PermissionDenied
	}

	bridge.mu.Lock()
	request.result = result
	if bridge.pending == request {
		bridge.pending = nil
	}
	bridge.mu.Unlock()
	close(request.done)
}

func (bridge *Bridge) isCurrent(completion Completion) bool {
	if bridge.source == nil {
		return true
	}
	return bridge.source.ID() == completion.EngineID && bridge.source.Generation() == completion.Generation
}

func (bridge *Bridge) fire(completion Completion) {
	title, body := Message(completion.EndedPhase)
	if err := bridge.sink.Fire(title, body); err != nil {
		metrics.RecordNotification(metrics.NotificationFailed)
		bridge.logger.Warnf("fire notification: %v", err)
		return
	}
	metrics.RecordNotification(metrics.NotificationFired)
}
