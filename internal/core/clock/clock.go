package clock

import (
	"sync"
	"time"
)

// Handle identifies a repeating callback registered with a Clock.
// The zero Handle never refers to a live registration.
type Handle uint64

// Clock provides repeating ticks and the current time.
type Clock interface {
	Every(interval time.Duration, callback func(time.Time)) Handle
	Cancel(handle Handle)
	Now() time.Time
}

// System is a Clock backed by time.Ticker goroutines.
type System struct {
	mu    sync.Mutex
	next  Handle
	stops map[Handle]chan struct{}
}

// NewSystem creates a wall-clock implementation.
func NewSystem() *System {
	return &System{stops: make(map[Handle]chan struct{})}
}

// Now returns the current wall-clock time.
func (system *System) Now() time.Time {
	return time.Now()
}

// Every starts a ticker that invokes callback once per interval until cancelled.
func (system *System) Every(interval time.Duration, callback func(time.Time)) Handle {
	if interval <= 0 {
		interval = time.Second
	}

	system.mu.Lock()
	system.next++
	handle := system.next
	stopCh := make(chan struct{})
	system.stops[handle] = stopCh
	system.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case tickTime := <-ticker.C:
				select {
				case <-stopCh:
					return
				default:
				}
				callback(tickTime)
			}
		}
	}()

	return handle
}

// Cancel stops the ticker behind handle. Unknown or zero handles are ignored.
func (system *System) Cancel(handle Handle) {
	system.mu.Lock()
	defer system.mu.Unlock()
	stopCh, ok := system.stops[handle]
	if !ok {
		return
	}
	close(stopCh)
	delete(system.stops, handle)
}

// Active reports the number of live tickers.
func (system *System) Active() int {
	system.mu.Lock()
	defer system.mu.Unlock()
	return len(system.stops)
}
