package clock

import (
	"sync"
	"time"
)

type manualTimer struct {
	interval time.Duration
	due      time.Time
	callback func(time.Time)
}

// Manual is a deterministic Clock. Callbacks run synchronously inside Advance,
// in due-time order, so callers observe every tick exactly once.
type Manual struct {
	mu     sync.Mutex
	now    time.Time
	next   Handle
	timers map[Handle]*manualTimer
}

// NewManual creates a manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:    start,
		timers: make(map[Handle]*manualTimer),
	}
}

// Now returns the simulated time.
func (manual *Manual) Now() time.Time {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	return manual.now
}

// Every registers callback to run each interval of simulated time.
func (manual *Manual) Every(interval time.Duration, callback func(time.Time)) Handle {
	if interval <= 0 {
		interval = time.Second
	}
	manual.mu.Lock()
	defer manual.mu.Unlock()
	manual.next++
	handle := manual.next
	manual.timers[handle] = &manualTimer{
		interval: interval,
		due:      manual.now.Add(interval),
		callback: callback,
	}
	return handle
}

// Cancel removes the registration behind handle.
func (manual *Manual) Cancel(handle Handle) {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	delete(manual.timers, handle)
}

// Active reports the number of live registrations.
func (manual *Manual) Active() int {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	return len(manual.timers)
}

// Advance moves simulated time forward by delta, firing due callbacks.
func (manual *Manual) Advance(delta time.Duration) {
	manual.mu.Lock()
	target := manual.now.Add(delta)
	manual.mu.Unlock()

	for {
		manual.mu.Lock()
		timer := manual.earliestDueLocked(target)
		if timer == nil {
			manual.now = target
			manual.mu.Unlock()
			return
		}
		manual.now = timer.due
		timer.due = timer.due.Add(timer.interval)
		fireAt := manual.now
		callback := timer.callback
		manual.mu.Unlock()

		callback(fireAt)
	}
}

// Set jumps simulated time to at without firing any callbacks, as if the
// process had been suspended. Pending registrations are rescheduled from at.
func (manual *Manual) Set(at time.Time) {
	manual.mu.Lock()
	defer manual.mu.Unlock()
	manual.now = at
	for _, timer := range manual.timers {
		timer.due = at.Add(timer.interval)
	}
}

func (manual *Manual) earliestDueLocked(target time.Time) *manualTimer {
	var (
		bestHandle Handle
		best       *manualTimer
	)
	for handle, timer := range manual.timers {
		if timer.due.After(target) {
			continue
		}
		if best == nil || timer.due.Before(best.due) || (timer.due.Equal(best.due) && handle < bestHandle) {
			bestHandle = handle
			best = timer
		}
	}
	return best
}
