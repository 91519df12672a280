// Package metrics provides Prometheus metrics for the timer, session tracker,
// store and notification bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TimerTicks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pomodoro_timer_ticks_total",
			Help: "Total number of countdown ticks applied",
		},
	)
	PhaseCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_phase_completions_total",
			Help: "Total number of countdowns that reached zero, by ended phase",
		},
		[]string{"phase"},
	)
	PhaseSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_phase_switches_total",
			Help: "Total number of manual phase switches, by target phase",
		},
		[]string{"phase"},
	)
	SessionElapsed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pomodoro_session_elapsed_seconds",
			Help: "Elapsed wall-clock seconds of the current presence session",
		},
	)
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_store_errors_total",
			Help: "Total number of failed or corrupt store operations",
		},
		[]string{"namespace", "operation"},
	)
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pomodoro_notifications_total",
			Help: "Completion notifications by outcome",
		},
		[]string{"outcome"},
	)
)

// Notification outcomes.
const (
	NotificationFired     = "fired"
	NotificationDenied    = "denied"
	NotificationStale     = "stale"
	NotificationFailed    = "failed"
	NotificationRequested = "requested"
)

// RecordTick counts one applied countdown tick.
func RecordTick() {
	TimerTicks.Inc()
}

// RecordCompletion counts a countdown that ended in phase.
func RecordCompletion(phase string) {
	PhaseCompletions.WithLabelValues(phase).Inc()
}

// RecordSwitch counts a manual switch to phase.
func RecordSwitch(phase string) {
	PhaseSwitches.WithLabelValues(phase).Inc()
}

// SetSessionElapsed publishes the tracker's elapsed seconds.
func SetSessionElapsed(seconds int) {
	SessionElapsed.Set(float64(seconds))
}

// RecordStoreError counts a failed read, write or decode.
func RecordStoreError(namespace, operation string) {
	StoreErrors.WithLabelValues(namespace, operation).Inc()
}

// RecordNotification counts a bridge outcome.
func RecordNotification(outcome string) {
	Notifications.WithLabelValues(outcome).Inc()
}
