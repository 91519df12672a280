package app

import (
	"pomodoro/internal/core/model"
)

// Action names a user intent sent by the rendering surface.
type Action string

const (
	ActionStart          Action = "start"
	ActionPause          Action = "pause"
	ActionToggleRunning  Action = "toggle_running"
	ActionReset          Action = "reset"
	ActionSwitchMode     Action = "switch_mode"
	ActionResetStats     Action = "reset_stats"
	ActionToggleTheme    Action = "toggle_theme"
	ActionRestartSession Action = "restart_session"
)

// Intent is one user action. Phase is only read by ActionSwitchMode.
type Intent struct {
	Action Action
	Phase  model.Phase
}

// Dispatch routes an intent to its owner. Unknown actions are ignored.
func (app *App) Dispatch(intent Intent) {
	switch intent.Action {
	case ActionStart:
		app.engine.Start()
	case ActionPause:
		app.engine.Pause()
	case ActionToggleRunning:
		if app.engine.Snapshot().Running {
			app.engine.Pause()
		} else {
			app.engine.Start()
		}
	case ActionReset:
		app.engine.Reset()
	case ActionSwitchMode:
		app.engine.SwitchMode(intent.Phase)
	case ActionResetStats:
		app.engine.ResetStats()
	case ActionToggleTheme:
		app.ToggleTheme()
	case ActionRestartSession:
		app.tracker.Restart()
	default:
		app.logger.WithField("action", intent.Action).Debug("ignoring unknown intent")
	}
}
