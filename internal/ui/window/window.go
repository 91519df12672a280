package window

import (
	"fmt"

	"pomodoro/internal/app"
	"pomodoro/internal/core/model"
	"pomodoro/internal/core/session"
	"pomodoro/internal/core/stats"
	"pomodoro/internal/core/timer"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

// Dispatcher receives user intents.
type Dispatcher interface {
	Dispatch(intent app.Intent)
}

// DispatchFunc adapts a function to Dispatcher.
type DispatchFunc func(intent app.Intent)

// Dispatch calls fn.
func (fn DispatchFunc) Dispatch(intent app.Intent) {
	fn(intent)
}

// Window is the main timer window. Its setters must run on the fyne
// goroutine; Handlers wraps them for use from other goroutines.
type Window struct {
	fyneApp    fyne.App
	window     fyne.Window
	dispatcher Dispatcher

	phaseButtons map[model.Phase]*widget.Button
	countdown    *canvas.Text
	subtitle     *widget.Label
	status       *widget.Label
	progress     *widget.ProgressBar
	cycle        *widget.Label
	toggle       *widget.Button
	reset        *widget.Button

	sessions    *widget.Label
	total       *widget.Label
	average     *widget.Label
	streak      *widget.Label
	tier        *widget.ProgressBar
	achievement *widget.Label
	resetStats  *widget.Button

	elapsed         *widget.Label
	elapsedProgress *widget.ProgressBar

	themeButton *widget.Button

	onVisibility func(visible bool)
}

// New builds the window. It starts hidden; closing it hides it again so the
// tray keeps the app alive.
func New(fyneApp fyne.App, dispatcher Dispatcher) *Window {
	view := &Window{
		fyneApp:      fyneApp,
		window:       fyneApp.NewWindow("Pomodoro"),
		dispatcher:   dispatcher,
		phaseButtons: make(map[model.Phase]*widget.Button, len(model.Phases)),
	}

	phaseRow := container.NewGridWithColumns(len(model.Phases))
	for _, phase := range model.Phases {
		button := widget.NewButton(phase.Label(), func() {
			view.dispatch(app.Intent{Action: app.ActionSwitchMode, Phase: phase})
		})
		view.phaseButtons[phase] = button
		phaseRow.Add(button)
	}

	view.countdown = canvas.NewText("25:00", theme.Color(theme.ColorNameForeground))
	view.countdown.TextSize = 64
	view.countdown.TextStyle = fyne.TextStyle{Bold: true, Monospace: true}
	view.countdown.Alignment = fyne.TextAlignCenter

	view.subtitle = widget.NewLabelWithStyle(model.PhaseWork.Subtitle(), fyne.TextAlignCenter, fyne.TextStyle{Italic: true})
	view.status = widget.NewLabelWithStyle("Ready to Work", fyne.TextAlignCenter, fyne.TextStyle{})
	view.progress = widget.NewProgressBar()
	view.progress.TextFormatter = func() string { return "" }
	view.cycle = widget.NewLabelWithStyle("Session 1 of 4", fyne.TextAlignCenter, fyne.TextStyle{})

	view.toggle = widget.NewButtonWithIcon("Start", theme.MediaPlayIcon(), func() {
		view.dispatch(app.Intent{Action: app.ActionToggleRunning})
	})
	view.toggle.Importance = widget.HighImportance
	view.reset = widget.NewButtonWithIcon("Reset", theme.MediaReplayIcon(), func() {
		view.dispatch(app.Intent{Action: app.ActionReset})
	})

	timerCard := widget.NewCard("", "", container.NewVBox(
		phaseRow,
		view.countdown,
		view.subtitle,
		view.progress,
		view.status,
		container.NewHBox(layout.NewSpacer(), view.toggle, view.reset, layout.NewSpacer()),
		view.cycle,
	))

	view.sessions = widget.NewLabel("0")
	view.total = widget.NewLabel("0m")
	view.average = widget.NewLabel("0m")
	view.streak = widget.NewLabel("0 (best 0)")
	view.tier = widget.NewProgressBar()
	view.tier.Max = 100
	view.tier.TextFormatter = func() string { return fmt.Sprintf("%.0f%%", view.tier.Value) }
	view.achievement = widget.NewLabelWithStyle("", fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	view.resetStats = widget.NewButtonWithIcon("Reset Stats", theme.DeleteIcon(), view.confirmResetStats)
	view.resetStats.Importance = widget.DangerImportance

	statsCard := widget.NewCard("Statistics", "", container.NewVBox(
		container.NewGridWithColumns(2,
			widget.NewLabel("Sessions completed"), view.sessions,
			widget.NewLabel("Total focus time"), view.total,
			widget.NewLabel("Average session"), view.average,
			widget.NewLabel("Current streak"), view.streak,
		),
		widget.NewLabel("Productivity"),
		view.tier,
		view.achievement,
		view.resetStats,
	))

	view.elapsed = widget.NewLabelWithStyle("0:00", fyne.TextAlignCenter, fyne.TextStyle{Monospace: true})
	view.elapsedProgress = widget.NewProgressBar()
	view.elapsedProgress.TextFormatter = func() string { return "" }
	restartSession := widget.NewButtonWithIcon("New session", theme.ViewRefreshIcon(), func() {
		view.dispatch(app.Intent{Action: app.ActionRestartSession})
	})
	sessionCard := widget.NewCard("Session Time", "", container.NewVBox(
		view.elapsed,
		view.elapsedProgress,
		restartSession,
	))

	view.themeButton = widget.NewButtonWithIcon("Dark mode", theme.ColorPaletteIcon(), func() {
		view.dispatch(app.Intent{Action: app.ActionToggleTheme})
	})

	header := container.NewHBox(
		widget.NewLabelWithStyle("Pomodoro Timer", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		layout.NewSpacer(),
		view.themeButton,
	)

	view.window.SetContent(container.NewBorder(header, nil, nil, nil,
		container.NewVScroll(container.NewVBox(timerCard, sessionCard, statsCard)),
	))
	view.window.Resize(fyne.NewSize(440, 720))
	view.window.SetCloseIntercept(view.Hide)
	view.highlightPhase(model.PhaseWork)
	return view
}

// Fyne returns the underlying window, used as the parent of dialogs.
func (view *Window) Fyne() fyne.Window {
	return view.window
}

// SetOnVisibility registers a callback run when the window is shown or hidden.
func (view *Window) SetOnVisibility(callback func(visible bool)) {
	view.onVisibility = callback
}

// Show displays and focuses the window.
func (view *Window) Show() {
	view.window.Show()
	view.window.RequestFocus()
	if view.onVisibility != nil {
		view.onVisibility(true)
	}
}

// Hide hides the window to the tray.
func (view *Window) Hide() {
	view.window.Hide()
	if view.onVisibility != nil {
		view.onVisibility(false)
	}
}

// SetTimer renders a timer snapshot.
func (view *Window) SetTimer(snapshot timer.Snapshot) {
	text := FormatCountdown(snapshot.RemainingSeconds)
	view.countdown.Text = text
	view.countdown.Refresh()
	view.subtitle.SetText(snapshot.Phase.Subtitle())
	view.status.SetText(snapshot.Status())
	view.progress.SetValue(snapshot.Progress())
	view.cycle.SetText(fmt.Sprintf("Session %d of %d", snapshot.CyclePosition(), model.LongBreakEvery))

	if snapshot.Running {
		view.toggle.SetText("Pause")
		view.toggle.SetIcon(theme.MediaPauseIcon())
	} else {
		view.toggle.SetText("Start")
		view.toggle.SetIcon(theme.MediaPlayIcon())
	}
	view.highlightPhase(snapshot.Phase)
	view.window.SetTitle(fmt.Sprintf("%s - %s", text, snapshot.Phase.Label()))
}

// SetSession renders the presence session.
func (view *Window) SetSession(snapshot session.Snapshot) {
	view.elapsed.SetText(snapshot.Formatted())
	view.elapsedProgress.SetValue(snapshot.Progress())
}

// SetStats renders derived statistics.
func (view *Window) SetStats(snapshot stats.Snapshot) {
	view.sessions.SetText(fmt.Sprintf("%d", snapshot.CompletedWorkSessions))
	view.total.SetText(snapshot.TotalFormatted())
	view.average.SetText(stats.FormatTotal(snapshot.AverageSessionMinutes))
	view.streak.SetText(fmt.Sprintf("%d (best %d)", snapshot.CurrentStreak, snapshot.LongestStreak))
	view.tier.SetValue(float64(snapshot.ProductivityTier))
	view.achievement.SetText(snapshot.Achievement)
}

// SetDarkMode applies the theme variant.
func (view *Window) SetDarkMode(dark bool) {
	view.fyneApp.Settings().SetTheme(Theme(dark))
	if dark {
		view.themeButton.SetText("Light mode")
	} else {
		view.themeButton.SetText("Dark mode")
	}
	view.countdown.Color = theme.Color(theme.ColorNameForeground)
	view.countdown.Refresh()
}

// Handlers returns app handlers that marshal updates onto the fyne goroutine.
func (view *Window) Handlers() app.Handlers {
	return app.Handlers{
		OnTimer: func(snapshot timer.Snapshot) {
			fyne.Do(func() { view.SetTimer(snapshot) })
		},
		OnSession: func(snapshot session.Snapshot) {
			fyne.Do(func() { view.SetSession(snapshot) })
		},
		OnStats: func(snapshot stats.Snapshot) {
			fyne.Do(func() { view.SetStats(snapshot) })
		},
		OnTheme: func(dark bool) {
			fyne.Do(func() { view.SetDarkMode(dark) })
		},
	}
}

// FormatCountdown renders seconds as MM:SS.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func (view *Window) confirmResetStats() {
	dialog.ShowConfirm("Reset statistics",
		"Clear completed sessions and streaks? This cannot be undone.",
		func(confirmed bool) {
			if confirmed {
				view.dispatch(app.Intent{Action: app.ActionResetStats})
			}
		}, view.window)
}

func (view *Window) highlightPhase(active model.Phase) {
	for phase, button := range view.phaseButtons {
		importance := widget.MediumImportance
		if phase == active {
			importance = widget.HighImportance
		}
		if button.Importance != importance {
			button.Importance = importance
			button.Refresh()
		}
	}
}

func (view *Window) dispatch(intent app.Intent) {
	if view.dispatcher != nil {
		view.dispatcher.Dispatch(intent)
	}
}
