package tray

import (
	"fmt"

	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
	"pomodoro/resources"

	"fyne.io/fyne/v2"
)

// Tray is the part of desktop.App used by the manager.
type Tray interface {
	SetSystemTrayMenu(menu *fyne.Menu)
	SetSystemTrayIcon(icon fyne.Resource)
}

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnShow              func()
	OnToggleRunning     func()
	OnReset             func()
	OnSwitch            func(model.Phase)
	OnResetNotification func()
	OnQuit              func()
}

// Manager keeps the tray menu in sync with the timer.
type Manager struct {
	app        Tray
	callbacks  Callbacks
	icon       string
	menu       *fyne.Menu
	statusItem *fyne.MenuItem
	toggleItem *fyne.MenuItem
	resetItem  *fyne.MenuItem
	phaseItems map[model.Phase]*fyne.MenuItem
}

// New installs the tray menu.
func New(app Tray, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:        app,
		callbacks:  callbacks,
		phaseItems: make(map[model.Phase]*fyne.MenuItem, len(model.Phases)),
	}

	manager.statusItem = fyne.NewMenuItem(statusLabel(timer.Snapshot{Phase: model.PhaseWork, RemainingSeconds: model.PhaseWork.Seconds()}), nil)
	manager.statusItem.Disabled = true

	show := fyne.NewMenuItem("Show timer", func() {
		if manager.callbacks.OnShow != nil {
			manager.callbacks.OnShow()
		}
	})
	manager.toggleItem = fyne.NewMenuItem("Start", func() {
		if manager.callbacks.OnToggleRunning != nil {
			manager.callbacks.OnToggleRunning()
		}
	})
	manager.resetItem = fyne.NewMenuItem("Reset", func() {
		if manager.callbacks.OnReset != nil {
			manager.callbacks.OnReset()
		}
	})

	switchItems := make([]*fyne.MenuItem, 0, len(model.Phases))
	for _, phase := range model.Phases {
		item := fyne.NewMenuItem(phase.Label(), func() {
			if manager.callbacks.OnSwitch != nil {
				manager.callbacks.OnSwitch(phase)
			}
		})
		manager.phaseItems[phase] = item
		switchItems = append(switchItems, item)
	}
	switchTo := fyne.NewMenuItem("Switch to", nil)
	switchTo.ChildMenu = fyne.NewMenu("", switchItems...)

	resetNotification := fyne.NewMenuItem("Ask again for notifications", func() {
		if manager.callbacks.OnResetNotification != nil {
			manager.callbacks.OnResetNotification()
		}
	})

	// IsQuit keeps fyne from appending its default Quit item.
	quit := fyne.NewMenuItem("Quit", func() {
		if manager.callbacks.OnQuit != nil {
			manager.callbacks.OnQuit()
		}
	})
	quit.IsQuit = true

	manager.menu = fyne.NewMenu("Pomodoro",
		manager.statusItem,
		fyne.NewMenuItemSeparator(),
		show,
		manager.toggleItem,
		manager.resetItem,
		switchTo,
		fyne.NewMenuItemSeparator(),
		resetNotification,
		quit,
	)
	manager.phaseItems[model.PhaseWork].Checked = true
	manager.refresh()
	manager.setIcon(resources.IconApp)
	return manager
}

// SetSnapshot updates the menu from a timer snapshot. The menu is only
// rebuilt when a label changes, which is at most once a minute while running.
func (manager *Manager) SetSnapshot(snapshot timer.Snapshot) {
	changed := false
	if label := statusLabel(snapshot); label != manager.statusItem.Label {
		manager.statusItem.Label = label
		changed = true
	}

	toggle := "Start"
	if snapshot.Running {
		toggle = "Pause"
	}
	if toggle != manager.toggleItem.Label {
		manager.toggleItem.Label = toggle
		changed = true
	}

	for phase, item := range manager.phaseItems {
		checked := phase == snapshot.Phase
		if item.Checked != checked {
			item.Checked = checked
			changed = true
		}
	}

	if changed {
		manager.refresh()
	}
	manager.setIcon(iconFor(snapshot))
}

// Menu returns the installed menu.
func (manager *Manager) Menu() *fyne.Menu {
	return manager.menu
}

func (manager *Manager) refresh() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(manager.menu)
	}
}

func (manager *Manager) setIcon(name string) {
	if manager.app == nil || name == manager.icon {
		return
	}
	icon, err := resources.Icon(name)
	if err != nil {
		return
	}
	manager.icon = name
	manager.app.SetSystemTrayIcon(icon)
}

func iconFor(snapshot timer.Snapshot) string {
	switch {
	case snapshot.Paused:
		return resources.IconPaused
	case snapshot.Phase.IsBreak():
		return resources.IconBreak
	}
	return resources.IconApp
}

func statusLabel(snapshot timer.Snapshot) string {
	minutes := (snapshot.RemainingSeconds + 59) / 60
	switch {
	case snapshot.Running:
		return fmt.Sprintf("%s: %d min left", snapshot.Phase.Label(), minutes)
	case snapshot.Paused:
		return fmt.Sprintf("%s: paused, %d min left", snapshot.Phase.Label(), minutes)
	}
	return fmt.Sprintf("%s: ready", snapshot.Phase.Label())
}
