package main

import (
	"context"
	"errors"
	"os"

	"pomodoro/internal/app"
	"pomodoro/internal/config"
	"pomodoro/internal/core/clock"
	"pomodoro/internal/core/model"
	"pomodoro/internal/core/timer"
	"pomodoro/internal/platform"
	"pomodoro/internal/storage"
	"pomodoro/internal/ui/notifier"
	"pomodoro/internal/ui/tray"
	"pomodoro/internal/ui/window"
	"pomodoro/resources"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"github.com/sirupsen/logrus"
)

const appID = "app.pomodoro.timer"

func main() {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	logger.SetLevel(cfg.Level())

	guard, err := platform.AcquireSingleInstance(config.AppName)
	if err != nil {
		if notifyErr := platform.NotifyRunning(config.AppName); notifyErr != nil {
			logger.Warnf("single instance: %v (%v)", err, notifyErr)
		} else {
			logger.Info("already running, raised the existing window")
		}
		return
	}
	defer func() {
		_ = guard.Release()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	service := platform.NewService()
	configDir, err := service.ConfigDir()
	if err != nil {
		logger.Warnf("config dir unavailable, using working directory: %v", err)
		configDir = "."
	}

	opened := openStore(ctx, cfg, configDir, logger)
	defer func() {
		if err := opened.Close(); err != nil {
			logger.Warnf("close %s store: %v", opened.Backend, err)
		}
	}()

	applyAutostart(service, cfg.Autostart, logger)

	fyneApp := fyneapp.NewWithID(appID)
	fyneApp.SetIcon(resources.MustIcon(resources.IconApp))

	var pomodoro *app.App
	mainWindow := window.New(fyneApp, window.DispatchFunc(func(intent app.Intent) {
		pomodoro.Dispatch(intent)
	}))

	sink := notifier.New(ctx, fyneApp, mainWindow,
		storage.NewBucket(opened.Store, storage.NamespaceNotify, logger), logger)

	systemClock := clock.NewSystem()
	pomodoro = app.New(ctx, app.Options{
		Store:  opened.Store,
		Clock:  systemClock,
		Sink:   sink,
		Logger: logger,
	})

	monitor := platform.NewActivityMonitor(pomodoro.Tracker(), platform.NewIdleProvider(), systemClock, platform.ActivityConfig{
		IdleAfter:  cfg.IdleAfter,
		CheckEvery: cfg.IdleCheck,
		Logger:     logger,
	})
	mainWindow.SetOnVisibility(monitor.SetForeground)
	guard.OnShow(func() {
		fyne.Do(mainWindow.Show)
	})

	handlers := mainWindow.Handlers()
	if desktopApp, ok := fyneApp.(desktop.App); ok {
		trayManager := tray.New(desktopApp, tray.Callbacks{
			OnShow: mainWindow.Show,
			OnToggleRunning: func() {
				pomodoro.Dispatch(app.Intent{Action: app.ActionToggleRunning})
			},
			OnReset: func() {
				pomodoro.Dispatch(app.Intent{Action: app.ActionReset})
			},
			OnSwitch: func(phase model.Phase) {
				pomodoro.Dispatch(app.Intent{Action: app.ActionSwitchMode, Phase: phase})
			},
			OnResetNotification: sink.Reset,
			OnQuit:              fyneApp.Quit,
		})
		renderTimer := handlers.OnTimer
		handlers.OnTimer = func(snapshot timer.Snapshot) {
			renderTimer(snapshot)
			fyne.Do(func() { trayManager.SetSnapshot(snapshot) })
		}
	} else {
		logger.Info("system tray unsupported, closing the window quits")
		mainWindow.Fyne().SetCloseIntercept(fyneApp.Quit)
	}

	fyneApp.Lifecycle().SetOnStarted(monitor.Start)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := pomodoro.Run(ctx, handlers); err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf("app stopped: %v", err)
		}
	}()

	mainWindow.Show()
	fyneApp.Run()

	monitor.Close()
	pomodoro.Close()
	cancel()
	<-runDone
	sink.Close()
}

func openStore(ctx context.Context, cfg *config.Config, configDir string, logger logrus.FieldLogger) *storage.Opened {
	opened, err := storage.Open(ctx, cfg.StoreOptions(configDir), logger)
	if err == nil {
		logger.WithField("backend", opened.Backend).Info("store opened")
		return opened
	}

	logger.Errorf("open %s store: %v; progress will not be saved this run", cfg.Store, err)
	opened, err = storage.Open(ctx, storage.Options{Backend: storage.BackendMemory}, logger)
	if err != nil {
		logger.Fatalf("open memory store: %v", err)
	}
	return opened
}

func applyAutostart(service platform.Service, enabled bool, logger logrus.FieldLogger) {
	execPath, err := os.Executable()
	if err != nil {
		logger.Warnf("autostart: resolve executable: %v", err)
		return
	}
	entry := platform.AutostartEntry{
		Name:     config.AppName,
		ExecPath: execPath,
		Comment:  "Work and break interval timer",
	}
	if err := platform.ApplyAutostart(service, entry, enabled); err != nil {
		logger.Warnf("autostart: %v", err)
	}
}
