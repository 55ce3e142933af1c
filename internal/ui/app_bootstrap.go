package ui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

const engineCloseTimeout = 3 * time.Second

var newFyneApp = func() fyne.App {
	return fyneapp.NewWithID(mtapp.Name)
}

func runWithApp(dep RuntimeDependencies, fyApp fyne.App) error {
	rt, err := startUI(dep, fyApp)
	if err != nil {
		return err
	}
	rt.Run(dep.Launch.StartHidden)

	return nil
}

// startUI builds the window and wires it to the engine without entering the
// fyne event loop.
func startUI(dep RuntimeDependencies, fyApp fyne.App) (*windowRuntime, error) {
	engine := dep.Data.Engine
	initialVariant := fyApp.Settings().ThemeVariant()
	appLogger.Info(
		"starting UI runtime",
		"start_hidden", dep.Launch.StartHidden,
		"initial_theme", initialVariant,
		"initial_page", dep.Data.LastTab,
	)

	window := fyApp.NewWindow(windowTitle)
	window.Resize(fyne.NewSize(820, 640))

	ctx, cancel := context.WithCancel(context.Background())
	binder := newFormBinder(ctx, engine, dep.UIHooks)
	view := buildMainView(dep, binder, window, initialVariant)

	if err := settings.RegisterStandardRules(engine.Graph, binder.regions.Resolve, engine.Models); err != nil {
		cancel()

		return nil, fmt.Errorf("register visibility rules: %w", err)
	}

	// The shell needs the runtime's Show and Quit, and the runtime's
	// shutdown list needs the shell's notification stop.
	var rt *windowRuntime
	shell := newDesktopShell(fyApp, view.releaseBadge, shellActions{
		Show: func() { rt.Show() },
		ToggleMic: func() {
			binder.runAsync(func() {
				if err := engine.Mic.Toggle(ctx); err != nil {
					appLogger.Debug("tray microphone toggle rejected", "error", err)
				}
			})
		},
		CheckUpdates: func() {
			binder.runAsync(func() {
				if err := engine.CheckUpdates(ctx); err != nil {
					appLogger.Debug("tray update check rejected", "error", err)
				}
			})
		},
		Quit: func() { rt.Quit() },
	})
	shell.install(initialVariant, dep.Launch.StartHidden)
	stopNotifications := shell.startNotifications(dep)

	// Listeners attach before the first load so the reload signal is seen.
	handlers := view.settings.handlers()
	handlers.OnUpdateSnapshot = view.releaseBadge.ApplySnapshot
	onTaskState := handlers.OnTaskState
	handlers.OnTaskState = func(state signals.TaskState) {
		if onTaskState != nil {
			onTaskState(state)
		}
		shell.applyTaskState(state)
	}
	stopUIListeners := startUIEventListeners(dep.Data.Bus, binder.runOnUI, handlers)

	binder.refresh()
	binder.runAsync(func() {
		if err := engine.Load(ctx); err != nil {
			appLogger.Warn("initial settings load failed", "error", err)

			return
		}
		if dep.Actions.OnStartUpdateChecker != nil {
			dep.Actions.OnStartUpdateChecker()
		}
	})

	window.SetContent(view.content)

	closeEngine := func() {
		view.settings.capture.Cancel()
		closeCtx, closeCancel := context.WithTimeout(context.Background(), engineCloseTimeout)
		defer closeCancel()
		engine.Close(closeCtx)
		cancel()
	}
	rt = newWindowRuntime(
		fyApp,
		window,
		dep.Actions.OnQuit,
		stopNotifications,
		stopUIListeners,
		closeEngine,
	)
	rt.OnHide(func() {
		binder.runAsync(func() { engine.Persistence.Flush(ctx) })
	})
	rt.OnHide(func() {
		if !engine.Mic.Testing() {
			return
		}
		binder.runAsync(func() {
			if err := engine.Mic.Stop(ctx); err != nil {
				appLogger.Debug("stopping microphone test on hide failed", "error", err)
			}
		})
	})
	rt.BindCloseIntercept()

	return rt, nil
}
