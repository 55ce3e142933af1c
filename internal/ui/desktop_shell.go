package ui

import (
	"context"
	"log/slog"
	"sync/atomic"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/notifications"
	"github.com/tuckerandrew21/MurmurTone/internal/resources"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

const (
	trayMicStart = "Test Microphone"
	trayMicStop  = "Stop Microphone Test"
)

type shellActions struct {
	Show         func()
	ToggleMic    func()
	CheckUpdates func()
	Quit         func()
}

// desktopShell is the part of the app that lives outside the settings
// window: tray menu, themed icons, foreground tracking and notifications.
// Apps without a system tray get icons and notifications only.
type desktopShell struct {
	fyApp   fyne.App
	tray    desktop.App
	badge   *releaseBadge
	actions shellActions
	runOnUI func(func())

	menu    *fyne.Menu
	micItem *fyne.MenuItem

	foreground atomic.Bool
}

func newDesktopShell(fyApp fyne.App, badge *releaseBadge, actions shellActions) *desktopShell {
	s := &desktopShell{
		fyApp:   fyApp,
		badge:   badge,
		actions: actions,
		runOnUI: fyne.Do,
	}
	s.tray, _ = fyApp.(desktop.App)

	return s
}

func (s *desktopShell) install(variant fyne.ThemeVariant, startHidden bool) {
	s.foreground.Store(!startHidden)
	lifecycle := s.fyApp.Lifecycle()
	lifecycle.SetOnEnteredForeground(func() { s.foreground.Store(true) })
	lifecycle.SetOnExitedForeground(func() { s.foreground.Store(false) })

	s.fyApp.Settings().AddListener(func(current fyne.Settings) {
		appLogger.Debug("theme settings changed")
		s.applyTheme(current.ThemeVariant())
	})

	if s.tray != nil {
		s.micItem = fyne.NewMenuItem(trayMicStart, func() { s.invoke("toggle microphone test", s.actions.ToggleMic) })
		s.menu = fyne.NewMenu(mtapp.DisplayName,
			fyne.NewMenuItem("Settings", func() { s.invoke("settings", s.actions.Show) }),
			s.micItem,
			fyne.NewMenuItem("Check for Updates", func() { s.invoke("check for updates", s.actions.CheckUpdates) }),
			fyne.NewMenuItemSeparator(),
			fyne.NewMenuItem("Quit", func() { s.invoke("quit", s.actions.Quit) }),
		)
		s.tray.SetSystemTrayMenu(s.menu)
	}
	s.applyTheme(variant)
}

func (s *desktopShell) invoke(action string, fn func()) {
	appLogger.Debug("system tray action invoked", "action", action)
	if fn != nil {
		fn()
	}
}

func (s *desktopShell) applyTheme(variant fyne.ThemeVariant) {
	appLogger.Debug("applying theme resources", "theme", variant)
	s.fyApp.SetIcon(resources.AppIconResource(variant))
	if s.tray != nil {
		s.tray.SetSystemTrayIcon(resources.TrayIconResource(variant))
	}
	if s.badge != nil {
		s.badge.ApplyTheme(variant)
	}
}

// applyTaskState relabels the tray microphone item while a test runs.
func (s *desktopShell) applyTaskState(state signals.TaskState) {
	if s.micItem == nil || state.Kind != string(settings.TaskMicTest) {
		return
	}
	label := trayMicStart
	if state.State == settings.TaskRunning.String() {
		label = trayMicStop
	}
	if s.micItem.Label == label {
		return
	}
	s.micItem.Label = label
	s.menu.Refresh()
}

func (s *desktopShell) Foreground() bool {
	return s.foreground.Load()
}

// Send posts a native notification. A payload without a title is shown
// under the app name.
func (s *desktopShell) Send(payload notifications.Payload) {
	payload, ok := payload.Resolve(mtapp.DisplayName)
	if !ok {
		return
	}
	s.runOnUI(func() {
		s.fyApp.SendNotification(fyne.NewNotification(payload.Title, payload.Content))
	})
}

// startNotifications projects task and update events into notifications
// until the returned stop function is called.
func (s *desktopShell) startNotifications(dep RuntimeDependencies) func() {
	ctx, stop := context.WithCancel(context.Background())
	svc := mtapp.NewNotificationService(
		dep.Data.Bus,
		dep.Data.CurrentConfig,
		s.Foreground,
		s,
		slog.With("component", "ui.notifications"),
	)
	svc.Start(ctx)

	return stop
}
