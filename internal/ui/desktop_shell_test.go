package ui

import (
	"testing"

	"fyne.io/fyne/v2/theme"
	fynetest "fyne.io/fyne/v2/test"

	"github.com/tuckerandrew21/MurmurTone/internal/notifications"
	"github.com/tuckerandrew21/MurmurTone/internal/resources"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

func newTestShell(t *testing.T, actions shellActions) (*desktopShell, *shellAppSpy) {
	t.Helper()
	base := fynetest.NewApp()
	t.Cleanup(base.Quit)
	app := newShellAppSpy(base)
	shell := newDesktopShell(app, nil, actions)
	shell.runOnUI = runInline

	return shell, app
}

func TestDesktopShellInstallBuildsTrayMenu(t *testing.T) {
	var calls []string
	shell, app := newTestShell(t, shellActions{
		Show:         func() { calls = append(calls, "show") },
		ToggleMic:    func() { calls = append(calls, "mic") },
		CheckUpdates: func() { calls = append(calls, "updates") },
		Quit:         func() { calls = append(calls, "quit") },
	})

	shell.install(theme.VariantDark, false)

	if app.trayMenu == nil {
		t.Fatalf("expected tray menu to be set")
	}
	items := app.trayMenu.Items
	if len(items) != 5 {
		t.Fatalf("expected 5 tray items, got %d", len(items))
	}
	if !items[3].IsSeparator {
		t.Fatalf("expected separator before quit")
	}
	wantLabels := map[int]string{0: "Settings", 1: trayMicStart, 2: "Check for Updates", 4: "Quit"}
	for index, label := range wantLabels {
		if items[index].Label != label {
			t.Fatalf("item %d: expected %q, got %q", index, label, items[index].Label)
		}
		items[index].Action()
	}
	if len(calls) != 4 {
		t.Fatalf("expected every tray action to fire, got %v", calls)
	}

	if app.trayIcon == nil || app.trayIcon.Name() != resources.TrayIconResource(theme.VariantDark).Name() {
		t.Fatalf("expected dark tray icon, got %v", app.trayIcon)
	}
	if app.appIcon == nil || app.appIcon.Name() != resources.AppIconResource(theme.VariantDark).Name() {
		t.Fatalf("expected dark app icon, got %v", app.appIcon)
	}
}

func TestDesktopShellMicItemFollowsTaskState(t *testing.T) {
	shell, app := newTestShell(t, shellActions{})
	shell.install(theme.VariantLight, false)
	micItem := app.trayMenu.Items[1]

	tests := []struct {
		name  string
		state signals.TaskState
		want  string
	}{
		{
			name:  "running test",
			state: signals.TaskState{Kind: string(settings.TaskMicTest), State: settings.TaskRunning.String()},
			want:  trayMicStop,
		},
		{
			name:  "other task ignored",
			state: signals.TaskState{Kind: string(settings.TaskDownloadModel), State: settings.TaskSucceeded.String()},
			want:  trayMicStop,
		},
		{
			name:  "finished test",
			state: signals.TaskState{Kind: string(settings.TaskMicTest), State: settings.TaskSucceeded.String()},
			want:  trayMicStart,
		},
	}
	for _, tc := range tests {
		shell.applyTaskState(tc.state)
		if micItem.Label != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.name, tc.want, micItem.Label)
		}
	}
}

func TestDesktopShellWithoutTray(t *testing.T) {
	base := fynetest.NewApp()
	t.Cleanup(base.Quit)
	shell := newDesktopShell(&basicAppWrapper{App: base}, nil, shellActions{})

	shell.install(theme.VariantLight, true)
	shell.applyTaskState(signals.TaskState{Kind: string(settings.TaskMicTest), State: settings.TaskRunning.String()})

	if shell.tray != nil || shell.menu != nil {
		t.Fatalf("expected no tray for a plain app")
	}
}

func TestDesktopShellTracksForeground(t *testing.T) {
	shell, app := newTestShell(t, shellActions{})

	shell.install(theme.VariantLight, true)
	if shell.Foreground() {
		t.Fatalf("expected hidden start to be in background")
	}
	app.lifecycle.entered()
	if !shell.Foreground() {
		t.Fatalf("expected foreground after enter")
	}
	app.lifecycle.exited()
	if shell.Foreground() {
		t.Fatalf("expected background after exit")
	}
}

func TestDesktopShellSend(t *testing.T) {
	shell, app := newTestShell(t, shellActions{})

	shell.Send(notifications.Payload{})
	shell.Send(notifications.Payload{Content: "  model ready "})
	shell.Send(notifications.Payload{Title: "Download Model failed", Content: "disk full"})

	if len(app.notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(app.notifications))
	}
	if got := app.notifications[0]; got.Title != "MurmurTone" || got.Content != "model ready" {
		t.Fatalf("unexpected untitled notification: %+v", got)
	}
	if got := app.notifications[1]; got.Title != "Download Model failed" || got.Content != "disk full" {
		t.Fatalf("unexpected notification: %+v", got)
	}
}
