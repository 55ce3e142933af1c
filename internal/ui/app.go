// Package ui is the fyne settings window. Widgets are bound to a
// settings.Engine; engine signals arrive over the bus and are applied on the
// fyne goroutine.
package ui

import (
	"errors"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

const windowTitle = "MurmurTone Settings"

var appLogger = slog.Default().With("component", "ui")

// Run opens the settings window and blocks until the app quits.
func Run(dep RuntimeDependencies) error {
	appLogger = slog.Default().With("component", "ui")
	if dep.Data.Engine == nil {
		return errors.New("settings engine is not configured")
	}

	return runWithApp(dep, newFyneApp())
}

func showErrorDialog(err error, window fyne.Window) {
	if window == nil {
		appLogger.Warn("error without window", "error", err)

		return
	}
	dialog.ShowError(err, window)
}

func showConfirmDialog(title, message string, onConfirm func(bool), window fyne.Window) {
	if window == nil {
		return
	}
	dialog.ShowConfirm(title, message, onConfirm, window)
}
