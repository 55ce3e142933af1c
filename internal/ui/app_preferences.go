package ui

import (
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/tuckerandrew21/MurmurTone/internal/config"
)

var updateIntervalOptions = []string{"1", "6", "12", "24", "168"}

// newAppPreferencesPage edits the local app config: logging, desktop
// notifications and the update check interval. Unlike settings fields these
// are saved together with an explicit Save button.
func newAppPreferencesPage(dep RuntimeDependencies, currentWindow func() fyne.Window) fyne.CanvasObject {
	current := config.Default()
	if dep.Data.CurrentConfig != nil {
		current = dep.Data.CurrentConfig()
	}
	current.FillMissingDefaults()

	runOnUI := dep.UIHooks.RunOnUI
	if runOnUI == nil {
		runOnUI = fyne.Do
	}
	runAsync := dep.UIHooks.RunAsync
	if runAsync == nil {
		runAsync = func(fn func()) { go fn() }
	}
	showConfirm := dep.UIHooks.ShowConfirm
	if showConfirm == nil {
		showConfirm = showConfirmDialog
	}

	levelSelect := widget.NewSelect([]string{"debug", "info", "warn", "error"}, nil)
	levelSelect.SetSelected(strings.ToLower(current.Logging.Level))
	if levelSelect.Selected == "" {
		levelSelect.SetSelected("info")
	}
	logToFile := widget.NewCheck("", nil)
	logToFile.SetChecked(current.Logging.LogToFile)

	notifyFocused := widget.NewCheck("", nil)
	notifyFocused.SetChecked(current.UI.Notifications.NotifyWhenFocused)
	notifyCompleted := widget.NewCheck("", nil)
	notifyCompleted.SetChecked(current.UI.Notifications.Events.TaskCompleted)
	notifyFailed := widget.NewCheck("", nil)
	notifyFailed.SetChecked(current.UI.Notifications.Events.TaskFailed)
	notifyUpdate := widget.NewCheck("", nil)
	notifyUpdate.SetChecked(current.UI.Notifications.Events.UpdateAvailable)

	intervalSelect := widget.NewSelect(intervalLabels(updateIntervalOptions), nil)
	intervalSelect.SetSelected(intervalLabel(current.Updates.CheckIntervalHours))

	status := widget.NewLabel("")
	status.Wrapping = fyne.TextWrapWord

	saveButton := widget.NewButton("Save", func() {
		cfg := current
		cfg.Logging.Level = levelSelect.Selected
		cfg.Logging.LogToFile = logToFile.Checked
		cfg.UI.Notifications.NotifyWhenFocused = notifyFocused.Checked
		cfg.UI.Notifications.Events.TaskCompleted = notifyCompleted.Checked
		cfg.UI.Notifications.Events.TaskFailed = notifyFailed.Checked
		cfg.UI.Notifications.Events.UpdateAvailable = notifyUpdate.Checked
		if hours, ok := intervalHours(intervalSelect.Selected); ok {
			cfg.Updates.CheckIntervalHours = hours
		}

		if dep.Actions.OnSaveConfig == nil {
			status.SetText("Save failed: saving is not available")

			return
		}
		if err := dep.Actions.OnSaveConfig(cfg); err != nil {
			status.SetText("Save failed: " + err.Error())

			return
		}
		current = cfg
		status.SetText("Saved")
	})
	saveButton.Importance = widget.HighImportance

	clearHistoryButton := widget.NewButton("Clear task history", func() {
		showConfirm("Clear task history", "Delete the record of past downloads, installs and checks?", func(ok bool) {
			if !ok {
				return
			}
			runAsync(func() {
				err := dep.Actions.OnClearHistory()
				runOnUI(func() {
					if err != nil {
						status.SetText("Clear failed: " + err.Error())

						return
					}
					status.SetText("Task history cleared")
				})
			})
		}, currentWindow())
	})
	if dep.Actions.OnClearHistory == nil {
		clearHistoryButton.Disable()
	}

	openLogsButton := widget.NewButton("Open logs folder", func() {
		if err := dep.Actions.OnOpenLogs(); err != nil {
			status.SetText("Failed to open logs folder: " + err.Error())

			return
		}
		status.SetText("")
	})
	if dep.Actions.OnOpenLogs == nil {
		openLogsButton.Disable()
	}

	loggingBlock := widget.NewCard("Logging", "", widget.NewForm(
		widget.NewFormItem("Log level", levelSelect),
		widget.NewFormItem("Log to file", logToFile),
	))
	notificationsBlock := widget.NewCard("Notifications", "", widget.NewForm(
		widget.NewFormItem("Notify while window is focused", notifyFocused),
		widget.NewFormItem("Task completed", notifyCompleted),
		widget.NewFormItem("Task failed", notifyFailed),
		widget.NewFormItem("Update available", notifyUpdate),
	))
	updatesBlock := widget.NewCard("Updates", "", widget.NewForm(
		widget.NewFormItem("Check every", intervalSelect),
	))
	maintenanceBlock := widget.NewCard("Maintenance", "", container.NewHBox(openLogsButton, clearHistoryButton))

	return container.NewVScroll(container.NewVBox(
		loggingBlock,
		notificationsBlock,
		updatesBlock,
		maintenanceBlock,
		saveButton,
		status,
	))
}

func intervalLabels(hours []string) []string {
	out := make([]string, 0, len(hours))
	for _, h := range hours {
		n, _ := strconv.Atoi(h)
		out = append(out, intervalLabel(n))
	}

	return out
}

func intervalLabel(hours int) string {
	switch {
	case hours == 1:
		return "1 hour"
	case hours == 168:
		return "1 week"
	case hours > 0 && hours%24 == 0:
		return strconv.Itoa(hours/24) + " day(s)"
	default:
		return strconv.Itoa(hours) + " hours"
	}
}

func intervalHours(label string) (int, bool) {
	for _, h := range updateIntervalOptions {
		n, _ := strconv.Atoi(h)
		if intervalLabel(n) == label {
			return n, true
		}
	}

	return 0, false
}
