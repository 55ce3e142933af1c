package ui

import (
	"fmt"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

// taskView shows one task kind: a start button, a progress bar while the
// task runs and a one-line outcome.
type taskView struct {
	kind   settings.TaskKind
	button *widget.Button
	bar    *widget.ProgressBar
	status *widget.Label
	root   *fyne.Container
}

func newTaskView(kind settings.TaskKind, label string, start func()) *taskView {
	v := &taskView{
		kind:   kind,
		button: widget.NewButton(label, start),
		bar:    widget.NewProgressBar(),
		status: widget.NewLabel(""),
	}
	v.bar.Max = 100
	v.bar.Hide()
	v.status.Wrapping = fyne.TextWrapWord
	v.root = container.NewVBox(container.NewHBox(v.button), v.bar, v.status)

	return v
}

func (v *taskView) Object() fyne.CanvasObject {
	return v.root
}

func (v *taskView) applyProgress(p signals.TaskProgress) {
	if p.Kind != string(v.kind) {
		return
	}
	v.bar.Show()
	v.bar.SetValue(float64(p.Percent))
	if text := strings.TrimSpace(p.Status); text != "" && text != string(v.kind) {
		v.status.SetText(text)
	}
}

func (v *taskView) applyState(s signals.TaskState) {
	if s.Kind != string(v.kind) {
		return
	}
	switch s.State {
	case settings.TaskRunning.String():
		v.button.Disable()
		v.bar.SetValue(0)
		v.bar.Show()
		v.status.SetText("Working...")
	case settings.TaskSucceeded.String():
		v.button.Enable()
		v.bar.Hide()
		v.status.SetText(describeTaskResult(v.kind, s.Result))
	case settings.TaskFailed.String():
		v.button.Enable()
		v.bar.Hide()
		v.status.SetText("Failed: " + s.Error)
	}
}

func describeTaskResult(kind settings.TaskKind, result map[string]any) string {
	str := func(key string) string {
		s, _ := result[key].(string)

		return strings.TrimSpace(s)
	}

	switch kind {
	case settings.TaskDownloadModel:
		if bundled, _ := result["bundled"].(bool); bundled {
			return "Model is bundled with the app."
		}

		return fmt.Sprintf("Model %s is ready.", str("model"))
	case settings.TaskGPUInstall:
		if msg := str("message"); msg != "" {
			return msg
		}

		return "GPU support installed."
	case settings.TaskOllamaTest:
		if connected, _ := result["connected"].(bool); !connected {
			return "Not connected: " + str("error")
		}
		models, _ := result["models"].([]any)

		return fmt.Sprintf("Connected (%d models available).", len(models))
	case settings.TaskCheckUpdates:
		if available, _ := result["update_available"].(bool); available {
			return "Update available: " + str("latest_version")
		}

		return "You are running the latest version."
	default:
		return "Done."
	}
}

// micMeter toggles the microphone test and shows the live input level.
type micMeter struct {
	button *widget.Button
	level  *widget.ProgressBar
	root   *fyne.Container
}

func newMicMeter(toggle func()) *micMeter {
	m := &micMeter{
		button: widget.NewButton("Test Microphone", toggle),
		level:  widget.NewProgressBar(),
	}
	m.level.Max = 100
	m.level.TextFormatter = func() string { return "" }
	m.root = container.NewBorder(nil, nil, m.button, nil, m.level)

	return m
}

func (m *micMeter) Object() fyne.CanvasObject {
	return m.root
}

func (m *micMeter) applyLevel(level signals.AudioLevel) {
	m.level.SetValue(level.Percent)
}

func (m *micMeter) applyState(s signals.TaskState) {
	if s.Kind != string(settings.TaskMicTest) {
		return
	}
	if s.State == settings.TaskRunning.String() {
		m.button.SetText("Stop Test")

		return
	}
	m.button.SetText("Test Microphone")
	m.level.SetValue(0)
}
