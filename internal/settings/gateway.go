package settings

import (
	"context"
	"sort"
)

// TaskKind names a long-running operation executed by the settings service.
type TaskKind string

const (
	TaskDownloadModel TaskKind = "download-model"
	TaskGPUInstall    TaskKind = "gpu-install"
	TaskOllamaTest    TaskKind = "ollama-test"
	TaskCheckUpdates  TaskKind = "check-updates"
	TaskMicTest       TaskKind = "mic-test"
)

// TaskKinds lists the progress-reporting tasks. The microphone test is
// handled separately because it streams levels instead of progress.
func TaskKinds() []TaskKind {
	return []TaskKind{TaskDownloadModel, TaskGPUInstall, TaskOllamaTest, TaskCheckUpdates}
}

type TaskArgs map[string]any

type TaskResult map[string]any

// TaskListener receives events for exactly one task run.
type TaskListener interface {
	OnProgress(percent int, status string)
	OnAudioLevel(db float64)
}

// Device is an audio input reported by the service. A nil ID is the
// system default input.
type Device struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

func (d Device) IsDefault() bool {
	return d.ID == nil
}

// Gateway is the request/response channel to the settings owner.
// StartTask blocks until the task reaches a terminal state; events for the
// run are delivered to the listener passed with that call only.
type Gateway interface {
	LoadAll(ctx context.Context) (Tree, error)
	SaveOne(ctx context.Context, key string, value any) error
	ListDevices(ctx context.Context) ([]Device, error)
	StartTask(ctx context.Context, kind TaskKind, args TaskArgs, listener TaskListener) (TaskResult, error)
	StopTask(ctx context.Context, kind TaskKind) error
	OpenExternalURL(ctx context.Context, url string) error
}

// Resetter is implemented by gateways that can restore default settings.
type Resetter interface {
	ResetToDefaults(ctx context.Context) error
}

// SortDevices puts the system default first and keeps the service order for
// the rest.
func SortDevices(devices []Device) []Device {
	out := append([]Device(nil), devices...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsDefault() && !out[j].IsDefault()
	})

	return out
}

// NopTaskListener discards task events.
type NopTaskListener struct{}

func (NopTaskListener) OnProgress(int, string) {}
func (NopTaskListener) OnAudioLevel(float64)   {}
