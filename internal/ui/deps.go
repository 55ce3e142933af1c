package ui

import (
	"fyne.io/fyne/v2"

	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/config"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

type DataDependencies struct {
	Engine        *settings.Engine
	Bus           bus.MessageBus
	CurrentConfig func() config.AppConfig
	Version       string
	LastTab       string
}

type ActionDependencies struct {
	OnTabSelected  func(tab string)
	OnSaveConfig   func(config.AppConfig) error
	OnClearHistory func() error
	OnOpenLogs     func() error
	// OnStartUpdateChecker runs after the first settings load.
	OnStartUpdateChecker func()
	OnQuit               func()
}

type UIHooks struct {
	RunOnUI         func(func())
	RunAsync        func(func())
	ShowErrorDialog func(err error, window fyne.Window)
	ShowConfirm     func(title, message string, onConfirm func(bool), window fyne.Window)
}

type LaunchOptions struct {
	StartHidden bool
}

type RuntimeDependencies struct {
	Data    DataDependencies
	Actions ActionDependencies
	UIHooks UIHooks
	Launch  LaunchOptions
}
