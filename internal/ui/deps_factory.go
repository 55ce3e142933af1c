package ui

import (
	"context"
	"path/filepath"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

// BuildRuntimeDependencies wires the settings window to a runtime and the
// engine created for it.
func BuildRuntimeDependencies(rt *mtapp.Runtime, engine *settings.Engine, launch LaunchOptions, onQuit func()) RuntimeDependencies {
	dep := RuntimeDependencies{
		Launch: launch,
		Actions: ActionDependencies{
			OnQuit: onQuit,
		},
	}

	if rt == nil {
		return dep
	}

	cfg := rt.CurrentConfig()
	dep.Data = DataDependencies{
		Engine:        engine,
		CurrentConfig: rt.CurrentConfig,
		Version:       mtapp.BuildVersionWithDate(),
		LastTab:       cfg.UI.LastTab,
	}

	if rt.Bus != nil {
		dep.Data.Bus = rt.Bus
	}

	dep.Actions.OnTabSelected = rt.RememberLastTab
	dep.Actions.OnSaveConfig = rt.SaveAndApplyConfig
	if rt.DB != nil {
		dep.Actions.OnClearHistory = func() error {
			return rt.ClearTaskHistory(context.Background())
		}
	}
	if rt.SystemActions != nil {
		logDir := filepath.Dir(rt.Paths.LogFile)
		dep.Actions.OnOpenLogs = func() error {
			return rt.SystemActions.OpenFolder(logDir)
		}
	}
	if engine != nil {
		dep.Actions.OnStartUpdateChecker = func() {
			if rt.StartUpdates(engine) == nil {
				appLogger.Warn("update checker not started: check-updates task is missing")
			}
		}
	}

	return dep
}
