package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tuckerandrew21/MurmurTone/internal/config"
	"github.com/tuckerandrew21/MurmurTone/internal/platform"
)

const startWithWindowsKey = "start_with_windows"

// autostartStore reads stored setting values.
type autostartStore interface {
	LoadAll(ctx context.Context) (map[string]any, error)
}

// autostartLaunch builds the login item command. An empty executable means
// the running binary.
func autostartLaunch(cfg config.ServiceConfig) platform.AutostartConfig {
	return platform.AutostartConfig{
		Executable: strings.TrimSpace(cfg.AutostartExecutable),
		Args:       append([]string(nil), cfg.AutostartArgs...),
	}
}

// reconcileAutostart aligns the OS login item with the stored
// start_with_windows value. The OS entry can drift when the user removes it
// by hand or the binary moves.
func reconcileAutostart(ctx context.Context, store autostartStore, manager platform.AutostartManager, launch platform.AutostartConfig, trigger string) error {
	if manager == nil || store == nil {
		slog.Debug("skip autostart sync: not initialized", "trigger", trigger)

		return nil
	}
	values, err := store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("read autostart setting: %w", err)
	}
	enabled, _ := values[startWithWindowsKey].(bool)

	registered, err := manager.Enabled()
	if err == nil && registered == enabled && !enabled {
		slog.Debug("autostart already disabled", "trigger", trigger)

		return nil
	}

	launch.Enabled = enabled
	slog.Info("syncing autostart registration", "trigger", trigger, "enabled", enabled)
	if err := manager.Sync(launch); err != nil {
		return fmt.Errorf("sync autostart: %w", err)
	}

	return nil
}
