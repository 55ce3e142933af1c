package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const autostartEntryName = "MurmurTone"

// AutostartConfig describes the login item. An empty Executable launches
// the current binary.
type AutostartConfig struct {
	Enabled    bool
	Executable string
	Args       []string
}

type AutostartManager interface {
	Sync(cfg AutostartConfig) error
	Enabled() (bool, error)
}

// loginItems stores one launch command where the OS looks for programs to
// start at login.
type loginItems interface {
	command(argv []string) string
	read() (command string, found bool, err error)
	write(command string) error
	remove() error
}

type autostart struct {
	items loginItems
}

func NewAutostartManager() AutostartManager {
	return autostart{items: osLoginItems()}
}

// Sync makes the login item match cfg. An item already holding the same
// command is left untouched.
func (a autostart) Sync(cfg AutostartConfig) error {
	if !cfg.Enabled {
		return a.items.remove()
	}

	argv, err := launchArgv(cfg)
	if err != nil {
		return err
	}
	command := a.items.command(argv)
	if current, found, err := a.items.read(); err == nil && found && current == command {
		return nil
	}

	return a.items.write(command)
}

func (a autostart) Enabled() (bool, error) {
	_, found, err := a.items.read()

	return found, err
}

func launchArgv(cfg AutostartConfig) ([]string, error) {
	executable := strings.TrimSpace(cfg.Executable)
	switch {
	case executable == "":
		self, err := currentExecutable()
		if err != nil {
			return nil, err
		}
		executable = self
	case !filepath.IsAbs(executable):
		return nil, fmt.Errorf("autostart executable %q must be an absolute path", executable)
	}

	return append([]string{filepath.Clean(executable)}, cfg.Args...), nil
}

func currentExecutable() (string, error) {
	path, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	if path = strings.TrimSpace(path); path == "" {
		return "", fmt.Errorf("resolve executable path: path is empty")
	}
	if path, err = filepath.Abs(path); err != nil {
		return "", fmt.Errorf("resolve executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	return filepath.Clean(path), nil
}
