package platform

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
)

// SystemActions opens things with the desktop's default handlers.
type SystemActions interface {
	OpenURL(rawURL string) error
	OpenFolder(path string) error
}

func NewSystemActions(logger *slog.Logger) SystemActions {
	if logger == nil {
		logger = slog.Default().With("component", "platform.actions")
	}

	actions := desktopActions{goos: runtime.GOOS, start: startCommandDetached, logger: logger}
	if usesFreedesktop(actions.goos) {
		actions.showFolder = showFolderOverDBus
	}

	return actions
}

type commandSpec struct {
	name string
	args []string
}

type commandStarter func(name string, args ...string) error

type desktopActions struct {
	goos   string
	start  commandStarter
	logger *slog.Logger
	// showFolder asks the file manager directly; commands are the fallback.
	showFolder func(path string) error
}

var allowedURLSchemes = map[string]bool{"http": true, "https": true, "mailto": true}

// ValidateExternalURL accepts absolute http, https and mailto links only.
func ValidateExternalURL(rawURL string) error {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}
	if !allowedURLSchemes[strings.ToLower(u.Scheme)] {
		return fmt.Errorf("url scheme %q is not allowed", u.Scheme)
	}
	if u.Scheme != "mailto" && u.Host == "" {
		return fmt.Errorf("url %q has no host", rawURL)
	}

	return nil
}

func (a desktopActions) OpenURL(rawURL string) error {
	if err := ValidateExternalURL(rawURL); err != nil {
		return err
	}

	return a.open("url", strings.TrimSpace(rawURL))
}

func (a desktopActions) OpenFolder(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return fmt.Errorf("open folder: empty path")
	}
	if a.showFolder != nil {
		err := a.showFolder(path)
		if err == nil {
			a.logger.Info("opened with file manager service", "what", "folder")

			return nil
		}
		a.logger.Debug("file manager service unavailable", "error", err, "missing", isServiceUnknown(err))
	}

	return a.open("folder", path)
}

func (a desktopActions) open(what, target string) error {
	commands, err := openCommandsForOS(a.goos, target)
	if err != nil {
		return err
	}

	var errs []error
	for i, spec := range commands {
		err := a.start(spec.name, spec.args...)
		if err == nil {
			a.logger.Info("opened with system handler", "what", what, "command", spec.name, "attempt", i+1)

			return nil
		}
		a.logger.Debug("open command failed", "what", what, "command", spec.name, "args", spec.args, "attempt", i+1, "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", spec.name, err))
	}

	joined := errors.Join(errs...)
	a.logger.Warn("failed to open with system handler", "what", what, "goos", a.goos, "error", joined)

	return joined
}

func openCommandsForOS(goos, target string) ([]commandSpec, error) {
	switch strings.ToLower(strings.TrimSpace(goos)) {
	case "windows":
		return []commandSpec{
			{name: "rundll32", args: []string{"url.dll,FileProtocolHandler", target}},
			{name: "explorer", args: []string{target}},
		}, nil
	case "darwin":
		return []commandSpec{{name: "open", args: []string{target}}}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		return []commandSpec{
			{name: "xdg-open", args: []string{target}},
			{name: "gio", args: []string{"open", target}},
			{name: "kde-open", args: []string{target}},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported operating system: %s", goos)
	}
}

func startCommandDetached(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()

	return nil
}
