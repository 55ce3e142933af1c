package notifications

import (
	"log/slog"

	"github.com/gen2brain/beeep"
)

const appName = "MurmurTone"

type notifyFunc func(title, message string, icon any) error

// DesktopSender shows notifications through the OS notification service.
// It is used when no settings window is open to host them.
type DesktopSender struct {
	icon   any
	notify notifyFunc
	logger *slog.Logger
}

// NewDesktopSender returns a sender backed by beeep. icon may be a png
// path, png bytes, or nil.
func NewDesktopSender(icon any, logger *slog.Logger) *DesktopSender {
	if logger == nil {
		logger = slog.Default().With("component", "notifications.desktop")
	}
	beeep.AppName = appName

	return &DesktopSender{icon: icon, notify: beeep.Notify, logger: logger}
}

func (s *DesktopSender) Send(payload Payload) {
	if s == nil || s.notify == nil {
		return
	}
	payload, ok := payload.Resolve(appName)
	if !ok {
		return
	}
	icon := s.icon
	if icon == nil {
		icon = ""
	}
	if err := s.notify(payload.Title, payload.Content, icon); err != nil {
		s.logger.Warn("send desktop notification", "error", err)
	}
}
