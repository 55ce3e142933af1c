package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/config"
	"github.com/tuckerandrew21/MurmurTone/internal/notifications"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

// NotificationService listens to bus events and emits user-facing notifications.
type NotificationService struct {
	bus           bus.MessageBus
	currentConfig func() config.AppConfig
	isForeground  func() bool
	sender        notifications.Sender
	logger        *slog.Logger

	updateMu           sync.Mutex
	lastNotifiedUpdate string
}

func NewNotificationService(
	messageBus bus.MessageBus,
	currentConfig func() config.AppConfig,
	isForeground func() bool,
	sender notifications.Sender,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default().With("component", "app.notifications")
	}

	return &NotificationService{
		bus:           messageBus,
		currentConfig: currentConfig,
		isForeground:  isForeground,
		sender:        sender,
		logger:        logger,
	}
}

func (s *NotificationService) Start(ctx context.Context) {
	if s == nil || s.bus == nil || s.sender == nil {
		return
	}

	bus.Listen(ctx, s.bus, func(raw any) {
		switch msg := raw.(type) {
		case signals.TaskState:
			s.handleTaskState(msg)
		case UpdateSnapshot:
			s.handleUpdateSnapshot(msg)
		}
	}, signals.TopicTaskState, TopicUpdateSnapshot)
}

func (s *NotificationService) handleTaskState(state signals.TaskState) {
	kind := settings.TaskKind(state.Kind)
	// Update results are announced through snapshots; the meter needs no toast.
	if kind == settings.TaskCheckUpdates || kind == settings.TaskMicTest {
		return
	}
	prefs := s.notificationPrefs()

	switch state.State {
	case settings.TaskSucceeded.String():
		if !s.shouldNotify(prefs, prefs.Events.TaskCompleted) {
			return
		}
		s.send(notifications.Payload{
			Title:   settings.TaskTitle(kind),
			Content: taskCompletedContent(kind, state.Result),
		})
	case settings.TaskFailed.String():
		if isCancellation(state.Error) {
			return
		}
		if !s.shouldNotify(prefs, prefs.Events.TaskFailed) {
			return
		}
		s.send(notifications.Payload{
			Title:   settings.TaskTitle(kind) + " failed",
			Content: state.Error,
		})
	}
}

func (s *NotificationService) handleUpdateSnapshot(snapshot UpdateSnapshot) {
	if !snapshot.UpdateAvailable {
		return
	}
	version := strings.TrimSpace(snapshot.LatestVersion)
	if version == "" {
		return
	}

	s.updateMu.Lock()
	if s.lastNotifiedUpdate == version {
		s.updateMu.Unlock()

		return
	}
	s.updateMu.Unlock()

	prefs := s.notificationPrefs()
	if !s.shouldNotify(prefs, prefs.Events.UpdateAvailable) {
		return
	}

	s.updateMu.Lock()
	s.lastNotifiedUpdate = version
	s.updateMu.Unlock()

	content := fmt.Sprintf("You are running %s.", displayVersion(snapshot.CurrentVersion))
	s.send(notifications.Payload{
		Title:   "Update available: " + displayVersion(version),
		Content: content,
	})
}

func (s *NotificationService) shouldNotify(prefs config.NotificationConfig, kindEnabled bool) bool {
	if !kindEnabled {
		return false
	}
	if prefs.NotifyWhenFocused {
		return true
	}
	if s.isForeground == nil {
		return true
	}

	return !s.isForeground()
}

func (s *NotificationService) notificationPrefs() config.NotificationConfig {
	cfg := config.Default()
	if s.currentConfig != nil {
		cfg = s.currentConfig()
		cfg.FillMissingDefaults()
	}

	return cfg.UI.Notifications
}

func (s *NotificationService) send(notification notifications.Payload) {
	title := strings.TrimSpace(notification.Title)
	content := strings.TrimSpace(notification.Content)
	if title == "" && content == "" {
		return
	}
	s.logger.Debug("sending notification", "title", title)
	s.sender.Send(notifications.Payload{
		Title:   title,
		Content: content,
	})
}

func taskCompletedContent(kind settings.TaskKind, result map[string]any) string {
	text := func(key string) string {
		value, _ := result[key].(string)

		return strings.TrimSpace(value)
	}

	switch kind {
	case settings.TaskDownloadModel:
		if result["bundled"] == true {
			return fmt.Sprintf("Model %s is bundled with the app.", text("model"))
		}

		return fmt.Sprintf("Model %s is ready.", text("model"))
	case settings.TaskGPUInstall:
		if msg := text("message"); msg != "" {
			return msg
		}

		return "GPU support installed."
	case settings.TaskOllamaTest:
		if result["connected"] != true {
			reason := text("error")
			if reason == "" {
				reason = "not reachable"
			}

			return fmt.Sprintf("Could not connect to %s: %s", text("url"), reason)
		}
		models, _ := result["models"].([]any)

		return fmt.Sprintf("Connected to %s (%d models).", text("url"), len(models))
	default:
		return "Done."
	}
}

func isCancellation(errText string) bool {
	return strings.Contains(errText, context.Canceled.Error())
}

func displayVersion(version string) string {
	version = strings.TrimSpace(version)
	if version == "" {
		return "unknown"
	}

	return strings.TrimPrefix(version, "v")
}
