package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const (
	defaultUpdateCheckInterval = 6 * time.Hour
	// TopicUpdateSnapshot carries UpdateSnapshot values.
	TopicUpdateSnapshot = "app.update_snapshot"
)

// UpdateSnapshot stores a single successful update check result.
type UpdateSnapshot struct {
	CurrentVersion  string
	LatestVersion   string
	DownloadURL     string
	ReleaseNotes    string
	UpdateAvailable bool
	CheckedAt       time.Time
}

// UpdateCheckerConfig customizes update checker behavior.
type UpdateCheckerConfig struct {
	Interval time.Duration
	// Enabled reports the auto_update setting; scheduled checks are skipped
	// while it is off.
	Enabled func() bool
	// Check starts a check-updates task run.
	Check     func(ctx context.Context) error
	Publisher bus.Publisher
	Now       func() time.Time
	Logger    *slog.Logger
}

// UpdateChecker runs the check-updates task on a schedule and keeps the
// latest result of any check-updates run, scheduled or user-initiated.
type UpdateChecker struct {
	interval  time.Duration
	enabled   func() bool
	check     func(ctx context.Context) error
	publisher bus.Publisher
	now       func() time.Time
	logger    *slog.Logger

	snapshots chan UpdateSnapshot

	mu          sync.RWMutex
	latest      UpdateSnapshot
	latestKnown bool

	startOnce sync.Once
}

func NewUpdateChecker(cfg UpdateCheckerConfig) *UpdateChecker {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultUpdateCheckInterval
	}
	enabled := cfg.Enabled
	if enabled == nil {
		enabled = func() bool { return true }
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "app.updates")
	}

	return &UpdateChecker{
		interval:  interval,
		enabled:   enabled,
		check:     cfg.Check,
		publisher: cfg.Publisher,
		now:       now,
		logger:    logger,
		snapshots: make(chan UpdateSnapshot, 1),
	}
}

// Attach records the outcome of every run of task.
func (c *UpdateChecker) Attach(task *settings.Task) {
	if c == nil || task == nil {
		return
	}
	task.OnComplete(c.HandleOutcome)
}

func (c *UpdateChecker) Start(ctx context.Context) {
	if c == nil || c.check == nil {
		return
	}

	c.startOnce.Do(func() {
		go c.run(ctx)
	})
}

func (c *UpdateChecker) Snapshots() <-chan UpdateSnapshot {
	if c == nil {
		return nil
	}

	return c.snapshots
}

func (c *UpdateChecker) CurrentSnapshot() (UpdateSnapshot, bool) {
	if c == nil {
		return UpdateSnapshot{}, false
	}

	c.mu.RLock()
	snapshot := c.latest
	known := c.latestKnown
	c.mu.RUnlock()

	return snapshot, known
}

func (c *UpdateChecker) run(ctx context.Context) {
	c.logger.Info("update checker started", "interval", c.interval.String())

	c.trigger(ctx, "initial")

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("update checker stopped")

			return
		case <-ticker.C:
			c.trigger(ctx, "scheduled")
		}
	}
}

func (c *UpdateChecker) trigger(ctx context.Context, reason string) {
	if !c.enabled() {
		c.logger.Debug("skip update check: auto update is off", "reason", reason)

		return
	}
	c.logger.Debug("running update check", "reason", reason)
	if err := c.check(ctx); err != nil {
		if errors.Is(err, settings.ErrAlreadyRunning) {
			c.logger.Debug("update check already running")

			return
		}
		c.logger.Warn("check for updates", "error", err)
	}
}

// HandleOutcome turns a finished check-updates run into a snapshot.
func (c *UpdateChecker) HandleOutcome(outcome settings.TaskOutcome) {
	if outcome.Kind != settings.TaskCheckUpdates || outcome.Err != nil {
		return
	}
	result := outcome.Result
	snapshot := UpdateSnapshot{
		CurrentVersion:  resultString(result, "current_version"),
		LatestVersion:   resultString(result, "latest_version"),
		DownloadURL:     resultString(result, "download_url"),
		ReleaseNotes:    resultString(result, "release_notes"),
		UpdateAvailable: result["update_available"] == true,
		CheckedAt:       c.now().UTC(),
	}

	c.mu.Lock()
	c.latest = snapshot
	c.latestKnown = true
	c.mu.Unlock()

	c.publish(snapshot)
	if c.publisher != nil {
		c.publisher.Publish(TopicUpdateSnapshot, snapshot)
	}
	c.logger.Info(
		"update check completed",
		"checked_at", snapshot.CheckedAt.Format(time.RFC3339),
		"current_version", snapshot.CurrentVersion,
		"latest_version", snapshot.LatestVersion,
		"update_available", snapshot.UpdateAvailable,
	)
}

func (c *UpdateChecker) publish(snapshot UpdateSnapshot) {
	select {
	case c.snapshots <- snapshot:
		return
	default:
	}
	c.logger.Debug("update snapshot channel full, replacing stale value")

	select {
	case <-c.snapshots:
	default:
	}

	select {
	case c.snapshots <- snapshot:
	default:
		c.logger.Debug("skipped update snapshot publish after replace attempt")
	}
}

func resultString(result settings.TaskResult, key string) string {
	value, _ := result[key].(string)

	return strings.TrimSpace(value)
}
