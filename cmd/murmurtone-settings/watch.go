package main

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/spf13/cobra"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

const defaultWatchInterval = 2 * time.Second

func newWatchCommand(root *rootOptions) *cobra.Command {
	var (
		interval  time.Duration
		listenFor time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Log settings changes and engine signals until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), root, sessionOptions{load: true})
			if err != nil {
				return err
			}
			defer s.Close()

			ctx := cmd.Context()
			if listenFor > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, listenFor)
				defer cancel()
			}

			logger := slog.Default().With("component", "cli.watch")
			if s.rt.LogManager != nil {
				logger = s.rt.LogManager.Logger("cli.watch")
			}
			logger.Info("watching settings", "mode", s.rt.Mode, "keys", len(s.engine.Store.Snapshot()), "interval", interval)

			done := logSignals(ctx, s.rt.Bus, logger)
			watchSettings(ctx, s.engine, interval, logger)
			<-done

			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", defaultWatchInterval, "how often settings are reloaded")
	cmd.Flags().DurationVar(&listenFor, "listen-for", 0, "stop after this long, e.g. 30s (default: until interrupt)")

	return cmd
}

// watchSettings reloads the tree on every tick and logs keys whose values
// changed since the previous load.
func watchSettings(ctx context.Context, engine *settings.Engine, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = defaultWatchInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	previous := engine.Store.Snapshot()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := engine.Load(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("reload failed", "error", err)

			continue
		}
		current := engine.Store.Snapshot()
		for _, key := range changedKeys(previous, current) {
			logger.Info("setting changed", "key", key, "from", displayValue(previous[key]), "to", displayValue(current[key]))
		}
		previous = current
	}
}

func changedKeys(before, after settings.Tree) []string {
	keys := make(map[string]struct{}, len(before)+len(after))
	for key := range before {
		keys[key] = struct{}{}
	}
	for key := range after {
		keys[key] = struct{}{}
	}

	var changed []string
	for key := range keys {
		left, inBefore := before[key]
		right, inAfter := after[key]
		if inBefore != inAfter || displayValue(left) != displayValue(right) {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)

	return changed
}

func logSignals(ctx context.Context, messageBus bus.MessageBus, logger *slog.Logger) <-chan struct{} {
	if messageBus == nil {
		done := make(chan struct{})
		close(done)

		return done
	}

	return bus.Listen(ctx, messageBus, func(raw any) {
		switch msg := raw.(type) {
		case signals.Error:
			logger.Warn("error", "kind", msg.Kind, "key", msg.Key, "message", msg.Message)
		case signals.Notice:
			logger.Info("notice", "level", msg.Level, "message", msg.Message)
		case signals.SaveStatus:
			if msg.Visible {
				logger.Info("saved", "key", msg.Key)
			}
		case signals.TaskState:
			logger.Info("task", "kind", msg.Kind, "state", msg.State, "error", msg.Error)
		case mtapp.UpdateSnapshot:
			logger.Info("update snapshot", "current", msg.CurrentVersion, "latest", msg.LatestVersion, "available", msg.UpdateAvailable)
		}
	}, signals.TopicError, signals.TopicNotice, signals.TopicSaveStatus, signals.TopicTaskState, mtapp.TopicUpdateSnapshot)
}
