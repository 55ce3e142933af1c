package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuckerandrew21/MurmurTone/internal/bus"
	"github.com/tuckerandrew21/MurmurTone/internal/notifications"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
	"github.com/tuckerandrew21/MurmurTone/internal/signals"
)

type taskOptions struct {
	model    string
	duration time.Duration
	notify   bool
}

func newTaskCommand(root *rootOptions) *cobra.Command {
	var opts taskOptions
	cmd := &cobra.Command{
		Use:       "task <kind>",
		Short:     "Run a long operation and follow its progress",
		Long:      "Kinds: " + strings.Join(taskKindNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: taskKindNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := parseTaskKind(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), root, sessionOptions{load: true})
			if err != nil {
				return err
			}
			defer s.Close()

			stopProgress := followProgress(cmd.Context(), s.rt.Bus, cmd.ErrOrStderr())
			defer stopProgress()

			if kind == settings.TaskMicTest {
				return runMicTest(cmd.Context(), s.engine, opts.duration)
			}

			status, err := runTask(cmd.Context(), s.engine, kind, opts)
			if opts.notify {
				desktopSender().Send(taskPayload(status))
			}
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), root.output, status.Result)
		},
	}
	cmd.Flags().StringVar(&opts.model, "model", "", "model to download (default: the configured model_size)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 5*time.Second, "how long the microphone test meters input")
	cmd.Flags().BoolVar(&opts.notify, "notify", false, "show a desktop notification when the task ends")

	return cmd
}

func taskKindNames() []string {
	kinds := append(settings.TaskKinds(), settings.TaskMicTest)
	out := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		out = append(out, string(kind))
	}

	return out
}

func parseTaskKind(raw string) (settings.TaskKind, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	for _, known := range taskKindNames() {
		if name == known {
			return settings.TaskKind(name), nil
		}
	}

	return "", fmt.Errorf("unknown task %q (expected one of %s)", raw, strings.Join(taskKindNames(), ", "))
}

var errModelBundled = errors.New("model is bundled with the app; nothing to download")

func runTask(ctx context.Context, engine *settings.Engine, kind settings.TaskKind, opts taskOptions) (settings.TaskStatus, error) {
	var err error
	switch kind {
	case settings.TaskDownloadModel:
		model := strings.TrimSpace(opts.model)
		if model == "" {
			model = engine.Store.String("model_size")
		}
		if settings.IsBundledModel(model) {
			return settings.TaskStatus{Kind: kind}, errModelBundled
		}
		err = engine.DownloadModel(ctx, model)
	case settings.TaskOllamaTest:
		err = engine.TestOllama(ctx)
	case settings.TaskGPUInstall:
		err = engine.InstallGPUSupport(ctx)
	case settings.TaskCheckUpdates:
		err = engine.CheckUpdates(ctx)
	default:
		return settings.TaskStatus{Kind: kind}, fmt.Errorf("task %q does not report progress", kind)
	}
	if err != nil {
		return settings.TaskStatus{Kind: kind}, err
	}

	task, _ := engine.Task(kind)
	status, err := task.Wait(ctx)
	if err != nil {
		// The run context is gone; collect whatever the controller recorded.
		waitCtx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
		status, _ = task.Wait(waitCtx)
		cancel()

		return status, err
	}
	if status.State == settings.TaskFailed {
		return status, fmt.Errorf("%s failed: %w", settings.TaskTitle(kind), status.Err)
	}

	return status, nil
}

func runMicTest(ctx context.Context, engine *settings.Engine, duration time.Duration) error {
	if err := engine.Mic.Start(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	ended := make(chan error, 1)
	go func() { ended <- engine.Mic.Wait(ctx) }()

	select {
	case <-timer.C:
	case <-ctx.Done():
	case err := <-ended:
		// The service closed the session early.
		return err
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
	defer cancel()

	return engine.Mic.Stop(stopCtx)
}

// followProgress prints task progress and input levels until stopped.
func followProgress(ctx context.Context, messageBus bus.MessageBus, w io.Writer) func() {
	if messageBus == nil {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := bus.Listen(ctx, messageBus, func(raw any) {
		if line := progressLine(raw); line != "" {
			_, _ = fmt.Fprintln(w, line)
		}
	}, signals.TopicTaskProgress, signals.TopicAudioLevel, signals.TopicNotice)

	return func() {
		cancel()
		<-done
	}
}

func progressLine(raw any) string {
	switch msg := raw.(type) {
	case signals.TaskProgress:
		if msg.Status == "" {
			return fmt.Sprintf("%3d%%", msg.Percent)
		}

		return fmt.Sprintf("%3d%% %s", msg.Percent, msg.Status)
	case signals.AudioLevel:
		return fmt.Sprintf("%6.1f dB %s", msg.DB, levelBar(msg.Percent))
	case signals.Notice:
		return msg.Message
	default:
		return ""
	}
}

const levelBarWidth = 30

func levelBar(percent int) string {
	percent = max(0, min(100, percent))
	filled := percent * levelBarWidth / 100

	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", levelBarWidth-filled) + "]"
}

func taskPayload(status settings.TaskStatus) notifications.Payload {
	title := settings.TaskTitle(status.Kind)
	if status.State == settings.TaskFailed {
		content := "unknown error"
		if status.Err != nil {
			content = status.Err.Error()
		}

		return notifications.Payload{Title: title + " failed", Content: content}
	}
	if status.State != settings.TaskSucceeded {
		return notifications.Payload{Title: title, Content: "Stopped"}
	}
	if status.Status != "" {
		return notifications.Payload{Title: title, Content: status.Status}
	}

	return notifications.Payload{Title: title, Content: "Done"}
}
