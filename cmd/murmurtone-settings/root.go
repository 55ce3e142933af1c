package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/config"
	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

const sessionCloseTimeout = 3 * time.Second

type rootOptions struct {
	remote bool
	output string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           mtapp.Name + "-settings",
		Short:         "Edit and serve " + mtapp.DisplayName + " settings",
		Version:       mtapp.BuildVersionWithDate(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOutput(opts.output)
		},
	}
	root.PersistentFlags().BoolVar(&opts.remote, "remote", false, "talk to a settings service started with 'serve' instead of the local database")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputText, "output format: text, json or yaml")

	root.AddCommand(
		newGUICommand(opts),
		newServeCommand(opts),
		newGetCommand(opts),
		newSetCommand(opts),
		newListCommand(opts),
		newDevicesCommand(opts),
		newTaskCommand(opts),
		newResetCommand(opts),
		newHistoryCommand(opts),
		newWatchCommand(opts),
	)

	return root
}

// session is one runtime plus the engine bound to it.
type session struct {
	rt     *mtapp.Runtime
	engine *settings.Engine
}

type sessionOptions struct {
	exclusive bool
	load      bool
}

var initializeRuntime = mtapp.Initialize

func openSession(ctx context.Context, root *rootOptions, so sessionOptions) (*session, error) {
	runtimeOpts := mtapp.Options{Exclusive: so.exclusive}
	if root.remote {
		runtimeOpts.Mode = config.GatewayRemote
	}
	rt, err := initializeRuntime(ctx, runtimeOpts)
	if err != nil {
		return nil, fmt.Errorf("initialize runtime: %w", err)
	}

	s := &session{rt: rt, engine: rt.NewEngine()}
	if so.load {
		if err := s.engine.Load(ctx); err != nil {
			s.Close()

			return nil, err
		}
	}

	return s, nil
}

func (s *session) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), sessionCloseTimeout)
	defer cancel()
	s.engine.Close(ctx)
	if err := s.rt.Close(); err != nil {
		slog.Warn("close runtime", "error", err)
	}
}

func normalizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("setting key is empty")
	}

	return key, nil
}
