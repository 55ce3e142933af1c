package main

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2/theme"
	"github.com/spf13/cobra"

	mtapp "github.com/tuckerandrew21/MurmurTone/internal/app"
	"github.com/tuckerandrew21/MurmurTone/internal/notifications"
	"github.com/tuckerandrew21/MurmurTone/internal/resources"
)

func newServeCommand(root *rootOptions) *cobra.Command {
	var watchUpdates bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the local settings service to remote settings windows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root.remote {
				return fmt.Errorf("serve needs the local settings service: drop --remote")
			}
			s, err := openSession(cmd.Context(), root, sessionOptions{exclusive: true, load: watchUpdates})
			if err != nil {
				return err
			}
			defer s.Close()

			if watchUpdates {
				if checker := s.rt.StartUpdates(s.engine); checker != nil {
					go logReleases(cmd.Context(), checker.Snapshots())
				}
				s.rt.StartNotifications(desktopSender(), func() bool { return false })
			}
			slog.Info("serving settings", "addr", s.rt.CurrentConfig().Gateway.ListenAddr)

			return s.rt.Serve(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&watchUpdates, "watch-updates", false, "check for releases in the background and notify when one is available")

	return cmd
}

func logReleases(ctx context.Context, snapshots <-chan mtapp.UpdateSnapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case snapshot := <-snapshots:
			if snapshot.UpdateAvailable {
				slog.Info("release available", "current", snapshot.CurrentVersion, "latest", snapshot.LatestVersion, "url", snapshot.DownloadURL)
			}
		}
	}
}

func desktopSender() *notifications.DesktopSender {
	icon := resources.AppIconResource(theme.VariantLight).Content()

	return notifications.NewDesktopSender(icon, slog.Default().With("component", "notifications.desktop"))
}
