package main

import (
	"github.com/spf13/cobra"

	"github.com/tuckerandrew21/MurmurTone/internal/ui"
)

var runUI = ui.Run

func newGUICommand(root *rootOptions) *cobra.Command {
	var startHidden bool
	cmd := &cobra.Command{
		Use:   "gui",
		Short: "Open the settings window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), root, sessionOptions{exclusive: true})
			if err != nil {
				return err
			}
			defer s.Close()

			dep := ui.BuildRuntimeDependencies(s.rt, s.engine, ui.LaunchOptions{StartHidden: startHidden}, nil)

			return runUI(dep)
		},
	}
	cmd.Flags().BoolVar(&startHidden, "start-hidden", false, "start with the window hidden in the system tray")

	return cmd
}
