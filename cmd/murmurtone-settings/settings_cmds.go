package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tuckerandrew21/MurmurTone/internal/settings"
)

func newGetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting; dotted keys address nested values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := normalizeKey(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), root, sessionOptions{load: true})
			if err != nil {
				return err
			}
			defer s.Close()

			value, err := lookupSetting(s.engine.Store, key)
			if err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), root.output, value)
		},
	}
}

// lookupSetting returns the stored value, or the schema default for known
// keys that were never saved.
func lookupSetting(store *settings.Store, key string) (any, error) {
	if value, ok := store.Lookup(key); ok {
		return value, nil
	}
	if _, known := store.Schema().Field(settings.RootKey(key)); !known {
		return nil, fmt.Errorf("unknown setting %q", key)
	}

	return store.Get(key), nil
}

func newSetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Save one setting; the value is parsed as JSON when possible",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := normalizeKey(args[0])
			if err != nil {
				return err
			}
			s, err := openSession(cmd.Context(), root, sessionOptions{load: true})
			if err != nil {
				return err
			}
			defer s.Close()

			if field, ok := s.engine.Store.Schema().Field(settings.RootKey(key)); ok && field.ReadOnly {
				return fmt.Errorf("setting %q is read-only", key)
			}
			if err := s.engine.Persistence.SaveNow(cmd.Context(), key, parseValue(args[1])); err != nil {
				return err
			}

			return render(cmd.OutOrStdout(), root.output, s.engine.Store.Get(key))
		},
	}
}

func newListCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every stored setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), root, sessionOptions{load: true})
			if err != nil {
				return err
			}
			defer s.Close()

			return render(cmd.OutOrStdout(), root.output, s.engine.Store.Snapshot())
		},
	}
}

type deviceView struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	Default bool   `json:"default" yaml:"default"`
}

func deviceViews(devices []settings.Device) []deviceView {
	out := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		view := deviceView{Name: d.Name, Default: d.IsDefault()}
		if !d.IsDefault() {
			view.ID = *d.ID
		}
		if view.Default && view.Name == "" {
			view.Name = "System Default"
		}
		out = append(out, view)
	}

	return out
}

func newDevicesCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List audio input devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), root, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			devices, err := s.engine.Devices(cmd.Context())
			if err != nil {
				return err
			}
			views := deviceViews(devices)
			if root.output != outputText {
				return render(cmd.OutOrStdout(), root.output, views)
			}
			for _, d := range views {
				line := d.Name
				if d.ID != "" {
					line += " (" + d.ID + ")"
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}

			return nil
		},
	}
}

func newResetCommand(root *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Restore every setting to its default value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("reset discards every saved setting: pass --yes to confirm")
			}
			s, err := openSession(cmd.Context(), root, sessionOptions{load: true})
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.engine.ResetToDefaults(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Settings restored to defaults.")

			return err
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")

	return cmd
}
