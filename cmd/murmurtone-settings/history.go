package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tuckerandrew21/MurmurTone/internal/persistence"
)

type historyRow struct {
	RunID      string `json:"run_id" yaml:"run_id"`
	Kind       string `json:"kind" yaml:"kind"`
	Status     string `json:"status" yaml:"status"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
	StartedAt  string `json:"started_at" yaml:"started_at"`
	FinishedAt string `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
}

func historyRows(runs []persistence.TaskRun) []historyRow {
	out := make([]historyRow, 0, len(runs))
	for _, run := range runs {
		row := historyRow{
			RunID:     run.RunID,
			Kind:      run.Kind,
			Status:    run.Status,
			Detail:    run.Detail,
			StartedAt: run.StartedAt.Format(time.RFC3339),
		}
		if !run.FinishedAt.IsZero() {
			row.FinishedAt = run.FinishedAt.Format(time.RFC3339)
		}
		out = append(out, row)
	}

	return out
}

func newHistoryCommand(root *rootOptions) *cobra.Command {
	var (
		kind  string
		limit int
		clearHistory bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent downloads, installs and checks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if kind != "" {
				parsed, err := parseTaskKind(kind)
				if err != nil {
					return err
				}
				kind = string(parsed)
			}
			s, err := openSession(cmd.Context(), root, sessionOptions{})
			if err != nil {
				return err
			}
			defer s.Close()

			if clearHistory {
				if err := s.rt.ClearTaskHistory(cmd.Context()); err != nil {
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "Task history cleared.")

				return err
			}

			runs, err := s.rt.TaskHistory(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}
			rows := historyRows(runs)
			if root.output != outputText {
				return render(cmd.OutOrStdout(), root.output, rows)
			}
			for _, row := range rows {
				line := strings.Join([]string{row.StartedAt, row.Kind, row.Status}, "  ")
				if row.Detail != "" {
					line += "  " + row.Detail
				}
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
					return err
				}
			}

			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only show runs of one task kind")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to show")
	cmd.Flags().BoolVar(&clearHistory, "clear", false, "delete the recorded history")

	return cmd
}
