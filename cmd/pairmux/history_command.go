package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"pairmux/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past merge runs, or the episodes of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openHistory(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("run history is disabled (history.enabled = false)")
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0], jsonOutput)
			}

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, runs)
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					run.StartedAt.Local().Format("2006-01-02 15:04"),
					run.Collection,
					string(run.Status),
					strconv.Itoa(run.Succeeded),
					strconv.Itoa(run.Failed),
					strconv.Itoa(run.Skipped),
					formatDuration(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Collection", "Status", "Merged", "Failed", "Skipped", "Time"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func showRun(cmd *cobra.Command, store *history.Store, id string, jsonOutput bool) error {
	run, err := findRun(cmd, store, id)
	if err != nil {
		return err
	}
	outcomes, err := store.Outcomes(cmd.Context(), run.ID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return writeJSON(cmd, struct {
			Run      *history.Run            `json:"run"`
			Outcomes []history.OutcomeRecord `json:"outcomes"`
		}{run, outcomes})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:        %s (%s)\n", run.ID, run.Status)
	fmt.Fprintf(out, "Root:       %s\n", run.RootDir)
	fmt.Fprintf(out, "Collection: %s\n", run.Collection)
	fmt.Fprintf(out, "Output:     %s\n", run.OutputDir)
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:      %s\n", run.ErrorMessage)
	}
	fmt.Fprintln(out)
	if len(outcomes) == 0 {
		fmt.Fprintln(out, "No episodes were scheduled")
		return nil
	}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		result := "merged"
		if !o.Succeeded {
			result = o.ErrorKind
		}
		rows = append(rows, []string{o.Title, result, formatExitCode(o.ExitCode), formatDuration(o.Duration), truncate(o.ErrorMessage, 60)})
	}
	fmt.Fprintln(out, renderTable([]string{"Episode", "Result", "Exit", "Time", "Error"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft}))
	return nil
}

// findRun accepts a full run ID or the short prefix shown in the run list.
func findRun(cmd *cobra.Command, store *history.Store, id string) (*history.Run, error) {
	run, err := store.GetRun(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if run != nil {
		return run, nil
	}
	runs, err := store.ListRuns(cmd.Context(), 0)
	if err != nil {
		return nil, err
	}
	var match *history.Run
	for i := range runs {
		if shortID(runs[i].ID) == id || (len(id) >= 4 && len(runs[i].ID) >= len(id) && runs[i].ID[:len(id)] == id) {
			if match != nil {
				return nil, fmt.Errorf("run id %q is ambiguous", id)
			}
			match = &runs[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("run %q not found", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
