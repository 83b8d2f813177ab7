package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pairmux/internal/config"
	"pairmux/internal/conflict"
	"pairmux/internal/merge"
	"pairmux/internal/pipeline"
	"pairmux/internal/preflight"
)

type mergeFlags struct {
	output       string
	jobs         int
	timeout      time.Duration
	overwrite    bool
	skipExisting bool
	jsonOutput   bool
	noProgress   bool
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var flags mergeFlags

	cmd := &cobra.Command{
		Use:   "merge <root>",
		Short: "Merge every episode below root into the output folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := flags.apply(base)
			if err != nil {
				return err
			}
			return runMerge(cmd, ctx, cfg, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output base directory (defaults to paths.output_dir)")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 0, "Concurrent merges (defaults to merge.max_concurrency)")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Per-episode time limit, e.g. 10m (defaults to merge.task_timeout_seconds)")
	cmd.Flags().BoolVar(&flags.overwrite, "overwrite", false, "Overwrite existing outputs without asking")
	cmd.Flags().BoolVar(&flags.skipExisting, "skip-existing", false, "Skip existing outputs without asking")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "Disable the progress bar")
	cmd.MarkFlagsMutuallyExclusive("overwrite", "skip-existing")
	return cmd
}

// apply returns a copy of base with the command-line overrides applied.
func (f mergeFlags) apply(base *config.Config) (*config.Config, error) {
	cfg := *base
	if f.jobs != 0 {
		cfg.Merge.MaxConcurrency = f.jobs
	}
	if f.timeout != 0 {
		seconds, err := timeoutSeconds(f.timeout)
		if err != nil {
			return nil, err
		}
		cfg.Merge.TaskTimeoutSeconds = seconds
	}
	switch {
	case f.overwrite:
		cfg.Merge.ConflictPolicy = config.ConflictOverwrite
	case f.skipExisting:
		cfg.Merge.ConflictPolicy = config.ConflictSkip
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// timeoutSeconds converts --timeout to whole seconds, rounding up so a
// requested limit never becomes zero (unbounded).
func timeoutSeconds(d time.Duration) (int, error) {
	switch {
	case d < 0:
		return 0, fmt.Errorf("--timeout must not be negative, got %s", d)
	case d < time.Second:
		return 0, fmt.Errorf("--timeout must be at least 1s, got %s", d)
	}
	seconds := d / time.Second
	if d%time.Second != 0 {
		seconds++
	}
	return int(seconds), nil
}

func runMerge(cmd *cobra.Command, ctx *commandContext, cfg *config.Config, root string, flags mergeFlags) error {
	stderr := cmd.ErrOrStderr()
	showProgress := !flags.noProgress && !flags.jsonOutput && shouldColorize(stderr)

	if failed := preflight.Failed(preflight.RunAll(cfg, root, flags.output)); len(failed) > 0 {
		return preflightError(failed)
	}

	logger, err := ctx.logger(cfg, showProgress)
	if err != nil {
		return err
	}
	store, err := ctx.openHistory(cfg)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithDecider(chooseDecider(cfg.Merge.ConflictPolicy, isInteractive(), logger)),
	}
	if store != nil {
		opts = append(opts, pipeline.WithHistory(store))
	}
	var progress *progressReporter
	if showProgress {
		progress = newProgressReporter(stderr)
		opts = append(opts, pipeline.WithProgress(progress.update))
	}

	report, runErr := pipeline.New(cfg, opts...).Run(cmd.Context(), root, flags.output)
	if progress != nil {
		progress.finish()
	}
	if runErr != nil {
		return runErr
	}

	if flags.jsonOutput {
		if err := writeJSON(cmd, newReportView(report)); err != nil {
			return err
		}
	} else {
		renderMergeReport(cmd.OutOrStdout(), report)
	}

	switch {
	case report.Cancelled:
		return fmt.Errorf("merge cancelled: %w", cmd.Context().Err())
	case report.Summary.Failed > 0:
		return fmt.Errorf("%s of %d failed", pluralize(report.Summary.Failed, "merge"), len(report.Outcomes))
	}
	return nil
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return errors.New("preflight failed: " + strings.Join(parts, "; "))
}

func renderMergeReport(out io.Writer, report *pipeline.Report) {
	fmt.Fprintf(out, "Collection: %s\n", report.CollectionTitle)
	fmt.Fprintf(out, "Output:     %s\n", report.OutputDir)
	fmt.Fprintf(out, "Run:        %s\n\n", report.RunID)

	if len(report.Outcomes) > 0 {
		rows := make([][]string, 0, len(report.Outcomes))
		for _, o := range report.Outcomes {
			rows = append(rows, []string{
				o.Task.Title,
				outcomeResult(o),
				formatExitCode(o.ExitCode),
				formatDuration(o.Duration),
				outcomeDetail(o),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Episode", "Result", "Exit", "Time", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
	}

	if skipped := skippedConflicts(report); len(skipped) > 0 {
		fmt.Fprintln(out, "Skipped existing outputs:")
		for _, label := range skipped {
			fmt.Fprintf(out, "  - %s\n", label)
		}
	}
	renderDiscoveryErrors(out, report.DiscoveryErrors)

	s := report.Summary
	fmt.Fprintf(out, "%d discovered, %d skipped, %d merged, %d failed in %s\n",
		s.Discovered, s.SkippedConflicts, s.Succeeded, s.Failed, formatDuration(report.Duration))
}

func skippedConflicts(report *pipeline.Report) []string {
	var labels []string
	for i, record := range report.Conflicts {
		if i < len(report.Decisions) && report.Decisions[i] == conflict.Overwrite {
			continue
		}
		labels = append(labels, record.Task.Label())
	}
	return labels
}

// outcomesByKind counts failures per error kind for the JSON report.
func outcomesByKind(outcomes []merge.Outcome) map[string]int {
	counts := map[string]int{}
	for _, o := range outcomes {
		if !o.Succeeded {
			counts[merge.ErrorKind(o.Err)]++
		}
	}
	return counts
}
