package main

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"pairmux/internal/config"
	"pairmux/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "status [root]",
		Short: "Show dependency, path and configuration status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var root string
			if len(args) == 1 {
				root = args[0]
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			writeLines(stdout, renderSectionHeader("Dependencies", colorize))
			depLines, ready := dependencyLines(preflight.CheckSystemDeps(cfg), colorize)
			writeLines(stdout, depLines)
			fmt.Fprintln(stdout)

			writeLines(stdout, renderSectionHeader("Paths", colorize))
			writeLines(stdout, preflightLines(preflight.RunAll(cfg, root, outputDir), colorize))
			fmt.Fprintln(stdout)

			writeLines(stdout, renderSectionHeader("Settings", colorize))
			writeLines(stdout, settingsLines(cmd.Context(), ctx, cfg, colorize))

			if !ready {
				fmt.Fprintln(stdout)
				fmt.Fprintln(stdout, "Merging is unavailable until the multiplexer is installed or merge.ffmpeg_binary points at it.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output base directory (defaults to paths.output_dir)")
	return cmd
}

func settingsLines(cmdCtx context.Context, ctx *commandContext, cfg *config.Config, colorize bool) []string {
	workers := fmt.Sprintf("%d", cfg.Merge.MaxConcurrency)
	if cfg.Merge.MaxConcurrency <= 0 {
		workers = fmt.Sprintf("auto (%d)", runtime.NumCPU())
	}
	timeout := "none"
	if cfg.Merge.TaskTimeoutSeconds > 0 {
		timeout = fmt.Sprintf("%ds", cfg.Merge.TaskTimeoutSeconds)
	}
	notify := "disabled"
	if strings.TrimSpace(cfg.Notifications.NtfyTopic) != "" {
		notify = cfg.Notifications.NtfyTopic
	}

	lines := []string{
		renderStatusLine("Config", statusInfo, configSource(ctx), colorize),
		renderStatusLine("Conflict policy", statusInfo, cfg.Merge.ConflictPolicy, colorize),
		renderStatusLine("Workers", statusInfo, workers, colorize),
		renderStatusLine("Task timeout", statusInfo, timeout, colorize),
		renderStatusLine("Verify outputs", statusInfo, yesNo(cfg.Validation.ProbeOutputs), colorize),
		renderStatusLine("Notifications", statusInfo, notify, colorize),
	}

	historyDetail := "disabled"
	kind := statusInfo
	if store, err := ctx.openHistory(cfg); err != nil {
		historyDetail, kind = err.Error(), statusWarn
	} else if store != nil {
		defer store.Close()
		runs, err := store.ListRuns(cmdCtx, 1)
		switch {
		case err != nil:
			historyDetail, kind = err.Error(), statusWarn
		case len(runs) == 0:
			historyDetail = "no runs recorded"
		default:
			last := runs[0]
			historyDetail = fmt.Sprintf("last run %s (%s, %d merged, %d failed)",
				last.StartedAt.Local().Format("2006-01-02 15:04"), last.Status, last.Succeeded, last.Failed)
		}
	}
	return append(lines, renderStatusLine("History", kind, historyDetail, colorize))
}
