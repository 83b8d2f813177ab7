package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pairmux/internal/conflict"
	"pairmux/internal/history"
	"pairmux/internal/logging"
	"pairmux/internal/merge"
	"pairmux/internal/notifications"
)

// Run performs a complete merge of the tree at rootDir into a collection
// folder below outputBaseDir (config paths.output_dir when empty).
//
// The returned error is reserved for run-level failures: an unavailable
// multiplexer (or ffprobe when outputs are verified), an unusable root, a held
// lock or a failing Decider. In those cases the report still carries whatever was learned before the failure.
// Per-task failures are only reported through Report.Outcomes.
func (p *Pipeline) Run(ctx context.Context, rootDir, outputBaseDir string) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		RootDir:   rootDir,
		StartedAt: time.Now(),
	}
	if abs, err := filepath.Abs(rootDir); err == nil {
		report.RootDir = abs
	}
	ctx = logging.WithRunID(ctx, report.RunID)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(p.logger, "pipeline"))
	p.beginHistory(ctx, logger, report)

	binary, err := p.EnsureAvailable()
	if err != nil {
		return p.abort(ctx, logger, report, fmt.Errorf("ensure multiplexer: %w", err))
	}
	logger.Debug("multiplexer resolved", logging.String("binary_path", binary))
	prober, err := p.ensureProber()
	if err != nil {
		return p.abort(ctx, logger, report, fmt.Errorf("ensure output prober: %w", err))
	}
	if prober != "" {
		logger.Debug("output prober resolved", logging.String("prober_path", prober))
	}

	found, err := p.Discover(rootDir, outputBaseDir)
	if err != nil {
		return p.abort(ctx, logger, report, fmt.Errorf("discover: %w", err))
	}
	report.CollectionTitle = found.CollectionTitle
	report.OutputDir = found.OutputDir
	report.DiscoveryErrors = found.Errors
	report.Summary.Discovered = len(found.Tasks)

	lock, err := acquireRunLock(found.OutputDir)
	if err != nil {
		return p.abort(ctx, logger, report, err)
	}
	defer func() {
		if err := lock.release(); err != nil {
			logger.Warn("failed to release run lock",
				logging.Error(err),
				logging.String(logging.FieldEventType, "run_lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove "+LockFileName+" from the output folder"),
			)
		}
	}()

	fresh, conflicts, err := p.Partition(found.Tasks)
	if err != nil {
		return p.abort(ctx, logger, report, fmt.Errorf("partition: %w", err))
	}
	report.Conflicts = conflicts

	tasks := fresh
	if len(conflicts) > 0 {
		decisions, err := p.decider.Decide(ctx, conflicts)
		if err != nil {
			return p.abort(ctx, logger, report, fmt.Errorf("resolve conflicts: %w", err))
		}
		report.Decisions = decisions
		tasks = inDiscoveryOrder(found.Tasks, fresh, conflict.Approve(conflicts, decisions))
	}
	skipped := len(found.Tasks) - len(tasks)

	logger.Info("merge run starting",
		logging.String("collection", found.CollectionTitle),
		logging.String("output_dir", found.OutputDir),
		logging.Int("discovered", len(found.Tasks)),
		logging.Int("conflicts", len(conflicts)),
		logging.Int("skipped", skipped),
		logging.Int("tasks", len(tasks)),
	)

	report.Outcomes = p.RunAll(ctx, binary, tasks)
	report.Summary = summarize(len(found.Tasks), skipped, report.Outcomes)
	report.Cancelled = ctx.Err() != nil
	report.Duration = time.Since(report.StartedAt)

	p.finishHistory(ctx, logger, report, nil)
	p.notifyCompleted(ctx, logger, report)

	attrs := []logging.Attr{
		logging.Int("succeeded", report.Summary.Succeeded),
		logging.Int("failed", report.Summary.Failed),
		logging.Int("skipped", report.Summary.SkippedConflicts),
		logging.Duration("duration", report.Duration),
	}
	switch {
	case report.Cancelled:
		logging.WarnWithContext(logger, "merge run cancelled", "run_cancelled",
			append(attrs, logging.String(logging.FieldImpact, "unscheduled episodes were not merged"))...)
	case report.Summary.Failed > 0:
		logging.WarnWithContext(logger, "merge run finished with failures", "run_partial",
			append(attrs, logging.String(logging.FieldErrorHint, "see the failed episodes above"))...)
	default:
		logger.Info("merge run completed", logging.Args(attrs...)...)
	}
	return report, nil
}

func (p *Pipeline) abort(ctx context.Context, logger *slog.Logger, report *Report, err error) (*Report, error) {
	report.Cancelled = ctx.Err() != nil || errors.Is(err, context.Canceled)
	report.Duration = time.Since(report.StartedAt)
	p.finishHistory(ctx, logger, report, err)

	if report.Cancelled {
		logger.Info("merge run cancelled before scheduling", logging.Error(err))
		return report, err
	}
	logging.ErrorWithContext(logger, "merge run aborted", "run_aborted",
		logging.Error(err),
		logging.String("error_kind", merge.ErrorKind(err)),
	)
	label := report.CollectionTitle
	if label == "" {
		label = report.RootDir
	}
	if notifyErr := p.notifier.NotifyError(context.WithoutCancel(ctx), err, label); notifyErr != nil {
		logger.Debug("error notification failed", logging.Error(notifyErr))
	}
	return report, err
}

func (p *Pipeline) beginHistory(ctx context.Context, logger *slog.Logger, report *Report) {
	if p.history == nil {
		return
	}
	if err := p.history.BeginRun(context.WithoutCancel(ctx), history.Run{
		ID:        report.RunID,
		RootDir:   report.RootDir,
		StartedAt: report.StartedAt,
	}); err != nil {
		logging.WarnWithContext(logger, "history unavailable; run will not be recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.state_dir permissions"),
		)
	}
}

func (p *Pipeline) finishHistory(ctx context.Context, logger *slog.Logger, report *Report, runErr error) {
	if p.history == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := p.history.RecordOutcomes(ctx, report.RunID, report.Outcomes); err != nil {
		logging.WarnWithContext(logger, "failed to record merge outcomes", "history_write_failed", logging.Error(err))
	}
	run := history.Run{
		ID:              report.RunID,
		OutputDir:       report.OutputDir,
		Collection:      report.CollectionTitle,
		Status:          runStatus(report, runErr),
		FinishedAt:      report.StartedAt.Add(report.Duration),
		Discovered:      report.Summary.Discovered,
		DiscoveryErrors: len(report.DiscoveryErrors),
		Skipped:         report.Summary.SkippedConflicts,
		Succeeded:       report.Summary.Succeeded,
		Failed:          report.Summary.Failed,
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	}
	if err := p.history.FinishRun(ctx, run); err != nil {
		logging.WarnWithContext(logger, "failed to record run result", "history_write_failed", logging.Error(err))
	}
}

func (p *Pipeline) notifyCompleted(ctx context.Context, logger *slog.Logger, report *Report) {
	if report.Cancelled {
		return
	}
	err := p.notifier.NotifyRunCompleted(context.WithoutCancel(ctx), notifications.RunSummary{
		Collection: report.CollectionTitle,
		Succeeded:  report.Summary.Succeeded,
		Failed:     report.Summary.Failed,
		Skipped:    report.Summary.SkippedConflicts,
		Duration:   report.Duration,
	})
	if err != nil {
		logger.Debug("completion notification failed", logging.Error(err))
	}
}

func runStatus(report *Report, runErr error) history.Status {
	switch {
	case report.Cancelled:
		return history.StatusCancelled
	case runErr != nil:
		return history.StatusAborted
	case report.Summary.Failed > 0:
		return history.StatusPartial
	default:
		return history.StatusCompleted
	}
}

// inDiscoveryOrder returns the tasks of all that appear in fresh or approved,
// keeping the order of all.
func inDiscoveryOrder(all, fresh, approved []merge.Task) []merge.Task {
	keep := make(map[string]struct{}, len(fresh)+len(approved))
	for _, t := range fresh {
		keep[t.OutputPath] = struct{}{}
	}
	for _, t := range approved {
		keep[t.OutputPath] = struct{}{}
	}
	ordered := make([]merge.Task, 0, len(keep))
	for _, t := range all {
		if _, ok := keep[t.OutputPath]; ok {
			ordered = append(ordered, t)
		}
	}
	return ordered
}
