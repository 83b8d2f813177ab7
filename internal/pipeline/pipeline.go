package pipeline

import (
	"context"
	"log/slog"
	"time"

	"pairmux/internal/config"
	"pairmux/internal/conflict"
	"pairmux/internal/discovery"
	"pairmux/internal/history"
	"pairmux/internal/logging"
	"pairmux/internal/media/ffprobe"
	"pairmux/internal/merge"
	"pairmux/internal/notifications"
	"pairmux/internal/preflight"
)

// Pipeline holds the collaborators shared by every phase of a merge run.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	history  *history.Store
	decider  Decider
	progress func(merge.Progress)
	runner   merge.Runner
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the base logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithNotifier overrides the notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(p *Pipeline) { p.notifier = n }
}

// WithHistory records every Run in store. The caller owns the store.
func WithHistory(store *history.Store) Option {
	return func(p *Pipeline) { p.history = store }
}

// WithDecider sets how conflicts are resolved. The default follows
// merge.conflict_policy, treating "ask" as skip.
func WithDecider(d Decider) Option {
	return func(p *Pipeline) { p.decider = d }
}

// WithProgress registers a callback invoked once per finished task.
func WithProgress(fn func(merge.Progress)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// WithRunner replaces the process executor.
func WithRunner(r merge.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// New builds a Pipeline for cfg.
func New(cfg *config.Config, opts ...Option) *Pipeline {
	p := &Pipeline{cfg: cfg}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = logging.NewNop()
	}
	if p.notifier == nil {
		p.notifier = notifications.NewService(cfg)
	}
	if p.decider == nil {
		p.decider = PolicyDecider(cfg.Merge.ConflictPolicy)
	}
	return p
}

// EnsureAvailable resolves the multiplexer binary. It must succeed before
// discovery or scheduling starts; failures match deps.ErrBinaryUnavailable.
func (p *Pipeline) EnsureAvailable() (string, error) {
	return preflight.MuxerResolver(p.cfg).Resolve()
}

// ensureProber resolves ffprobe when outputs are verified. It returns "" when
// verification is off or a custom runner replaces the executor.
func (p *Pipeline) ensureProber() (string, error) {
	if !p.cfg.Validation.ProbeOutputs || p.runner != nil {
		return "", nil
	}
	return preflight.ProberResolver(p.cfg).Resolve()
}

// Discover finds every merge task below rootDir. See discovery.Discover.
func (p *Pipeline) Discover(rootDir, outputBaseDir string) (discovery.Result, error) {
	return p.discover(rootDir, outputBaseDir, false)
}

// Preview is Discover without side effects: the collection folder is not
// created.
func (p *Pipeline) Preview(rootDir, outputBaseDir string) (discovery.Result, error) {
	return p.discover(rootDir, outputBaseDir, true)
}

func (p *Pipeline) discover(rootDir, outputBaseDir string, dryRun bool) (discovery.Result, error) {
	if outputBaseDir == "" {
		outputBaseDir = p.cfg.Paths.OutputDir
	}
	return discovery.Discover(rootDir, outputBaseDir, discovery.Options{
		MetadataFile:    p.cfg.Merge.MetadataFile,
		OutputExtension: p.cfg.Merge.OutputExtension,
		Logger:          p.logger,
		DryRun:          dryRun,
	})
}

// Partition splits tasks into fresh ones and conflicts with existing outputs.
func (p *Pipeline) Partition(tasks []merge.Task) ([]merge.Task, []conflict.Record, error) {
	return conflict.Partition(tasks)
}

// RunAll schedules tasks on the bounded worker pool and returns one outcome
// per task in input order.
func (p *Pipeline) RunAll(ctx context.Context, binary string, tasks []merge.Task) []merge.Outcome {
	return merge.RunAll(ctx, binary, tasks, merge.Options{
		MaxConcurrency: p.cfg.Merge.MaxConcurrency,
		OnProgress:     p.progress,
		Executor:       p.executor(),
	})
}

func (p *Pipeline) executor() merge.Runner {
	if p.runner != nil {
		return p.runner
	}
	exec := &merge.Executor{
		Logger:  p.logger,
		Timeout: time.Duration(p.cfg.Merge.TaskTimeoutSeconds) * time.Second,
	}
	if p.cfg.Validation.ProbeOutputs {
		binary := p.cfg.Validation.FFprobeBinary
		if resolved, err := p.ensureProber(); err == nil {
			binary = resolved
		}
		exec.Verifier = ffprobe.Verifier{Binary: binary}
	}
	return exec
}
