package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"pairmux/internal/logging"
)

const (
	defaultKillGrace = 5 * time.Second
	stderrTailBytes  = 4096
)

// OutputVerifier inspects a freshly written output. ffprobe.Verifier satisfies it.
type OutputVerifier interface {
	Verify(ctx context.Context, path string) error
}

// Runner executes one merge task. *Executor satisfies it.
type Runner interface {
	Run(ctx context.Context, binary string, task Task) Outcome
}

// Executor runs one merge task as an external process.
type Executor struct {
	Logger *slog.Logger
	// Timeout bounds a single merge; zero means unbounded.
	Timeout time.Duration
	// KillGrace is how long an interrupted process may take to exit before it is killed.
	KillGrace time.Duration
	// Verifier, when set, checks every output the multiplexer reports as written.
	Verifier OutputVerifier
}

// Args returns the multiplexer arguments for task: stream copy of the first
// video stream of the video input and the first audio stream of the audio
// input, overwriting any existing output.
func Args(task Task) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-i", task.VideoPath,
		"-i", task.AudioPath,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c", "copy",
		"-y",
		task.OutputPath,
	}
}

// Run merges task using binary. It never returns an error; failures are
// recorded on the returned Outcome.
func (e *Executor) Run(ctx context.Context, binary string, task Task) Outcome {
	started := time.Now()
	ctx = logging.WithTask(ctx, task.Label())
	logger := logging.WithContext(ctx, logging.NewComponentLogger(e.logger(), "merge"))

	outcome := Outcome{Task: task}
	finish := func() Outcome {
		outcome.Duration = time.Since(started)
		return outcome
	}

	if err := ctx.Err(); err != nil {
		outcome.Err = fmt.Errorf("%w: %v", ErrCancelled, err)
		return finish()
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	args := Args(task)
	stderr := &tailBuffer{limit: stderrTailBytes}
	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Stdout = nil
	cmd.Stderr = stderr
	cmd.Cancel = func() error {
		if runtime.GOOS == "windows" {
			return cmd.Process.Kill()
		}
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = e.killGrace()

	logger.Debug("starting multiplexer",
		logging.String("binary_path", binary),
		logging.Any("args", args),
	)

	if err := cmd.Start(); err != nil {
		outcome.Err = &LaunchError{Binary: binary, Err: err}
		logging.ErrorWithContext(logger, "multiplexer failed to launch", "merge_launch_failed",
			logging.Error(outcome.Err),
			logging.String(logging.FieldErrorHint, "check merge.ffmpeg_binary and file permissions"),
		)
		return finish()
	}

	waitErr := cmd.Wait()
	if waitErr == nil && e.Verifier != nil {
		if err := e.Verifier.Verify(ctx, task.OutputPath); err != nil {
			outcome.ExitCode = intPtr(0)
			outcome.Err = err
			logging.WarnWithContext(logger, "merged output failed verification", "merge_output_invalid",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the source streams with ffprobe"),
			)
			return finish()
		}
	}
	if waitErr == nil {
		outcome.Succeeded = true
		outcome.ExitCode = intPtr(0)
		outcome = finish()
		attrs := []logging.Attr{logging.Duration("duration", outcome.Duration)}
		if info, err := os.Stat(task.OutputPath); err == nil {
			attrs = append(attrs, logging.Int64("output_bytes", info.Size()))
		}
		logger.Info("merge completed", logging.Args(attrs...)...)
		return outcome
	}

	outcome.Err = classifyWaitError(ctx, runCtx, binary, waitErr, stderr.String())
	var exitErr *ProcessExitError
	if errors.As(outcome.Err, &exitErr) && exitErr.Code >= 0 {
		outcome.ExitCode = intPtr(exitErr.Code)
	}
	if errors.Is(outcome.Err, ErrCancelled) {
		logger.Info("merge interrupted", logging.String("reason", "run cancelled"))
	} else {
		attrs := []logging.Attr{
			logging.Error(outcome.Err),
			logging.String("error_kind", ErrorKind(outcome.Err)),
			logging.String("stderr_tail", stderr.String()),
			logging.String(logging.FieldErrorHint, "rerun with --log-level debug to see multiplexer output"),
		}
		if outcome.ExitCode != nil {
			attrs = append(attrs, logging.Int("exit_code", *outcome.ExitCode))
		}
		logging.WarnWithContext(logger, "merge failed", "merge_failed", attrs...)
	}
	return finish()
}

func classifyWaitError(parent, runCtx context.Context, binary string, err error, stderr string) error {
	if parent.Err() != nil {
		return fmt.Errorf("%w: %v", ErrCancelled, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ProcessExitError{
			Code:       exitErr.ExitCode(),
			TimedOut:   errors.Is(runCtx.Err(), context.DeadlineExceeded),
			StderrTail: stderr,
			Err:        err,
		}
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return &ProcessExitError{Code: -1, TimedOut: true, StderrTail: stderr, Err: err}
	}
	return fmt.Errorf("wait for %s: %w", binary, err)
}

func (e *Executor) logger() *slog.Logger {
	if e == nil || e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func (e *Executor) killGrace() time.Duration {
	if e == nil || e.KillGrace <= 0 {
		return defaultKillGrace
	}
	return e.KillGrace
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
