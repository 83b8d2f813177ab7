package merge

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled marks tasks that were not run to completion because the run was cancelled.
var ErrCancelled = errors.New("merge cancelled")

// Error kinds reported through ErrorKind.
const (
	KindLaunchFailed  = "process_launch_failed"
	KindExitedNonZero = "process_exited_nonzero"
	KindCancelled     = "cancelled"
)

// LaunchError reports a multiplexer process that could not be started.
type LaunchError struct {
	Binary string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// ErrorKind implements the error classification used across pairmux.
func (e *LaunchError) ErrorKind() string { return KindLaunchFailed }

// ProcessExitError reports a multiplexer process that exited unsuccessfully.
type ProcessExitError struct {
	Code       int
	TimedOut   bool
	StderrTail string
	Err        error
}

func (e *ProcessExitError) Error() string {
	var b strings.Builder
	if e.TimedOut {
		b.WriteString("multiplexer timed out")
	} else {
		fmt.Fprintf(&b, "multiplexer exited with status %d", e.Code)
	}
	if tail := lastLine(e.StderrTail); tail != "" {
		b.WriteString(": ")
		b.WriteString(tail)
	}
	return b.String()
}

func (e *ProcessExitError) Unwrap() error { return e.Err }

// ErrorKind implements the error classification used across pairmux.
func (e *ProcessExitError) ErrorKind() string { return KindExitedNonZero }

// ErrorKind extracts the classification of err, or "" when it carries none.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrCancelled) {
		return KindCancelled
	}
	var classified interface{ ErrorKind() string }
	if errors.As(err, &classified) {
		return classified.ErrorKind()
	}
	return "unknown"
}

func lastLine(value string) string {
	value = strings.TrimSpace(value)
	if idx := strings.LastIndexByte(value, '\n'); idx >= 0 {
		value = strings.TrimSpace(value[idx+1:])
	}
	if len(value) > 160 {
		value = value[:160] + "…"
	}
	return value
}
