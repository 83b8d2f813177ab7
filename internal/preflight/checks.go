package preflight

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"pairmux/internal/config"
	"pairmux/internal/deps"
)

// Access describes the permissions a directory check requires.
type Access uint32

const (
	// Readable requires list and read permissions.
	Readable Access = unix.R_OK | unix.X_OK
	// Writable requires permission to create entries.
	Writable Access = unix.R_OK | unix.W_OK | unix.X_OK
)

func (a Access) label() string {
	if a&unix.W_OK != 0 {
		return "read/write ok"
	}
	return "read ok"
}

// CheckDirectoryAccess verifies that the directory exists and grants mode.
func CheckDirectoryAccess(name, path string, mode Access) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, uint32(mode)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, mode.label())}
}

// CheckCreatable verifies that path either is a writable directory or can be
// created beneath its nearest existing ancestor.
func CheckCreatable(name, path string) Result {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	if _, err := os.Stat(path); err == nil {
		return CheckDirectoryAccess(name, path, Writable)
	}

	ancestor := filepath.Dir(filepath.Clean(path))
	for {
		info, err := os.Stat(ancestor)
		if err == nil {
			if !info.IsDir() {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s is not a directory)", path, ancestor)}
			}
			break
		}
		if !errors.Is(err, os.ErrNotExist) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat %s: %v)", path, ancestor, err)}
		}
		parent := filepath.Dir(ancestor)
		if parent == ancestor {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing ancestor)", path)}
		}
		ancestor = parent
	}
	if err := unix.Access(ancestor, uint32(Writable)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create under %s: %v)", path, ancestor, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
}

// CheckSystemDeps evaluates the external binaries required by the config for
// the status command. A merge run resolves the same binaries through
// MuxerResolver and ProberResolver.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	if cfg == nil {
		return nil
	}
	return deps.CheckBinaries([]deps.Requirement{
		{
			Name:        "FFmpeg",
			Description: "Required for merging video and audio streams",
			Resolver:    MuxerResolver(cfg),
		},
		{
			Name:        "FFprobe",
			Description: "Verifies merged outputs",
			Optional:    !cfg.Validation.ProbeOutputs,
			Resolver:    ProberResolver(cfg),
		},
	})
}

// ProberResolver builds the resolver for the ffprobe binary used to verify outputs.
func ProberResolver(cfg *config.Config) deps.Resolver {
	return deps.Resolver{Name: cfg.Validation.FFprobeBinary}
}

// MuxerResolver builds the multiplexer resolver for cfg.
func MuxerResolver(cfg *config.Config) deps.Resolver {
	return deps.Resolver{Name: cfg.Merge.FFmpegBinary, SearchDirs: cfg.Merge.BinarySearchDirs}
}
