package deps

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrBinaryUnavailable reports that the multiplexer executable could not be located.
var ErrBinaryUnavailable = errors.New("multiplexer binary unavailable")

// Resolver locates a single executable by name.
//
// Lookup order: an explicit path (Name containing a path separator), then a
// recursive search of SearchDirs, then PATH.
type Resolver struct {
	Name       string
	SearchDirs []string
}

// UnavailableError carries the lookup details behind ErrBinaryUnavailable.
type UnavailableError struct {
	Name     string
	Searched []string
}

func (e *UnavailableError) Error() string {
	msg := fmt.Sprintf("%s: %q not found", ErrBinaryUnavailable, e.Name)
	if len(e.Searched) > 0 {
		msg += " (searched " + strings.Join(e.Searched, ", ") + " and PATH)"
	}
	return msg
}

func (e *UnavailableError) Is(target error) bool { return target == ErrBinaryUnavailable }

// ErrorKind implements the error classification used across pairmux.
func (e *UnavailableError) ErrorKind() string { return "binary_unavailable" }

// Resolve returns the absolute path of the executable or an error matching
// ErrBinaryUnavailable.
func (r Resolver) Resolve() (string, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return "", &UnavailableError{Name: name}
	}

	if strings.ContainsRune(name, os.PathSeparator) || strings.Contains(name, "/") {
		info, err := os.Stat(name)
		if err == nil && isExecutable(info) {
			return filepath.Abs(name)
		}
		return "", &UnavailableError{Name: name}
	}

	for _, dir := range r.SearchDirs {
		if found, ok := searchDir(dir, executableName(name)); ok {
			return found, nil
		}
	}

	resolved, err := exec.LookPath(name)
	if err != nil {
		return "", &UnavailableError{Name: name, Searched: r.SearchDirs}
	}
	return filepath.Abs(resolved)
}

// EnsureAvailable is the pre-flight check run before any discovery or scheduling.
func (r Resolver) EnsureAvailable() error {
	_, err := r.Resolve()
	return err
}

func (r Resolver) status() Status {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return Status{Detail: "command not configured"}
	}
	status := Status{Command: name}
	resolved, err := r.Resolve()
	if err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Command = resolved
	status.Available = true
	return status
}

// searchDir walks dir in lexical order and returns the first executable named name.
func searchDir(dir, name string) (string, bool) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", false
	}
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Name() != name {
			return nil
		}
		if info, statErr := os.Stat(path); statErr == nil && isExecutable(info) {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if found == "" {
		return "", false
	}
	abs, err := filepath.Abs(found)
	if err != nil {
		return "", false
	}
	return abs, true
}

func executableName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}

func isExecutable(info os.FileInfo) bool {
	if info == nil {
		return false
	}
	if info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
