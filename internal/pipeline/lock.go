package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the collection output folder for the
// duration of a run.
const LockFileName = ".pairmux.lock"

// ErrRunInProgress reports that another run holds the output folder lock.
var ErrRunInProgress = errors.New("another pairmux run is writing to this output folder")

type runLock struct {
	lock *flock.Flock
}

func acquireRunLock(outputDir string) (*runLock, error) {
	path := filepath.Join(outputDir, LockFileName)
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrRunInProgress, path)
	}
	return &runLock{lock: lock}, nil
}

func (l *runLock) release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	if err := l.lock.Unlock(); err != nil {
		return err
	}
	if err := os.Remove(l.lock.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
