package conflict

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"pairmux/internal/merge"
)

// Record describes a task whose output already exists.
type Record struct {
	Task               merge.Task `json:"task"`
	ExistingOutputSize int64      `json:"existing_output_size"`
	CombinedSourceSize int64      `json:"combined_source_size"`
}

// Decision is the caller's answer for one Record.
type Decision int

const (
	// Skip leaves the existing output untouched.
	Skip Decision = iota
	// Overwrite promotes the record back into a task.
	Overwrite
)

func (d Decision) String() string {
	if d == Overwrite {
		return "overwrite"
	}
	return "skip"
}

// Partition classifies tasks by whether their output path exists as a regular
// file right now. Input order is preserved in both results. An output path
// occupied by a directory is left in fresh; the multiplexer reports that
// failure on the task itself.
func Partition(tasks []merge.Task) ([]merge.Task, []Record, error) {
	fresh := make([]merge.Task, 0, len(tasks))
	var conflicts []Record

	for _, task := range tasks {
		info, err := os.Stat(task.OutputPath)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				fresh = append(fresh, task)
				continue
			}
			return nil, nil, fmt.Errorf("stat output %s: %w", task.OutputPath, err)
		}
		if !info.Mode().IsRegular() {
			fresh = append(fresh, task)
			continue
		}

		sourceSize, err := combinedSize(task.VideoPath, task.AudioPath)
		if err != nil {
			return nil, nil, err
		}
		conflicts = append(conflicts, Record{
			Task:               task,
			ExistingOutputSize: info.Size(),
			CombinedSourceSize: sourceSize,
		})
	}
	return fresh, conflicts, nil
}

// Approve returns the tasks of records whose decision is Overwrite. Missing
// decisions count as Skip.
func Approve(records []Record, decisions []Decision) []merge.Task {
	approved := make([]merge.Task, 0, len(records))
	for i, record := range records {
		if i < len(decisions) && decisions[i] == Overwrite {
			approved = append(approved, record.Task)
		}
	}
	return approved
}

// Uniform returns n copies of d.
func Uniform(n int, d Decision) []Decision {
	decisions := make([]Decision, n)
	for i := range decisions {
		decisions[i] = d
	}
	return decisions
}

// SizeMatches reports whether the existing output is plausibly a finished merge:
// a stream copy should land within a few percent of the combined source size.
func (r Record) SizeMatches() bool {
	if r.CombinedSourceSize <= 0 {
		return false
	}
	diff := r.ExistingOutputSize - r.CombinedSourceSize
	if diff < 0 {
		diff = -diff
	}
	return diff*100 <= r.CombinedSourceSize*5
}

func combinedSize(paths ...string) (int64, error) {
	var total int64
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return 0, fmt.Errorf("stat source %s: %w", path, err)
		}
		total += info.Size()
	}
	return total, nil
}
