package merge

import (
	"path/filepath"
	"time"
)

// Task is one (video, audio) → output merge. All paths are absolute.
type Task struct {
	VideoPath  string `json:"video_path"`
	AudioPath  string `json:"audio_path"`
	OutputPath string `json:"output_path"`
	SourceDir  string `json:"source_dir,omitempty"`
	Title      string `json:"title,omitempty"`
}

// Label returns a short human-readable identifier, e.g. "Show-A/Episode-1.mp4".
func (t Task) Label() string {
	if t.OutputPath == "" {
		return t.Title
	}
	return filepath.Join(filepath.Base(filepath.Dir(t.OutputPath)), filepath.Base(t.OutputPath))
}

// Outcome is the terminal record for one task.
//
// ExitCode is nil when the process never launched, was cancelled before
// dispatch, or was terminated by a signal.
type Outcome struct {
	Task      Task
	Succeeded bool
	ExitCode  *int
	Err       error
	Duration  time.Duration
}

// Progress is delivered to the scheduler's progress callback after each task completes.
type Progress struct {
	Completed int
	Total     int
	Outcome   Outcome
}

func intPtr(v int) *int {
	return &v
}
