package pipeline

import (
	"time"

	"pairmux/internal/conflict"
	"pairmux/internal/discovery"
	"pairmux/internal/merge"
)

// Summary counts what happened to the discovered tasks.
type Summary struct {
	Discovered       int `json:"discovered"`
	SkippedConflicts int `json:"skipped_conflicts"`
	Succeeded        int `json:"succeeded"`
	Failed           int `json:"failed"`
}

// Report is the result of Run.
type Report struct {
	RunID           string                      `json:"run_id"`
	RootDir         string                      `json:"root_dir"`
	CollectionTitle string                      `json:"collection_title"`
	OutputDir       string                      `json:"output_dir"`
	Summary         Summary                     `json:"summary"`
	DiscoveryErrors []*discovery.DiscoveryError `json:"-"`
	Conflicts       []conflict.Record           `json:"conflicts,omitempty"`
	Decisions       []conflict.Decision         `json:"-"`
	Outcomes        []merge.Outcome             `json:"-"`
	StartedAt       time.Time                   `json:"started_at"`
	Duration        time.Duration               `json:"duration"`
	Cancelled       bool                        `json:"cancelled"`
}

// Failures returns the outcomes that did not succeed.
func (r *Report) Failures() []merge.Outcome {
	var failed []merge.Outcome
	for _, o := range r.Outcomes {
		if !o.Succeeded {
			failed = append(failed, o)
		}
	}
	return failed
}

// OK reports whether every scheduled task succeeded.
func (r *Report) OK() bool {
	return r != nil && r.Summary.Failed == 0 && !r.Cancelled
}

func summarize(discovered int, skipped int, outcomes []merge.Outcome) Summary {
	s := Summary{Discovered: discovered, SkippedConflicts: skipped}
	for _, o := range outcomes {
		if o.Succeeded {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}
