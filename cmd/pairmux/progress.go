package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"pairmux/internal/merge"
)

// progressReporter draws a bar on an interactive stderr. It is fed from the
// scheduler's single reporting goroutine, so it needs no locking.
type progressReporter struct {
	out    io.Writer
	bar    *progressbar.ProgressBar
	failed int
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out}
}

func (r *progressReporter) update(p merge.Progress) {
	if r.bar == nil {
		r.bar = progressbar.NewOptions(p.Total,
			progressbar.OptionSetWriter(r.out),
			progressbar.OptionSetDescription("merging"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
		)
	}
	if !p.Outcome.Succeeded {
		r.failed++
	}
	r.bar.Describe(describeProgress(p.Outcome.Task.Label(), r.failed))
	_ = r.bar.Set(p.Completed)
}

func (r *progressReporter) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func describeProgress(label string, failed int) string {
	const maxLabel = 32
	runes := []rune(label)
	if len(runes) > maxLabel {
		label = "…" + string(runes[len(runes)-maxLabel+1:])
	}
	if failed > 0 {
		return label + " (" + pluralize(failed, "failure") + ")"
	}
	return label
}
