package main

import (
	"bytes"
	"strings"
	"testing"

	"pairmux/internal/merge"
)

func TestDescribeProgress(t *testing.T) {
	if got := describeProgress("Show-A/Episode-1.mp4", 0); got != "Show-A/Episode-1.mp4" {
		t.Fatalf("unexpected description %q", got)
	}
	if got := describeProgress("Show-A/Episode-1.mp4", 2); got != "Show-A/Episode-1.mp4 (2 failures)" {
		t.Fatalf("unexpected description %q", got)
	}
	long := "Collection/" + strings.Repeat("章", 40) + ".mp4"
	got := describeProgress(long, 0)
	if !strings.HasPrefix(got, "…") || len([]rune(got)) != 32 || !strings.HasSuffix(got, ".mp4") {
		t.Fatalf("expected rune-safe truncation keeping the tail, got %q", got)
	}
}

func TestProgressReporterCountsFailures(t *testing.T) {
	var buf bytes.Buffer
	reporter := newProgressReporter(&buf)
	tasks := []merge.Task{
		{Title: "Episode 1", OutputPath: "/out/Show-A/Episode-1.mp4"},
		{Title: "Episode 2", OutputPath: "/out/Show-A/Episode-2.mp4"},
	}
	reporter.update(merge.Progress{Completed: 1, Total: 2, Outcome: merge.Outcome{Task: tasks[0], Succeeded: true}})
	reporter.update(merge.Progress{Completed: 2, Total: 2, Outcome: merge.Outcome{Task: tasks[1]}})
	reporter.finish()

	if reporter.failed != 1 {
		t.Fatalf("expected 1 failure counted, got %d", reporter.failed)
	}
	if buf.Len() == 0 {
		t.Fatal("expected the bar to write to its writer")
	}
}
