package main

import (
	"path/filepath"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"

	"pairmux/internal/merge"
)

func pluralize(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}

func formatBytes(size int64) string {
	if size < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(size))
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}

func formatExitCode(code *int) string {
	if code == nil {
		return "-"
	}
	return strconv.Itoa(*code)
}

func outcomeResult(o merge.Outcome) string {
	if o.Succeeded {
		return "merged"
	}
	return merge.ErrorKind(o.Err)
}

func outcomeDetail(o merge.Outcome) string {
	if o.Err != nil {
		return truncate(o.Err.Error(), 80)
	}
	return filepath.Base(o.Task.OutputPath)
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
