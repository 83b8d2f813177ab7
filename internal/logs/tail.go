package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

const (
	maxLineBytes          = 1024 * 1024
	DefaultFollowInterval = 250 * time.Millisecond
)

// Last returns up to limit trailing lines of path together with the offset of
// the end of the file. A missing file yields no lines and offset zero.
func Last(path string, limit int) ([]string, int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	ring := make([]string, limit)
	count, next := 0, 0
	end, err := scan(file, func(line string) error {
		ring[next] = line
		next = (next + 1) % limit
		if count < limit {
			count++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := range count {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, end, nil
}

// ReadFrom returns complete lines written after offset and the new offset.
// An offset past the end of the file means the log was truncated or
// replaced, so reading restarts from the beginning.
func ReadFrom(path string, offset int64) ([]string, int64, error) {
	file, err := openLog(path)
	if err != nil || file == nil {
		return nil, 0, err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, 0, fmt.Errorf("stat log file: %w", err)
	}
	if offset < 0 || offset > info.Size() {
		offset = 0
	}
	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	var lines []string
	end, err := scan(file, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return lines, offset + end, nil
}

// Follow polls path every interval and hands each new line to emit until ctx
// is cancelled. Cancellation is not reported as an error.
func Follow(ctx context.Context, path string, offset int64, interval time.Duration, emit func(string) error) error {
	if interval <= 0 {
		interval = DefaultFollowInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		lines, next, err := ReadFrom(path, offset)
		if err != nil {
			return err
		}
		offset = next
		for _, line := range lines {
			if err := emit(line); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// MatchRun reports whether line belongs to runID. Console lines carry an
// eight character "Run" prefix; JSON lines carry the full run_id field.
func MatchRun(line, runID string) bool {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return true
	}
	if strings.Contains(line, `"run_id":"`+runID) {
		return true
	}
	short := runID
	if len(short) > 8 {
		short = short[:8]
	}
	return strings.Contains(line, "Run "+short)
}

func openLog(path string) (*os.File, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("log path %q is a directory", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

// scan feeds newline-terminated lines to fn and returns the number of bytes
// consumed. A trailing partial line is left for the next read.
func scan(r io.Reader, fn func(string) error) (int64, error) {
	reader := bufio.NewReaderSize(r, 64*1024)
	var consumed int64
	for {
		chunk, err := reader.ReadSlice('\n')
		if errors.Is(err, bufio.ErrBufferFull) {
			line, err := readLong(reader, chunk)
			if err != nil {
				if errors.Is(err, io.EOF) {
					return consumed, nil
				}
				return consumed, fmt.Errorf("read log file: %w", err)
			}
			consumed += int64(len(line))
			if err := fn(trimLine(line)); err != nil {
				return consumed, err
			}
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return consumed, nil
			}
			return consumed, fmt.Errorf("read log file: %w", err)
		}
		consumed += int64(len(chunk))
		if err := fn(trimLine(chunk)); err != nil {
			return consumed, err
		}
	}
}

func readLong(reader *bufio.Reader, head []byte) ([]byte, error) {
	line := append([]byte(nil), head...)
	for {
		chunk, err := reader.ReadSlice('\n')
		line = append(line, chunk...)
		if err == nil {
			return line, nil
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return nil, err
		}
		if len(line) > maxLineBytes {
			return nil, fmt.Errorf("log line exceeds %d bytes", maxLineBytes)
		}
	}
}

func trimLine(b []byte) string {
	return strings.TrimRight(string(b), "\r\n")
}

// RunFilter keeps the lines of one run, including the indented field lines
// the console format writes under each entry.
type RunFilter struct {
	runID   string
	inEntry bool
}

func NewRunFilter(runID string) *RunFilter {
	return &RunFilter{runID: strings.TrimSpace(runID)}
}

func (f *RunFilter) Keep(line string) bool {
	if f == nil || f.runID == "" {
		return true
	}
	if strings.HasPrefix(line, " ") {
		return f.inEntry
	}
	f.inEntry = MatchRun(line, f.runID)
	return f.inEntry
}
