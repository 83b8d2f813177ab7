package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := int64(chunkSize)
		if remaining < toWrite {
			toWrite = remaining
		}
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteCollection writes the root metadata file declaring the collection title.
func WriteCollection(t testing.TB, root, title string) {
	t.Helper()
	writeJSON(t, filepath.Join(root, "info.json"), map[string]any{"Title": title})
}

// WriteEpisode creates dir with an episode metadata file plus the video and
// audio sources it references.
func WriteEpisode(t testing.TB, dir, title string) {
	t.Helper()
	WriteFile(t, filepath.Join(dir, "video.mp4"), 1024)
	WriteFile(t, filepath.Join(dir, "audio.m4a"), 256)
	writeJSON(t, filepath.Join(dir, "info.json"), map[string]any{
		"EpisodeTitle": title,
		"VideoPath":    []string{"video.mp4", "audio.m4a"},
	})
}

func writeJSON(t testing.TB, path string, value any) {
	t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
