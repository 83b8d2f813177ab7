package deps

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func writeStub(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
}

func TestCheckBinaries(t *testing.T) {
	present := filepath.Join(t.TempDir(), "present")
	writeStub(t, present)
	t.Setenv("PATH", "")
	reqs := []Requirement{
		{Name: "Present", Resolver: Resolver{Name: present}},
		{Name: "Missing", Resolver: Resolver{Name: "clearly-not-present-binary"}, Optional: true},
		{Name: "Empty", Resolver: Resolver{Name: " "}},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Detail != "" || results[0].Command != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" || !results[1].Optional {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("unexpected detail for empty command: %q", results[2].Detail)
	}
	if Ready(results) {
		t.Fatal("expected unconfigured required binary to make the set not ready")
	}
	if !Ready(results[:2]) {
		t.Fatal("expected a missing optional binary to keep the set ready")
	}
}

func TestResolverExplicitPath(t *testing.T) {
	stub := filepath.Join(t.TempDir(), "bin", executableName("ffmpeg"))
	writeStub(t, stub)

	got, err := Resolver{Name: stub}.Resolve()
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != stub {
		t.Fatalf("expected %q, got %q", stub, got)
	}
}

func TestResolverSearchDirsBeforePath(t *testing.T) {
	tmp := t.TempDir()
	sidecar := filepath.Join(tmp, "tools", "ffmpeg-7.1", "bin", executableName("ffmpeg"))
	writeStub(t, sidecar)
	onPath := filepath.Join(tmp, "path", executableName("ffmpeg"))
	writeStub(t, onPath)
	t.Setenv("PATH", filepath.Dir(onPath))

	got, err := Resolver{Name: "ffmpeg", SearchDirs: []string{filepath.Join(tmp, "tools")}}.Resolve()
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != sidecar {
		t.Fatalf("expected search dir match %q, got %q", sidecar, got)
	}
}

func TestResolverFallsBackToPath(t *testing.T) {
	tmp := t.TempDir()
	onPath := filepath.Join(tmp, "path", executableName("ffmpeg"))
	writeStub(t, onPath)
	t.Setenv("PATH", filepath.Dir(onPath))

	got, err := Resolver{Name: "ffmpeg", SearchDirs: []string{filepath.Join(tmp, "empty")}}.Resolve()
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if got != onPath {
		t.Fatalf("expected PATH match %q, got %q", onPath, got)
	}
}

func TestResolverSkipsNonExecutable(t *testing.T) {
	tmp := t.TempDir()
	plain := filepath.Join(tmp, executableName("ffmpeg"))
	if err := os.WriteFile(plain, []byte("not a binary"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	t.Setenv("PATH", "")
	if runtime.GOOS == "windows" {
		t.Skip("windows has no executable bit")
	}

	if _, err := (Resolver{Name: "ffmpeg", SearchDirs: []string{tmp}}).Resolve(); !errors.Is(err, ErrBinaryUnavailable) {
		t.Fatalf("expected non-executable file to be ignored, got %v", err)
	}
}

func TestEnsureAvailableMissing(t *testing.T) {
	t.Setenv("PATH", "")
	err := Resolver{Name: "pairmux-missing-ffmpeg"}.EnsureAvailable()
	if !errors.Is(err, ErrBinaryUnavailable) {
		t.Fatalf("expected ErrBinaryUnavailable, got %v", err)
	}
	var unavailable *UnavailableError
	if !errors.As(err, &unavailable) || unavailable.ErrorKind() != "binary_unavailable" {
		t.Fatalf("expected UnavailableError, got %T", err)
	}

	status := CheckBinaries([]Requirement{{Name: "FFmpeg", Resolver: Resolver{Name: "pairmux-missing-ffmpeg"}}})[0]
	if status.Available || !errors.Is(err, ErrBinaryUnavailable) || status.Detail != err.Error() {
		t.Fatalf("expected unavailable status with detail, got %#v", status)
	}
}
