package preflight

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pairmux/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir, Writable)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "read/write ok") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"), Readable)
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f, Readable)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckDirectoryAccess_ReadOnly(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}
	dir := filepath.Join(t.TempDir(), "ro")
	if err := os.Mkdir(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if result := CheckDirectoryAccess("test", dir, Readable); !result.Passed {
		t.Fatalf("expected read-only dir to be readable, got %s", result.Detail)
	}
	if result := CheckDirectoryAccess("test", dir, Writable); result.Passed {
		t.Fatal("expected read-only dir to fail the write check")
	}
}

func TestCheckCreatable_MissingDirUnderWritableParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b")
	result := CheckCreatable("out", path)
	if !result.Passed {
		t.Fatalf("expected creatable path to pass, got %s", result.Detail)
	}
	if !strings.Contains(result.Detail, "will be created") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckCreatable_FileAncestor(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckCreatable("out", filepath.Join(file, "child")); result.Passed {
		t.Fatal("expected failure when ancestor is a file")
	}
}

func TestRunAllChecksConfiguredPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.History.Enabled = true

	results := RunAll(&cfg, base, "")
	if len(results) != 4 {
		t.Fatalf("expected 4 checks, got %d: %+v", len(results), results)
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("expected all checks to pass, got %+v", failed)
	}

	results = RunAll(&cfg, filepath.Join(base, "missing"), "")
	failed := Failed(results)
	if len(failed) != 1 || failed[0].Name != "Source directory" {
		t.Fatalf("expected source check to fail, got %+v", failed)
	}
}

func TestCheckSystemDepsMarksProbeOptional(t *testing.T) {
	cfg := config.Default()
	cfg.Merge.FFmpegBinary = "pairmux-missing-muxer"
	cfg.Validation.FFprobeBinary = "pairmux-missing-probe"

	statuses := CheckSystemDeps(&cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Available || statuses[0].Optional {
		t.Fatalf("expected required, unavailable muxer, got %+v", statuses[0])
	}
	if !statuses[1].Optional {
		t.Fatalf("expected ffprobe optional when probing is off, got %+v", statuses[1])
	}

	cfg.Validation.ProbeOutputs = true
	if statuses := CheckSystemDeps(&cfg); statuses[1].Optional {
		t.Fatal("expected ffprobe required when probing is on")
	}
}
