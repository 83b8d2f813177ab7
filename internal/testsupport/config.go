package testsupport

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"pairmux/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// History is enabled, notifications are off and conflicts default to skip.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Merge.ConflictPolicy = config.ConflictSkip
	cfgVal.Merge.MaxConcurrency = 2
	cfgVal.History.Enabled = true
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithoutHistory disables the run history store.
func WithoutHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// WithConflictPolicy overrides merge.conflict_policy.
func WithConflictPolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.ConflictPolicy = policy
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, ffmpeg and ffprobe are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			writeScript(b.t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
		}
		b.t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}

// MuxerScript stands in for ffmpeg. It records its arguments next to the
// output, fails with status 3 when the output name contains "fail", sleeps
// when it contains "slow", and otherwise writes a small output file.
const MuxerScript = `#!/bin/sh
for last; do :; done
printf '%s\n' "$@" > "$last.args"
case "$(basename "$last")" in
  *fail*) echo "Invalid data found when processing input" >&2; exit 3 ;;
  *slow*) exec sleep 5 ;;
esac
printf 'merged' > "$last"
exit 0
`

// WithMuxerStub installs MuxerScript and points merge.ffmpeg_binary at it.
func WithMuxerStub() ConfigOption {
	return func(b *configBuilder) {
		target := filepath.Join(b.baseDir, "bin", "ffmpeg")
		writeScript(b.t, target, MuxerScript)
		b.cfg.Merge.FFmpegBinary = target
	}
}

// WithProbeOutputs turns on output verification with the given ffprobe binary.
func WithProbeOutputs(binary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Validation.ProbeOutputs = true
		b.cfg.Validation.FFprobeBinary = binary
	}
}

// WithMissingMuxer points merge.ffmpeg_binary at a path that does not exist.
func WithMissingMuxer() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.FFmpegBinary = filepath.Join(b.baseDir, "bin", "missing-ffmpeg")
		b.cfg.Merge.BinarySearchDirs = nil
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// RequirePOSIX skips tests that rely on shell-script stubs.
func RequirePOSIX(t testing.TB) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
}

func writeScript(t testing.TB, path, script string) {
	t.Helper()
	RequirePOSIX(t)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", path, err)
	}
}
