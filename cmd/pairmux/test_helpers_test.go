package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"pairmux/internal/config"
	"pairmux/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	root       string
}

// setupCLITestEnv writes a config pointing at a stub multiplexer and a
// collection "Show A" with the given episode titles.
func setupCLITestEnv(t *testing.T, episodes []string, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("PAIRMUX_NTFY_TOPIC", "")
	isInteractive = func() bool { return false }
	t.Cleanup(func() { isInteractive = terminalInteractive })

	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithMuxerStub()}, opts...)...)
	cfg.Logging.Level = "error"

	configPath := filepath.Join(base, "pairmux.toml")
	writeTestConfig(t, configPath, cfg)

	root := filepath.Join(base, "downloads")
	testsupport.WriteCollection(t, root, "Show A")
	for i, title := range episodes {
		testsupport.WriteEpisode(t, filepath.Join(root, "ep"+string(rune('1'+i))), title)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, root: root}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
