package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"pairmux/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("PAIRMUX_NTFY_TOPIC", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, "Videos", "pairmux")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "pairmux") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Merge.FFmpegBinary != "ffmpeg" {
		t.Fatalf("unexpected ffmpeg binary: %q", cfg.Merge.FFmpegBinary)
	}
	if cfg.Merge.MetadataFile != "info.json" {
		t.Fatalf("unexpected metadata file: %q", cfg.Merge.MetadataFile)
	}
	if cfg.Merge.OutputExtension != ".mp4" {
		t.Fatalf("unexpected output extension: %q", cfg.Merge.OutputExtension)
	}
	if cfg.Merge.MaxConcurrency != 0 {
		t.Fatalf("expected auto concurrency by default, got %d", cfg.Merge.MaxConcurrency)
	}
	if cfg.Merge.ConflictPolicy != config.ConflictAsk {
		t.Fatalf("unexpected conflict policy: %q", cfg.Merge.ConflictPolicy)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled by default")
	}
	if cfg.Notifications.NtfyTopic != "" {
		t.Fatalf("expected notifications disabled, got %q", cfg.Notifications.NtfyTopic)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.LogDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if _, err := os.Stat(cfg.Paths.OutputDir); !os.IsNotExist(err) {
		t.Fatalf("expected output dir to be created lazily, stat err=%v", err)
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "pairmux.toml")

	type payload struct {
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Merge struct {
			FFmpegBinary       string `toml:"ffmpeg_binary"`
			MaxConcurrency     int    `toml:"max_concurrency"`
			TaskTimeoutSeconds int    `toml:"task_timeout_seconds"`
			ConflictPolicy     string `toml:"conflict_policy"`
			OutputExtension    string `toml:"output_extension"`
		} `toml:"merge"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Merge.FFmpegBinary = filepath.Join(tempDir, "bin", "ffmpeg")
	custom.Merge.MaxConcurrency = 3
	custom.Merge.TaskTimeoutSeconds = 600
	custom.Merge.ConflictPolicy = "Overwrite"
	custom.Merge.OutputExtension = ".MKV"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.OutputDir != custom.Paths.OutputDir {
		t.Fatalf("expected output dir override, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Merge.FFmpegBinary != custom.Merge.FFmpegBinary {
		t.Fatalf("expected ffmpeg path override, got %q", cfg.Merge.FFmpegBinary)
	}
	if cfg.Merge.MaxConcurrency != 3 {
		t.Fatalf("expected max concurrency 3, got %d", cfg.Merge.MaxConcurrency)
	}
	if cfg.Merge.TaskTimeoutSeconds != 600 {
		t.Fatalf("expected timeout 600, got %d", cfg.Merge.TaskTimeoutSeconds)
	}
	if cfg.Merge.ConflictPolicy != config.ConflictOverwrite {
		t.Fatalf("expected normalized policy, got %q", cfg.Merge.ConflictPolicy)
	}
	if cfg.Merge.OutputExtension != ".mkv" {
		t.Fatalf("expected lowercased extension, got %q", cfg.Merge.OutputExtension)
	}
	if cfg.Merge.MetadataFile != "info.json" {
		t.Fatalf("expected default metadata file to survive partial config, got %q", cfg.Merge.MetadataFile)
	}
}

func TestNtfyTopicFromEnv(t *testing.T) {
	t.Setenv("PAIRMUX_NTFY_TOPIC", "https://ntfy.example/merges")
	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/merges" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "conflict_policy") {
		t.Fatalf("sample config missing conflict policy: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Merge.MetadataFile != "info.json" {
		t.Fatalf("unexpected sample metadata file %q", cfg.Merge.MetadataFile)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"negative concurrency", func(c *config.Config) { c.Merge.MaxConcurrency = -1 }},
		{"negative timeout", func(c *config.Config) { c.Merge.TaskTimeoutSeconds = -5 }},
		{"extension without dot", func(c *config.Config) { c.Merge.OutputExtension = "mp4" }},
		{"metadata file with directory", func(c *config.Config) { c.Merge.MetadataFile = "meta/info.json" }},
		{"unknown policy", func(c *config.Config) { c.Merge.ConflictPolicy = "maybe" }},
		{"relative ntfy topic", func(c *config.Config) { c.Notifications.NtfyTopic = "my-topic" }},
		{"unknown log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"unknown log level", func(c *config.Config) { c.Logging.Level = "trace" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults to validate, got %v", err)
	}
}
