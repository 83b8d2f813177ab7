package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMerge(); err != nil {
		return err
	}
	c.normalizeValidation()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeMerge() error {
	c.Merge.FFmpegBinary = strings.TrimSpace(c.Merge.FFmpegBinary)
	if c.Merge.FFmpegBinary == "" {
		c.Merge.FFmpegBinary = defaultFFmpegBinary
	}
	if strings.ContainsAny(c.Merge.FFmpegBinary, `/\`) || strings.HasPrefix(c.Merge.FFmpegBinary, "~") {
		expanded, err := expandPath(c.Merge.FFmpegBinary)
		if err != nil {
			return fmt.Errorf("merge.ffmpeg_binary: %w", err)
		}
		c.Merge.FFmpegBinary = expanded
	}

	dirs := make([]string, 0, len(c.Merge.BinarySearchDirs))
	for _, dir := range c.Merge.BinarySearchDirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		expanded, err := expandPath(strings.TrimSpace(dir))
		if err != nil {
			return fmt.Errorf("merge.binary_search_dirs: %w", err)
		}
		dirs = append(dirs, expanded)
	}
	c.Merge.BinarySearchDirs = dirs

	c.Merge.MetadataFile = strings.TrimSpace(c.Merge.MetadataFile)
	if c.Merge.MetadataFile == "" {
		c.Merge.MetadataFile = defaultMetadataFile
	}
	c.Merge.OutputExtension = strings.ToLower(strings.TrimSpace(c.Merge.OutputExtension))
	if c.Merge.OutputExtension == "" {
		c.Merge.OutputExtension = defaultOutputExtension
	}
	c.Merge.ConflictPolicy = strings.ToLower(strings.TrimSpace(c.Merge.ConflictPolicy))
	if c.Merge.ConflictPolicy == "" {
		c.Merge.ConflictPolicy = defaultConflictPolicy
	}
	return nil
}

func (c *Config) normalizeValidation() {
	c.Validation.FFprobeBinary = strings.TrimSpace(c.Validation.FFprobeBinary)
	if c.Validation.FFprobeBinary == "" {
		c.Validation.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeNotifications() {
	if strings.TrimSpace(c.Notifications.NtfyTopic) == "" {
		if value, ok := os.LookupEnv("PAIRMUX_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = value
		}
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
