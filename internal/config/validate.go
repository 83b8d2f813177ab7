package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateMerge(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateMerge() error {
	if c.Merge.MaxConcurrency < 0 {
		return errors.New("merge.max_concurrency must be zero (auto) or positive")
	}
	if c.Merge.TaskTimeoutSeconds < 0 {
		return errors.New("merge.task_timeout_seconds must be zero (unbounded) or positive")
	}
	if !strings.HasPrefix(c.Merge.OutputExtension, ".") || len(c.Merge.OutputExtension) < 2 {
		return fmt.Errorf("merge.output_extension %q must start with a dot", c.Merge.OutputExtension)
	}
	if c.Merge.MetadataFile != filepath.Base(c.Merge.MetadataFile) {
		return fmt.Errorf("merge.metadata_file %q must be a bare file name", c.Merge.MetadataFile)
	}
	switch c.Merge.ConflictPolicy {
	case ConflictAsk, ConflictOverwrite, ConflictSkip:
	default:
		return fmt.Errorf("merge.conflict_policy: unsupported value %q (want ask, overwrite or skip)", c.Merge.ConflictPolicy)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	if !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be a full URL, got %q", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
