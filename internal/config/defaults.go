package config

const (
	defaultOutputDir       = "~/Videos/pairmux"
	defaultLogDir          = "~/.local/share/pairmux/logs"
	defaultStateDir        = "~/.local/share/pairmux"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultMetadataFile    = "info.json"
	defaultOutputExtension = ".mp4"
	defaultConflictPolicy  = ConflictAsk
	defaultNotifyTimeout   = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Conflict policies recognised by merge.conflict_policy.
const (
	ConflictAsk       = "ask"
	ConflictOverwrite = "overwrite"
	ConflictSkip      = "skip"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Merge: Merge{
			FFmpegBinary:    defaultFFmpegBinary,
			MetadataFile:    defaultMetadataFile,
			OutputExtension: defaultOutputExtension,
			ConflictPolicy:  defaultConflictPolicy,
		},
		Validation: Validation{
			FFprobeBinary: defaultFFprobeBinary,
		},
		History: History{
			Enabled: true,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyTimeout,
			RunCompleted:   true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
