package preflight

import (
	"pairmux/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the filesystem checks for a merge of rootDir into
// outputBase. An empty rootDir skips the source check.
func RunAll(cfg *config.Config, rootDir, outputBase string) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	if rootDir != "" {
		results = append(results, CheckDirectoryAccess("Source directory", rootDir, Readable))
	}
	if outputBase == "" {
		outputBase = cfg.Paths.OutputDir
	}
	results = append(results, CheckCreatable("Output directory", outputBase))

	if cfg.History.Enabled {
		results = append(results, CheckCreatable("State directory", cfg.Paths.StateDir))
	}
	results = append(results, CheckCreatable("Log directory", cfg.Paths.LogDir))
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
