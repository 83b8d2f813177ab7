package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"pairmux/internal/logging"
	"pairmux/internal/merge"
	"pairmux/internal/metadata"
	"pairmux/internal/textutil"
)

// DefaultOutputExtension is appended to sanitized episode titles.
const DefaultOutputExtension = ".mp4"

// Options tunes discovery.
type Options struct {
	MetadataFile    string
	OutputExtension string
	Logger          *slog.Logger
	// DryRun computes output paths without creating the output subfolder.
	DryRun bool
}

// Result is everything discovery learned about a tree.
type Result struct {
	CollectionTitle string
	OutputDir       string
	Tasks           []merge.Task
	Errors          []*DiscoveryError
}

// Discover reads the collection descriptor at rootDir, ensures the shared
// output subfolder exists below outputBaseDir (unless Options.DryRun is set)
// and walks every subdirectory for episode descriptors.
//
// The returned error is reserved for problems that prevent discovery as a
// whole: an unreadable root, an invalid root descriptor or an output folder
// that cannot be created. Per-directory problems are collected in
// Result.Errors.
func Discover(rootDir, outputBaseDir string, opts Options) (Result, error) {
	opts = opts.withDefaults()
	logger := logging.NewComponentLogger(opts.Logger, "discovery")

	root, err := filepath.Abs(strings.TrimSpace(rootDir))
	if err != nil {
		return Result{}, fmt.Errorf("resolve root %q: %w", rootDir, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return Result{}, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("root %s is not a directory", root)
	}
	outputBase, err := filepath.Abs(strings.TrimSpace(outputBaseDir))
	if err != nil {
		return Result{}, fmt.Errorf("resolve output base %q: %w", outputBaseDir, err)
	}

	collection, err := metadata.ReadCollection(filepath.Join(root, opts.MetadataFile))
	if err != nil {
		return Result{}, fmt.Errorf("read collection metadata: %w", err)
	}

	result := Result{
		CollectionTitle: collection.Title,
		OutputDir:       filepath.Join(outputBase, textutil.SanitizeSegment(collection.Title)),
	}
	if !opts.DryRun {
		if err := os.MkdirAll(result.OutputDir, 0o755); err != nil {
			return Result{}, fmt.Errorf("create output directory: %w", err)
		}
	}

	claimed := make(map[string]string)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			logging.WarnWithContext(logger, "skipping unreadable directory", "discovery_walk_error",
				logging.String("dir", relativeDir(root, path)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "episodes below this directory are not merged"),
			)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if !d.IsDir() || path == root {
			return nil
		}
		if path == result.OutputDir {
			return fs.SkipDir
		}
		descriptor := filepath.Join(path, opts.MetadataFile)
		if !isRegularFile(descriptor) {
			return nil
		}

		task, derr := discoverEpisode(root, path, descriptor, result.OutputDir, opts)
		if derr == nil {
			if owner, taken := claimed[task.OutputPath]; taken {
				derr = &DiscoveryError{
					Dir:  relativeDir(root, path),
					Kind: KindOutputCollision,
					Path: task.OutputPath,
					Err:  fmt.Errorf("output already claimed by %s", owner),
				}
			}
		}
		if derr != nil {
			result.Errors = append(result.Errors, derr)
			logging.WarnWithContext(logger, "episode skipped", "discovery_"+derr.Kind,
				logging.String("dir", derr.Dir),
				logging.String("error_kind", derr.Kind),
				logging.Error(derr),
				logging.String(logging.FieldErrorHint, hintFor(derr.Kind, opts.MetadataFile)),
			)
			return nil
		}

		claimed[task.OutputPath] = relativeDir(root, path)
		result.Tasks = append(result.Tasks, task)
		logger.Debug("episode discovered",
			logging.String("dir", relativeDir(root, path)),
			logging.String("output_path", task.OutputPath),
		)
		return nil
	})
	if walkErr != nil {
		return Result{}, fmt.Errorf("walk %s: %w", root, walkErr)
	}

	logger.Info("discovery complete",
		logging.String("collection", result.CollectionTitle),
		logging.String("output_dir", result.OutputDir),
		logging.Int("tasks", len(result.Tasks)),
		logging.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func discoverEpisode(root, dir, descriptor, outputDir string, opts Options) (merge.Task, *DiscoveryError) {
	rel := relativeDir(root, dir)

	episode, err := metadata.ReadEpisode(descriptor)
	if err != nil {
		var missing *metadata.MissingFieldError
		if errors.As(err, &missing) {
			return merge.Task{}, &DiscoveryError{Dir: rel, Kind: KindMissingField, Field: missing.Field, Err: err}
		}
		return merge.Task{}, &DiscoveryError{Dir: rel, Kind: KindMalformedMetadata, Path: descriptor, Err: err}
	}

	video, derr := resolveSource(dir, episode.VideoRelativePath)
	if derr != nil {
		derr.Dir = rel
		derr.Field = metadata.FieldVideoPath + "[0]"
		return merge.Task{}, derr
	}
	audio, derr := resolveSource(dir, episode.AudioRelativePath)
	if derr != nil {
		derr.Dir = rel
		derr.Field = metadata.FieldVideoPath + "[1]"
		return merge.Task{}, derr
	}

	return merge.Task{
		VideoPath:  video,
		AudioPath:  audio,
		OutputPath: filepath.Join(outputDir, textutil.SanitizeSegment(episode.Title)+opts.OutputExtension),
		SourceDir:  dir,
		Title:      episode.Title,
	}, nil
}

func resolveSource(dir, relPath string) (string, *DiscoveryError) {
	path := relPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, filepath.FromSlash(relPath))
	}
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", &DiscoveryError{Kind: KindSourceNotFound, Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return "", &DiscoveryError{Kind: KindSourceNotFound, Path: path, Err: fmt.Errorf("%s is not a regular file", path)}
	}
	return path, nil
}

func (o Options) withDefaults() Options {
	if strings.TrimSpace(o.MetadataFile) == "" {
		o.MetadataFile = metadata.DefaultFileName
	}
	if strings.TrimSpace(o.OutputExtension) == "" {
		o.OutputExtension = DefaultOutputExtension
	}
	if o.Logger == nil {
		o.Logger = logging.NewNop()
	}
	return o
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func relativeDir(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func hintFor(kind, metadataFile string) string {
	switch kind {
	case KindMissingField:
		return "add the missing field to " + metadataFile
	case KindMalformedMetadata:
		return "fix the JSON syntax in " + metadataFile
	case KindSourceNotFound:
		return "check the file names listed in VideoPath"
	case KindOutputCollision:
		return "give the episodes distinct EpisodeTitle values"
	default:
		return "check logs for details"
	}
}
