package metadata

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Field names recognized in info.json.
const (
	FieldCollectionTitle = "Title"
	FieldEpisodeTitle    = "EpisodeTitle"
	FieldVideoPath       = "VideoPath"
)

// DefaultFileName is the sidecar name written by the downloader.
const DefaultFileName = "info.json"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// EpisodeDescriptor names one episode and the two files that make it up.
// VideoRelativePath and AudioRelativePath are relative to the descriptor's directory.
type EpisodeDescriptor struct {
	Title             string
	VideoRelativePath string
	AudioRelativePath string
}

// CollectionDescriptor names the collection a download tree belongs to.
type CollectionDescriptor struct {
	Title string
}

// ReadEpisode parses an episode descriptor from path.
func ReadEpisode(path string) (EpisodeDescriptor, error) {
	fields, err := readObject(path)
	if err != nil {
		return EpisodeDescriptor{}, err
	}

	title, err := requireString(path, fields, FieldEpisodeTitle)
	if err != nil {
		return EpisodeDescriptor{}, err
	}

	raw, ok := fields[FieldVideoPath]
	if !ok || isNull(raw) {
		return EpisodeDescriptor{}, &MissingFieldError{Path: path, Field: FieldVideoPath}
	}
	var paths []string
	if err := json.Unmarshal(raw, &paths); err != nil {
		return EpisodeDescriptor{}, &MissingFieldError{Path: path, Field: FieldVideoPath, Reason: "expected a list of file names"}
	}
	if len(paths) < 2 {
		return EpisodeDescriptor{}, &MissingFieldError{
			Path:   path,
			Field:  FieldVideoPath,
			Reason: fmt.Sprintf("expected video and audio entries, found %d", len(paths)),
		}
	}
	video := strings.TrimSpace(paths[0])
	audio := strings.TrimSpace(paths[1])
	if video == "" || audio == "" {
		return EpisodeDescriptor{}, &MissingFieldError{Path: path, Field: FieldVideoPath, Reason: "empty file name"}
	}

	return EpisodeDescriptor{
		Title:             title,
		VideoRelativePath: video,
		AudioRelativePath: audio,
	}, nil
}

// ReadCollection parses the collection descriptor at the root of a download tree.
func ReadCollection(path string) (CollectionDescriptor, error) {
	fields, err := readObject(path)
	if err != nil {
		return CollectionDescriptor{}, err
	}
	title, err := requireString(path, fields, FieldCollectionTitle)
	if err != nil {
		return CollectionDescriptor{}, err
	}
	return CollectionDescriptor{Title: title}, nil
}

func readObject(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &MalformedMetadataError{Path: path, Err: err}
	}
	if fields == nil {
		return nil, &MalformedMetadataError{Path: path, Err: errors.New("expected a JSON object")}
	}
	return fields, nil
}

func requireString(path string, fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return "", &MissingFieldError{Path: path, Field: name}
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", &MissingFieldError{Path: path, Field: name, Reason: "expected a string"}
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", &MissingFieldError{Path: path, Field: name, Reason: "empty value"}
	}
	return value, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
