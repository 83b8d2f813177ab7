package metadata_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pairmux/internal/metadata"
)

func writeDescriptor(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), metadata.DefaultFileName)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write descriptor: %v", err)
	}
	return path
}

func TestReadEpisode(t *testing.T) {
	path := writeDescriptor(t, `{"EpisodeTitle": "Episode 1", "VideoPath": ["v.mp4", "a.m4a"], "Extra": 42}`)

	desc, err := metadata.ReadEpisode(path)
	if err != nil {
		t.Fatalf("ReadEpisode returned error: %v", err)
	}
	if desc.Title != "Episode 1" {
		t.Fatalf("unexpected title %q", desc.Title)
	}
	if desc.VideoRelativePath != "v.mp4" || desc.AudioRelativePath != "a.m4a" {
		t.Fatalf("unexpected paths %+v", desc)
	}
}

func TestReadEpisodeToleratesBOM(t *testing.T) {
	path := writeDescriptor(t, "\xEF\xBB\xBF"+`{"EpisodeTitle": "第1集", "VideoPath": ["v.m4s", "a.m4s", "extra.m4s"]}`)

	desc, err := metadata.ReadEpisode(path)
	if err != nil {
		t.Fatalf("ReadEpisode returned error: %v", err)
	}
	if desc.Title != "第1集" || desc.AudioRelativePath != "a.m4s" {
		t.Fatalf("unexpected descriptor %+v", desc)
	}
}

func TestReadEpisodeErrors(t *testing.T) {
	cases := []struct {
		name      string
		contents  string
		wantField string
		malformed bool
	}{
		{name: "invalid json", contents: `{"EpisodeTitle": `, malformed: true},
		{name: "array document", contents: `["v.mp4", "a.m4a"]`, malformed: true},
		{name: "null document", contents: `null`, malformed: true},
		{name: "missing video path", contents: `{"EpisodeTitle": "Episode 1"}`, wantField: "VideoPath"},
		{name: "null video path", contents: `{"EpisodeTitle": "Episode 1", "VideoPath": null}`, wantField: "VideoPath"},
		{name: "single entry", contents: `{"EpisodeTitle": "Episode 1", "VideoPath": ["v.mp4"]}`, wantField: "VideoPath"},
		{name: "wrong shape", contents: `{"EpisodeTitle": "Episode 1", "VideoPath": "v.mp4"}`, wantField: "VideoPath"},
		{name: "empty entry", contents: `{"EpisodeTitle": "Episode 1", "VideoPath": ["v.mp4", " "]}`, wantField: "VideoPath"},
		{name: "missing title", contents: `{"VideoPath": ["v.mp4", "a.m4a"]}`, wantField: "EpisodeTitle"},
		{name: "numeric title", contents: `{"EpisodeTitle": 7, "VideoPath": ["v.mp4", "a.m4a"]}`, wantField: "EpisodeTitle"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeDescriptor(t, tc.contents)
			_, err := metadata.ReadEpisode(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.malformed {
				var malformed *metadata.MalformedMetadataError
				if !errors.As(err, &malformed) {
					t.Fatalf("expected MalformedMetadataError, got %T: %v", err, err)
				}
				if malformed.ErrorKind() != metadata.KindMalformed {
					t.Fatalf("unexpected kind %q", malformed.ErrorKind())
				}
				return
			}
			var missing *metadata.MissingFieldError
			if !errors.As(err, &missing) {
				t.Fatalf("expected MissingFieldError, got %T: %v", err, err)
			}
			if missing.Field != tc.wantField {
				t.Fatalf("expected field %q, got %q", tc.wantField, missing.Field)
			}
		})
	}
}

func TestReadCollection(t *testing.T) {
	desc, err := metadata.ReadCollection(writeDescriptor(t, `{"Title": "Show A"}`))
	if err != nil {
		t.Fatalf("ReadCollection returned error: %v", err)
	}
	if desc.Title != "Show A" {
		t.Fatalf("unexpected title %q", desc.Title)
	}

	_, err = metadata.ReadCollection(writeDescriptor(t, `{"Name": "Show A"}`))
	var missing *metadata.MissingFieldError
	if !errors.As(err, &missing) || missing.Field != metadata.FieldCollectionTitle {
		t.Fatalf("expected missing Title, got %v", err)
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := metadata.ReadCollection(filepath.Join(t.TempDir(), "info.json"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
