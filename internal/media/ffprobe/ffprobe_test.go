package ffprobe

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio"},
			{CodecType: "AUDIO"},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad", Size: "-1"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}

func writeProbeStub(t *testing.T, payload string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + payload + "\nJSON\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write ffprobe stub: %v", err)
	}
	return path
}

func TestVerifierAcceptsSingleVideoAndAudio(t *testing.T) {
	stub := writeProbeStub(t, `{"streams":[{"index":0,"codec_type":"video"},{"index":1,"codec_type":"audio"}],"format":{"nb_streams":2}}`)

	if err := (Verifier{Binary: stub}).Verify(context.Background(), "/tmp/out.mp4"); err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
}

func TestVerifierRejectsMissingAudio(t *testing.T) {
	stub := writeProbeStub(t, `{"streams":[{"index":0,"codec_type":"video"}],"format":{"nb_streams":1}}`)

	err := (Verifier{Binary: stub}).Verify(context.Background(), "/tmp/out.mp4")
	var invalid *InvalidOutputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidOutputError, got %v", err)
	}
	if invalid.AudioStreams != 0 || invalid.VideoStreams != 1 {
		t.Fatalf("unexpected stream counts %+v", invalid)
	}
	if invalid.ErrorKind() != "output_invalid" {
		t.Fatalf("unexpected kind %q", invalid.ErrorKind())
	}
}

func TestInspectReportsProbeFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs require a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "ffprobe")
	if err := os.WriteFile(path, []byte("#!/bin/sh\necho 'moov atom not found' >&2\nexit 1\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	if _, err := Inspect(context.Background(), path, "/tmp/out.mp4"); err == nil {
		t.Fatal("expected error from failing ffprobe")
	}
}

func TestVerifierClassifiesProbeFailure(t *testing.T) {
	err := (Verifier{Binary: filepath.Join(t.TempDir(), "missing-ffprobe")}).Verify(context.Background(), "/tmp/out.mp4")
	var verifyErr *VerifyError
	if !errors.As(err, &verifyErr) {
		t.Fatalf("expected VerifyError, got %v", err)
	}
	if verifyErr.ErrorKind() != "verification_failed" || verifyErr.Path != "/tmp/out.mp4" {
		t.Fatalf("unexpected verify error %+v", verifyErr)
	}
}
