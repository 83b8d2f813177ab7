package ffprobe

import (
	"context"
	"fmt"
)

// InvalidOutputError reports a merged file that does not hold exactly one
// video and one audio stream.
type InvalidOutputError struct {
	Path         string
	VideoStreams int
	AudioStreams int
}

func (e *InvalidOutputError) Error() string {
	return fmt.Sprintf("output %s has %d video and %d audio streams, want 1 and 1", e.Path, e.VideoStreams, e.AudioStreams)
}

// ErrorKind implements the error classification used across pairmux.
func (e *InvalidOutputError) ErrorKind() string { return "output_invalid" }

// VerifyError reports an output that could not be probed at all, either
// because ffprobe did not run or because it rejected the file.
type VerifyError struct {
	Path string
	Err  error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify %s: %v", e.Path, e.Err)
}

func (e *VerifyError) Unwrap() error { return e.Err }

// ErrorKind implements the error classification used across pairmux.
func (e *VerifyError) ErrorKind() string { return "verification_failed" }

// Verifier checks merged outputs with ffprobe.
type Verifier struct {
	Binary string
}

// Verify probes path and fails unless it carries one video and one audio stream.
func (v Verifier) Verify(ctx context.Context, path string) error {
	result, err := Inspect(ctx, v.Binary, path)
	if err != nil {
		return &VerifyError{Path: path, Err: err}
	}
	video, audio := result.VideoStreamCount(), result.AudioStreamCount()
	if video != 1 || audio != 1 {
		return &InvalidOutputError{Path: path, VideoStreams: video, AudioStreams: audio}
	}
	return nil
}
