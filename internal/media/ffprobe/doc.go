// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe and returns the parsed Result; Verifier uses it to
// confirm a merged file carries exactly one video and one audio stream.
package ffprobe
