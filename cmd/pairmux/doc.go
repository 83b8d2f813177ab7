// Command pairmux merges separately stored video and audio streams into
// single playable files.
//
// The merge command drives the whole pipeline: resolve ffmpeg, discover
// episodes from info.json sidecars, ask about outputs that already exist and
// run the merges on a bounded worker pool. discover is the dry run; status,
// history and config cover the supporting state.
package main
