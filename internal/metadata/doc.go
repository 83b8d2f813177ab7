// Package metadata parses the info.json sidecars written next to downloaded
// video and audio streams.
//
// The root of a download tree carries a collection descriptor naming the show;
// every episode directory below it carries an episode descriptor naming the
// episode and the two files to combine. Readers return typed errors so
// discovery can report exactly which field or file was wrong.
package metadata
