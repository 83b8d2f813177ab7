// Package pipeline composes discovery, conflict partitioning and the merge
// scheduler into one run.
//
// The individual phases are exposed as methods so callers can drive them
// step by step (the discover command stops after Partition). Run chains them
// under a run ID, an advisory lock on the output folder, the history store
// and the notifier.
package pipeline
