// Package merge runs the external multiplexer over discovered video/audio
// pairs.
//
// Executor handles a single task: it launches ffmpeg with a stream-copy
// mapping (first video stream of the first input, first audio stream of the
// second), discards the process output and turns the exit status into an
// Outcome. It never returns an error; every failure is recorded on the
// Outcome.
//
// RunAll fans a batch of tasks out over a bounded worker pool. Outcomes come
// back in submission order, one per task, and the progress callback is
// invoked from a single goroutine with a strictly increasing completed count.
// Cancelling the context stops dispatch and interrupts in-flight processes;
// tasks that never started are reported with ErrCancelled.
package merge
