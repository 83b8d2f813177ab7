package merge

import (
	"context"
	"fmt"
	"runtime"
	"sync"
)

// Options configures RunAll.
type Options struct {
	// MaxConcurrency caps in-flight merges; zero or less uses runtime.NumCPU().
	MaxConcurrency int
	// OnProgress is called once per finished task from a single goroutine.
	OnProgress func(Progress)
	// Executor runs individual tasks; nil uses a zero Executor.
	Executor Runner
}

// Workers returns the effective pool size for n tasks.
func (o Options) Workers(n int) int {
	workers := o.MaxConcurrency
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// RunAll merges every task using binary and returns one outcome per task in
// submission order.
func RunAll(ctx context.Context, binary string, tasks []Task, opts Options) []Outcome {
	outcomes := make([]Outcome, len(tasks))
	if len(tasks) == 0 {
		return outcomes
	}

	runner := opts.Executor
	if runner == nil {
		runner = &Executor{}
	}

	type result struct {
		index   int
		outcome Outcome
	}

	jobs := make(chan int)
	results := make(chan result, len(tasks))

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers(len(tasks)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- result{index: idx, outcome: runner.Run(ctx, binary, tasks[idx])}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for idx := range tasks {
			select {
			case <-ctx.Done():
				for rest := idx; rest < len(tasks); rest++ {
					results <- result{index: rest, outcome: Outcome{
						Task: tasks[rest],
						Err:  fmt.Errorf("%w: %v", ErrCancelled, ctx.Err()),
					}}
				}
				return
			case jobs <- idx:
			}
		}
	}()

	for completed := 1; completed <= len(tasks); completed++ {
		res := <-results
		outcomes[res.index] = res.outcome
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Completed: completed, Total: len(tasks), Outcome: res.outcome})
		}
	}
	wg.Wait()
	return outcomes
}
