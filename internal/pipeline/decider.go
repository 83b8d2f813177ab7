package pipeline

import (
	"context"

	"pairmux/internal/config"
	"pairmux/internal/conflict"
)

// Decider answers, once per record, whether an existing output is overwritten.
// Run blocks on Decide before any conflicting task is scheduled. Returning an
// error aborts the run.
type Decider interface {
	Decide(ctx context.Context, records []conflict.Record) ([]conflict.Decision, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, records []conflict.Record) ([]conflict.Decision, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(ctx context.Context, records []conflict.Record) ([]conflict.Decision, error) {
	return f(ctx, records)
}

// Always returns a Decider that gives d for every record.
func Always(d conflict.Decision) Decider {
	return DeciderFunc(func(_ context.Context, records []conflict.Record) ([]conflict.Decision, error) {
		return conflict.Uniform(len(records), d), nil
	})
}

// PolicyDecider maps a merge.conflict_policy value to a non-interactive Decider.
// "ask" has no one to ask here and skips.
func PolicyDecider(policy string) Decider {
	if policy == config.ConflictOverwrite {
		return Always(conflict.Overwrite)
	}
	return Always(conflict.Skip)
}
