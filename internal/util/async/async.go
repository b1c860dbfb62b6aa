// Package async provides utilities for parallel task execution.
//
// It contains the generic fan-out helper used for multi-target dispatch:
// one goroutine per task, no pooling or queueing, results collected in task
// order.
package async

import "context"

// RunParallel executes fn once per index in [0, count) in parallel and
// returns the results ordered by index. All calls are started concurrently
// and the function waits for every one to finish, even when some fail. When
// calls fail, the error of the lowest index is returned and no partial
// results are handed back.
//
// Cancellation is not handled here; fn decides what the context means.
//
// Example:
//
//	results, err := async.RunParallel(ctx, len(targets), func(ctx context.Context, i int) (Result, error) {
//	    return createOne(ctx, targets[i])
//	})
func RunParallel[T any](ctx context.Context, count int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	if count <= 0 {
		return nil, nil
	}

	type outcome struct {
		index int
		value T
		err   error
	}

	outcomes := make(chan outcome, count)

	// Start all tasks
	for i := 0; i < count; i++ {
		go func() {
			value, err := fn(ctx, i)
			outcomes <- outcome{index: i, value: value, err: err}
		}()
	}

	// Wait for all tasks to complete
	values := make([]T, count)
	errs := make([]error, count)
	for range count {
		out := <-outcomes
		values[out.index] = out.value
		errs[out.index] = out.err
	}

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}
