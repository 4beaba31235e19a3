package parallel

import (
	"context"
	"sync"
)

// Map runs fn over every input with at most limit invocations in flight and
// returns the results in input order, whatever order the work finishes in.
// A limit below one runs the inputs sequentially. Zero inputs return an empty
// slice without spawning anything.
//
// Failures stay in-band: fn folds its error into R, so one bad input never
// disturbs its siblings. fn receives the original index for progress
// reporting. Started work always runs to completion; callers that stop caring
// should cancel ctx inside fn's own operations.
func Map[T, R any](ctx context.Context, inputs []T, limit int, fn func(ctx context.Context, index int, input T) R) []R {
	results := make([]R, len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}
	if limit > len(inputs) {
		limit = len(inputs)
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i := range inputs {
		sem <- struct{}{}
		wg.Add(1)
		go func(index int) {
			defer func() {
				<-sem
				wg.Done()
			}()
			results[index] = fn(ctx, index, inputs[index])
		}(i)
	}
	wg.Wait()
	return results
}
