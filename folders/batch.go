package folders

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of store calls issued concurrently per wave.
const DefaultBatchSize = 50

// runWaves calls fn once for every index below n. Calls are issued in
// waves of at most size; a wave starts only after the previous one has
// fully returned. The returned slice holds each call's error by index.
//
// Calls run on a context detached from ctx's cancellation: once a
// mutation has been issued it is allowed to land.
func runWaves(ctx context.Context, n, size int, fn func(ctx context.Context, i int) error) []error {
	if size <= 0 {
		size = DefaultBatchSize
	}
	ctx = context.WithoutCancel(ctx)
	errs := make([]error, n)

	for start := 0; start < n; start += size {
		end := min(start+size, n)

		// Errors are kept per item; the group only joins the wave.
		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				errs[i] = fn(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
	}
	return errs
}
