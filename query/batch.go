package query

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vegasq/lazytab/frame"
)

// CollectError reports which frame of a CollectAll call failed
type CollectError struct {
	Index int
	Err   error
}

func (e *CollectError) Error() string { return fmt.Sprintf("frame %d: %v", e.Index, e.Err) }

func (e *CollectError) Unwrap() error { return e.Err }

// CollectAll collects independent frames concurrently, bounded by the
// configured worker count. Results are aligned with frames. The first error
// cancels the frames that have not finished and is returned alone, as a
// *CollectError.
func CollectAll(ctx context.Context, frames ...LazyFrame) ([]*frame.Table, error) {
	workers, _ := frame.Parallelism()
	results := make([]*frame.Table, len(frames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, workers))
	for i, lf := range frames {
		i, lf := i, lf
		g.Go(func() error {
			t, err := lf.CollectContext(gctx)
			if err != nil {
				return &CollectError{Index: i, Err: err}
			}
			results[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
