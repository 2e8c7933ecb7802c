package frame

import (
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Default parallelism: one worker per CPU, partitions for columns of at
// least 64k rows.
const defaultParallelMinRows = 1 << 16

var (
	parMu      sync.RWMutex
	parWorkers = runtime.GOMAXPROCS(0)
	parMinRows = defaultParallelMinRows
)

// SetParallelism configures element-wise maps. workers <= 0 selects
// GOMAXPROCS; minRows <= 0 restores the default threshold.
func SetParallelism(workers, minRows int) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if minRows <= 0 {
		minRows = defaultParallelMinRows
	}
	parMu.Lock()
	defer parMu.Unlock()
	parWorkers = workers
	parMinRows = minRows
}

// Parallelism returns the current worker count and row threshold
func Parallelism() (workers, minRows int) {
	parMu.RLock()
	defer parMu.RUnlock()
	return parWorkers, parMinRows
}

// ParallelFor splits [0, n) into contiguous partitions and runs fn on each.
// Small inputs, or a single configured worker, run fn(0, n) on the calling
// goroutine. The first error is returned.
func ParallelFor(n int, fn func(lo, hi int) error) error {
	workers, minRows := Parallelism()
	if n < minRows || workers <= 1 {
		return fn(0, n)
	}
	chunk := (n + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			return fn(lo, hi)
		})
	}
	return g.Wait()
}

// Map applies fn to every element of c, nulls included, and collects the
// results into a column of type dtype named after c. Each result must be of
// dtype or null.
func Map(c *Column, dtype DataType, fn func(Value) (Value, error)) (*Column, error) {
	results := make([]Value, c.length)
	err := ParallelFor(c.length, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			v, err := fn(c.Get(i))
			if err != nil {
				return err
			}
			results[i] = v
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	b := NewBuilder(c.name, dtype, c.length)
	for _, v := range results {
		if err := b.Append(v); err != nil {
			return nil, err
		}
	}
	return b.Finish(), nil
}
