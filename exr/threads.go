package exr

import (
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

var (
	threadCount   = runtime.GOMAXPROCS(0)
	threadCountMu sync.RWMutex
)

// SetGlobalThreadCount sets how many goroutines files opened afterwards
// use to compress and decompress chunks. Zero codes every chunk on the
// calling goroutine. The setting is process-wide and the last call wins;
// files already open keep the count they were opened with.
func SetGlobalThreadCount(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return newError(KindProtocol, "set thread count", ErrInvalidThreadCount, "%d", n)
	}
	threadCountMu.Lock()
	defer threadCountMu.Unlock()
	threadCount = n
	return nil
}

// GlobalThreadCount returns the current process-wide thread count. It
// defaults to runtime.GOMAXPROCS(0).
func GlobalThreadCount() int {
	threadCountMu.RLock()
	defer threadCountMu.RUnlock()
	return threadCount
}

// parallelForWithError runs fn(i) for i in [0, n) on at most workers
// goroutines and returns the first error. With fewer than two workers, or
// a single item, it runs in order on the calling goroutine and stops at
// the first error.
func parallelForWithError(workers, n int, fn func(i int) error) error {
	if workers < 2 || n < 2 {
		for i := range n {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i := range n {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
