// Package parallel provides small helpers for CPU-parallel execution of
// independent work items.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Parallelize divides the specified total number (items) according to the
// number of CPU cores, and executes the specified function (fn) in parallel
// for each range (start, end).
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ForEach runs fn(i) for i in [0, items) on a bounded pool of workers.
// It stops handing out new items once the context is canceled or any fn
// returns an error, waits for in-flight items, and returns the first error
// observed (context error wins if the context was canceled first).
//
// Items already running when an error occurs are allowed to finish; fn must
// therefore tolerate being called for an item even if a lower-indexed item
// failed.
func ForEach(ctx context.Context, items, workers int, fn func(i int) error) error {
	if items <= 0 {
		return ctx.Err()
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	failed := func() bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr != nil
	}

	work := make(chan int)

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range work {
				if err := fn(i); err != nil {
					setErr(err)
				}
			}
		}()
	}

dispatch:
	for i := 0; i < items; i++ {
		if failed() {
			break
		}
		select {
		case <-ctx.Done():
			setErr(ctx.Err())
			break dispatch
		case work <- i:
		}
	}
	close(work)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return firstErr
}
