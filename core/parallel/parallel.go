package parallel

import (
	"runtime"
	"sync"
)

// Workers resolves an n_jobs style setting: values <= 0 mean one worker per CPU.
func Workers(nJobs int) int {
	if nJobs <= 0 {
		return runtime.NumCPU()
	}
	return nJobs
}

// Parallelize splits [0, items) into contiguous ranges, one per worker, and
// runs fn on each range concurrently. It returns once every range is done.
func Parallelize(items, nJobs int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := Workers(nJobs)
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
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

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold or nJobs == 1, and Parallelize otherwise.
func ParallelizeWithThreshold(items, threshold, nJobs int, fn func(start, end int)) {
	if items <= threshold || nJobs == 1 {
		fn(0, items)
		return
	}
	Parallelize(items, nJobs, fn)
}
