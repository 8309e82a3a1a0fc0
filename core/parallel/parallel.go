// Package parallel splits independent work items across CPU workers.
// Sampling-heavy analyses use the seeded variants so that results stay
// reproducible regardless of how many workers run.
package parallel

import (
	"math/rand"
	"runtime"
	"sync"
)

// Parallelize divides the specified total number (items) according to the number of CPU cores,
// and executes the specified function (fn) in parallel for each range (start, end)
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	// Get the number of available CPU cores
	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items // No need for more workers than items
	}

	// Calculate the number of items each worker handles (ceiling division)
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup

	// Start workers equal to the number of CPU cores
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}

		// Skip if there's no range to handle
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	// Wait for all workers to finish processing
	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold
// If below threshold, normal sequential processing is performed
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		// Sequential processing when below threshold
		fn(0, items)
		return
	}

	// Parallel processing when above threshold
	Parallelize(items, fn)
}

// seedScramble mixes the item index into the root seed so that adjacent
// items do not receive correlated generator states.
const seedScramble int64 = -0x61c8864680b583eb // 0x9e3779b97f4a7c15 as int64

// ParallelizeSeeded executes fn once per item, in parallel, handing each
// item its own generator derived deterministically from seed and the item
// index. The derivation does not depend on the worker count, so output is
// identical on any machine.
func ParallelizeSeeded(items int, seed int64, fn func(i int, rng *rand.Rand)) {
	Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			rng := rand.New(rand.NewSource(SubSeed(seed, i)))
			fn(i, rng)
		}
	})
}

// SubSeed derives the generator seed ParallelizeSeeded would use for item i.
// Sequential code paths use it to match the parallel ones exactly.
func SubSeed(seed int64, i int) int64 {
	return seed + seedScramble*int64(i+1)
}
