package parallel

import (
	"errors"
	"fmt"
	"sync"
)

// ErrTaskPanicked is returned by ForEachChunk when a chunk function panicked.
var ErrTaskPanicked = errors.New("parallel task panicked")

// ChunkSize splits n items across workers, rounding up (overflow-safe).
func ChunkSize(n, workers int) int {
	if n <= 0 || workers <= 0 {
		return 1
	}
	size := int((int64(n) + int64(workers) - 1) / int64(workers))
	if size < 1 {
		size = 1
	}
	return size
}

// ForEachChunk divides [0, n) into at most Workers() contiguous chunks and
// runs fn(chunk, lo, hi) for each on the pool, blocking until all finish.
// chunk is in [0, Workers()) and unique among concurrent calls, so callers
// may index per-worker scratch space with it.
//
// Chunks run inline when the pool has been closed.
func (wp *WorkerPool) ForEachChunk(n int, fn func(chunk, lo, hi int)) error {
	if n <= 0 {
		return nil
	}

	size := ChunkSize(n, wp.workers)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		panicked error
	)

	for chunk, lo := 0, 0; lo < n; chunk, lo = chunk+1, lo+size {
		hi := lo + size
		if hi > n {
			hi = n
		}

		chunk, lo := chunk, lo
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					mu.Lock()
					if panicked == nil {
						panicked = fmt.Errorf("%w: chunk %d [%d, %d): %v", ErrTaskPanicked, chunk, lo, hi, r)
					}
					mu.Unlock()
				}
			}()
			fn(chunk, lo, hi)
		}

		wg.Add(1)
		if !wp.Submit(task) {
			task()
		}
	}

	wg.Wait()
	return panicked
}
