package digest

import (
	"context"
	"sync"
)

// Result is the outcome of fingerprinting one file.
type Result struct {
	Path  string
	Sum   []byte
	Bytes int64
	Err   error
}

// Pool fans file fingerprinting across workers and merges the results
// into a map keyed by path. Completion order is not significant; the
// caller iterates its own candidate sequence, so reporting stays
// deterministic regardless of worker scheduling.
//
// Workers stop early when ctx is cancelled; paths not processed are
// absent from the returned map.
func Pool(ctx context.Context, eng *Engine, paths []string, workers int) map[string]Result {
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan string)
	results := make(chan Result)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				sum, n, err := eng.File(path)
				select {
				case results <- Result{Path: path, Sum: sum, Bytes: n, Err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, p := range paths {
			select {
			case jobs <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	merged := make(map[string]Result, len(paths))
	for r := range results {
		merged[r.Path] = r
	}
	return merged
}
