package downloader

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"splitget/internal"
)

// FetchFunc transfers one range and reports how it went
type FetchFunc func(ctx context.Context, spec *internal.RangeSpec) internal.SegmentReport

// Scheduler runs one task per range with a bounded number in flight
type Scheduler struct {
	maxConnections int
	sem            *semaphore.Weighted
}

// NewScheduler creates a scheduler allowing maxConnections concurrent
// transfers, clamped to [1, MaxConnections].
func NewScheduler(maxConnections int) *Scheduler {
	n := internal.ClampConnections(maxConnections)
	return &Scheduler{
		maxConnections: n,
		sem:            semaphore.NewWeighted(int64(n)),
	}
}

// MaxConnections returns the concurrency bound
func (s *Scheduler) MaxConnections() int {
	return s.maxConnections
}

// Run starts a goroutine per spec, each waiting for a permit before calling
// fetch, and returns once all have finished. A failed task does not stop the
// others. Reports are in spec order. Tasks still waiting when ctx is done
// report ctx.Err() without calling fetch.
func (s *Scheduler) Run(ctx context.Context, specs []*internal.RangeSpec, fetch FetchFunc) []internal.SegmentReport {
	reports := make([]internal.SegmentReport, len(specs))

	var wg sync.WaitGroup
	for i, spec := range specs {
		wg.Add(1)
		go func(i int, spec *internal.RangeSpec) {
			defer wg.Done()

			if err := s.sem.Acquire(ctx, 1); err != nil {
				reports[i] = internal.SegmentReport{Index: spec.Index, Declared: spec.Size, Err: err}
				return
			}
			defer s.sem.Release(1)

			reports[i] = fetch(ctx, spec)
		}(i, spec)
	}
	wg.Wait()

	return reports
}
