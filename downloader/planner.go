package downloader

import (
	"fmt"

	"splitget/internal"
)

// DownloadPlanner partitions a remote object into contiguous byte ranges
type DownloadPlanner struct {
	maxConnections int
}

// NewDownloadPlanner creates a new instance of DownloadPlanner
func NewDownloadPlanner() *DownloadPlanner {
	return &DownloadPlanner{
		maxConnections: internal.MaxConnections,
	}
}

// PlanDownload builds the plan for an object of length bytes fetched over
// the requested number of connections, clamped to [1, MaxConnections].
func (p *DownloadPlanner) PlanDownload(length int64, connections int) ([]*internal.RangeSpec, error) {
	if length < 0 {
		return nil, fmt.Errorf("invalid object length: %d", length)
	}

	n := connections
	if n > p.maxConnections {
		n = p.maxConnections
	}

	specs := Plan(length, n)
	if err := ValidatePlan(specs, length); err != nil {
		return nil, err
	}
	return specs, nil
}

// Plan splits length into n specs indexed 1..n. Every spec gets length/n
// bytes except the last, which absorbs the remainder. n below 1 is treated as 1.
func Plan(length int64, n int) []*internal.RangeSpec {
	if n < 1 {
		n = 1
	}

	base := length / int64(n)
	specs := make([]*internal.RangeSpec, 0, n)

	for i := 0; i < n; i++ {
		size := base
		if i == n-1 {
			size = length - base*int64(n-1)
		}
		specs = append(specs, &internal.RangeSpec{
			Index:  i + 1,
			Offset: int64(i) * base,
			Size:   size,
		})
	}

	return specs
}

// ValidatePlan checks that specs are indexed 1..n, contiguous from byte 0 and sum to length
func ValidatePlan(specs []*internal.RangeSpec, length int64) error {
	if len(specs) == 0 {
		return fmt.Errorf("plan has no ranges")
	}

	var next int64
	for i, spec := range specs {
		if spec.Index != i+1 {
			return fmt.Errorf("range %d has index %d", i+1, spec.Index)
		}
		if spec.Size < 0 {
			return fmt.Errorf("range %d has negative size %d", spec.Index, spec.Size)
		}
		if spec.Offset != next {
			return fmt.Errorf("range %d starts at %d, expected %d", spec.Index, spec.Offset, next)
		}
		next = spec.End()
	}

	if next != length {
		return fmt.Errorf("ranges cover %d bytes, expected %d", next, length)
	}
	return nil
}
