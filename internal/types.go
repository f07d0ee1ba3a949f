package internal

import (
	"fmt"
	"time"
)

// RangeSpec describes one contiguous byte interval of the remote object
type RangeSpec struct {
	Index  int   `json:"index"`
	Offset int64 `json:"offset"`
	Size   int64 `json:"size"`
}

// Header renders the inclusive HTTP Range header value for the range
func (r *RangeSpec) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Offset, r.Offset+r.Size-1)
}

// End returns the offset one past the last byte of the range
func (r *RangeSpec) End() int64 {
	return r.Offset + r.Size
}

// Advance moves the range forward by n bytes already present on disk.
// Size never goes below zero; a fully satisfied range has nothing left to fetch.
func (r *RangeSpec) Advance(n int64) {
	if n <= 0 {
		return
	}
	if n > r.Size {
		n = r.Size
	}
	r.Offset += n
	r.Size -= n
}

// ProbeResult is what a metadata-only request learned about the remote object
type ProbeResult struct {
	Length   int64
	Filename string
	FinalURL string
	Err      error
}

// SegmentReport is the completion record of one segment fetch
type SegmentReport struct {
	Index    int
	Resumed  int64 // bytes already on disk before this run
	Written  int64 // bytes appended during this run
	Declared int64 // planned size of the segment, or its grown size in single-part mode
	Err      error
	Elapsed  time.Duration
}

// Total returns the number of bytes the segment holds after the fetch
func (r SegmentReport) Total() int64 {
	return r.Resumed + r.Written
}

// OK reports whether the segment completed without error
func (r SegmentReport) OK() bool {
	return r.Err == nil
}

// DownloadConfig contains configuration for a download session
type DownloadConfig struct {
	URL            string
	Dir            string
	PartsDir       string
	MaxConnections int
}
