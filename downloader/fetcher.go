package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"splitget/internal"
)

const copyBufferSize = 32 * 1024

type discardSink struct{}

func (discardSink) AddPart(int, int64, int64) {}
func (discardSink) Report(int, int64)         {}
func (discardSink) SetTotal(int, int64)       {}

// SegmentFetcher transfers one range of the target into its segment file,
// resuming from whatever the segment already holds.
type SegmentFetcher struct {
	client     internal.HTTPDoer
	store      *SegmentStore
	url        string
	sink       internal.ProgressSink
	singlePart bool
}

// NewSegmentFetcher creates a fetcher for url. In single-part mode the sink's
// total for the segment follows the bytes received instead of the planned size.
func NewSegmentFetcher(client internal.HTTPDoer, store *SegmentStore, url string, sink internal.ProgressSink, singlePart bool) *SegmentFetcher {
	if sink == nil {
		sink = discardSink{}
	}
	return &SegmentFetcher{
		client:     client,
		store:      store,
		url:        url,
		sink:       sink,
		singlePart: singlePart,
	}
}

// Fetch brings the segment of spec up to its planned size. spec is advanced
// past the bytes found on disk. Failures are not retried; the segment keeps
// every byte written before the failure.
func (f *SegmentFetcher) Fetch(ctx context.Context, spec *internal.RangeSpec) (report internal.SegmentReport) {
	start := time.Now()
	report = internal.SegmentReport{Index: spec.Index, Declared: spec.Size}
	defer func() { report.Elapsed = time.Since(start) }()

	file, existing, err := f.store.Open(spec)
	if err != nil {
		report.Err = err
		return report
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && report.Err == nil {
			report.Err = internal.NewFileSystemError("close", f.store.PartPath(spec.Index), cerr)
		}
	}()

	report.Resumed = existing
	spec.Advance(existing)

	if spec.Size == 0 {
		internal.LogDebug("Part-%d already complete (%d bytes)", spec.Index, existing)
		return report
	}
	if existing > 0 {
		internal.LogInfo("Part-%d resuming from byte %d", spec.Index, spec.Offset)
	}

	resp, err := f.client.GetRange(ctx, f.url, spec.Header())
	if err != nil {
		report.Err = internal.NewSegmentError(spec.Index, err)
		return report
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK && spec.Offset != 0 {
		report.Err = internal.NewSegmentError(spec.Index,
			internal.NewDownloadError(resp.StatusCode, "server ignored the Range header", internal.ErrRangeFailed))
		return report
	}

	written, err := f.copySegment(ctx, file, io.LimitReader(resp.Body, spec.Size), spec.Index, existing)
	report.Written = written
	if f.singlePart {
		report.Declared = existing + written
	}

	var writeErr *segmentWriteError
	if errors.As(err, &writeErr) {
		report.Err = internal.NewFileSystemError("write", f.store.PartPath(spec.Index), writeErr.err)
		return report
	}
	if err != nil {
		report.Err = internal.NewSegmentError(spec.Index, err)
		return report
	}
	if written < spec.Size {
		report.Err = internal.NewSegmentError(spec.Index,
			fmt.Errorf("body ended after %d of %d bytes: %w", written, spec.Size, io.ErrUnexpectedEOF))
		return report
	}

	internal.LogDebug("Part-%d => downloaded %d of %d bytes", spec.Index, report.Total(), report.Declared)
	return report
}

// segmentWriteError marks a failure on the local segment file, as opposed to the response body
type segmentWriteError struct {
	err error
}

func (e *segmentWriteError) Error() string { return e.err.Error() }
func (e *segmentWriteError) Unwrap() error { return e.err }

// copySegment appends src to dst chunk by chunk, reporting each chunk to the sink.
// Failures writing dst are returned as *segmentWriteError.
func (f *SegmentFetcher) copySegment(ctx context.Context, dst io.Writer, src io.Reader, index int, base int64) (int64, error) {
	buffer := make([]byte, copyBufferSize)
	var totalWritten int64

	for {
		n, err := src.Read(buffer)
		if n > 0 {
			written, writeErr := dst.Write(buffer[:n])
			totalWritten += int64(written)
			if written > 0 {
				f.sink.Report(index, int64(written))
				if f.singlePart {
					f.sink.SetTotal(index, base+totalWritten)
				}
			}

			if writeErr != nil {
				return totalWritten, &segmentWriteError{err: writeErr}
			}
			if written != n {
				return totalWritten, &segmentWriteError{err: io.ErrShortWrite}
			}
		}

		if err != nil {
			if err == io.EOF {
				return totalWritten, nil
			}
			return totalWritten, err
		}

		select {
		case <-ctx.Done():
			return totalWritten, ctx.Err()
		default:
		}
	}
}
