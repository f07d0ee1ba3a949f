package downloader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"splitget/internal"
	"splitget/utils"
)

// testData returns n deterministic, non-repeating-looking bytes
func testData(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte((i*31 + i/251) % 256)
	}
	return data
}

func newTestClient(t *testing.T) *utils.HTTPClient {
	t.Helper()
	client, err := utils.NewHTTPClientWithConfig(&utils.HTTPClientConfig{
		RetryConfig: &utils.RetryConfig{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			MaxDelay:    5 * time.Millisecond,
			Multiplier:  2,
		},
	})
	if err != nil {
		t.Fatalf("Failed to create HTTP client: %v", err)
	}
	return client
}

// fakeDoer serves data from memory and records every request
type fakeDoer struct {
	data []byte

	mutex       sync.Mutex
	heads       int
	ranges      []string
	cutAt       int64 // bodies fail once this absolute offset is reached; 0 disables
	ignoreRange bool
	getErr      error
}

func newFakeDoer(data []byte) *fakeDoer {
	return &fakeDoer{data: data}
}

func (d *fakeDoer) Head(ctx context.Context, url string) (*http.Response, error) {
	d.mutex.Lock()
	d.heads++
	d.mutex.Unlock()

	req, _ := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	return &http.Response{
		StatusCode:    http.StatusOK,
		Header:        http.Header{},
		Body:          io.NopCloser(bytes.NewReader(nil)),
		ContentLength: int64(len(d.data)),
		Request:       req,
	}, nil
}

func (d *fakeDoer) GetRange(ctx context.Context, url, rangeHeader string) (*http.Response, error) {
	d.mutex.Lock()
	d.ranges = append(d.ranges, rangeHeader)
	cutAt, ignoreRange, getErr := d.cutAt, d.ignoreRange, d.getErr
	d.mutex.Unlock()

	if getErr != nil {
		return nil, getErr
	}

	if ignoreRange {
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       io.NopCloser(bytes.NewReader(d.data)),
		}, nil
	}

	var start, end int64
	if _, err := fmt.Sscanf(rangeHeader, "bytes=%d-%d", &start, &end); err != nil {
		return nil, fmt.Errorf("bad range %q: %w", rangeHeader, err)
	}

	var body io.Reader = bytes.NewReader(d.data[start : end+1])
	if cutAt > start && cutAt <= end {
		body = io.MultiReader(bytes.NewReader(d.data[start:cutAt]), failingReader{})
	}

	return &http.Response{
		StatusCode: http.StatusPartialContent,
		Header:     http.Header{},
		Body:       io.NopCloser(body),
	}, nil
}

func (d *fakeDoer) rangeRequests() []string {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return append([]string(nil), d.ranges...)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("read: connection reset by peer")
}

// recordingSink is a ProgressSink that keeps everything it is told
type recordingSink struct {
	mutex    sync.Mutex
	reported map[int]int64
	totals   map[int]int64
	setCalls int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		reported: make(map[int]int64),
		totals:   make(map[int]int64),
	}
}

func (s *recordingSink) AddPart(index int, total, initial int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.totals[index] = total
	s.reported[index] += initial
}

func (s *recordingSink) Report(index int, delta int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.reported[index] += delta
}

func (s *recordingSink) SetTotal(index int, total int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.totals[index] = total
	s.setCalls++
}

func (s *recordingSink) get(index int) (reported, total int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.reported[index], s.totals[index]
}

var _ internal.ProgressSink = (*recordingSink)(nil)
var _ internal.HTTPDoer = (*fakeDoer)(nil)
