package internal

import (
	"context"
	"net/http"
)

// HTTPDoer performs HEAD and ranged GET requests
type HTTPDoer interface {
	Head(ctx context.Context, url string) (*http.Response, error)
	GetRange(ctx context.Context, url, rangeHeader string) (*http.Response, error)
}

// ProgressSink receives byte progress from concurrently running fetchers.
// Implementations must tolerate concurrent calls.
type ProgressSink interface {
	// AddPart registers a segment with its planned size and the bytes already on disk
	AddPart(index int, total, initial int64)
	Report(index int, delta int64)
	SetTotal(index int, total int64)
}
