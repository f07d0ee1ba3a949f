package downloader

import (
	"context"
	"net/http"
	"strconv"

	"splitget/internal"
	"splitget/utils"
)

// Prober learns the length and name of a remote object without fetching it
type Prober struct {
	client internal.HTTPDoer
}

// NewProber creates a prober issuing requests through client
func NewProber(client internal.HTTPDoer) *Prober {
	return &Prober{client: client}
}

// Probe issues a HEAD request for rawURL. A failed request or a response
// without Content-Length yields Length 0; the failure is kept in Err.
func (p *Prober) Probe(ctx context.Context, rawURL string) internal.ProbeResult {
	result := internal.ProbeResult{FinalURL: rawURL}

	resp, err := p.client.Head(ctx, rawURL)
	if err != nil {
		result.Err = err
		result.Filename = utils.ResolveFilename("", rawURL)
		return result
	}
	defer resp.Body.Close()

	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}
	result.Filename = utils.ResolveFilename(result.FinalURL, rawURL)
	result.Length = contentLength(resp)

	internal.LogDebug("Probe %s: length=%d filename=%q", result.FinalURL, result.Length, result.Filename)
	return result
}

func contentLength(resp *http.Response) int64 {
	if resp.ContentLength > 0 {
		return resp.ContentLength
	}
	if header := resp.Header.Get("Content-Length"); header != "" {
		if n, err := strconv.ParseInt(header, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return 0
}
