package utils

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"splitget/internal"
)

// DefaultUserAgent is sent when no user agent is configured
const DefaultUserAgent = "splitget/1.0"

// RetryConfig defines retry behavior configuration
type RetryConfig struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterPercent float64
}

// DefaultRetryConfig returns the default retry configuration
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:   3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		Multiplier:    2.0,
		JitterPercent: 0.1,
	}
}

// HTTPClientConfig contains configuration for the HTTP client
type HTTPClientConfig struct {
	Timeout     time.Duration
	ProxyURL    string
	UserAgent   string
	RetryConfig *RetryConfig
}

// HTTPClient issues the metadata and ranged requests of a download.
// HEAD requests are retried with backoff; ranged GETs are attempted once.
type HTTPClient struct {
	client      *http.Client
	userAgent   string
	retryConfig *RetryConfig
}

// NewHTTPClientWithConfig creates a new HTTP client with custom configuration.
// A zero Timeout leaves whole-request duration unbounded, since a segment may be large.
func NewHTTPClientWithConfig(config *HTTPClientConfig) (*HTTPClient, error) {
	if config.RetryConfig == nil {
		config.RetryConfig = DefaultRetryConfig()
	}
	if config.RetryConfig.MaxAttempts < 1 {
		config.RetryConfig.MaxAttempts = 1
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   internal.MaxConnections + 2,
		IdleConnTimeout:       90 * time.Second,
		// Ranges address raw bytes; a transparently decoded body would not match them.
		DisableCompression: true,
	}

	if config.ProxyURL != "" {
		if err := configureProxy(transport, config.ProxyURL); err != nil {
			return nil, internal.NewValidationErrorWithValue("proxy", err.Error(), config.ProxyURL).
				WithSuggestion("Use an http://, https:// or socks5:// proxy URL")
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}

	userAgent := config.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	return &HTTPClient{
		client:      client,
		userAgent:   userAgent,
		retryConfig: config.RetryConfig,
	}, nil
}

// configureProxy sets up proxy configuration for the transport
func configureProxy(transport *http.Transport, proxyURL string) error {
	parsedURL, err := url.Parse(proxyURL)
	if err != nil {
		return fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedURL.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(parsedURL)
	case "socks5", "socks5h":
		var auth *proxy.Auth
		if parsedURL.User != nil {
			password, _ := parsedURL.User.Password()
			auth = &proxy.Auth{User: parsedURL.User.Username(), Password: password}
		}
		dialer, err := proxy.SOCKS5("tcp", parsedURL.Host, auth, proxy.Direct)
		if err != nil {
			return fmt.Errorf("failed to create SOCKS5 proxy: %w", err)
		}
		transport.Proxy = nil
		if contextDialer, ok := dialer.(proxy.ContextDialer); ok {
			transport.DialContext = contextDialer.DialContext
		} else {
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		}
	default:
		return fmt.Errorf("unsupported proxy scheme: %s", parsedURL.Scheme)
	}

	return nil
}

// Head performs a HEAD request, following redirects, with retry logic.
// The returned response has a 2xx status; anything else is an error.
func (c *HTTPClient) Head(ctx context.Context, rawURL string) (*http.Response, error) {
	return c.executeWithRetryContext(ctx, func() (*http.Response, error) {
		req, err := c.newRequest(ctx, http.MethodHead, rawURL)
		if err != nil {
			return nil, err
		}
		return c.do(req)
	})
}

// GetRange performs a single GET with the given Range header value.
// Only 200 and 206 responses are returned; the caller decides which one it accepts.
func (c *HTTPClient) GetRange(ctx context.Context, rawURL, rangeHeader string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, rawURL)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", rangeHeader)

	resp, err := c.do(req)
	if err != nil {
		return nil, classifyTransportError(err, "range request")
	}

	switch resp.StatusCode {
	case http.StatusOK, http.StatusPartialContent:
		return resp, nil
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		return nil, internal.NewDownloadError(resp.StatusCode, "range not satisfiable", internal.ErrRangeFailed).
			WithContext("range", rangeHeader)
	default:
		resp.Body.Close()
		return nil, internal.NewServerError(resp.StatusCode, fmt.Sprintf("unexpected status %s", resp.Status)).
			WithContext("range", rangeHeader)
	}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, internal.NewInvalidURLError(rawURL, err.Error())
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Encoding", "identity")

	return req, nil
}

func (c *HTTPClient) do(req *http.Request) (*http.Response, error) {
	logger := internal.GetLogger()
	logger.LogHTTPRequest(req)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	logger.LogHTTPResponse(resp)
	return resp, nil
}

// executeWithRetryContext executes a function with retry logic and context
func (c *HTTPClient) executeWithRetryContext(ctx context.Context, fn func() (*http.Response, error)) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.calculateDelay(attempt)
			internal.LogDebug("Retrying request in %s (attempt %d/%d): %v", delay, attempt+1, c.retryConfig.MaxAttempts, lastErr)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := fn()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = classifyTransportError(err, "request")
			if !c.isRetryableError(err) {
				return nil, lastErr
			}
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = internal.NewServerError(resp.StatusCode, fmt.Sprintf("unexpected status %s", resp.Status))
			continue
		default:
			resp.Body.Close()
			return nil, internal.NewServerError(resp.StatusCode, fmt.Sprintf("unexpected status %s", resp.Status))
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.retryConfig.MaxAttempts, lastErr)
	}

	return nil, fmt.Errorf("request failed after %d attempts", c.retryConfig.MaxAttempts)
}

// calculateDelay calculates the delay for the next retry attempt
func (c *HTTPClient) calculateDelay(attempt int) time.Duration {
	delay := float64(c.retryConfig.BaseDelay) * math.Pow(c.retryConfig.Multiplier, float64(attempt-1))

	jitter := delay * c.retryConfig.JitterPercent * (rand.Float64()*2 - 1)
	delay += jitter

	if delay > float64(c.retryConfig.MaxDelay) {
		delay = float64(c.retryConfig.MaxDelay)
	}

	if delay < 0 {
		delay = float64(c.retryConfig.BaseDelay)
	}

	return time.Duration(delay)
}

// isRetryableError determines if an error should trigger a retry
func (c *HTTPClient) isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var downloadErr *internal.DownloadError
	if errors.As(err, &downloadErr) {
		return downloadErr.IsRetryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	retryableErrors := []string{
		"timeout",
		"connection refused",
		"connection reset",
		"no such host",
		"network is unreachable",
		"temporary failure",
		"eof",
	}

	for _, retryableErr := range retryableErrors {
		if strings.Contains(errStr, retryableErr) {
			return true
		}
	}

	return false
}

// classifyTransportError turns client timeouts into NetworkTimeout errors and leaves the rest as they are
func classifyTransportError(err error, operation string) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return internal.NewNetworkTimeoutError(operation).WithCause(err)
	}
	return err
}
