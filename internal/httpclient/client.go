// Package httpclient provides the shared HTTP client used by discovery
// and polling: conditional GET support plus global and per-host
// concurrency ceilings. The per-source request *rate* is enforced
// separately by the poller's rate limiter; this package only bounds
// concurrency.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DefaultUserAgent identifies the backend to upstream providers.
const DefaultUserAgent = "nhl-led-scoreboard/2.0"

// Config holds client construction settings.
type Config struct {
	// MaxConcurrent is the global in-flight request ceiling.
	MaxConcurrent int
	// MaxPerHost is the in-flight ceiling per upstream host.
	MaxPerHost int
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
	// RequestTimeout bounds a whole request unless a fetch overrides it.
	RequestTimeout time.Duration
	// UserAgent overrides the default User-Agent header.
	UserAgent string
}

// FetchParams describes one conditional GET.
type FetchParams struct {
	URL string
	// ETag, when set, is sent as If-None-Match.
	ETag string
	// LastModified, when set, is sent as If-Modified-Since.
	LastModified string
	// Timeout overrides the client default when positive.
	Timeout time.Duration
	// APIKey, when set, is sent as a bearer token.
	APIKey string
}

// FetchResponse is the result of a fetch. Body is empty for 304
// responses.
type FetchResponse struct {
	StatusCode   int
	Body         []byte
	ETag         string
	LastModified string
}

// NotModified reports whether the upstream returned 304.
func (r *FetchResponse) NotModified() bool {
	return r.StatusCode == http.StatusNotModified
}

// Client is the shared HTTP client. Safe for concurrent use.
type Client struct {
	http       *http.Client
	userAgent  string
	timeout    time.Duration
	sem        chan struct{}
	maxPerHost int

	mu       sync.Mutex
	hostSems map[string]chan struct{}
}

// New creates a client with the given limits.
func New(cfg Config) *Client {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.MaxPerHost <= 0 {
		cfg.MaxPerHost = 3
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		MaxIdleConns:        cfg.MaxConcurrent,
		MaxIdleConnsPerHost: cfg.MaxPerHost,
		IdleConnTimeout:     30 * time.Second,
	}

	return &Client{
		http:       &http.Client{Transport: transport},
		userAgent:  cfg.UserAgent,
		timeout:    cfg.RequestTimeout,
		sem:        make(chan struct{}, cfg.MaxConcurrent),
		maxPerHost: cfg.MaxPerHost,
		hostSems:   make(map[string]chan struct{}),
	}
}

// Fetch performs a GET with optional conditional headers. It blocks
// while the global or per-host ceiling is saturated, observing ctx.
func (c *Client) Fetch(ctx context.Context, params FetchParams) (*FetchResponse, error) {
	host, err := extractHost(params.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch host: %w", err)
	}

	if acquireErr := c.acquire(ctx, host); acquireErr != nil {
		return nil, acquireErr
	}
	defer c.release(host)

	timeout := c.timeout
	if params.Timeout > 0 {
		timeout = params.Timeout
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodGet, params.URL, http.NoBody)
	if reqErr != nil {
		return nil, fmt.Errorf("fetch new request: %w", reqErr)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	setConditionalHeaders(req, params.ETag, params.LastModified)

	if params.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+params.APIKey)
	}

	resp, doErr := c.http.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("fetch do request: %w", doErr)
	}
	defer resp.Body.Close()

	return buildFetchResponse(resp)
}

// CloseIdleConnections releases pooled connections. Called once all
// polling loops have acknowledged shutdown.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

// acquire takes the global slot first, then the host slot. Both are
// released together by release.
func (c *Client) acquire(ctx context.Context, host string) error {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	hostSem := c.hostSem(host)

	select {
	case hostSem <- struct{}{}:
	case <-ctx.Done():
		<-c.sem
		return ctx.Err()
	}

	return nil
}

// release returns both slots.
func (c *Client) release(host string) {
	<-c.hostSem(host)
	<-c.sem
}

// hostSem returns the semaphore for a host, creating it on first use.
func (c *Client) hostSem(host string) chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	sem, ok := c.hostSems[host]
	if !ok {
		sem = make(chan struct{}, c.maxPerHost)
		c.hostSems[host] = sem
	}

	return sem
}

// setConditionalHeaders adds If-None-Match and If-Modified-Since when
// non-empty values are provided.
func setConditionalHeaders(req *http.Request, etag, lastModified string) {
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
}

// buildFetchResponse reads the response body and extracts the caching
// headers.
func buildFetchResponse(resp *http.Response) (*FetchResponse, error) {
	result := &FetchResponse{
		StatusCode:   resp.StatusCode,
		ETag:         resp.Header.Get("ETag"),
		LastModified: resp.Header.Get("Last-Modified"),
	}

	if resp.StatusCode != http.StatusNotModified {
		raw, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("fetch read body: %w", readErr)
		}

		result.Body = raw
	}

	return result, nil
}

// extractHost returns the host component of a URL.
func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}

	return parsed.Host, nil
}
