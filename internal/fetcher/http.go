package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/andybalholm/brotli"

	"shelfstalk/internal/config"
	"shelfstalk/internal/types"
)

// HTTPFetcher fetches pages over net/http with browser-like headers,
// User-Agent rotation, and transparent gzip/deflate/brotli decompression.
type HTTPFetcher struct {
	client       *http.Client
	cfg          *config.FetcherConfig
	crawlCfg     *config.CrawlConfig
	proxyMgr     *ProxyManager
	rotateOnFail bool
	logger       *slog.Logger
	cookieHeader string
	userAgents   []string
	uaIndex      atomic.Int64
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Fetcher.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
		},
		DisableCompression: true, // We handle decompression ourselves (including brotli)
	}

	var proxyMgr *ProxyManager
	if cfg.Proxy.Enabled && len(cfg.Proxy.URLs) > 0 {
		proxyMgr = NewProxyManager(&cfg.Proxy, logger)
		transport.Proxy = proxyMgr.ProxyFunc()
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.Fetcher.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.Fetcher.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
		}
		return nil
	}

	client := &http.Client{
		Transport:     transport,
		Jar:           jar,
		Timeout:       cfg.Crawl.RequestTimeout,
		CheckRedirect: redirectPolicy,
	}

	cookieHeader := BuildCookieHeader(cfg.Crawl.Cookies, cfg.Crawl.CookiesJSON, logger)

	return &HTTPFetcher{
		client:       client,
		cfg:          &cfg.Fetcher,
		crawlCfg:     &cfg.Crawl,
		proxyMgr:     proxyMgr,
		rotateOnFail: cfg.Proxy.RotateOnFail,
		logger:       logger.With("component", "http_fetcher"),
		cookieHeader: cookieHeader,
		userAgents:   cfg.Crawl.UserAgents,
	}, nil
}

// Fetch executes an HTTP GET for the request and returns the response.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	var proxy *url.URL
	if f.proxyMgr != nil {
		if proxy = f.proxyMgr.Next(); proxy != nil {
			ctx = WithProxy(ctx, proxy)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URLString(), nil)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}

	f.applyHeaders(httpReq, req)

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		if isRetryableError(err) {
			f.markProxyFailed(proxy, err)
			return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
		}
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}
	defer httpResp.Body.Close()

	// Handle 429 Too Many Requests — respect Retry-After if present
	if httpResp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(httpResp.Header.Get("Retry-After"))
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		f.markProxyFailed(proxy, errors.New("HTTP 429: rate limited"))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP 429: rate limited (retry after %s): %s", retryAfter, strings.TrimSpace(string(body))),
			Retryable:  true,
			RetryAfter: retryAfter,
		}
	}

	// Retry on 5xx server errors
	if httpResp.StatusCode >= 500 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, string(body)),
			Retryable:  true,
		}
	}

	// Blocked-session status codes are permanent for this request
	if httpResp.StatusCode == http.StatusUnauthorized || httpResp.StatusCode == http.StatusForbidden {
		return nil, &types.FetchError{
			URL:        req.URLString(),
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: blocked", httpResp.StatusCode),
			Retryable:  false,
		}
	}

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}

	resp := types.NewResponse(req, httpResp, body, duration)

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return resp, nil
}

// markProxyFailed drops the proxy that carried a failed request out of
// rotation, when rotate_on_fail is enabled. Connection failures and rate
// limits are charged to the proxy; origin 5xx responses are not.
func (f *HTTPFetcher) markProxyFailed(proxy *url.URL, err error) {
	if f.proxyMgr == nil || !f.rotateOnFail || proxy == nil {
		return
	}
	f.proxyMgr.MarkFailed(proxy, err)
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// applyHeaders sets the browser fingerprint header set plus rotating
// User-Agent and configured cookie material.
func (f *HTTPFetcher) applyHeaders(httpReq *http.Request, req *types.Request) {
	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	httpReq.Header.Set("Cache-Control", "no-cache")
	httpReq.Header.Set("Pragma", "no-cache")
	httpReq.Header.Set("Sec-Ch-Ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
	httpReq.Header.Set("Sec-Ch-Ua-Mobile", "?0")
	httpReq.Header.Set("Sec-Ch-Ua-Platform", `"Windows"`)
	httpReq.Header.Set("Sec-Fetch-Dest", "document")
	httpReq.Header.Set("Sec-Fetch-Mode", "navigate")
	httpReq.Header.Set("Sec-Fetch-Site", "same-origin")
	httpReq.Header.Set("Sec-Fetch-User", "?1")
	httpReq.Header.Set("Upgrade-Insecure-Requests", "1")
	httpReq.Header.Set("Connection", "keep-alive")

	if req.URL != nil {
		httpReq.Header.Set("Referer", req.URL.Scheme+"://"+req.URL.Host+"/")
	}
	if f.cookieHeader != "" {
		httpReq.Header.Set("Cookie", f.cookieHeader)
	}
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "shelfstalk/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a network error warrants a retry.
// Covers timeouts, connection resets, unexpected EOF, and connection refused.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	// Context cancellation is NOT retryable
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	if netErr, ok := err.(net.Error); ok {
		if netErr.Timeout() {
			return true
		}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNRESET) ||
			errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return true
		}
	}
	return false
}

// parseRetryAfter parses the Retry-After header value.
// Supports both integer seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 5 * time.Second // default back-off
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(header)); err == nil {
		if secs > 120 {
			secs = 120 // cap at 2 minutes
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		d := time.Until(t)
		if d < 0 {
			return time.Second
		}
		if d > 2*time.Minute {
			return 2 * time.Minute
		}
		return d
	}
	return 5 * time.Second
}

// RandomDelay returns a random delay around the base duration (±25%),
// used for human-like request pacing.
func RandomDelay(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	jitter := float64(base) * 0.25
	return base + time.Duration(rand.Float64()*2*jitter-jitter)
}
