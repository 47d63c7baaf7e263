// Package upstream holds the HTTP plumbing shared by the market-data
// platform clients: throttled GETs, status mapping, GBK decoding and JSONP
// unwrapping.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/lofbot/internal/domain"
)

// maxBody caps how much of a response is read. The fund code search script
// is the largest payload at a few megabytes.
const maxBody = 16 << 20

// Config configures a Client.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
	Referer   string
	// RatePerSecond throttles outbound requests; 0 disables throttling.
	RatePerSecond float64
	Burst         int
}

// Client performs GET requests against one upstream host.
type Client struct {
	baseURL    string
	userAgent  string
	referer    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// New creates a Client from cfg.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  cfg.UserAgent,
		referer:    cfg.Referer,
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return c
}

// BaseURL returns the host root requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Get fetches baseURL+path with the given query and returns the raw body.
func (c *Client) Get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	return c.GetURL(ctx, c.baseURL+path, query)
}

// GetURL fetches an absolute URL. It waits on the client's rate limiter
// first, so a cancelled context returns before any request is sent.
func (c *Client) GetURL(ctx context.Context, rawURL string, query url.Values) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}
	if len(query) > 0 {
		rawURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.referer != "" {
		req.Header.Set("Referer", c.referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http request: %w", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrUpstreamUnavailable, err)
	}
	if err := CheckStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

// CheckStatus maps non-2xx responses onto domain errors. Statuses without a
// more specific mapping are reported as ErrUpstreamUnavailable.
func CheckStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	snippet := string(body)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, snippet)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, snippet)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, snippet)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrUpstreamUnavailable, statusCode, snippet)
	}
}

// DecodeGBK converts a GBK/GB18030 body into UTF-8.
func DecodeGBK(b []byte) ([]byte, error) {
	out, err := simplifiedchinese.GB18030.NewDecoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("decode gbk: %w", err)
	}
	return out, nil
}

// StripJSONP returns the payload between the outermost parentheses of a
// JSONP response such as `jQuery({...});`.
func StripJSONP(b []byte) ([]byte, error) {
	start := bytes.IndexByte(b, '(')
	end := bytes.LastIndexByte(b, ')')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("jsonp: no callback payload")
	}
	return bytes.TrimSpace(b[start+1 : end]), nil
}

var quotedAssignment = regexp.MustCompile(`="([^"]*)"`)

// QuotedAssignment extracts the string literal from a JS assignment such as
// `var hq_str_sz161725="...";`. It returns false for an empty literal, which
// is how quote feeds signal an unknown symbol.
func QuotedAssignment(b []byte) (string, bool) {
	m := quotedAssignment.FindSubmatch(b)
	if m == nil || len(m[1]) == 0 {
		return "", false
	}
	return string(m[1]), true
}
