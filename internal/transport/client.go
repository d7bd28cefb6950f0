package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/CloudNativeWorks/vpm-bootstrap/pkg/logger"
	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/gzip"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultAPITimeout      = 30 * time.Second
	defaultDownloadTimeout = 5 * time.Minute
	defaultMaxBytes        = 512 << 20
	copyBufferSize         = 32 * 1024
	breakerTripFailures    = 2
)

// Error is a request construction, network, status or body read failure.
type Error struct {
	Op         string
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	UserAgent       string
	APITimeout      time.Duration
	DownloadTimeout time.Duration
	MaxBytes        int64
	// RateLimit throttles artifact bodies in bytes per second; 0 disables it.
	RateLimit int64
	// HTTPClient replaces the underlying client. Its Timeout is left alone.
	HTTPClient *http.Client
}

// Client is the blocking HTTP capability the pipeline talks through.
type Client struct {
	httpClient      *http.Client
	userAgent       string
	apiTimeout      time.Duration
	downloadTimeout time.Duration
	maxBytes        int64
	limiter         *rate.Limiter
	breaker         *gobreaker.CircuitBreaker
	log             *logger.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options, log *logger.Logger) *Client {
	c := &Client{
		httpClient:      opts.HTTPClient,
		userAgent:       opts.UserAgent,
		apiTimeout:      opts.APITimeout,
		downloadTimeout: opts.DownloadTimeout,
		maxBytes:        opts.MaxBytes,
		log:             log.Module("transport"),
	}
	if c.httpClient == nil {
		// timeouts are applied per request through the context
		c.httpClient = &http.Client{}
	}
	if c.apiTimeout <= 0 {
		c.apiTimeout = defaultAPITimeout
	}
	if c.downloadTimeout <= 0 {
		c.downloadTimeout = defaultDownloadTimeout
	}
	if c.maxBytes <= 0 {
		c.maxBytes = defaultMaxBytes
	}
	if opts.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), copyBufferSize)
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "http",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerTripFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			c.log.Warnf("Circuit breaker %s state changed from %v to %v", name, from, to)
		},
	})

	return c
}

// GetJSON fetches a JSON document. The body is returned whatever the HTTP
// status, because the endpoint reports its errors as JSON payloads.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.apiTimeout)
	defer cancel()

	body, status, err := c.get(ctx, url, "application/json", nil)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logger.Fields{
		"url":    url,
		"status": status,
		"size":   humanize.Bytes(uint64(len(body))),
	}).Debug("Fetched JSON document")
	return body, nil
}

// Get downloads a raw body and fails unless the status is 2xx.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	body, status, err := c.get(ctx, url, "*/*", c.limiter)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &Error{Op: "download", URL: url, StatusCode: status}
	}

	c.log.WithFields(logger.Fields{
		"url":  url,
		"size": humanize.Bytes(uint64(len(body))),
	}).Info("Downloaded artifact")
	return body, nil
}

func (c *Client) get(ctx context.Context, url, accept string, limiter *rate.Limiter) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, &Error{Op: "build request", URL: url, Err: err}
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Encoding", "gzip")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	type result struct {
		body   []byte
		status int
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, &Error{Op: "send request", URL: url, Err: err}
		}
		defer resp.Body.Close()

		body, err := c.readBody(ctx, resp, limiter)
		if err != nil {
			return nil, &Error{Op: "read response", URL: url, Err: err}
		}
		return result{body: body, status: resp.StatusCode}, nil
	})
	if err != nil {
		if _, ok := err.(*Error); ok {
			return nil, 0, err
		}
		return nil, 0, &Error{Op: "send request", URL: url, Err: err}
	}

	r := out.(result)
	return r.body, r.status, nil
}

func (c *Client) readBody(ctx context.Context, resp *http.Response, limiter *rate.Limiter) ([]byte, error) {
	var src io.Reader = resp.Body
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip body: %w", err)
		}
		defer zr.Close()
		src = zr
	}

	// one extra byte tells an exactly-full body from an oversized one
	src = io.LimitReader(src, c.maxBytes+1)

	var buf bytes.Buffer
	if resp.ContentLength > 0 && resp.ContentLength <= c.maxBytes {
		buf.Grow(int(resp.ContentLength))
	}
	written, err := CopyWithContext(ctx, &buf, src, limiter)
	if err != nil {
		return nil, err
	}
	if written > c.maxBytes {
		return nil, fmt.Errorf("body exceeds limit of %s", humanize.Bytes(uint64(c.maxBytes)))
	}
	return buf.Bytes(), nil
}
