package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/observe"
	"github.com/jonwraymond/badges/resilience"
)

// DefaultUserAgent identifies the service to upstreams.
const DefaultUserAgent = "badges (+https://github.com/jonwraymond/badges)"

// DefaultMaxBody bounds how much of an upstream body is read, before and
// after gzip decoding.
const DefaultMaxBody = 32 << 20

// Client performs guarded, optionally cached upstream calls.
type Client struct {
	http      *http.Client
	guard     *resilience.Guard
	memo      *cache.Memo
	mw        *observe.Middleware
	userAgent string
	maxBody   int64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithGuard sets the resilience guard.
func WithGuard(g *resilience.Guard) Option {
	return func(c *Client) { c.guard = g }
}

// WithMiddleware sets the telemetry middleware used for upstream calls.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(c *Client) { c.mw = mw }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxBody sets the largest upstream body the client accepts. Larger
// bodies fail with ErrBodyTooLarge.
func WithMaxBody(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// NewClient creates a client that caches through memo. A nil memo gets a
// private in-memory one.
func NewClient(memo *cache.Memo, opts ...Option) *Client {
	c := &Client{
		memo:      memo,
		userAgent: DefaultUserAgent,
		maxBody:   DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.memo == nil {
		c.memo = cache.NewMemo(nil, nil, cache.DefaultPolicy())
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.guard == nil {
		c.guard = resilience.NewGuard(resilience.GuardConfig{
			Circuit: resilience.CircuitBreakerConfig{IsFailure: IsUpstreamFailure},
		})
	}
	if c.mw == nil {
		c.mw = observe.NopMiddleware()
	}
	return c
}

// Memo returns the fetch cache.
func (c *Client) Memo() *cache.Memo { return c.memo }

// Guard returns the resilience guard.
func (c *Client) Guard() *resilience.Guard { return c.guard }

// RoundTrip performs req without caching. Status codes >= 400 return an
// *UpstreamError; anything that prevented a response returns a
// *ConnectivityError.
func (c *Client) RoundTrip(ctx context.Context, req Request) (*Response, error) {
	target, err := req.target()
	if err != nil {
		return nil, &ConnectivityError{URL: req.URL, Err: err}
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, &ConnectivityError{URL: req.URL, Err: err}
	}

	var resp *Response
	op := observe.Operation{Kind: observe.KindUpstream, Name: u.Host}
	err = c.mw.Run(ctx, op, func(ctx context.Context) error {
		return c.guard.Execute(ctx, u.Host, func(ctx context.Context) error {
			r, err := c.do(ctx, req, target)
			resp = r
			return err
		})
	})
	if err == nil {
		return resp, nil
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		c.mw.Logger().Warn(ctx, "upstream error response",
			observe.F("url", upstream.URL),
			observe.F("status", upstream.StatusCode),
			observe.F("headers", upstream.Header),
			observe.F("body", excerpt(upstream.Body)),
		)
		return nil, upstream
	}
	return nil, &ConnectivityError{URL: target, Err: err}
}

func (c *Client) do(ctx context.Context, req Request, target string) (*Response, error) {
	hreq, err := http.NewRequestWithContext(ctx, req.method(), target, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if hreq.Header.Get("User-Agent") == "" {
		hreq.Header.Set("User-Agent", c.userAgent)
	}
	// Setting Accept-Encoding explicitly disables transparent decompression,
	// so the wire size stays observable.
	if req.Gzip {
		hreq.Header.Set("Accept-Encoding", "gzip")
	} else {
		hreq.Header.Set("Accept-Encoding", "identity")
	}

	hresp, err := c.http.Do(hreq)
	if err != nil {
		return nil, err
	}
	defer hresp.Body.Close()

	raw, err := readAtMost(hresp.Body, c.maxBody)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		StatusCode:    hresp.StatusCode,
		Header:        hresp.Header,
		ContentLength: hresp.ContentLength,
		Body:          raw,
		WireSize:      int64(len(raw)),
	}
	if resp.Gzipped() && len(raw) > 0 {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("decode gzip body: %w", err)
		}
		body, err := readAtMost(zr, c.maxBody)
		if err != nil {
			return nil, fmt.Errorf("decode gzip body: %w", err)
		}
		resp.Body = body
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &UpstreamError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       resp.Body,
		}
	}
	return resp, nil
}

// readAtMost reads r fully, failing with ErrBodyTooLarge past limit bytes
// rather than returning a truncated body.
func readAtMost(r io.Reader, limit int64) ([]byte, error) {
	b, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, limit)
	}
	return b, nil
}

// Get performs req through the fetch cache.
func (c *Client) Get(ctx context.Context, req Request, ttl cache.TTLPolicy) (*Response, error) {
	return cache.Do(ctx, c.memo, req.Key(), func(ctx context.Context) (*Response, error) {
		return c.RoundTrip(ctx, req)
	}, ttl)
}

// JSON performs req through the fetch cache and decodes the body into T.
// The decoded value is what gets cached, so ttl may inspect it.
func JSON[T any](ctx context.Context, c *Client, req Request, ttl func(T) time.Duration) (T, error) {
	req.Mode = cache.ModeBody
	if req.Header == nil {
		req.Header = http.Header{}
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	key := req.Key()
	key.Variant += "+json"

	var policy cache.TTLPolicy
	if ttl != nil {
		policy = cache.ByValue(ttl)
	}
	return cache.Do(ctx, c.memo, key, func(ctx context.Context) (T, error) {
		var v T
		resp, err := c.RoundTrip(ctx, req)
		if err != nil {
			return v, err
		}
		if err := json.Unmarshal(resp.Body, &v); err != nil {
			return v, fmt.Errorf("decode %s: %w", req.URL, err)
		}
		return v, nil
	}, policy)
}

func excerpt(b []byte) string {
	const limit = 512
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
