package fetch

import (
	"bytes"
	"context"
	"net/http"

	"github.com/klauspost/compress/gzip"

	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/observe"
)

// Size is the result of a size probe.
type Size struct {
	Bytes int64 `json:"bytes"`

	// Known is false when the probe could not determine a size. A known
	// zero is a real zero-byte file.
	Known bool `json:"known"`
}

// Size reports the size of req.URL in bytes, compressed when req.Gzip is
// set. A HEAD probe cached for a minute is tried first; when it does not
// carry a usable Content-Length the body is downloaded and measured, and
// that result is cached for an hour.
func (c *Client) Size(ctx context.Context, req Request) (Size, error) {
	probe := Request{
		Method: http.MethodHead,
		URL:    req.URL,
		Query:  req.Query,
		Header: req.Header,
		Mode:   cache.ModeSize,
		Gzip:   req.Gzip,
	}
	size, err := cache.Do(ctx, c.memo, probe.Key(), func(ctx context.Context) (Size, error) {
		resp, err := c.RoundTrip(ctx, probe)
		if err != nil {
			return Size{}, err
		}
		return sizeFromHeaders(resp, req.Gzip), nil
	}, cache.Fixed(cache.OneMinute))
	if err != nil || size.Known {
		return size, err
	}

	c.mw.Logger().Debug(ctx, "size not determined by HEAD, fetching body", observe.F("url", req.URL))

	// Always ask for gzip so the body transfers faster; the variant keeps
	// compressed and raw measurements apart.
	full := Request{
		Method: http.MethodGet,
		URL:    req.URL,
		Query:  req.Query,
		Header: req.Header,
		Mode:   cache.ModeSize,
		Gzip:   true,
	}
	key := full.Key()
	if !req.Gzip {
		key.Variant = "raw"
	}
	return cache.Do(ctx, c.memo, key, func(ctx context.Context) (Size, error) {
		resp, err := c.RoundTrip(ctx, full)
		if err != nil {
			return Size{}, err
		}
		return sizeFromBody(resp, req.Gzip)
	}, cache.Fixed(cache.OneHour))
}

// sizeFromHeaders trusts Content-Length only when the response encoding
// matches the requested compression.
func sizeFromHeaders(resp *Response, gzipped bool) Size {
	if resp.Gzipped() != gzipped || resp.ContentLength < 0 {
		return Size{}
	}
	return Size{Bytes: resp.ContentLength, Known: true}
}

func sizeFromBody(resp *Response, gzipped bool) (Size, error) {
	if s := sizeFromHeaders(resp, gzipped); s.Known {
		return s, nil
	}
	switch {
	case !gzipped:
		return Size{Bytes: int64(len(resp.Body)), Known: true}, nil
	case resp.Gzipped():
		return Size{Bytes: resp.WireSize, Known: true}, nil
	default:
		n, err := GzipSize(resp.Body)
		if err != nil {
			return Size{}, err
		}
		return Size{Bytes: n, Known: true}, nil
	}
}

// GzipSize returns the length of b after gzip compression at the default
// level.
func GzipSize(b []byte) (int64, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(b); err != nil {
		return 0, err
	}
	if err := zw.Close(); err != nil {
		return 0, err
	}
	return int64(buf.Len()), nil
}
