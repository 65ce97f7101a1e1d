package fetch

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/jonwraymond/badges/cache"
)

// Request describes one upstream call.
type Request struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Mode   cache.Mode

	// Gzip asks the upstream for a gzip-encoded transfer. For size probes it
	// also selects the compressed size.
	Gzip bool
}

// Key returns the cache identity of the request. Headers are not part of
// the identity; compression is.
func (r Request) Key() cache.FetchKey {
	k := cache.FetchKey{
		Method: r.method(),
		URL:    r.URL,
		Query:  r.Query,
		Mode:   r.Mode,
	}
	if r.Gzip {
		k.Variant = "gzip"
	}
	return k
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(r.Method)
}

// target returns the full URL with Query merged into any existing query.
func (r Request) target() (string, error) {
	if r.URL == "" {
		return "", ErrNoURL
	}
	if len(r.Query) == 0 {
		return r.URL, nil
	}
	u, err := url.Parse(r.URL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range r.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Header     http.Header

	// ContentLength is the declared length, or -1 when absent.
	ContentLength int64

	// Body is the decoded body.
	Body []byte

	// WireSize is the number of body bytes received before decoding.
	WireSize int64
}

// Gzipped reports whether the upstream sent a gzip-encoded body.
func (r *Response) Gzipped() bool {
	return strings.EqualFold(r.Header.Get("Content-Encoding"), "gzip")
}
