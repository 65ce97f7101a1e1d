package badge

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/jonwraymond/badges/aggregate"
	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/fetch"
)

// DefaultShieldsURL is the public Shields.io endpoint.
const DefaultShieldsURL = "https://img.shields.io"

// shieldsTTL is how long a rendered static badge is reused.
const shieldsTTL = 5 * cache.OneDay

// ShieldsRenderer fetches static badges from a Shields.io server.
type ShieldsRenderer struct {
	client  *fetch.Client
	baseURL string
}

// NewShieldsRenderer creates a renderer. An empty baseURL selects
// DefaultShieldsURL.
func NewShieldsRenderer(client *fetch.Client, baseURL string) *ShieldsRenderer {
	if baseURL == "" {
		baseURL = DefaultShieldsURL
	}
	return &ShieldsRenderer{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the Shields.io URL for spec.
func (r *ShieldsRenderer) URL(spec Spec) string {
	path := strings.Join([]string{escapeShields(spec.Label), escapeShields(spec.Value), spec.Color}, "-")
	return r.baseURL + "/badge/" + url.PathEscape(path) + ".svg"
}

// RenderBadge implements BadgeRenderer.
func (r *ShieldsRenderer) RenderBadge(ctx context.Context, spec Spec) ([]byte, error) {
	var query url.Values
	if spec.Style != "" && spec.Style != StyleFlat {
		query = url.Values{"style": {string(spec.Style)}}
	}
	resp, err := r.client.Get(ctx, fetch.Request{
		URL:   r.URL(spec),
		Query: query,
		Mode:  cache.ModeBody,
		Gzip:  true,
	}, cache.Fixed(shieldsTTL))
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// RenderMatrix is not supported by Shields.io.
func (r *ShieldsRenderer) RenderMatrix(context.Context, aggregate.Matrix, MatrixOptions) ([]byte, error) {
	return nil, errors.ErrUnsupported
}

// escapeShields doubles the characters Shields.io uses as separators.
func escapeShields(s string) string {
	s = strings.ReplaceAll(s, "-", "--")
	return strings.ReplaceAll(s, "_", "__")
}
