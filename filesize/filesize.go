// Package filesize turns file locations into human-readable size badges.
package filesize

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/jonwraymond/badges/fetch"
)

var (
	// ErrUnknownSource is returned for a source with no base URL.
	ErrUnknownSource = errors.New("filesize: unknown source")

	// ErrNoPath is returned when the file path is empty.
	ErrNoPath = errors.New("filesize: path is required")

	// ErrUnknownSize is returned when the upstream gave no usable size.
	ErrUnknownSize = errors.New("filesize: size could not be determined")
)

// Sources maps a source name to the base URL files are served from.
type Sources map[string]string

// DefaultSources serves "github" paths (user/repo/ref/file) from raw GitHub
// content and "npm" paths (package@version/file) from unpkg.
var DefaultSources = Sources{
	"github": "https://raw.githubusercontent.com",
	"npm":    "https://unpkg.com",
}

// Resolve returns the URL of path on source.
func (s Sources) Resolve(source, path string) (string, error) {
	base, ok := s[source]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSource, source)
	}
	path = strings.TrimLeft(path, "/")
	if path == "" {
		return "", ErrNoPath
	}
	return strings.TrimRight(base, "/") + "/" + path, nil
}

// Resolve resolves path against DefaultSources.
func Resolve(source, path string) (string, error) {
	return DefaultSources.Resolve(source, path)
}

// Lookup returns the size of url formatted with SI units, e.g. "1.2 kB".
// gzip selects the compressed size.
func Lookup(ctx context.Context, client *fetch.Client, url string, gzip bool) (string, error) {
	size, err := client.Size(ctx, fetch.Request{URL: url, Gzip: gzip})
	if err != nil {
		return "", err
	}
	if !size.Known || size.Bytes < 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownSize, url)
	}
	return humanize.Bytes(uint64(size.Bytes)), nil
}
