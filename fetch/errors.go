package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jonwraymond/badges/resilience"
)

// ErrNoURL is returned for a request without a URL.
var ErrNoURL = errors.New("fetch: request URL is empty")

// ErrBodyTooLarge is returned when an upstream body exceeds the client's
// limit. Nothing is measured or cached from a partial body.
var ErrBodyTooLarge = errors.New("fetch: upstream body too large")

// UpstreamError is returned when an upstream answers with status >= 400.
type UpstreamError struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// ConnectivityError is returned when no usable response was received:
// transport failures, timeouts and calls rejected by the guard.
type ConnectivityError struct {
	URL string
	Err error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// IsUpstreamFailure reports whether err should count against an upstream
// host's circuit. Client errors, oversized bodies, caller cancellation and
// calls the guard refused without dialing do not.
func IsUpstreamFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrBodyTooLarge) || resilience.IsRejection(err) {
		return false
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode >= 500
	}
	return true
}

// StatusCode returns the upstream status carried by err, or 0.
func StatusCode(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode
	}
	return 0
}
