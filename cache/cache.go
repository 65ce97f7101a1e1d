package cache

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode"
)

// MaxKeyLength bounds the store keys a Keyer may produce.
const MaxKeyLength = 256

var (
	ErrNilCache   = errors.New("cache: memo is nil")
	ErrInvalidKey = errors.New("cache: invalid store key")
	ErrKeyTooLong = errors.New("cache: store key too long")
)

// Store retains resolved upstream results until their TTL elapses.
//
// Implementations are shared by every in-flight badge request and must be
// safe for concurrent use. Expiry may be lazy: an entry past its deadline is
// simply reported as a miss.
type Store interface {
	Get(ctx context.Context, key string) (any, bool)

	// Set retains value for ttl. A ttl of zero or less retains nothing.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete is a no-op for unknown keys.
	Delete(ctx context.Context, key string) error

	// Purge drops every entry and reports how many were held.
	Purge(ctx context.Context) int

	Len() int
}

// ValidateKey rejects store keys a Keyer should never emit: empty keys, keys
// containing whitespace or control characters, and keys over MaxKeyLength.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return ErrInvalidKey
	case len(key) > MaxKeyLength:
		return ErrKeyTooLong
	case strings.IndexFunc(key, func(r rune) bool { return unicode.IsSpace(r) || unicode.IsControl(r) }) >= 0:
		return ErrInvalidKey
	}
	return nil
}
