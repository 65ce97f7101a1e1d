package cache

import "time"

// Common lifetimes for upstream results.
const (
	OneMinute = time.Minute
	OneHour   = time.Hour
	OneDay    = 24 * time.Hour
)

// Policy bounds the lifetimes chosen by TTL policies.
type Policy struct {
	// DefaultTTL is used when a fetch is made without a TTLPolicy.
	// If zero, such fetches are coalesced but not retained.
	DefaultTTL time.Duration

	// MaxTTL is the maximum allowed TTL. Longer TTLs are clamped to this.
	// If zero, no maximum is enforced.
	MaxTTL time.Duration
}

// DefaultPolicy returns the default caching policy.
// DefaultTTL: 1 minute, MaxTTL: 5 days
func DefaultPolicy() Policy {
	return Policy{
		DefaultTTL: OneMinute,
		MaxTTL:     5 * OneDay,
	}
}

// NoCachePolicy returns a policy that retains nothing. In-flight
// coalescing still applies.
func NoCachePolicy() Policy {
	return Policy{}
}

// Clamp applies MaxTTL. Non-positive TTLs mean "do not retain" and stay zero.
func (p Policy) Clamp(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		return p.MaxTTL
	}
	return ttl
}

// TTLPolicy decides how long a resolved value is retained. It runs after the
// action resolves, so volatile values (a build still running) can be given a
// shorter lifetime than final ones.
type TTLPolicy func(value any) time.Duration

// Fixed retains every value for d.
func Fixed(d time.Duration) TTLPolicy {
	return func(any) time.Duration { return d }
}

// ByValue adapts a typed TTL function. Values of any other type get zero.
func ByValue[T any](fn func(T) time.Duration) TTLPolicy {
	return func(v any) time.Duration {
		typed, ok := v.(T)
		if !ok {
			return 0
		}
		return fn(typed)
	}
}
