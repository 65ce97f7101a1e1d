package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/resilience"
)

// NewCacheChecker reports the fetch cache. It is degraded once the cache
// holds more than maxEntries values; zero disables the limit.
func NewCacheChecker(memo *cache.Memo, maxEntries int) Checker {
	return NewCheckerFunc("cache", func(context.Context) Result {
		s := memo.Stats()
		details := map[string]any{
			"entries":   s.Entries,
			"hits":      s.Hits,
			"misses":    s.Misses,
			"coalesced": s.Coalesced,
			"evictions": s.Evictions,
			"in_flight": s.InFlight,
		}
		if maxEntries > 0 && s.Entries > maxEntries {
			return Degraded(fmt.Sprintf("%d entries exceeds %d", s.Entries, maxEntries)).WithDetails(details)
		}
		return Healthy(fmt.Sprintf("%d entries", s.Entries)).WithDetails(details)
	})
}

// NewUpstreamChecker reports circuit breakers and the outbound bulkhead.
// Open circuits and a saturated bulkhead are degraded rather than
// unhealthy, since the service still answers with fallback badges.
func NewUpstreamChecker(guard *resilience.Guard) Checker {
	return NewCheckerFunc("upstream", func(context.Context) Result {
		bulkhead := guard.Bulkhead().Metrics()
		circuits := guard.States()

		var open []string
		for _, c := range circuits {
			if c.State != resilience.StateClosed.String() {
				open = append(open, c.Host)
			}
		}
		details := map[string]any{
			"bulkhead": bulkhead,
			"circuits": circuits,
		}
		switch {
		case len(open) > 0:
			return Degraded(fmt.Sprintf("circuit not closed for %v", open)).WithDetails(details)
		case bulkhead.Available <= 0:
			return Degraded("bulkhead saturated").WithDetails(details)
		default:
			return Healthy(fmt.Sprintf("%d upstream hosts", len(circuits))).WithDetails(details)
		}
	})
}
