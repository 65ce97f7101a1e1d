// Package resilience guards outbound upstream calls.
//
// A Guard combines three patterns, applied outermost first:
//
//   - Bulkhead: caps concurrent outbound calls across all upstreams.
//   - Circuit Breaker: one per upstream host; stops calling a host that keeps
//     failing until its reset timeout passes.
//   - Timeout: bounds each call.
//
// Calls are never retried within a request. The next request for the same
// key calls again once the fetch cache has evicted the failure.
//
//	guard := resilience.NewGuard(resilience.GuardConfig{
//	    Timeout:       10 * time.Second,
//	    MaxConcurrent: 32,
//	})
//	err := guard.Execute(ctx, "api.travis-ci.com", func(ctx context.Context) error {
//	    return callUpstream(ctx)
//	})
package resilience
