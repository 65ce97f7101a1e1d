// Package health reports whether the badge service can do useful work.
//
// A Checker inspects one component and returns a Result. The Aggregator
// runs every registered checker concurrently and folds the results into an
// overall Status: any unhealthy check makes the service unhealthy, any
// degraded check makes it degraded.
//
// Built-in checkers cover the fetch cache, upstream circuit breakers and
// the outbound bulkhead, and process memory. Handlers expose liveness,
// readiness and a detailed JSON report:
//
//	agg := health.NewAggregator(health.AggregatorConfig{})
//	agg.Register(health.NewCacheChecker(memo, 100_000))
//	agg.Register(health.NewUpstreamChecker(guard))
//	mux.Handle("/readyz", health.ReadinessHandler(agg))
package health
