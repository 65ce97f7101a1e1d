package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/jonwraymond/badges/auth"
	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/observe"
	"github.com/jonwraymond/badges/resilience"
)

// CacheReport is the body of GET /admin/cache.
type CacheReport struct {
	Cache    cache.Stats                        `json:"cache"`
	Circuits []resilience.CircuitBreakerMetrics `json:"circuits"`
	Bulkhead *resilience.BulkheadMetrics        `json:"bulkhead,omitempty"`
}

func (s *Server) handleCacheStats(c echo.Context) error {
	var report CacheReport
	if s.memo != nil {
		report.Cache = s.memo.Stats()
	}
	report.Circuits = []resilience.CircuitBreakerMetrics{}
	if s.guard != nil {
		report.Circuits = s.guard.States()
		bm := s.guard.Bulkhead().Metrics()
		report.Bulkhead = &bm
	}
	return c.JSON(http.StatusOK, report)
}

func (s *Server) handleCachePurge(c echo.Context) error {
	ctx := c.Request().Context()
	purged := 0
	if s.memo != nil {
		purged = s.memo.Purge(ctx)
	}
	principal := ""
	if id := auth.IdentityFromContext(ctx); id != nil {
		principal = id.Principal
	}
	s.logger.Info(ctx, "cache purged", observe.F("entries", purged), observe.F("principal", principal))
	return c.JSON(http.StatusOK, map[string]int{"purged": purged})
}
