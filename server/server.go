// Package server exposes the badge service over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonwraymond/badges/auth"
	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/config"
	"github.com/jonwraymond/badges/health"
	"github.com/jonwraymond/badges/observe"
	"github.com/jonwraymond/badges/resilience"
	"github.com/jonwraymond/badges/service"
	"github.com/jonwraymond/badges/travis"
)

// Server routes HTTP requests to the badge service.
type Server struct {
	echo         *echo.Echo
	svc          *service.Service
	addr         string
	homePage     string
	cacheControl string
	logger       observe.Logger

	metrics    http.Handler
	health     *health.Aggregator
	memo       *cache.Memo
	guard      *resilience.Guard
	authn      auth.Authenticator
	authorizer *auth.Authorizer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l observe.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithMetricsHandler serves h on /metrics. Default: promhttp.Handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithHealth serves /readyz and /health from agg.
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithUpstream exposes the fetch cache and upstream guard on the admin
// endpoints.
func WithUpstream(memo *cache.Memo, guard *resilience.Guard) Option {
	return func(s *Server) {
		s.memo = memo
		s.guard = guard
	}
}

// WithAdmin enables /admin behind authn. A nil authorizer uses
// auth.DefaultRoles.
func WithAdmin(authn auth.Authenticator, authorizer *auth.Authorizer) Option {
	return func(s *Server) {
		s.authn = authn
		s.authorizer = authorizer
	}
}

// New creates a server for svc.
func New(cfg *config.Config, svc *service.Service, opts ...Option) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:         e,
		svc:          svc,
		addr:         cfg.Server.Addr,
		homePage:     cfg.Server.HomePage,
		cacheControl: cfg.Caching.Header(),
		logger:       observe.NopLogger(),
		metrics:      promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.authn != nil && s.authorizer == nil {
		s.authorizer = auth.NewAuthorizer(nil)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
		RequestIDHandler: func(c echo.Context, id string) {
			req := c.Request()
			c.SetRequest(req.WithContext(observe.ContextWithRequestID(req.Context(), id)))
		},
	}))
	e.Use(s.accessLog())
	e.Use(middleware.Gzip())

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo
	e.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, s.homePage)
	})
	e.GET("/browsers", s.handleBrowsers)
	e.GET("/sauce/:user", s.handleSauce)
	e.GET("/size/:source/*", s.handleSize)

	// /travis uses the configured endpoint; the suffixed prefixes pick one.
	for prefix, endpoint := range map[string]string{
		"/travis":     "",
		"/travis.com": travis.ComEndpoint,
		"/travis.org": travis.OrgEndpoint,
	} {
		g := e.Group(prefix)
		g.GET("/:user/:repo", s.handleTravis(endpoint))
		g.GET("/:user/:repo/sauce", s.handleTravisSauce(endpoint))
		g.GET("/:user/:repo/sauce/:sauceUser", s.handleTravisSauce(endpoint))
	}

	e.GET("/metrics", echo.WrapHandler(s.metrics))
	e.GET("/healthz", echo.WrapHandler(health.LivenessHandler()))
	if s.health != nil {
		e.GET("/readyz", echo.WrapHandler(health.ReadinessHandler(s.health)))
		e.GET("/health", echo.WrapHandler(health.DetailedHandler(s.health)))
	}

	if s.authn != nil {
		admin := e.Group("/admin")
		admin.GET("/cache", s.handleCacheStats, s.require(auth.PermCacheRead))
		admin.DELETE("/cache", s.handleCachePurge, s.require(auth.PermCachePurge))
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.echo.Server.ReadHeaderTimeout = 10 * time.Second
	s.logger.Info(context.Background(), "server listening", observe.F("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
