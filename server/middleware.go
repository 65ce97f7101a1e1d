package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jonwraymond/badges/auth"
	"github.com/jonwraymond/badges/observe"
)

func (s *Server) accessLog() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []observe.Field{
				observe.F("method", v.Method),
				observe.F("uri", v.URI),
				observe.F("status", v.Status),
				observe.F("latency_ms", float64(v.Latency.Microseconds())/1000),
			}
			ctx := c.Request().Context()
			if v.Error != nil {
				s.logger.Warn(ctx, "request failed", append(fields, observe.F("error", v.Error))...)
				return nil
			}
			s.logger.Debug(ctx, "request", fields...)
			return nil
		},
	})
}

// require authenticates the request and checks perm. The identity is
// stored in the request context.
func (s *Server) require(perm string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			result, err := s.authn.Authenticate(req.Context(), &auth.AuthRequest{Headers: req.Header})
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "authentication unavailable").SetInternal(err)
			}
			if !result.Authenticated {
				msg := "unauthorized"
				if result.Error != nil {
					msg = result.Error.Error()
				}
				return echo.NewHTTPError(http.StatusUnauthorized, msg)
			}
			if err := s.authorizer.Authorize(result.Identity, perm); err != nil {
				return echo.NewHTTPError(http.StatusForbidden, err.Error())
			}
			c.SetRequest(req.WithContext(auth.WithIdentity(req.Context(), result.Identity)))
			return next(c)
		}
	}
}
