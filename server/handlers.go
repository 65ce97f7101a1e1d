package server

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/labstack/echo/v4"

	"github.com/jonwraymond/badges/badge"
	"github.com/jonwraymond/badges/jobs"
	"github.com/jonwraymond/badges/observe"
	"github.com/jonwraymond/badges/sauce"
	"github.com/jonwraymond/badges/service"
)

func (s *Server) handleBrowsers(c echo.Context) error {
	ctx := c.Request().Context()
	return s.send(c, s.svc.Browsers(ctx, query(c), s.matrixOptions(c)))
}

func (s *Server) handleSauce(c echo.Context) error {
	ctx := c.Request().Context()
	return s.send(c, s.svc.Sauce(ctx, service.SauceRequest{
		User:  c.Param("user"),
		Build: c.QueryParam("build"),
		Query: sauce.Query{
			From: unixParam(c, "from"),
			To:   unixParam(c, "to"),
			Skip: intParam(c, "skip"),
		},
		Filter:  sauceFilter(c),
		Options: s.matrixOptions(c),
	}))
}

func (s *Server) handleTravis(endpoint string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		return s.send(c, s.svc.Travis(ctx, service.TravisRequest{
			Endpoint: endpoint,
			User:     c.Param("user"),
			Repo:     c.Param("repo"),
			Branch:   c.QueryParam("branch"),
			Label:    c.QueryParam("label"),
			Env:      c.QueryParam("env"),
			Style:    style(c),
		}))
	}
}

func (s *Server) handleTravisSauce(endpoint string) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		return s.send(c, s.svc.TravisSauce(ctx, service.TravisSauceRequest{
			Endpoint:  endpoint,
			User:      c.Param("user"),
			Repo:      c.Param("repo"),
			Branch:    c.QueryParam("branch"),
			SauceUser: c.Param("sauceUser"),
			Filter:    sauceFilter(c),
			Options:   s.matrixOptions(c),
		}))
	}
}

func (s *Server) handleSize(c echo.Context) error {
	ctx := c.Request().Context()
	return s.send(c, s.svc.Size(ctx, service.SizeRequest{
		Source: c.Param("source"),
		Path:   c.Param("*"),
		Gzip:   c.QueryParam("gzip") == "true",
		Label:  c.QueryParam("label"),
		Color:  c.QueryParam("color"),
		Style:  style(c),
	}))
}

// send writes a badge with caching headers. A request whose If-None-Match
// carries the body's ETag gets 304.
func (s *Server) send(c echo.Context, res badge.Result) error {
	h := c.Response().Header()
	if s.cacheControl != "" {
		h.Set("Cache-Control", s.cacheControl)
	}
	etag := fmt.Sprintf(`W/"%x-%016x"`, len(res.Body), xxhash.Sum64(res.Body))
	h.Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, res.ContentType, res.Body)
}

func (s *Server) matrixOptions(c echo.Context) badge.MatrixOptions {
	opts, err := badge.ParseMatrixOptions(query(c))
	if err != nil {
		s.logger.Debug(c.Request().Context(), "ignored matrix options", observe.F("error", err))
	}
	return opts
}

// query flattens the query string to the first value of each key.
func query(c echo.Context) map[string]string {
	params := c.QueryParams()
	out := make(map[string]string, len(params))
	for k, v := range params {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}

func sauceFilter(c echo.Context) jobs.Filter {
	return jobs.Filter{Name: c.QueryParam("name"), Tag: c.QueryParam("tag")}
}

func style(c echo.Context) badge.Style {
	st, _ := badge.ParseStyle(c.QueryParam("style"))
	return st
}

// intParam returns 0 for a missing or malformed value.
func intParam(c echo.Context, name string) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func unixParam(c echo.Context, name string) time.Time {
	n := intParam(c, name)
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(int64(n), 0)
}
