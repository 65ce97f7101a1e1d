package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonwraymond/badges/auth"
	"github.com/jonwraymond/badges/badge"
	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/config"
	"github.com/jonwraymond/badges/fetch"
	"github.com/jonwraymond/badges/health"
	"github.com/jonwraymond/badges/service"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *cache.Memo) {
	t.Helper()
	memo := cache.NewMemo(nil, nil, cache.DefaultPolicy())
	fc := fetch.NewClient(memo)
	svc := service.New(fc, badge.NewAssembler(nil))
	opts = append([]Option{WithUpstream(memo, fc.Guard())}, opts...)
	return New(config.Default(), svc, opts...), memo
}

func get(t *testing.T, h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_HomeRedirect(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/", nil)
	if rec.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != config.DefaultHomePage {
		t.Errorf("Location = %q", loc)
	}
}

func TestServer_BrowsersBadge(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/browsers?firefox=20,26&ie=!8,-9,10&labels=short", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != badge.ContentTypeSVG {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != config.Default().Caching.Header() {
		t.Errorf("Cache-Control = %q", cc)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request id")
	}
	body := rec.Body.String()
	for _, want := range []string{"<title>8: error</title>", "<title>9: failed</title>", "<title>26: passed</title>"} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s", want)
		}
	}
}

func TestServer_ETag(t *testing.T) {
	s, _ := newTestServer(t)

	first := get(t, s, "/browsers?chrome=70", nil)
	etag := first.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	second := get(t, s, "/browsers?chrome=70", http.Header{"If-None-Match": {etag}})
	if second.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", second.Code)
	}
	if second.Body.Len() != 0 {
		t.Error("304 must not carry a body")
	}
}

func TestServer_SizeUnknownSourceRendersError(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/size/cdn/acme/widgets/index.js?gzip=true", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, badges never fail at the HTTP level", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<title>size (gzip): error</title>") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestServer_Health(t *testing.T) {
	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(health.NewCheckerFunc("ok", func(context.Context) health.Result {
		return health.Healthy("fine")
	}))
	s, _ := newTestServer(t, WithHealth(agg))

	for _, path := range []string{"/healthz", "/readyz", "/health"} {
		if rec := get(t, s, path, nil); rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}
}

func TestServer_AdminDisabledByDefault(t *testing.T) {
	s, _ := newTestServer(t)

	if rec := get(t, s, "/admin/cache", nil); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestServer_AdminCache(t *testing.T) {
	authn := auth.NewAPIKeyAuthenticator("",
		auth.APIKey{ID: "ops", KeyHash: auth.HashAPIKey("admin-key"), Principal: "ops", Roles: []string{"admin"}},
		auth.APIKey{ID: "dash", KeyHash: auth.HashAPIKey("viewer-key"), Principal: "dash", Roles: []string{"viewer"}},
	)
	s, memo := newTestServer(t, WithAdmin(authn, nil))
	ctx := t.Context()
	_, _ = cache.Do(ctx, memo, cache.FetchKey{URL: "https://example.com/a"}, func(context.Context) (string, error) {
		return "v", nil
	}, cache.Fixed(cache.OneHour))

	if rec := get(t, s, "/admin/cache", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no credentials: status = %d, want 401", rec.Code)
	}
	if rec := get(t, s, "/admin/cache", http.Header{"X-Api-Key": {"wrong"}}); rec.Code != http.StatusUnauthorized {
		t.Errorf("bad key: status = %d, want 401", rec.Code)
	}

	rec := get(t, s, "/admin/cache", http.Header{"X-Api-Key": {"viewer-key"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("viewer read: status = %d", rec.Code)
	}
	var report CacheReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Cache.Entries != 1 {
		t.Errorf("Entries = %d, want 1", report.Cache.Entries)
	}
	if report.Bulkhead == nil {
		t.Error("bulkhead metrics missing")
	}

	purge := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/admin/cache", nil)
		req.Header.Set("X-API-Key", key)
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		return rec
	}
	if rec := purge("viewer-key"); rec.Code != http.StatusForbidden {
		t.Errorf("viewer purge: status = %d, want 403", rec.Code)
	}
	rec = purge("admin-key")
	if rec.Code != http.StatusOK {
		t.Fatalf("admin purge: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"purged":1`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if memo.Stats().Entries != 0 {
		t.Error("cache should be empty after purge")
	}
}
