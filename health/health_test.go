package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/resilience"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestOverall(t *testing.T) {
	tests := []struct {
		name    string
		results map[string]Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", map[string]Result{"a": Healthy(""), "b": Healthy("")}, StatusHealthy},
		{"one degraded", map[string]Result{"a": Healthy(""), "b": Degraded("")}, StatusDegraded},
		{"unhealthy wins", map[string]Result{"a": Degraded(""), "b": Unhealthy("", nil)}, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overall(tt.results); got != tt.want {
				t.Errorf("Overall() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAggregator_RegisterReplacesByName(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(fixed("cache", Unhealthy("old", nil)))
	agg.Register(fixed("cache", Healthy("new")), fixed("upstream", Healthy("")))

	results := agg.CheckAll(context.Background())
	if len(results) != 2 {
		t.Fatalf("CheckAll() returned %d results, want 2", len(results))
	}
	if results["cache"].Message != "new" {
		t.Errorf("cache message = %q, want new", results["cache"].Message)
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register(NewCheckerFunc("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Healthy("late")
	}))

	r := agg.CheckAll(context.Background())["slow"]
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, ErrCheckTimeout) {
		t.Errorf("slow check = %+v, want timeout", r)
	}
}

func TestCacheChecker(t *testing.T) {
	memo := cache.NewMemo(nil, nil, cache.DefaultPolicy())
	ctx := context.Background()
	for _, u := range []string{"https://a", "https://b"} {
		_, _ = cache.Do(ctx, memo, cache.FetchKey{URL: u}, func(context.Context) (int, error) { return 1, nil }, cache.Fixed(cache.OneHour))
	}

	if r := NewCacheChecker(memo, 0).Check(ctx); r.Status != StatusHealthy || r.Details["entries"] != 2 {
		t.Errorf("unlimited cache check = %+v", r)
	}
	if r := NewCacheChecker(memo, 1).Check(ctx); r.Status != StatusDegraded {
		t.Errorf("over-limit cache check = %v, want degraded", r.Status)
	}
}

func TestUpstreamChecker(t *testing.T) {
	guard := resilience.NewGuard(resilience.GuardConfig{
		Circuit: resilience.CircuitBreakerConfig{MaxFailures: 1},
	})
	checker := NewUpstreamChecker(guard)
	ctx := context.Background()

	if r := checker.Check(ctx); r.Status != StatusHealthy {
		t.Fatalf("fresh guard = %v, want healthy", r.Status)
	}

	_ = guard.Execute(ctx, "api.travis-ci.com", func(context.Context) error { return errors.New("down") })
	r := checker.Check(ctx)
	if r.Status != StatusDegraded {
		t.Errorf("open circuit = %v, want degraded", r.Status)
	}
}

func TestMemoryChecker(t *testing.T) {
	tests := []struct {
		heap, limit uint64
		want        Status
	}{
		{500, 0, StatusHealthy},
		{500, 1000, StatusHealthy},
		{850, 1000, StatusDegraded},
		{990, 1000, StatusUnhealthy},
	}
	for _, tt := range tests {
		m := NewMemoryChecker(tt.limit)
		m.readHeap = func() uint64 { return tt.heap }
		if got := m.Check(context.Background()).Status; got != tt.want {
			t.Errorf("heap %d of %d = %v, want %v", tt.heap, tt.limit, got, tt.want)
		}
	}
}

func TestHandlers(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{})
	agg.Register(fixed("cache", Healthy("ok")), fixed("upstream", Degraded("circuit open")))

	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("liveness = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	ReadinessHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "DEGRADED" {
		t.Errorf("readiness = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	DetailedHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Status != "degraded" || report.Checks["upstream"].Message != "circuit open" {
		t.Errorf("report = %+v", report)
	}

	agg.Register(fixed("memory", Unhealthy("heap", ErrCheckFailed)))
	rec = httptest.NewRecorder()
	ReadinessHandler(agg)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy readiness code = %d", rec.Code)
	}
}
