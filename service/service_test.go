package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/badges/badge"
	"github.com/jonwraymond/badges/fetch"
	"github.com/jonwraymond/badges/filesize"
	"github.com/jonwraymond/badges/jobs"
	"github.com/jonwraymond/badges/secret"
)

// upstream fakes Travis, Sauce Labs and a file host on one server.
type upstream struct {
	travisCalls atomic.Int32
	sauceCalls  atomic.Int32
	fail        atomic.Bool
}

func (u *upstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if u.fail.Load() {
		http.Error(w, "upstream down", http.StatusBadGateway)
		return
	}
	switch path := r.URL.EscapedPath(); {
	case path == "/repo/acme%2Fwidgets/branch/master":
		u.travisCalls.Add(1)
		fmt.Fprint(w, `{"name":"master","last_build":{"id":42,"number":"17","state":"failed"}}`)
	case path == "/repo/acme%2Fnew/branch/master":
		fmt.Fprint(w, `{"name":"master","last_build":null}`)
	case path == "/build/42/jobs":
		u.travisCalls.Add(1)
		fmt.Fprint(w, `{"jobs":[
			{"id":1,"number":"17.1","state":"passed","config":{"env":"A"}},
			{"id":2,"number":"17.2","state":"failed","config":{"env":"B"}}]}`)
	case path == "/rest/v1/acme/jobs":
		u.sauceCalls.Add(1)
		if _, key, ok := r.BasicAuth(); !ok || key != "k3y" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": "a", "name": "home", "build": "17.1", "browser": "googlechrome", "browser_short_version": "70", "passed": true, "status": "complete"},
			{"id": "b", "name": "login", "build": "17.2", "browser": "firefox", "browser_short_version": "63.0", "passed": false, "status": "complete"},
			{"id": "c", "name": "home", "build": "16", "browser": "safari", "browser_short_version": "12", "passed": true, "status": "complete"},
		})
	case strings.HasPrefix(path, "/files/"):
		if r.Header.Get("Accept-Encoding") == "gzip" {
			w.Header().Set("Content-Encoding", "gzip")
		}
		w.Header().Set("Content-Length", "1500")
	default:
		http.NotFound(w, r)
	}
}

func newService(t *testing.T) (*upstream, *Service) {
	t.Helper()
	u := &upstream{}
	srv := httptest.NewServer(u)
	t.Cleanup(srv.Close)

	t.Setenv("BADGES_TEST_SAUCE_KEY", "k3y")
	resolver := secret.NewResolver(true, secret.EnvProvider{})
	svc := New(fetch.NewClient(nil), badge.NewAssembler(nil),
		WithSecrets(resolver),
		WithTravis(srv.URL, ""),
		WithSauce(srv.URL, "secretref:env:BADGES_TEST_SAUCE_KEY"),
		WithSources(filesize.Sources{"github": srv.URL + "/files"}),
	)
	return u, svc
}

func body(r badge.Result) string { return string(r.Body) }

func TestService_TravisReducesJobs(t *testing.T) {
	u, svc := newService(t)
	ctx := context.Background()

	res := svc.Travis(ctx, TravisRequest{User: "acme", Repo: "widgets"})
	if res.ContentType != badge.ContentTypeSVG {
		t.Errorf("ContentType = %q", res.ContentType)
	}
	if !strings.Contains(body(res), "<title>widgets: failed</title>") {
		t.Errorf("want failed badge labelled by repo, got %s", body(res))
	}

	res = svc.Travis(ctx, TravisRequest{User: "acme", Repo: "widgets", Env: "A", Label: "ci"})
	if !strings.Contains(body(res), "<title>ci: passed</title>") {
		t.Errorf("env filter should keep only passing job, got %s", body(res))
	}
	if n := u.travisCalls.Load(); n != 2 {
		t.Errorf("finished build should be served from cache, upstream calls = %d", n)
	}
}

func TestService_TravisEmptyFilterIsUnknown(t *testing.T) {
	_, svc := newService(t)

	res := svc.Travis(context.Background(), TravisRequest{User: "acme", Repo: "widgets", Env: "nope"})
	if !strings.Contains(body(res), "<title>widgets: unknown</title>") {
		t.Errorf("got %s", body(res))
	}
}

func TestService_TravisNoBuildIsUnknown(t *testing.T) {
	_, svc := newService(t)

	res := svc.Travis(context.Background(), TravisRequest{User: "acme", Repo: "new"})
	if !strings.Contains(body(res), "<title>new: unknown</title>") {
		t.Errorf("got %s", body(res))
	}
}

func TestService_TravisUpstreamFailure(t *testing.T) {
	u, svc := newService(t)
	u.fail.Store(true)

	res := svc.Travis(context.Background(), TravisRequest{User: "acme", Repo: "widgets"})
	if !strings.Contains(body(res), "<title>widgets: error</title>") {
		t.Errorf("upstream failure should render the error badge, got %s", body(res))
	}

	u.fail.Store(false)
	res = svc.Travis(context.Background(), TravisRequest{User: "acme", Repo: "widgets"})
	if !strings.Contains(body(res), "<title>widgets: failed</title>") {
		t.Errorf("failure must not be cached, got %s", body(res))
	}
}

func TestService_Sauce(t *testing.T) {
	_, svc := newService(t)
	opts := badge.DefaultMatrixOptions()

	res := svc.Sauce(context.Background(), SauceRequest{User: "acme", Build: "17.2", Options: opts})
	if !strings.Contains(body(res), "1 browser versions") || !strings.Contains(body(res), "<title>63: failed</title>") {
		t.Errorf("got %s", body(res))
	}

	res = svc.Sauce(context.Background(), SauceRequest{User: "acme", Build: "17.2", Filter: jobs.Filter{Name: "home"}, Options: opts})
	if !strings.Contains(body(res), "<title>browsers: unknown</title>") {
		t.Errorf("unmatched filter should render unknown, got %s", body(res))
	}
}

func TestService_SauceBadCredentials(t *testing.T) {
	_, svc := newService(t)
	svc.sauceKey = "wrong"

	res := svc.Sauce(context.Background(), SauceRequest{User: "acme", Options: badge.DefaultMatrixOptions()})
	if !strings.Contains(body(res), "<title>browsers: error</title>") {
		t.Errorf("got %s", body(res))
	}
}

func TestService_TravisSauce(t *testing.T) {
	u, svc := newService(t)

	res := svc.TravisSauce(context.Background(), TravisSauceRequest{
		User:    "acme",
		Repo:    "widgets",
		Options: badge.DefaultMatrixOptions(),
	})
	got := body(res)
	if !strings.Contains(got, "2 browser versions") {
		t.Errorf("want the two jobs of build 17, got %s", got)
	}
	if strings.Contains(got, "<title>12: passed</title>") {
		t.Error("jobs of other builds must be excluded")
	}
	if u.sauceCalls.Load() != 1 {
		t.Errorf("sauce calls = %d, want 1", u.sauceCalls.Load())
	}
}

func TestService_TravisSauceMissingSecret(t *testing.T) {
	_, svc := newService(t)
	svc.sauceKey = "secretref:env:BADGES_TEST_UNSET_KEY"

	res := svc.TravisSauce(context.Background(), TravisSauceRequest{User: "acme", Repo: "widgets", Options: badge.DefaultMatrixOptions()})
	if !strings.Contains(body(res), "<title>browsers: error</title>") {
		t.Errorf("got %s", body(res))
	}
}

func TestService_Browsers(t *testing.T) {
	_, svc := newService(t)

	res := svc.Browsers(context.Background(), map[string]string{
		"firefox": "20,26",
		"ie":      "!8,-9,10,bad token",
	}, badge.DefaultMatrixOptions())
	got := body(res)
	for _, want := range []string{"<title>20: passed</title>", "<title>8: error</title>", "<title>9: failed</title>", "<title>10: passed</title>"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in %s", want, got)
		}
	}

	res = svc.Browsers(context.Background(), nil, badge.DefaultMatrixOptions())
	if !strings.Contains(body(res), "<title>browsers: unknown</title>") {
		t.Errorf("empty inline should be unknown, got %s", body(res))
	}
}

func TestService_Size(t *testing.T) {
	_, svc := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  SizeRequest
		want string
	}{
		{"plain", SizeRequest{Source: "github", Path: "acme/widgets/master/index.js"}, "<title>size: 1.5 kB</title>"},
		{"gzip label", SizeRequest{Source: "github", Path: "acme/widgets/master/index.js", Gzip: true}, "<title>size (gzip): 1.5 kB</title>"},
		{"custom label", SizeRequest{Source: "github", Path: "a.js", Label: "bundle"}, "<title>bundle: 1.5 kB</title>"},
		{"unknown source", SizeRequest{Source: "cdn", Path: "a.js"}, "<title>size: error</title>"},
		{"empty path", SizeRequest{Source: "github"}, "<title>size: error</title>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := body(svc.Size(ctx, tt.req)); !strings.Contains(got, tt.want) {
				t.Errorf("want %s in %s", tt.want, got)
			}
		})
	}
}
