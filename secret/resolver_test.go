package secret

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/badges/cache"
)

type stubProvider struct {
	name    string
	values  map[string]string
	calls   atomic.Int32
	resolve func(ref string) (string, error)
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Resolve(_ context.Context, ref string) (string, error) {
	s.calls.Add(1)
	if s.resolve != nil {
		return s.resolve(ref)
	}
	return s.values[ref], nil
}

func (s *stubProvider) Close() error { return nil }

func TestParseSecretRef(t *testing.T) {
	tests := []struct {
		in, provider, ref string
		ok                bool
	}{
		{"secretref:env:SAUCE_ACCESS_KEY", "env", "SAUCE_ACCESS_KEY", true},
		{"secretref:file:nested:colon", "file", "nested:colon", true},
		{"secretref:env:", "", "", false},
		{"secretref::x", "", "", false},
		{"plain-value", "", "", false},
		{"secretref:file:certs/sauce.key", "file", "certs/sauce.key", true},
		{"secretref:stub:user and secretref:stub:key!", "", "", false},
		{"secretref:env:KEY!", "", "", false},
		{"secretref:env:KEY ", "", "", false},
	}
	for _, tt := range tests {
		provider, ref, ok := ParseSecretRef(tt.in)
		if provider != tt.provider || ref != tt.ref || ok != tt.ok {
			t.Errorf("ParseSecretRef(%q) = (%q, %q, %v)", tt.in, provider, ref, ok)
		}
	}
}

func TestResolver_ResolvesFullSecretRef(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"sauce-access-key": "k3y"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:sauce-access-key")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "k3y" {
		t.Errorf("ResolveValue() = %q, want k3y", got)
	}
}

func TestResolver_ResolvesInlineSecretRefs(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"user": "acme", "key": "k3y"}})

	got, err := r.ResolveValue(context.Background(), "secretref:stub:user and secretref:stub:key!")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "acme and k3y!" {
		t.Errorf("ResolveValue() = %q", got)
	}
}

func TestResolver_InlineRefStopsAtPunctuation(t *testing.T) {
	stub := &stubProvider{name: "stub", values: map[string]string{"user": "acme"}}
	r := NewResolver(true, stub)

	got, err := r.ResolveValue(context.Background(), "https://secretref:stub:user@saucelabs.com, (secretref:stub:user).")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "https://acme@saucelabs.com, (acme)." {
		t.Errorf("ResolveValue() = %q", got)
	}
}

func TestResolver_PlainValueExpandsEnv(t *testing.T) {
	t.Setenv("BADGES_TEST_TOKEN", "abc")

	got, err := NewResolver(true).ResolveValue(context.Background(), "token ${BADGES_TEST_TOKEN}")
	if err != nil {
		t.Fatalf("ResolveValue() error = %v", err)
	}
	if got != "token abc" {
		t.Errorf("ResolveValue() = %q", got)
	}
}

func TestResolver_Errors(t *testing.T) {
	boom := errors.New("vault sealed")
	r := NewResolver(true, &stubProvider{name: "stub", resolve: func(ref string) (string, error) {
		switch ref {
		case "boom":
			return "", boom
		case "empty":
			return "", nil
		}
		return "ok", nil
	}})
	ctx := context.Background()

	if _, err := r.ResolveValue(ctx, "secretref:stub:boom"); !errors.Is(err, boom) {
		t.Errorf("provider error = %v, want %v", err, boom)
	}
	if _, err := r.ResolveValue(ctx, "secretref:stub:empty"); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("empty error = %v, want ErrEmptySecret", err)
	}
	if _, err := r.ResolveValue(ctx, "secretref:vault:x"); !errors.Is(err, ErrProviderNotRegistered) {
		t.Errorf("unknown provider error = %v, want ErrProviderNotRegistered", err)
	}
}

func TestResolver_MemoizesSuccessOnly(t *testing.T) {
	fail := true
	p := &stubProvider{name: "stub", resolve: func(string) (string, error) {
		if fail {
			return "", errors.New("throttled")
		}
		return "k3y", nil
	}}
	r := NewResolver(true, p).Memoize(cache.NewMemo(nil, nil, cache.DefaultPolicy()), cache.OneHour)
	ctx := context.Background()

	if _, err := r.ResolveValue(ctx, "secretref:stub:key"); err == nil {
		t.Fatal("expected first lookup to fail")
	}
	fail = false
	for i := 0; i < 3; i++ {
		if got, err := r.ResolveValue(ctx, "secretref:stub:key"); err != nil || got != "k3y" {
			t.Fatalf("ResolveValue() = %q, %v", got, err)
		}
	}
	if got := p.calls.Load(); got != 2 {
		t.Errorf("provider calls = %d, want 2", got)
	}
}

func TestResolver_ResolveSlice(t *testing.T) {
	r := NewResolver(true, &stubProvider{name: "stub", values: map[string]string{"alpha": "one"}})

	got, err := r.ResolveSlice(context.Background(), []string{"a", "secretref:stub:alpha"})
	if err != nil {
		t.Fatalf("ResolveSlice() error = %v", err)
	}
	if got[0] != "a" || got[1] != "one" {
		t.Errorf("ResolveSlice() = %#v", got)
	}

	if _, err := r.ResolveSlice(context.Background(), []string{"secretref:nope:x"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestResolver_Nil(t *testing.T) {
	var r *Resolver
	got, err := r.ResolveValue(context.Background(), "secretref:stub:x")
	if err != nil || got != "secretref:stub:x" {
		t.Errorf("nil resolver = %q, %v", got, err)
	}
}
