package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jonwraymond/badges/cache"
)

// Resolver resolves secret references using registered providers.
type Resolver struct {
	providers map[string]Provider
	strict    bool
	memo      *cache.Memo
	ttl       time.Duration
}

// NewResolver creates a resolver. A strict resolver rejects empty secrets.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider),
		strict:    strict,
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds a provider, replacing any provider of the same name.
func (r *Resolver) Register(provider Provider) {
	if r == nil || provider == nil {
		return
	}
	r.providers[provider.Name()] = provider
}

// Memoize caches successful lookups in memo for ttl. Failed lookups are
// not retained.
func (r *Resolver) Memoize(memo *cache.Memo, ttl time.Duration) *Resolver {
	r.memo = memo
	r.ttl = ttl
	return r
}

// Close closes every provider.
func (r *Resolver) Close() error {
	var first error
	for _, p := range r.providers {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// ResolveValue expands environment variables in value, then replaces
// secret references. A value that is entirely a reference resolves to the
// secret; references embedded in longer text are substituted in place.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}
	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolveSingle(ctx, providerName, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ResolveSlice resolves each value in values.
func (r *Resolver) ResolveSlice(ctx context.Context, values []string) ([]string, error) {
	resolved := make([]string, len(values))
	for i, v := range values {
		out, err := r.ResolveValue(ctx, v)
		if err != nil {
			return nil, fmt.Errorf("resolve item %d: %w", i, err)
		}
		resolved[i] = out
	}
	return resolved, nil
}

// refPattern is a secret reference: a provider name, then a ref made of
// word characters, '.', '/', '-' and inner colons. Trailing punctuation is
// not part of the ref.
const refPattern = `secretref:([^:\s]+):([\w./-]+(?::[\w./-]+)*)`

var (
	fullSecretRefPattern   = regexp.MustCompile(`^` + refPattern + `$`)
	inlineSecretRefPattern = regexp.MustCompile(refPattern)
)

// ParseSecretRef parses a value that is exactly one secret reference:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	m := fullSecretRefPattern.FindStringSubmatch(value)
	if m == nil {
		return "", "", false
	}
	return m[1], m[2], true
}

func (r *Resolver) resolveSingle(ctx context.Context, providerName string, ref string) (string, error) {
	provider, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, providerName)
	}
	lookup := func(ctx context.Context) (string, error) {
		v, err := provider.Resolve(ctx, ref)
		if err != nil {
			return "", err
		}
		if r.strict && v == "" {
			return "", fmt.Errorf("%w: %s:%s", ErrEmptySecret, providerName, ref)
		}
		return v, nil
	}
	if r.memo == nil {
		return lookup(ctx)
	}
	return cache.Do(ctx, r.memo, memoKey(providerName, ref), lookup, cache.Fixed(r.ttl))
}

// Forget drops a memoized secret so the next lookup reads the provider.
func (r *Resolver) Forget(ctx context.Context, providerName, ref string) error {
	if r == nil || r.memo == nil {
		return nil
	}
	return r.memo.Forget(ctx, memoKey(providerName, ref))
}

func memoKey(providerName, ref string) cache.FetchKey {
	return cache.FetchKey{Method: "SECRET", URL: "secretref:" + providerName + ":" + ref}
}

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineSecretRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		resolved, err := r.resolveSingle(ctx, value[m[2]:m[3]], value[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		b.WriteString(value[last:m[0]])
		b.WriteString(resolved)
		last = m[1]
	}
	b.WriteString(value[last:])
	return b.String(), nil
}
