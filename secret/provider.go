package secret

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Provider resolves secrets by reference string.
//
// Implementations must be safe for concurrent use and must not log secret values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
	Close() error
}

// EnvProvider reads secrets from environment variables. Prefix is
// prepended to every reference.
type EnvProvider struct {
	Prefix string
}

// Name implements Provider.
func (p EnvProvider) Name() string { return "env" }

// Resolve implements Provider.
func (p EnvProvider) Resolve(_ context.Context, ref string) (string, error) {
	key := p.Prefix + ref
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", fmt.Errorf("%w: environment variable %s", ErrSecretNotFound, key)
	}
	return v, nil
}

// Close implements Provider.
func (p EnvProvider) Close() error { return nil }

// FileProvider reads secrets from files under Dir, one secret per file.
// Trailing newlines are trimmed.
type FileProvider struct {
	Dir string
}

// Name implements Provider.
func (p FileProvider) Name() string { return "file" }

// Resolve implements Provider.
func (p FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	if !filepath.IsLocal(ref) {
		return "", fmt.Errorf("%w: %q escapes the secrets directory", ErrInvalidRef, ref)
	}
	b, err := os.ReadFile(filepath.Join(p.Dir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: file %s", ErrSecretNotFound, ref)
		}
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// Close implements Provider.
func (p FileProvider) Close() error { return nil }

func init() {
	_ = DefaultRegistry.Register("env", func(cfg map[string]any) (Provider, error) {
		prefix, _ := cfg["prefix"].(string)
		return EnvProvider{Prefix: prefix}, nil
	})
	_ = DefaultRegistry.Register("file", func(cfg map[string]any) (Provider, error) {
		dir, _ := cfg["dir"].(string)
		if dir == "" {
			return nil, fmt.Errorf("%w: file provider requires dir", ErrInvalidConfig)
		}
		return FileProvider{Dir: dir}, nil
	})
}
