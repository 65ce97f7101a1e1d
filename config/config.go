// Package config loads the badge service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/observe"
	"github.com/jonwraymond/badges/resilience"
	"github.com/jonwraymond/badges/secret"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultAddr            = ":3000"
	DefaultHomePage        = "https://github.com/FormidableLabs/badges"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultMaxEntries      = 100_000
)

// Renderer names.
const (
	RendererShields = "shields"
	RendererLocal   = "local"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// Config is the top-level configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Caching  CachingConfig  `yaml:"caching"`
	Cache    CacheConfig    `yaml:"cache"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Badges   BadgesConfig   `yaml:"badges"`
	Travis   TravisConfig   `yaml:"travis"`
	Sauce    SauceConfig    `yaml:"sauce"`
	Secrets  SecretsConfig  `yaml:"secrets"`
	Observe  observe.Config `yaml:"observe"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	HomePage        string        `yaml:"home_page"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MemoryLimit is a heap size such as "512 MB" above which the service
	// reports degraded. Empty disables the limit.
	MemoryLimit string `yaml:"memory_limit"`
}

// MemoryLimitBytes parses MemoryLimit.
func (c ServerConfig) MemoryLimitBytes() (uint64, error) {
	if c.MemoryLimit == "" {
		return 0, nil
	}
	return humanize.ParseBytes(c.MemoryLimit)
}

// CachingConfig controls the Cache-Control header sent with badges.
type CachingConfig struct {
	Enabled              bool          `yaml:"enabled"`
	BrowserMaxAge        time.Duration `yaml:"browser_max_age"`
	CDNMaxAge            time.Duration `yaml:"cdn_max_age"`
	StaleWhileRevalidate time.Duration `yaml:"stale_while_revalidate"`
	StaleIfError         time.Duration `yaml:"stale_if_error"`
}

// Header returns the Cache-Control value, or "" when caching is disabled.
func (c CachingConfig) Header() string {
	if !c.Enabled {
		return ""
	}
	return fmt.Sprintf("public, must-revalidate, max-age=%d, s-maxage=%d, stale-while-revalidate=%d, stale-if-error=%d",
		int(c.BrowserMaxAge.Seconds()), int(c.CDNMaxAge.Seconds()),
		int(c.StaleWhileRevalidate.Seconds()), int(c.StaleIfError.Seconds()))
}

// CacheConfig bounds the in-process fetch cache.
type CacheConfig struct {
	DefaultTTL time.Duration `yaml:"default_ttl"`
	MaxTTL     time.Duration `yaml:"max_ttl"`

	// MaxEntries is the occupancy above which the cache reports degraded.
	MaxEntries int `yaml:"max_entries"`
}

// Policy returns the cache policy.
func (c CacheConfig) Policy() cache.Policy {
	return cache.Policy{DefaultTTL: c.DefaultTTL, MaxTTL: c.MaxTTL}
}

// UpstreamConfig configures outbound HTTP calls.
type UpstreamConfig struct {
	resilience.GuardConfig `yaml:",inline"`
	UserAgent              string `yaml:"user_agent"`
}

// BadgesConfig selects how two-segment badges are drawn.
type BadgesConfig struct {
	// Renderer is "shields" (fetch from a Shields.io server) or "local".
	Renderer   string `yaml:"renderer"`
	ShieldsURL string `yaml:"shields_url"`
}

// TravisConfig configures the Travis CI source.
type TravisConfig struct {
	// Endpoint serves /travis routes; /travis.com and /travis.org pick
	// their endpoint explicitly.
	Endpoint string `yaml:"endpoint"`

	// Token may be a secret reference.
	Token string `yaml:"token"`
}

// SauceConfig configures the Sauce Labs source.
type SauceConfig struct {
	Endpoint string `yaml:"endpoint"`

	// AccessKey is resolved per request, so it is usually a secret reference.
	AccessKey string `yaml:"access_key"`
}

// SecretsConfig configures secret resolution.
type SecretsConfig struct {
	Strict    bool             `yaml:"strict"`
	TTL       time.Duration    `yaml:"ttl"`
	Providers []ProviderConfig `yaml:"providers"`
}

// ProviderConfig names a secret provider from secret.DefaultRegistry.
type ProviderConfig struct {
	Name   string         `yaml:"name"`
	Config map[string]any `yaml:"config"`
}

// AdminConfig configures the administrative endpoints.
type AdminConfig struct {
	Enabled bool                `yaml:"enabled"`
	APIKeys []APIKeyConfig      `yaml:"api_keys"`
	JWT     JWTConfig           `yaml:"jwt"`
	Roles   map[string][]string `yaml:"roles"`
}

// APIKeyConfig is one admin API key. Key may be a secret reference.
type APIKeyConfig struct {
	ID        string   `yaml:"id"`
	Key       string   `yaml:"key"`
	Principal string   `yaml:"principal"`
	Roles     []string `yaml:"roles"`
}

// JWTConfig configures bearer tokens. Secret may be a secret reference.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			HomePage:        DefaultHomePage,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Caching: CachingConfig{
			Enabled:              true,
			BrowserMaxAge:        30 * time.Second,
			CDNMaxAge:            15 * time.Minute,
			StaleWhileRevalidate: 30 * time.Second,
			StaleIfError:         15 * time.Minute,
		},
		Cache: CacheConfig{
			DefaultTTL: cache.OneMinute,
			MaxTTL:     5 * cache.OneDay,
			MaxEntries: DefaultMaxEntries,
		},
		Upstream: UpstreamConfig{
			GuardConfig: resilience.GuardConfig{
				Timeout:       resilience.DefaultTimeout,
				MaxConcurrent: 32,
			},
		},
		Badges: BadgesConfig{Renderer: RendererShields},
		Sauce: SauceConfig{
			AccessKey: "secretref:env:SAUCE_ACCESS_KEY",
		},
		Secrets: SecretsConfig{
			Strict:    true,
			TTL:       cache.OneHour,
			Providers: []ProviderConfig{{Name: "env"}},
		},
		Observe: observe.Config{
			ServiceName: "badges",
			Tracing:     observe.TracingConfig{Exporter: "none", SamplePct: 1},
			Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
			Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
		},
	}
}

// Load reads the YAML file at path over the defaults. ${VAR} references
// are expanded strictly before parsing. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	expanded, err := secret.ExpandEnvStrict(string(data))
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required fields and structural constraints.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	if c.Server.Addr == "" {
		invalid("server.addr is required")
	}
	if _, err := c.Server.MemoryLimitBytes(); err != nil {
		invalid("server.memory_limit %q", c.Server.MemoryLimit)
	}
	for name, d := range map[string]time.Duration{
		"caching.browser_max_age":        c.Caching.BrowserMaxAge,
		"caching.cdn_max_age":            c.Caching.CDNMaxAge,
		"caching.stale_while_revalidate": c.Caching.StaleWhileRevalidate,
		"caching.stale_if_error":         c.Caching.StaleIfError,
		"cache.default_ttl":              c.Cache.DefaultTTL,
		"cache.max_ttl":                  c.Cache.MaxTTL,
		"upstream.timeout":               c.Upstream.Timeout,
		"secrets.ttl":                    c.Secrets.TTL,
	} {
		if d < 0 {
			invalid("%s must not be negative", name)
		}
	}
	if c.Cache.MaxTTL > 0 && c.Cache.DefaultTTL > c.Cache.MaxTTL {
		invalid("cache.default_ttl exceeds cache.max_ttl")
	}
	switch c.Badges.Renderer {
	case RendererShields, RendererLocal:
	default:
		invalid("badges.renderer %q", c.Badges.Renderer)
	}
	for i, p := range c.Secrets.Providers {
		if p.Name == "" {
			invalid("secrets.providers[%d]: name is required", i)
		}
	}
	if c.Admin.Enabled {
		if len(c.Admin.APIKeys) == 0 && c.Admin.JWT.Secret == "" {
			invalid("admin is enabled without api_keys or jwt.secret")
		}
		for i, k := range c.Admin.APIKeys {
			if k.Key == "" || k.Principal == "" {
				invalid("admin.api_keys[%d]: key and principal are required", i)
			}
		}
	}
	if err := c.Observe.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: observe: %w", ErrInvalid, err))
	}
	return errors.Join(errs...)
}
