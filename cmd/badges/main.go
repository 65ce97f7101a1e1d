// Command badges serves CI status, browser matrix and file size badges.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonwraymond/badges/auth"
	"github.com/jonwraymond/badges/badge"
	"github.com/jonwraymond/badges/cache"
	"github.com/jonwraymond/badges/config"
	"github.com/jonwraymond/badges/fetch"
	"github.com/jonwraymond/badges/health"
	"github.com/jonwraymond/badges/observe"
	"github.com/jonwraymond/badges/resilience"
	"github.com/jonwraymond/badges/secret"
	"github.com/jonwraymond/badges/server"
	"github.com/jonwraymond/badges/service"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to YAML config file (defaults only when empty)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, "badges:", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Observe.Version == "" {
		cfg.Observe.Version = version
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		_ = obs.Shutdown(ctx)
	}()
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	logger := mw.Logger()

	memo := cache.NewMemo(nil, nil, cfg.Cache.Policy(), cache.WithObserver(func(ctx context.Context, ev cache.Event) {
		mode := ev.Key.Mode
		if mode == "" {
			mode = cache.ModeBody
		}
		mw.Metrics().RecordCacheEvent(ctx, string(mode), ev.Kind.String())
	}))

	guardCfg := cfg.Upstream.GuardConfig
	guardCfg.Circuit.IsFailure = fetch.IsUpstreamFailure
	guardCfg.Circuit.OnStateChange = func(host string, from, to resilience.State) {
		logger.Warn(ctx, "circuit state changed",
			observe.F("host", host), observe.F("from", from.String()), observe.F("to", to.String()))
	}
	guard := resilience.NewGuard(guardCfg)

	fetchOpts := []fetch.Option{fetch.WithGuard(guard), fetch.WithMiddleware(mw)}
	if cfg.Upstream.UserAgent != "" {
		fetchOpts = append(fetchOpts, fetch.WithUserAgent(cfg.Upstream.UserAgent))
	}
	fc := fetch.NewClient(memo, fetchOpts...)

	secrets, err := newResolver(ctx, cfg.Secrets, memo, logger)
	if err != nil {
		return err
	}
	defer secrets.Close()

	assemblerOpts := []badge.AssemblerOption{badge.WithLogger(logger)}
	if cfg.Badges.Renderer == config.RendererShields {
		assemblerOpts = append(assemblerOpts, badge.WithBadgeRenderer(badge.NewShieldsRenderer(fc, cfg.Badges.ShieldsURL)))
	}
	svc := service.New(fc, badge.NewAssembler(badge.NewSVGRenderer(), assemblerOpts...),
		service.WithSecrets(secrets),
		service.WithMiddleware(mw),
		service.WithTravis(cfg.Travis.Endpoint, cfg.Travis.Token),
		service.WithSauce(cfg.Sauce.Endpoint, cfg.Sauce.AccessKey),
	)

	memLimit, err := cfg.Server.MemoryLimitBytes()
	if err != nil {
		return err
	}
	checks := health.NewAggregator(health.AggregatorConfig{})
	checks.Register(
		health.NewCacheChecker(memo, cfg.Cache.MaxEntries),
		health.NewUpstreamChecker(guard),
		health.NewMemoryChecker(memLimit),
	)

	serverOpts := []server.Option{
		server.WithLogger(logger),
		server.WithHealth(checks),
		server.WithUpstream(memo, guard),
	}
	if cfg.Admin.Enabled {
		authn, err := newAuthenticator(ctx, cfg.Admin, secrets)
		if err != nil {
			return err
		}
		var roles map[string][]string
		if len(cfg.Admin.Roles) > 0 {
			roles = cfg.Admin.Roles
		}
		serverOpts = append(serverOpts, server.WithAdmin(authn, auth.NewAuthorizer(roles)))
	}
	srv := server.New(cfg, svc, serverOpts...)

	errc := make(chan error, 1)
	go func() { errc <- srv.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer stop()
	return srv.Shutdown(shutdownCtx)
}

// newResolver builds the secret resolver from the configured providers.
// Secrets are memoized in the fetch cache; file secrets are forgotten when
// their file changes.
func newResolver(ctx context.Context, cfg config.SecretsConfig, memo *cache.Memo, logger observe.Logger) (*secret.Resolver, error) {
	specs := make([]secret.Spec, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		specs = append(specs, secret.Spec{Name: pc.Name, Config: pc.Config})
	}
	providers, err := secret.DefaultRegistry.Build(specs...)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}

	r := secret.NewResolver(cfg.Strict, providers...).Memoize(memo, cfg.TTL)
	for _, p := range providers {
		fp, ok := p.(secret.FileProvider)
		if !ok {
			continue
		}
		go func() {
			err := r.WatchFiles(ctx, fp.Dir, func(err error) {
				logger.Warn(ctx, "secret watcher error", observe.F("dir", fp.Dir), observe.F("error", err))
			})
			if err != nil {
				logger.Error(ctx, "secret watcher stopped", observe.F("dir", fp.Dir), observe.F("error", err))
			}
		}()
	}
	return r, nil
}

// newAuthenticator resolves admin credentials and composes the API key and
// JWT authenticators.
func newAuthenticator(ctx context.Context, cfg config.AdminConfig, secrets *secret.Resolver) (auth.Authenticator, error) {
	var authns []auth.Authenticator
	if len(cfg.APIKeys) > 0 {
		refs := make([]string, len(cfg.APIKeys))
		for i, k := range cfg.APIKeys {
			refs[i] = k.Key
		}
		raw, err := secrets.ResolveSlice(ctx, refs)
		if err != nil {
			return nil, fmt.Errorf("admin api keys: %w", err)
		}
		keys := make([]auth.APIKey, len(cfg.APIKeys))
		for i, k := range cfg.APIKeys {
			keys[i] = auth.APIKey{
				ID:        k.ID,
				KeyHash:   auth.HashAPIKey(raw[i]),
				Principal: k.Principal,
				Roles:     k.Roles,
			}
		}
		authns = append(authns, auth.NewAPIKeyAuthenticator("", keys...))
	}
	if cfg.JWT.Secret != "" {
		key, err := secrets.ResolveValue(ctx, cfg.JWT.Secret)
		if err != nil {
			return nil, fmt.Errorf("admin jwt secret: %w", err)
		}
		authns = append(authns, auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(key),
			Issuer:   cfg.JWT.Issuer,
			Audience: cfg.JWT.Audience,
		}))
	}
	if len(authns) == 0 {
		return nil, errors.New("admin: no authenticators configured")
	}
	return auth.NewCompositeAuthenticator(authns...), nil
}
