package service

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/badges/aggregate"
	"github.com/jonwraymond/badges/badge"
	"github.com/jonwraymond/badges/fetch"
	"github.com/jonwraymond/badges/filesize"
	"github.com/jonwraymond/badges/jobs"
	"github.com/jonwraymond/badges/observe"
	"github.com/jonwraymond/badges/sauce"
	"github.com/jonwraymond/badges/secret"
	"github.com/jonwraymond/badges/travis"
)

const matrixLabel = "browsers"

// Service builds badges.
type Service struct {
	fetch     *fetch.Client
	assembler *badge.Assembler
	secrets   *secret.Resolver
	mw        *observe.Middleware

	travisEndpoint string
	travisToken    string
	sauceEndpoint  string
	sauceKey       string
	sources        filesize.Sources
}

// Option configures a Service.
type Option func(*Service)

// WithSecrets resolves credential references with r.
func WithSecrets(r *secret.Resolver) Option {
	return func(s *Service) { s.secrets = r }
}

// WithMiddleware records every badge request through mw.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(s *Service) { s.mw = mw }
}

// WithTravis sets the default Travis endpoint and API token. The token may
// be a secret reference.
func WithTravis(endpoint, token string) Option {
	return func(s *Service) {
		s.travisEndpoint = endpoint
		s.travisToken = token
	}
}

// WithSauce sets the Sauce Labs endpoint and access key. The key may be a
// secret reference.
func WithSauce(endpoint, accessKey string) Option {
	return func(s *Service) {
		s.sauceEndpoint = endpoint
		s.sauceKey = accessKey
	}
}

// WithSources replaces the file size sources.
func WithSources(sources filesize.Sources) Option {
	return func(s *Service) { s.sources = sources }
}

// New creates a Service. A nil assembler renders locally.
func New(fc *fetch.Client, assembler *badge.Assembler, opts ...Option) *Service {
	s := &Service{
		fetch:     fc,
		assembler: assembler,
		sources:   filesize.DefaultSources,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fetch == nil {
		s.fetch = fetch.NewClient(nil)
	}
	if s.assembler == nil {
		s.assembler = badge.NewAssembler(nil)
	}
	if s.mw == nil {
		s.mw = observe.NopMiddleware()
	}
	return s
}

// Browsers renders a matrix from inline version lists keyed by browser ID.
// Malformed tokens are logged and skipped.
func (s *Service) Browsers(ctx context.Context, inline map[string]string, opts badge.MatrixOptions) badge.Result {
	var res badge.Result
	_ = s.mw.Run(ctx, operation("browsers"), func(ctx context.Context) error {
		records, err := jobs.ParseInline(inline)
		if err != nil {
			s.mw.Logger().Warn(ctx, "skipped inline tokens", observe.F("error", err))
		}
		res = s.assembler.Matrix(ctx, aggregate.Group(records), opts)
		return nil
	})
	return res
}

// SauceRequest selects Sauce Labs jobs for a matrix.
type SauceRequest struct {
	User string

	// Build selects a Sauce build. Empty selects the latest.
	Build   string
	Query   sauce.Query
	Filter  jobs.Filter
	Options badge.MatrixOptions
}

// Sauce renders a matrix from a Sauce Labs build.
func (s *Service) Sauce(ctx context.Context, req SauceRequest) badge.Result {
	return s.matrix(ctx, "sauce", req.Options, func(ctx context.Context) ([]sauce.Job, error) {
		client, err := s.sauce(ctx, req.User)
		if err != nil {
			return nil, err
		}
		return client.BuildJobs(ctx, req.Build, req.Query)
	}, req.Filter)
}

// TravisRequest selects the latest build of a Travis branch.
type TravisRequest struct {
	// Endpoint overrides the configured Travis endpoint.
	Endpoint string
	User     string
	Repo     string

	// Branch defaults to travis.DefaultBranch.
	Branch string

	// Label defaults to Repo.
	Label string

	// Env keeps only jobs whose environment contains it.
	Env   string
	Style badge.Style
}

// Travis renders the overall status of the latest build of a branch.
func (s *Service) Travis(ctx context.Context, req TravisRequest) badge.Result {
	label := req.Label
	if label == "" {
		label = req.Repo
	}
	var res badge.Result
	err := s.mw.Run(ctx, operation("travis"), func(ctx context.Context) error {
		client, err := s.travis(ctx, req.Endpoint)
		if err != nil {
			return err
		}
		build, err := client.LatestBranchBuild(ctx, req.User, req.Repo, branchOrDefault(req.Branch))
		if errors.Is(err, travis.ErrNoBuild) {
			res = s.assembler.Unknown(ctx, label, req.Style)
			return nil
		}
		if err != nil {
			return err
		}
		selected := jobs.FilterJobs(build.JobList(), jobs.Filter{Env: req.Env})
		res = s.assembler.Status(ctx, label, aggregate.Overall(selected), req.Style)
		return nil
	})
	if err != nil {
		return s.assembler.Error(ctx, label, req.Style)
	}
	return res
}

// TravisSauceRequest selects the Sauce Labs jobs of the latest Travis build
// of a branch.
type TravisSauceRequest struct {
	Endpoint string
	User     string
	Repo     string
	Branch   string

	// SauceUser defaults to User.
	SauceUser string
	Filter    jobs.Filter
	Options   badge.MatrixOptions
}

// TravisSauce renders a matrix from the Sauce Labs jobs that ran for the
// latest Travis build. The build lookup and the Sauce credentials are
// resolved concurrently.
func (s *Service) TravisSauce(ctx context.Context, req TravisSauceRequest) badge.Result {
	sauceUser := req.SauceUser
	if sauceUser == "" {
		sauceUser = req.User
	}
	return s.matrix(ctx, "travis-sauce", req.Options, func(ctx context.Context) ([]sauce.Job, error) {
		var (
			build  *travis.Build
			client *sauce.Client
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			tc, err := s.travis(gctx, req.Endpoint)
			if err != nil {
				return err
			}
			build, err = tc.LatestBranchBuild(gctx, req.User, req.Repo, branchOrDefault(req.Branch))
			return err
		})
		g.Go(func() error {
			var err error
			client, err = s.sauce(gctx, sauceUser)
			return err
		})
		if err := g.Wait(); err != nil {
			if errors.Is(err, travis.ErrNoBuild) {
				return []sauce.Job{}, nil
			}
			return nil, err
		}
		return client.TravisBuildJobs(ctx, build.Number)
	}, req.Filter)
}

// SizeRequest selects a file whose size is shown.
type SizeRequest struct {
	Source string
	Path   string
	Gzip   bool

	// Label defaults to "size" or "size (gzip)".
	Label string

	// Color defaults to brightgreen.
	Color string
	Style badge.Style
}

// Size renders the size of a file.
func (s *Service) Size(ctx context.Context, req SizeRequest) badge.Result {
	label := req.Label
	if label == "" {
		label = "size"
		if req.Gzip {
			label = "size (gzip)"
		}
	}
	color := req.Color
	if color == "" {
		color = badge.ColorBrightGreen
	}
	var res badge.Result
	err := s.mw.Run(ctx, operation("size"), func(ctx context.Context) error {
		url, err := s.sources.Resolve(req.Source, req.Path)
		if err != nil {
			return err
		}
		size, err := filesize.Lookup(ctx, s.fetch, url, req.Gzip)
		if err != nil {
			return err
		}
		res = s.assembler.Text(ctx, badge.Spec{Label: label, Value: size, Color: color, Style: req.Style})
		return nil
	})
	if err != nil {
		return s.assembler.Error(ctx, label, req.Style)
	}
	return res
}

// matrix runs the shared Sauce pipeline: list, filter, normalize, group
// and render.
func (s *Service) matrix(ctx context.Context, source string, opts badge.MatrixOptions, list func(context.Context) ([]sauce.Job, error), filter jobs.Filter) badge.Result {
	var res badge.Result
	err := s.mw.Run(ctx, operation(source), func(ctx context.Context) error {
		found, err := list(ctx)
		if err != nil {
			return err
		}
		selected := jobs.FilterJobs(sauce.Convert(found), filter)
		res = s.assembler.Matrix(ctx, aggregate.Group(jobs.Normalize(selected)), opts)
		return nil
	})
	if err != nil {
		return s.assembler.Error(ctx, matrixLabel, opts.Style)
	}
	return res
}

func (s *Service) travis(ctx context.Context, endpoint string) (*travis.Client, error) {
	if endpoint == "" {
		endpoint = s.travisEndpoint
	}
	token, err := s.secrets.ResolveValue(ctx, s.travisToken)
	if err != nil {
		return nil, err
	}
	return travis.NewClient(s.fetch, endpoint, token), nil
}

func (s *Service) sauce(ctx context.Context, user string) (*sauce.Client, error) {
	key, err := s.secrets.ResolveValue(ctx, s.sauceKey)
	if err != nil {
		return nil, err
	}
	return sauce.NewClient(s.fetch, s.sauceEndpoint, user, key), nil
}

func branchOrDefault(branch string) string {
	if branch == "" {
		return travis.DefaultBranch
	}
	return branch
}

func operation(source string) observe.Operation {
	return observe.Operation{Kind: observe.KindBadge, Name: source, Source: source}
}
