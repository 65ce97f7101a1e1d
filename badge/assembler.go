package badge

import (
	"context"
	"errors"

	"github.com/jonwraymond/badges/aggregate"
	"github.com/jonwraymond/badges/jobs"
	"github.com/jonwraymond/badges/observe"
)

// ContentTypeSVG is the content type of every rendered badge.
const ContentTypeSVG = "image/svg+xml"

// ErrEmptyMatrix is returned by renderers asked to draw no cells.
var ErrEmptyMatrix = errors.New("badge: matrix is empty")

// BadgeRenderer draws two-segment badges.
type BadgeRenderer interface {
	RenderBadge(ctx context.Context, spec Spec) ([]byte, error)
}

// MatrixRenderer draws browser matrices.
type MatrixRenderer interface {
	RenderMatrix(ctx context.Context, m aggregate.Matrix, opts MatrixOptions) ([]byte, error)
}

// Renderer draws both kinds of badge.
type Renderer interface {
	BadgeRenderer
	MatrixRenderer
}

// Result is a rendered badge.
type Result struct {
	Body        []byte
	ContentType string
}

// Assembler builds badges and degrades to fallbacks instead of failing.
type Assembler struct {
	badges BadgeRenderer
	matrix MatrixRenderer
	local  Renderer
	logger observe.Logger
}

// AssemblerOption configures an Assembler.
type AssemblerOption func(*Assembler)

// WithBadgeRenderer draws two-segment badges with r instead of the local
// renderer. The local renderer remains the fallback.
func WithBadgeRenderer(r BadgeRenderer) AssemblerOption {
	return func(a *Assembler) { a.badges = r }
}

// WithLogger sets the logger for rendering failures.
func WithLogger(l observe.Logger) AssemblerOption {
	return func(a *Assembler) { a.logger = l }
}

// NewAssembler creates an assembler around the local renderer.
func NewAssembler(local Renderer, opts ...AssemblerOption) *Assembler {
	if local == nil {
		local = NewSVGRenderer()
	}
	a := &Assembler{
		badges: local,
		matrix: local,
		local:  local,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Text renders spec.
func (a *Assembler) Text(ctx context.Context, spec Spec) Result {
	body, err := a.badges.RenderBadge(ctx, spec)
	if err == nil {
		return svg(body)
	}
	a.logger.Warn(ctx, "badge render failed", observe.F("label", spec.Label), observe.F("error", err))
	return a.fallback(ctx, Spec{Label: spec.Label, Value: "error", Color: ColorLightGrey, Style: spec.Style})
}

// Status renders a status badge colored by StatusColor.
func (a *Assembler) Status(ctx context.Context, label string, status jobs.Status, style Style) Result {
	return a.Text(ctx, Spec{Label: label, Value: status.String(), Color: StatusColor(status), Style: style})
}

// Error renders the canonical error badge.
func (a *Assembler) Error(ctx context.Context, label string, style Style) Result {
	return a.Text(ctx, Spec{Label: label, Value: "error", Color: ColorLightGrey, Style: style})
}

// Unknown renders the canonical unknown badge.
func (a *Assembler) Unknown(ctx context.Context, label string, style Style) Result {
	return a.Text(ctx, Spec{Label: label, Value: "unknown", Color: ColorLightGrey, Style: style})
}

// Matrix renders m after applying opts.Exclude. A matrix with no cells
// left renders as "browsers | unknown".
func (a *Assembler) Matrix(ctx context.Context, m aggregate.Matrix, opts MatrixOptions) Result {
	if opts.Exclude != nil {
		m = m.Filter(func(r jobs.Record) bool { return !opts.Excluded(r) })
	}
	if m.Len() == 0 {
		return a.Unknown(ctx, "browsers", opts.Style)
	}
	body, err := a.matrix.RenderMatrix(ctx, m, opts)
	if err != nil {
		a.logger.Warn(ctx, "matrix render failed", observe.F("cells", m.Len()), observe.F("error", err))
		return a.Error(ctx, "browsers", opts.Style)
	}
	return svg(body)
}

func (a *Assembler) fallback(ctx context.Context, spec Spec) Result {
	body, err := a.local.RenderBadge(ctx, spec)
	if err != nil {
		a.logger.Error(ctx, "fallback badge render failed", observe.F("error", err))
		return svg(placeholder)
	}
	return svg(body)
}

func svg(body []byte) Result {
	return Result{Body: body, ContentType: ContentTypeSVG}
}

// placeholder is served only if even the local renderer fails.
var placeholder = []byte(`<svg xmlns="http://www.w3.org/2000/svg" width="1" height="20"/>`)
