package badge

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/jonwraymond/badges/aggregate"
	"github.com/jonwraymond/badges/jobs"
)

const (
	rowHeight   = 20
	textPadding = 10
	logoWidth   = 16
	minCell     = 24
)

// namedColors are the color names accepted in Spec.Color.
var namedColors = map[string]string{
	"brightgreen": "#4c1",
	"green":       "#97ca00",
	"yellowgreen": "#a4a61d",
	"yellow":      "#dfb317",
	"orange":      "#fe7d37",
	"red":         "#e05d44",
	"blue":        "#007ec6",
	"grey":        "#555",
	"gray":        "#555",
	"lightgrey":   "#9f9f9f",
	"lightgray":   "#9f9f9f",
}

var hexColor = regexp.MustCompile(`^#?([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// fill resolves a color name or hex code, defaulting to lightgrey.
func fill(color string) string {
	if c, ok := namedColors[strings.ToLower(color)]; ok {
		return c
	}
	if m := hexColor.FindStringSubmatch(color); m != nil {
		return "#" + m[1]
	}
	return namedColors[ColorLightGrey]
}

// textWidth approximates the rendered width of s in 11px Verdana.
func textWidth(s string) int {
	var w float64
	for _, r := range s {
		switch {
		case strings.ContainsRune("iIjl.,:;|!'`()[] ", r):
			w += 3.7
		case strings.ContainsRune("mwMW", r):
			w += 10.5
		case r >= 'A' && r <= 'Z':
			w += 7.6
		case r >= '0' && r <= '9':
			w += 7
		default:
			w += 6.4
		}
	}
	return int(w + 0.5)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

var templates = template.Must(template.New("badge").Funcs(template.FuncMap{"x": escape}).Parse(badgeTemplate))

func init() {
	template.Must(templates.New("matrix").Parse(matrixTemplate))
}

// SVGRenderer draws badges locally.
type SVGRenderer struct{}

// NewSVGRenderer creates a local renderer.
func NewSVGRenderer() *SVGRenderer { return &SVGRenderer{} }

type badgeView struct {
	Label, Value, Color    string
	Width                  int
	LabelWidth, ValueWidth int
	LabelX, ValueX         float64
	Radius                 int
	Gradient               bool
}

// RenderBadge implements BadgeRenderer.
func (r *SVGRenderer) RenderBadge(_ context.Context, spec Spec) ([]byte, error) {
	lw := textWidth(spec.Label) + textPadding
	vw := textWidth(spec.Value) + textPadding
	if spec.Label == "" {
		lw = 0
	}
	view := badgeView{
		Label:      spec.Label,
		Value:      spec.Value,
		Color:      fill(spec.Color),
		Width:      lw + vw,
		LabelWidth: lw,
		ValueWidth: vw,
		LabelX:     float64(lw) / 2,
		ValueX:     float64(lw) + float64(vw)/2,
		Radius:     radius(spec.Style),
		Gradient:   spec.Style == StylePlastic,
	}
	return execute("badge", view)
}

type cellView struct {
	X, Y, Width int
	TextY       int
	TextX       float64
	Version  string
	Status   string
	Color    string
	Divider  bool
}

type rowView struct {
	Y, TextY       int
	Label          string
	LabelX         float64
	Logo           string
	LogoCX, LogoCY int
	Cells          []cellView
}

type matrixView struct {
	Width, Height int
	LabelWidth    int
	Rows          []rowView
	Radius        int
	Gradient      bool
	Title         string
}

// RenderMatrix implements MatrixRenderer. Exclusions are the caller's
// responsibility; every cell in m is drawn.
func (r *SVGRenderer) RenderMatrix(_ context.Context, m aggregate.Matrix, opts MatrixOptions) ([]byte, error) {
	rows := m.Rows(opts.SortBy)
	if len(rows) == 0 {
		return nil, ErrEmptyMatrix
	}

	labelWidth := 0
	cellWidth := minCell
	for _, row := range rows {
		if w := textWidth(browserLabel(row.Browser, opts.Labels)); w > labelWidth {
			labelWidth = w
		}
		for _, c := range row.Cells {
			if w := textWidth(c.Version) + textPadding; w > cellWidth {
				cellWidth = w
			}
		}
	}
	if labelWidth > 0 {
		labelWidth += textPadding
	}
	if opts.Logos {
		labelWidth += logoWidth + 4
	}

	view := matrixView{
		LabelWidth: labelWidth,
		Radius:     radius(opts.Style),
		Gradient:   opts.Style == StylePlastic,
		Title:      fmt.Sprintf("%d browser versions", m.Len()),
	}
	maxCells := 0
	for i, row := range rows {
		y := i * rowHeight
		rv := rowView{
			Y:      y,
			TextY:  y + 14,
			Label:  browserLabel(row.Browser, opts.Labels),
			LabelX: float64(labelWidth) / 2,
		}
		if opts.Logos && row.Browser.ID != "" {
			rv.Logo = strings.ToUpper(row.Browser.ID[:1])
			rv.LogoCX = 4 + logoWidth/2
			rv.LogoCY = y + rowHeight/2
			rv.LabelX = float64(logoWidth+4) + float64(labelWidth-logoWidth-4)/2
		}
		for j, c := range row.Cells {
			x := labelWidth + j*cellWidth
			rv.Cells = append(rv.Cells, cellView{
				X:       x,
				Y:       y,
				TextY:   y + 14,
				Width:   cellWidth,
				TextX:   float64(x) + float64(cellWidth)/2,
				Version: c.Version,
				Status:  c.Status.String(),
				Color:   fill(StatusColor(c.Status)),
				Divider: opts.VersionDivider && j > 0,
			})
		}
		if len(row.Cells) > maxCells {
			maxCells = len(row.Cells)
		}
		view.Rows = append(view.Rows, rv)
	}
	view.Width = labelWidth + maxCells*cellWidth
	view.Height = len(rows) * rowHeight
	return execute("matrix", view)
}

func browserLabel(b jobs.Browser, labels Labels) string {
	switch labels {
	case LabelsNone:
		return ""
	case LabelsShort:
		return b.ID
	default:
		return b.Name
	}
}

func radius(s Style) int {
	if s == StyleFlatSquare {
		return 0
	}
	return 3
}

func execute(name string, view any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, view); err != nil {
		return nil, fmt.Errorf("badge: render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

const badgeTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="20" role="img" aria-label="{{x .Label}}: {{x .Value}}">
<title>{{x .Label}}: {{x .Value}}</title>
{{- if .Gradient}}
<linearGradient id="s" x2="0" y2="100%"><stop offset="0" stop-color="#bbb" stop-opacity=".1"/><stop offset="1" stop-opacity=".1"/></linearGradient>
{{- end}}
<clipPath id="r"><rect width="{{.Width}}" height="20" rx="{{.Radius}}" fill="#fff"/></clipPath>
<g clip-path="url(#r)">
<rect width="{{.LabelWidth}}" height="20" fill="#555"/>
<rect x="{{.LabelWidth}}" width="{{.ValueWidth}}" height="20" fill="{{.Color}}"/>
{{- if .Gradient}}
<rect width="{{.Width}}" height="20" fill="url(#s)"/>
{{- end}}
</g>
<g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">
{{- if .Label}}
<text x="{{.LabelX}}" y="14">{{x .Label}}</text>
{{- end}}
<text x="{{.ValueX}}" y="14">{{x .Value}}</text>
</g>
</svg>
`

const matrixTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" role="img" aria-label="{{x .Title}}">
<title>{{x .Title}}</title>
{{- if .Gradient}}
<linearGradient id="s" x2="0" y2="100%"><stop offset="0" stop-color="#bbb" stop-opacity=".1"/><stop offset="1" stop-opacity=".1"/></linearGradient>
{{- end}}
<clipPath id="r"><rect width="{{.Width}}" height="{{.Height}}" rx="{{.Radius}}" fill="#fff"/></clipPath>
<g clip-path="url(#r)">
{{- range .Rows}}
<rect y="{{.Y}}" width="{{$.Width}}" height="20" fill="#555"/>
{{- range .Cells}}
<rect x="{{.X}}" y="{{.Y}}" width="{{.Width}}" height="20" fill="{{.Color}}"><title>{{x .Version}}: {{.Status}}</title></rect>
{{- if .Divider}}
<rect x="{{.X}}" y="{{.Y}}" width="1" height="20" fill="#fff" fill-opacity=".3"/>
{{- end}}
{{- end}}
{{- end}}
{{- if .Gradient}}
<rect width="{{.Width}}" height="{{.Height}}" fill="url(#s)"/>
{{- end}}
</g>
<g fill="#fff" text-anchor="middle" font-family="Verdana,Geneva,DejaVu Sans,sans-serif" font-size="11">
{{- range .Rows}}
{{- if .Logo}}
<circle cx="{{.LogoCX}}" cy="{{.LogoCY}}" r="7" fill="#fff" fill-opacity=".25"/>
<text x="{{.LogoCX}}" y="{{.TextY}}" font-size="9">{{x .Logo}}</text>
{{- end}}
{{- if .Label}}
<text x="{{.LabelX}}" y="{{.TextY}}">{{x .Label}}</text>
{{- end}}
{{- range .Cells}}
<text x="{{.TextX}}" y="{{.TextY}}">{{x .Version}}</text>
{{- end}}
{{- end}}
</g>
</svg>
`
