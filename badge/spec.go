package badge

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonwraymond/badges/aggregate"
	"github.com/jonwraymond/badges/jobs"
)

// Colors used by the service.
const (
	ColorBrightGreen = "brightgreen"
	ColorRed         = "red"
	ColorLightGrey   = "lightgrey"
)

// Spec is a two-segment badge.
type Spec struct {
	Label string
	Value string
	Color string
	Style Style
}

// Style is the visual style of a badge.
type Style string

const (
	StyleFlat       Style = "flat"
	StyleFlatSquare Style = "flat-square"
	StylePlastic    Style = "plastic"
)

// ParseStyle returns the named style, defaulting to StyleFlat.
func ParseStyle(s string) (Style, bool) {
	switch Style(s) {
	case "", StyleFlat:
		return StyleFlat, true
	case StyleFlatSquare, StylePlastic:
		return Style(s), true
	default:
		return StyleFlat, false
	}
}

// StatusColor returns the badge color for a status.
func StatusColor(s jobs.Status) string {
	switch s {
	case jobs.StatusPassed:
		return ColorBrightGreen
	case jobs.StatusFailed:
		return ColorRed
	default:
		return ColorLightGrey
	}
}

// Labels selects how browsers are labelled in a matrix.
type Labels string

const (
	LabelsName  Labels = "name"  // display name, e.g. "Chrome"
	LabelsShort Labels = "short" // browser ID, e.g. "chrome"
	LabelsNone  Labels = "none"
)

// MatrixOptions controls matrix rendering.
type MatrixOptions struct {
	Logos   bool
	Labels  Labels
	Exclude *regexp.Regexp // matched against "browser/version"
	SortBy  aggregate.SortBy

	// VersionDivider draws a separator line between version cells.
	VersionDivider bool
	Style          Style
}

// DefaultMatrixOptions returns the options used when none are given.
func DefaultMatrixOptions() MatrixOptions {
	return MatrixOptions{
		Labels: LabelsName,
		SortBy: aggregate.SortByVersion,
		Style:  StyleFlat,
	}
}

// Excluded reports whether a cell is hidden by the Exclude pattern.
func (o MatrixOptions) Excluded(r jobs.Record) bool {
	return o.Exclude != nil && o.Exclude.MatchString(r.Browser+"/"+r.Version)
}

// ErrInvalidOption reports an unusable rendering option. The option falls
// back to its default.
var ErrInvalidOption = errors.New("badge: invalid option")

// ParseMatrixOptions reads options from query parameters. Invalid values
// keep their defaults and are reported in the joined error, which callers
// may log and otherwise ignore.
func ParseMatrixOptions(q map[string]string) (MatrixOptions, error) {
	opts := DefaultMatrixOptions()
	var errs []error
	invalid := func(name, value string) {
		errs = append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidOption, name, value))
	}

	if v, ok := q["logos"]; ok {
		b, err := parseBool(v)
		if err != nil {
			invalid("logos", v)
		}
		opts.Logos = b
	}
	if v := q["labels"]; v != "" {
		switch Labels(strings.ToLower(v)) {
		case LabelsName, LabelsShort, LabelsNone:
			opts.Labels = Labels(strings.ToLower(v))
		default:
			invalid("labels", v)
		}
	}
	if v := q["exclude"]; v != "" {
		re, err := regexp.Compile(v)
		if err != nil {
			invalid("exclude", v)
		} else {
			opts.Exclude = re
		}
	}
	if v := q["sortBy"]; v != "" {
		sortBy, ok := aggregate.ParseSortBy(v)
		if !ok {
			invalid("sortBy", v)
		}
		opts.SortBy = sortBy
	}
	if v, ok := q["versionDivider"]; ok {
		b, err := parseBool(v)
		if err != nil {
			invalid("versionDivider", v)
		}
		opts.VersionDivider = b
	}
	if v := q["style"]; v != "" {
		style, ok := ParseStyle(v)
		if !ok {
			invalid("style", v)
		}
		opts.Style = style
	}
	return opts, errors.Join(errs...)
}

// parseBool treats a present but empty flag as true.
func parseBool(v string) (bool, error) {
	if v == "" {
		return true, nil
	}
	return strconv.ParseBool(v)
}
