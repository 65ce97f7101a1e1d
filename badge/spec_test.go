package badge

import (
	"errors"
	"testing"

	"github.com/jonwraymond/badges/aggregate"
	"github.com/jonwraymond/badges/jobs"
)

func TestStatusColor(t *testing.T) {
	tests := []struct {
		s    jobs.Status
		want string
	}{
		{jobs.StatusPassed, ColorBrightGreen},
		{jobs.StatusFailed, ColorRed},
		{jobs.StatusError, ColorLightGrey},
		{jobs.StatusUnknown, ColorLightGrey},
	}
	for _, tt := range tests {
		if got := StatusColor(tt.s); got != tt.want {
			t.Errorf("StatusColor(%v) = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestParseMatrixOptions(t *testing.T) {
	opts, err := ParseMatrixOptions(map[string]string{
		"logos":          "true",
		"labels":         "short",
		"exclude":        "^ie/",
		"sortBy":         "status",
		"versionDivider": "",
		"style":          "flat-square",
	})
	if err != nil {
		t.Fatalf("ParseMatrixOptions() error = %v", err)
	}
	if !opts.Logos || opts.Labels != LabelsShort || opts.SortBy != aggregate.SortByStatus ||
		!opts.VersionDivider || opts.Style != StyleFlatSquare {
		t.Errorf("unexpected options: %+v", opts)
	}
	if !opts.Excluded(jobs.Record{Browser: "ie", Version: "8"}) {
		t.Error("ie/8 should be excluded")
	}
	if opts.Excluded(jobs.Record{Browser: "edge", Version: "17"}) {
		t.Error("edge/17 should not be excluded")
	}
}

func TestParseMatrixOptions_Defaults(t *testing.T) {
	opts, err := ParseMatrixOptions(nil)
	if err != nil {
		t.Fatalf("ParseMatrixOptions(nil) error = %v", err)
	}
	if opts.Labels != LabelsName || opts.SortBy != aggregate.SortByVersion || opts.Style != StyleFlat || opts.Logos {
		t.Errorf("defaults = %+v", opts)
	}
}

func TestParseMatrixOptions_InvalidValuesKeepDefaults(t *testing.T) {
	opts, err := ParseMatrixOptions(map[string]string{
		"logos":   "maybe",
		"labels":  "huge",
		"exclude": "(",
		"sortBy":  "color",
		"style":   "3d",
	})
	if !errors.Is(err, ErrInvalidOption) {
		t.Fatalf("error = %v, want ErrInvalidOption", err)
	}
	if len(err.(interface{ Unwrap() []error }).Unwrap()) != 5 {
		t.Errorf("expected 5 joined errors, got %v", err)
	}
	if opts.Labels != LabelsName || opts.Exclude != nil || opts.SortBy != aggregate.SortByVersion || opts.Style != StyleFlat {
		t.Errorf("invalid values should keep defaults: %+v", opts)
	}
}

func TestParseStyle(t *testing.T) {
	for _, s := range []string{"", "flat", "flat-square", "plastic"} {
		if _, ok := ParseStyle(s); !ok {
			t.Errorf("ParseStyle(%q) should be valid", s)
		}
	}
	if _, ok := ParseStyle("for-the-badge"); ok {
		t.Error("unsupported style should be rejected")
	}
}
