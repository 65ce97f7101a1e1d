package jobs

import (
	"fmt"
	"strings"
)

// Status is the outcome of a job or of a whole build.
type Status int

const (
	StatusUnknown Status = iota
	StatusPassed
	StatusFailed
	StatusError
)

// String returns the lowercase name used in badges.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseStatus maps a status name to a Status. Unrecognized names are
// StatusUnknown.
func ParseStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "passed", "pass", "success":
		return StatusPassed
	case "failed", "fail", "failure":
		return StatusFailed
	case "error", "errored":
		return StatusError
	default:
		return StatusUnknown
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	parsed := ParseStatus(string(b))
	if parsed == StatusUnknown && !strings.EqualFold(string(b), "unknown") && len(b) > 0 {
		return fmt.Errorf("jobs: unknown status %q", b)
	}
	*s = parsed
	return nil
}

// Outcomer is anything that has a Status.
type Outcomer interface {
	Outcome() Status
}
