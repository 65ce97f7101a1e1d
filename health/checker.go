package health

import (
	"context"
	"time"
)

// Status orders check outcomes from best to worst, so the worst of a set is
// its maximum.
type Status int

const (
	StatusHealthy Status = iota
	// StatusDegraded means badges are still served but some may fall back to
	// unknown or error renderings.
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{
	StatusHealthy:   "healthy",
	StatusDegraded:  "degraded",
	StatusUnhealthy: "unhealthy",
}

func (s Status) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}

// Result is what one check reports. Duration is filled in by the aggregator.
type Result struct {
	Status   Status
	Message  string
	Details  map[string]any
	Duration time.Duration
	Error    error
}

func Healthy(msg string) Result  { return Result{Status: StatusHealthy, Message: msg} }
func Degraded(msg string) Result { return Result{Status: StatusDegraded, Message: msg} }

func Unhealthy(msg string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: msg, Error: err}
}

// WithDetails returns r carrying details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

// Checker probes one component of the badge service.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc is a named Checker backed by a plain function.
type CheckerFunc struct {
	name  string
	check func(context.Context) Result
}

func NewCheckerFunc(name string, check func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, check: check}
}

func (c *CheckerFunc) Name() string                     { return c.name }
func (c *CheckerFunc) Check(ctx context.Context) Result { return c.check(ctx) }
