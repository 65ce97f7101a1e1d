package health

import "errors"

// Errors attached to unhealthy results.
var (
	ErrCheckFailed  = errors.New("health: threshold exceeded")
	ErrCheckTimeout = errors.New("health: check did not finish in time")
)
