package resilience

import "errors"

var (
	ErrCircuitOpen  = errors.New("resilience: circuit open")
	ErrBulkheadFull = errors.New("resilience: no outbound slot available")
	ErrTimeout      = errors.New("resilience: upstream call timed out")
)

// IsRejection reports whether the guard refused the call before any request
// was sent.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrBulkheadFull)
}
