package aggregate

import "github.com/jonwraymond/badges/jobs"

// severity orders statuses for reduction: the highest wins.
func severity(s jobs.Status) int {
	switch s {
	case jobs.StatusFailed:
		return 3
	case jobs.StatusError:
		return 2
	case jobs.StatusUnknown:
		return 1
	default:
		return 0
	}
}

// Overall reduces items to one status. Failed outranks error, error
// outranks unknown, and unknown outranks passed. No items yield
// StatusUnknown.
func Overall[T jobs.Outcomer](items []T) jobs.Status {
	if len(items) == 0 {
		return jobs.StatusUnknown
	}
	overall := jobs.StatusPassed
	for _, item := range items {
		if s := item.Outcome(); severity(s) > severity(overall) {
			overall = s
		}
	}
	return overall
}
