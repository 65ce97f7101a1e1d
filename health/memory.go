package health

import (
	"context"
	"fmt"
	"runtime"

	"github.com/dustin/go-humanize"
)

// MemoryChecker compares the live heap against a limit.
type MemoryChecker struct {
	limit    uint64
	readHeap func() uint64
}

// NewMemoryChecker creates a checker that degrades at 80% of limit bytes
// and fails at 95%. A zero limit only reports usage.
func NewMemoryChecker(limit uint64) *MemoryChecker {
	return &MemoryChecker{limit: limit, readHeap: heapAlloc}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.HeapAlloc
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string { return "memory" }

// Check performs the memory health check.
func (m *MemoryChecker) Check(context.Context) Result {
	heap := m.readHeap()
	details := map[string]any{
		"heap":       humanize.Bytes(heap),
		"goroutines": runtime.NumGoroutine(),
	}
	if m.limit == 0 {
		return Healthy("heap " + humanize.Bytes(heap)).WithDetails(details)
	}

	details["limit"] = humanize.Bytes(m.limit)
	ratio := float64(heap) / float64(m.limit)
	msg := fmt.Sprintf("heap at %.1f%% of limit", ratio*100)
	switch {
	case ratio >= 0.95:
		return Unhealthy(msg, ErrCheckFailed).WithDetails(details)
	case ratio >= 0.8:
		return Degraded(msg).WithDetails(details)
	default:
		return Healthy(msg).WithDetails(details)
	}
}
