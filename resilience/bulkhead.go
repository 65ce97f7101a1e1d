package resilience

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent caps in-flight upstream requests when unset.
const DefaultMaxConcurrent = 32

// BulkheadConfig sizes the shared outbound slot pool.
type BulkheadConfig struct {
	MaxConcurrent int

	// MaxWait is how long a request queues for a slot. Zero rejects at once.
	MaxWait time.Duration
}

// Bulkhead caps how many upstream requests run at once, so one slow
// provider cannot tie up every badge handler.
type Bulkhead struct {
	size    int64
	maxWait time.Duration
	slots   *semaphore.Weighted

	mu       sync.Mutex
	held     int
	peak     int
	rejected int64
}

// NewBulkhead returns a bulkhead with cfg.MaxConcurrent slots.
func NewBulkhead(cfg BulkheadConfig) *Bulkhead {
	size := int64(cfg.MaxConcurrent)
	if size <= 0 {
		size = DefaultMaxConcurrent
	}
	return &Bulkhead{
		size:    size,
		maxWait: cfg.MaxWait,
		slots:   semaphore.NewWeighted(size),
	}
}

// Acquire takes a slot. It fails with ErrBulkheadFull once MaxWait passes
// without a slot, or with ctx's error if the caller gives up first.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	if b.slots.TryAcquire(1) {
		b.taken()
		return nil
	}
	if b.maxWait <= 0 {
		return b.reject()
	}

	wait, cancel := context.WithTimeout(ctx, b.maxWait)
	defer cancel()
	if err := b.slots.Acquire(wait, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return b.reject()
	}
	b.taken()
	return nil
}

// Release returns a slot. Calls without a matching Acquire are ignored.
func (b *Bulkhead) Release() {
	b.mu.Lock()
	if b.held == 0 {
		b.mu.Unlock()
		return
	}
	b.held--
	b.mu.Unlock()
	b.slots.Release(1)
}

// Execute runs op inside a slot.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}
	defer b.Release()
	return op(ctx)
}

func (b *Bulkhead) taken() {
	b.mu.Lock()
	b.held++
	b.peak = max(b.peak, b.held)
	b.mu.Unlock()
}

func (b *Bulkhead) reject() error {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
	return ErrBulkheadFull
}

// BulkheadMetrics is the bulkhead section of the admin cache report.
type BulkheadMetrics struct {
	Active        int   `json:"active"`
	MaxActive     int   `json:"max_active"`
	Available     int   `json:"available"`
	MaxConcurrent int   `json:"max_concurrent"`
	Rejected      int64 `json:"rejected"`
}

// Metrics snapshots slot usage.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BulkheadMetrics{
		Active:        b.held,
		MaxActive:     b.peak,
		Available:     int(b.size) - b.held,
		MaxConcurrent: int(b.size),
		Rejected:      b.rejected,
	}
}
