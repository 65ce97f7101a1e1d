package resilience

import (
	"context"
	"sort"
	"sync"
	"time"
)

// GuardConfig configures a Guard.
type GuardConfig struct {
	// Timeout bounds each upstream call. Default: DefaultTimeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxConcurrent caps outbound calls across all hosts. Default: 32.
	MaxConcurrent int `yaml:"max_concurrent"`

	// MaxWait is how long a call may queue for an outbound slot.
	MaxWait time.Duration `yaml:"max_wait"`

	// Circuit configures the breaker created for each host.
	Circuit CircuitBreakerConfig `yaml:"circuit"`
}

// Guard protects outbound calls with a shared bulkhead, a circuit breaker
// per upstream host and a per-call timeout.
type Guard struct {
	config   GuardConfig
	bulkhead *Bulkhead
	timeout  *Timeout

	mu       sync.Mutex
	breakers map[string]*CircuitBreaker
}

// NewGuard creates a guard.
func NewGuard(config GuardConfig) *Guard {
	return &Guard{
		config: config,
		bulkhead: NewBulkhead(BulkheadConfig{
			MaxConcurrent: config.MaxConcurrent,
			MaxWait:       config.MaxWait,
		}),
		timeout:  NewTimeout(config.Timeout),
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Execute runs op against host. Rejections from the bulkhead or an open
// circuit are returned without calling op.
func (g *Guard) Execute(ctx context.Context, host string, op func(context.Context) error) error {
	breaker := g.Breaker(host)
	return g.bulkhead.Execute(ctx, func(ctx context.Context) error {
		return breaker.Execute(ctx, func(ctx context.Context) error {
			return g.timeout.Execute(ctx, op)
		})
	})
}

// Breaker returns the circuit breaker for host, creating it on first use.
func (g *Guard) Breaker(host string) *CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()

	cb, ok := g.breakers[host]
	if !ok {
		cb = NewCircuitBreaker(host, g.config.Circuit)
		g.breakers[host] = cb
	}
	return cb
}

// States returns a snapshot of every known breaker, sorted by host.
func (g *Guard) States() []CircuitBreakerMetrics {
	g.mu.Lock()
	breakers := make([]*CircuitBreaker, 0, len(g.breakers))
	for _, cb := range g.breakers {
		breakers = append(breakers, cb)
	}
	g.mu.Unlock()

	out := make([]CircuitBreakerMetrics, 0, len(breakers))
	for _, cb := range breakers {
		out = append(out, cb.Metrics())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Host < out[j].Host })
	return out
}

// Bulkhead returns the shared outbound bulkhead.
func (g *Guard) Bulkhead() *Bulkhead {
	return g.bulkhead
}

// Timeout returns the per-call deadline.
func (g *Guard) Timeout() time.Duration {
	return g.timeout.Duration()
}
