package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrTypeMismatch is returned by Do when a key already resolved to a value of
// a different type than the caller expects.
var ErrTypeMismatch = errors.New("cache: cached value has unexpected type")

// EventKind classifies what happened to a fetch.
type EventKind int

const (
	EventHit EventKind = iota
	EventMiss
	EventCoalesced
	EventStored
	EventEvicted
)

// String returns the metric label for the event kind.
func (k EventKind) String() string {
	switch k {
	case EventHit:
		return "hit"
	case EventMiss:
		return "miss"
	case EventCoalesced:
		return "coalesced"
	case EventStored:
		return "stored"
	case EventEvicted:
		return "evicted"
	default:
		return "unknown"
	}
}

// Event is reported to the observer for every cache decision.
type Event struct {
	Kind EventKind
	Key  FetchKey
	TTL  time.Duration
	Err  error
}

// Action performs the upstream call for a key.
type Action[T any] func(ctx context.Context) (T, error)

// Memo deduplicates and memoizes upstream calls.
//
// Concurrent calls for the same key share one in-flight action. Successful
// results are retained for the TTL their policy picks after resolution; failed
// actions leave nothing behind, so the next call goes upstream again.
type Memo struct {
	store    Store
	keyer    Keyer
	policy   Policy
	group    singleflight.Group
	observer func(context.Context, Event)

	hits      atomic.Int64
	misses    atomic.Int64
	coalesced atomic.Int64
	evictions atomic.Int64
	inFlight  atomic.Int64
}

// MemoOption configures a Memo.
type MemoOption func(*Memo)

// WithObserver registers fn to receive every cache Event. fn must not block.
func WithObserver(fn func(context.Context, Event)) MemoOption {
	return func(m *Memo) {
		m.observer = fn
	}
}

// NewMemo creates a Memo. A nil store or keyer selects the defaults.
func NewMemo(store Store, keyer Keyer, policy Policy, opts ...MemoOption) *Memo {
	if store == nil {
		store = NewMemoryStore(nil)
	}
	if keyer == nil {
		keyer = NewDefaultKeyer()
	}
	m := &Memo{
		store:  store,
		keyer:  keyer,
		policy: policy,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Do returns the value for key, running action at most once across all
// concurrent callers. ttl is evaluated on the resolved value; nil means the
// policy's DefaultTTL.
//
// If ctx is cancelled while waiting, Do returns ctx.Err() but the action keeps
// running and still populates the store for later callers.
func Do[T any](ctx context.Context, m *Memo, key FetchKey, action Action[T], ttl TTLPolicy) (T, error) {
	var zero T
	if m == nil {
		return zero, ErrNilCache
	}

	v, err := m.do(ctx, key, func(ctx context.Context) (any, error) {
		return action(ctx)
	}, ttl)
	if err != nil {
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T", ErrTypeMismatch, key, v)
	}
	return typed, nil
}

func (m *Memo) do(ctx context.Context, key FetchKey, action func(context.Context) (any, error), ttl TTLPolicy) (any, error) {
	k, err := m.keyer.Key(key)
	if err != nil {
		return nil, err
	}
	if err := ValidateKey(k); err != nil {
		return nil, err
	}

	if v, ok := m.store.Get(ctx, k); ok {
		m.hits.Add(1)
		m.emit(ctx, Event{Kind: EventHit, Key: key})
		return v, nil
	}

	m.misses.Add(1)
	m.emit(ctx, Event{Kind: EventMiss, Key: key})

	// The flight is detached from the caller so that an abandoned request
	// still populates the store.
	flightCtx := context.WithoutCancel(ctx)
	// leader is only written by the caller whose closure runs the flight,
	// before the result is delivered on ch.
	var leader bool
	ch := m.group.DoChan(k, func() (any, error) {
		leader = true
		// A flight for this key may have finished between our lookup and
		// joining the group.
		if v, ok := m.store.Get(flightCtx, k); ok {
			return v, nil
		}

		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)

		v, err := action(flightCtx)
		if err != nil {
			_ = m.store.Delete(flightCtx, k)
			m.evictions.Add(1)
			m.emit(flightCtx, Event{Kind: EventEvicted, Key: key, Err: err})
			return nil, err
		}

		if d := m.ttlFor(ttl, v); d > 0 {
			if err := m.store.Set(flightCtx, k, v, d); err == nil {
				m.emit(flightCtx, Event{Kind: EventStored, Key: key, TTL: d})
			}
		}
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared && !leader {
			m.coalesced.Add(1)
			m.emit(ctx, Event{Kind: EventCoalesced, Key: key, Err: res.Err})
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (m *Memo) ttlFor(ttl TTLPolicy, v any) time.Duration {
	if ttl == nil {
		return m.policy.Clamp(m.policy.DefaultTTL)
	}
	return m.policy.Clamp(ttl(v))
}

func (m *Memo) emit(ctx context.Context, ev Event) {
	if m.observer != nil {
		m.observer(ctx, ev)
	}
}

// Forget drops the stored value for key. An in-flight action is not
// interrupted, but later callers will not join it.
func (m *Memo) Forget(ctx context.Context, key FetchKey) error {
	k, err := m.keyer.Key(key)
	if err != nil {
		return err
	}
	m.group.Forget(k)
	return m.store.Delete(ctx, k)
}

// Purge drops every stored value and returns how many were removed.
func (m *Memo) Purge(ctx context.Context) int {
	return m.store.Purge(ctx)
}

// Stats is a snapshot of Memo counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Coalesced int64 `json:"coalesced"`
	Evictions int64 `json:"evictions"`
	InFlight  int64 `json:"in_flight"`
}

// Stats returns current counters.
func (m *Memo) Stats() Stats {
	return Stats{
		Entries:   m.store.Len(),
		Hits:      m.hits.Load(),
		Misses:    m.misses.Load(),
		Coalesced: m.coalesced.Load(),
		Evictions: m.evictions.Load(),
		InFlight:  m.inFlight.Load(),
	}
}
