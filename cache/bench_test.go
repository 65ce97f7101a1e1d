package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkMemo_Hit measures the cost of serving a stored value.
func BenchmarkMemo_Hit(b *testing.B) {
	memo := NewMemo(nil, nil, DefaultPolicy())
	ctx := context.Background()
	action := func(context.Context) ([]byte, error) { return []byte("<svg/>"), nil }

	_, _ = Do(ctx, memo, testKey, action, Fixed(time.Hour))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Do(ctx, memo, testKey, action, Fixed(time.Hour))
	}
}

// BenchmarkMemo_Miss measures a full miss with a trivial action.
func BenchmarkMemo_Miss(b *testing.B) {
	memo := NewMemo(nil, nil, DefaultPolicy())
	ctx := context.Background()
	action := func(context.Context) ([]byte, error) { return []byte("<svg/>"), nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		key := FetchKey{URL: fmt.Sprintf("https://example.com/%d", i)}
		_, _ = Do(ctx, memo, key, action, Fixed(time.Hour))
	}
}

// BenchmarkMemo_Parallel measures contended hits on one key.
func BenchmarkMemo_Parallel(b *testing.B) {
	memo := NewMemo(nil, nil, DefaultPolicy())
	ctx := context.Background()
	action := func(context.Context) ([]byte, error) { return []byte("<svg/>"), nil }
	_, _ = Do(ctx, memo, testKey, action, Fixed(time.Hour))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = Do(ctx, memo, testKey, action, Fixed(time.Hour))
		}
	})
}

// BenchmarkKeyer_Key measures key derivation.
func BenchmarkKeyer_Key(b *testing.B) {
	keyer := NewDefaultKeyer()
	key := FetchKey{
		Method: "GET",
		URL:    "https://saucelabs.com/rest/v1/user/jobs",
		Query:  map[string][]string{"full": {"true"}, "limit": {"100"}},
		Mode:   ModeBody,
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = keyer.Key(key)
	}
}
