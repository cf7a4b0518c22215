package retry

import (
	"context"
	"testing"
	"time"
)

// BenchmarkDialBackoff_FirstTry measures the overhead when the first
// dial succeeds, which is the usual case.
func BenchmarkDialBackoff_FirstTry(b *testing.B) {
	bo := DialBackoff(3)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		bo.Do(ctx, func(int) error { return nil }) //nolint:errcheck
	}
}

func BenchmarkWait(b *testing.B) {
	bo := DialBackoff(10)
	for i := 0; i < b.N; i++ {
		_ = bo.Wait(i%10 + 1)
	}
}

func BenchmarkJitter(b *testing.B) {
	d := 500 * time.Millisecond
	for i := 0; i < b.N; i++ {
		_ = addJitter(d)
	}
}
