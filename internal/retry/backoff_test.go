package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

var errRefused = errors.New("connection refused")

func fastBackoff(attempts int) *Backoff {
	return &Backoff{Attempts: attempts, Base: time.Millisecond, Cap: 4 * time.Millisecond}
}

func TestBackoff_Do(t *testing.T) {
	tests := []struct {
		name      string
		attempts  int
		succeedAt int // 0 = never
		permanent bool
		wantCalls int
		wantErr   string
	}{
		{"first try", 3, 1, false, 1, ""},
		{"third try", 5, 3, false, 3, ""},
		{"exhausted", 3, 0, false, 3, "gave up after 3 attempts: connection refused"},
		{"single attempt unwrapped", 1, 0, false, 1, "connection refused"},
		{"zero means one", 0, 0, false, 1, "connection refused"},
		{"permanent", 5, 0, true, 1, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fastBackoff(tt.attempts).Do(context.Background(), func(attempt int) error {
				calls++
				if attempt != calls {
					t.Errorf("attempt = %d on call %d", attempt, calls)
				}
				if attempt == tt.succeedAt {
					return nil
				}
				if tt.permanent {
					return Permanent(errRefused)
				}
				return errRefused
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.wantErr {
				t.Fatalf("err = %v, want %q", err, tt.wantErr)
			}
			if !errors.Is(err, errRefused) {
				t.Errorf("err does not wrap the dial error")
			}
		})
	}
}

func TestBackoff_Wait(t *testing.T) {
	b := &Backoff{Base: 500 * time.Millisecond, Cap: 5 * time.Second}
	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		5 * time.Second,
	}
	for i, w := range want {
		if got := b.Wait(i + 1); got != w {
			t.Errorf("Wait(%d) = %v, want %v", i+1, got, w)
		}
	}
}

func TestBackoff_ContextCancelled(t *testing.T) {
	b := &Backoff{Attempts: 100, Base: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := b.Do(ctx, func(int) error { return errRefused })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if !strings.HasPrefix(err.Error(), "retry cancelled") {
		t.Errorf("err = %q", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Do kept waiting after cancellation")
	}
}

func TestBackoff_OnRetry(t *testing.T) {
	var seen []int
	b := fastBackoff(3)
	b.OnRetry = func(attempt int, err error, wait time.Duration) {
		if err == nil || wait <= 0 {
			t.Errorf("OnRetry(%d, %v, %v)", attempt, err, wait)
		}
		seen = append(seen, attempt)
	}

	_ = b.Do(context.Background(), func(int) error { return errRefused })

	// The last failure is returned, not retried, so no hook call for it.
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("OnRetry attempts = %v, want [1 2]", seen)
	}
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"permanent", Permanent(errRefused), true},
		{"wrapped permanent", fmt.Errorf("dial: %w", Permanent(errRefused)), true},
		{"plain", errRefused, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsPermanent(tt.err); got != tt.want {
				t.Errorf("IsPermanent() = %v, want %v", got, tt.want)
			}
		})
	}
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should be nil")
	}
}

func TestJitter_Range(t *testing.T) {
	d := 100 * time.Millisecond
	for i := 0; i < 100; i++ {
		if j := addJitter(d); j < 75*time.Millisecond || j > 125*time.Millisecond {
			t.Fatalf("jitter %v outside [75ms, 125ms]", j)
		}
	}
}
