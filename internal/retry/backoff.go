// Package retry provides exponential backoff for establishing the
// harness's connections.  Scenario steps themselves are never retried;
// only the dial may be, and only when more than one attempt is
// configured.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError stops a [Backoff.Do] loop immediately.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent marks err as non-retryable.  A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff is a bounded exponential retry policy.
type Backoff struct {
	Attempts int           // total tries; < 1 means one
	Base     time.Duration // wait after the first failure
	Cap      time.Duration // upper bound for any wait
	Jitter   bool          // spread each wait by ±25%

	// OnRetry, when set, is called before each wait with the attempt
	// that just failed.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// DialBackoff returns the policy used for server connections: attempts
// tries in total, starting half a second apart.
func DialBackoff(attempts int) *Backoff {
	return &Backoff{
		Attempts: attempts,
		Base:     500 * time.Millisecond,
		Cap:      5 * time.Second,
		Jitter:   true,
	}
}

// Wait returns the pause after the given failed attempt (1-based),
// before jitter: Base doubled attempt-1 times, capped at Cap.
func (b *Backoff) Wait(attempt int) time.Duration {
	d := b.Base
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	for i := 1; i < attempt; i++ {
		d *= 2
		if b.Cap > 0 && d >= b.Cap {
			return b.Cap
		}
	}
	if b.Cap > 0 && d > b.Cap {
		d = b.Cap
	}
	return d
}

// Do calls fn until it succeeds, returns a [Permanent] error, the
// attempts run out, or ctx is done.  fn receives the 1-based attempt.
// With a single attempt the error is returned unwrapped.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		switch {
		case err == nil:
			return nil
		case IsPermanent(err):
			return errors.Unwrap(err)
		case attempts == 1:
			return err
		case attempt >= attempts:
			return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
		}

		wait := b.Wait(attempt)
		if b.Jitter {
			wait = addJitter(wait)
		}
		if b.OnRetry != nil {
			b.OnRetry(attempt, err, wait)
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// addJitter spreads d by ±25%, never below a millisecond.
func addJitter(d time.Duration) time.Duration {
	spread := int64(d) / 2
	if spread <= 0 {
		return d
	}
	out := d - time.Duration(spread/2) + time.Duration(rand.Int63n(spread+1))
	if out < time.Millisecond {
		out = time.Millisecond
	}
	return out
}
