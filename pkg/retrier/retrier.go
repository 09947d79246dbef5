// Package retrier runs an operation a bounded number of times, sleeping between
// attempts according to a pluggable backoff function.
package retrier

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = 1 * time.Second
)

// Backoff returns the delay to wait before the given retry.
// retry is 1 for the first re-attempt, 2 for the second and so on.
type Backoff func(retry int) time.Duration

// Linear returns base*retry.
func Linear(base time.Duration) Backoff {
	return func(retry int) time.Duration {
		return base * time.Duration(retry)
	}
}

// Exponential returns initial*multiplier^(retry-1) capped at max, with +-jitter
// applied as a fraction of the delay.
func Exponential(initial, max time.Duration, multiplier, jitter float64) Backoff {
	return func(retry int) time.Duration {
		interval := float64(initial)
		for i := 1; i < retry; i++ {
			interval *= multiplier
			if interval > float64(max) {
				interval = float64(max)
				break
			}
		}
		d := interval + (rand.Float64()*2-1)*jitter*interval
		if d < 0 {
			return 0
		}
		return time.Duration(d)
	}
}

// Retrier implements a retry policy: attempt count plus backoff.
type Retrier struct {
	maxAttempts int
	backoff     Backoff
	onRetry     func(attempt int, delay time.Duration, err error)
	sleep       func(ctx context.Context, d time.Duration) error
}

// Option defines a function to configure the Retrier.
type Option func(*Retrier)

// WithMaxAttempts sets the total number of attempts, first one included.
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

// WithBackoff sets the backoff function.
func WithBackoff(b Backoff) Option {
	return func(r *Retrier) {
		r.backoff = b
	}
}

// WithOnRetry registers a hook called before each backoff sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// WithSleep replaces the sleep implementation, mostly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(r *Retrier) {
		r.sleep = fn
	}
}

// New creates a new Retrier with default values and optional overrides.
// Defaults are three attempts with a linear one second backoff.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		maxAttempts: defaultMaxAttempts,
		backoff:     Linear(defaultBaseDelay),
		sleep:       sleepContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// MaxAttempts returns the configured attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}

// Do executes fn until it succeeds, returns a permanent error, the attempt
// budget is spent or ctx is done. The attempt passed to fn is zero-based.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	var err error

	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := r.backoff(attempt)
			if r.onRetry != nil {
				r.onRetry(attempt, delay, err)
			}
			if sleepErr := r.sleep(ctx, delay); sleepErr != nil {
				return sleepErr
			}
		}

		err = fn(ctx, attempt)
		if err == nil {
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
	}

	return err
}

// DoWithData executes the given function with retries and returns a value.
func DoWithData[T any](ctx context.Context, r *Retrier, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var result T
	err := r.Do(ctx, func(ctx context.Context, attempt int) error {
		var e error
		result, e = fn(ctx, attempt)
		return e
	})
	return result, err
}

type permanentError struct {
	err error
}

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Do returns the wrapped error as is.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
