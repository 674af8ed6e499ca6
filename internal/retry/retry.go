// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package retry runs an operation until it succeeds, returns a permanent
// error, or exhausts a bounded number of attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted wraps the last error once every attempt has failed.
var ErrExhausted = errors.New("retries exhausted")

// Backoff returns the wait before the attempt following failed attempt n
// (1-based).
type Backoff func(n int) time.Duration

// Fixed waits d between every attempt.
func Fixed(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// Linear waits d, 2d, 3d, ...
func Linear(d time.Duration) Backoff {
	return func(n int) time.Duration { return time.Duration(n) * d }
}

// Exponential waits d, 2d, 4d, ...
func Exponential(d time.Duration) Backoff {
	return func(n int) time.Duration {
		return time.Duration(math.Pow(2, float64(n-1))) * d
	}
}

// Policy bounds a retry loop.
type Policy struct {
	// Attempts is the total number of tries. Values below 1 mean 1.
	Attempts int

	// Backoff computes the wait between tries. Nil means no wait.
	Backoff Backoff

	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, err error, wait time.Duration)
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent marks err so Do returns it immediately without further tries.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Do calls fn until it returns nil. A permanent error is returned
// unwrapped. Context cancellation during a wait returns ctx.Err().
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	_, err := DoValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}
		lastErr = err

		if attempt == attempts {
			break
		}

		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, wait)
		}
		if wait <= 0 {
			if ctx.Err() != nil {
				return zero, ctx.Err()
			}
			continue
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}
