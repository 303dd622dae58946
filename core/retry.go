package core

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds Retry.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     3,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     time.Second,
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	b.MaxElapsedTime = 0 // bounded by attempts only

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}

// Retry runs fn, re-running it with exponential backoff while it fails with a KindTransient error.
// Any other error stops immediately and is returned as is.
// When attempts are exhausted, a KindTransient error wrapping the last failure is returned.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var attempts int
	err := backoff.Retry(func() error {
		attempts++
		err := fn(ctx)
		if err != nil && !IsKind(err, KindTransient) {
			return backoff.Permanent(err)
		}
		return err
	}, policy.backOff(ctx))

	if IsKind(err, KindTransient) {
		return Transient(err, "giving up after %d attempts", attempts)
	}
	return err
}
