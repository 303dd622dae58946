package core

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPolicy = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func TestRetry(t *testing.T) {
	errDeadlock := Transient(errors.New("pq: deadlock detected"), "storage deadlock")
	errConflict := Conflict("student 3 is already enrolled in course 5")

	tests := []struct {
		name         string
		failures     []error
		wantAttempts int
		wantKind     Kind
		wantErr      error
	}{
		{name: "success at first attempt", wantAttempts: 1},
		{name: "transient then success", failures: []error{errDeadlock}, wantAttempts: 2},
		{name: "terminal error is not retried", failures: []error{errConflict}, wantAttempts: 1, wantKind: KindConflict, wantErr: errConflict},
		{name: "transient then terminal", failures: []error{errDeadlock, errConflict}, wantAttempts: 2, wantKind: KindConflict, wantErr: errConflict},
		{name: "gives up after max attempts", failures: []error{errDeadlock, errDeadlock, errDeadlock, errDeadlock}, wantAttempts: 3, wantKind: KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int
			err := Retry(context.Background(), testPolicy, func(ctx context.Context) error {
				attempts++
				if attempts <= len(tt.failures) {
					return tt.failures[attempts-1]
				}
				return nil
			})

			assert.Equal(t, tt.wantAttempts, attempts)
			if tt.wantAttempts > len(tt.failures) {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			if tt.wantErr != nil {
				assert.Same(t, tt.wantErr, err)
			}
		})
	}
}

func TestRetry_Exhausted(t *testing.T) {
	cause := errors.New("pq: could not serialize access")
	err := Retry(context.Background(), testPolicy, func(ctx context.Context) error {
		return Transient(cause, "serialization failure")
	})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindTransient))
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.True(t, errors.Is(err, cause))
}

func TestRetry_ZeroPolicyRunsOnce(t *testing.T) {
	var attempts int
	err := Retry(context.Background(), RetryPolicy{}, func(ctx context.Context) error {
		attempts++
		return Transient(nil, "timeout")
	})
	assert.Equal(t, 1, attempts)
	assert.True(t, IsKind(err, KindTransient))
}

func TestRetry_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var attempts int
	err := Retry(ctx, RetryPolicy{MaxAttempts: 5, InitialInterval: time.Second, MaxInterval: time.Second}, func(ctx context.Context) error {
		attempts++
		cancel()
		return Transient(nil, "timeout")
	})
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}
