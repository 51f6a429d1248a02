package adapter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/localnerve/wellnessdb/internal/adapter"
	"github.com/localnerve/wellnessdb/internal/mapping"
	"github.com/localnerve/wellnessdb/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = adapter.RetryPolicy{MaxRetries: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}

func transient() error {
	return &types.TransientBackendError{Backend: "relational", Op: "find", Err: errors.New("connection reset by peer")}
}

func TestCallRetriesTransientErrors(t *testing.T) {
	attempts := 0
	err := adapter.Call(context.Background(), fastPolicy, mapping.Relational, mapping.Users, "find", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return transient()
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestCallExhaustionIsUnavailable(t *testing.T) {
	attempts := 0
	err := adapter.Call(context.Background(), fastPolicy, mapping.Document, mapping.Users, "find", func(context.Context) error {
		attempts++
		return transient()
	})
	require.ErrorIs(t, err, types.ErrBackendUnavailable)
	assert.ErrorIs(t, err, types.ErrTransient)
	assert.Equal(t, fastPolicy.MaxRetries+1, attempts)
}

func TestCallReturnsPermanentErrorsAtOnce(t *testing.T) {
	testCases := []struct {
		Desc string
		Err  error
		Is   error
	}{
		{"validation", types.NewValidationError("mood", "bad"), types.ErrValidation},
		{"conflict", &types.ConflictError{Entity: "users", Field: "email"}, types.ErrConflict},
		{"unauthorized", types.ErrUnauthorized, types.ErrUnauthorized},
		{"not found", types.ErrNotFound, types.ErrNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			attempts := 0
			err := adapter.Call(context.Background(), fastPolicy, mapping.Relational, mapping.Users, "create", func(context.Context) error {
				attempts++
				return tc.Err
			})
			assert.ErrorIs(t, err, tc.Is)
			assert.Equal(t, 1, attempts)
		})
	}
}

func TestCallDeadlineIsTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	policy := adapter.RetryPolicy{MaxRetries: 100, Initial: 5 * time.Millisecond, Max: 5 * time.Millisecond}
	err := adapter.Call(ctx, policy, mapping.Relational, mapping.Users, "find", func(context.Context) error {
		return transient()
	})
	require.ErrorIs(t, err, types.ErrTimeout)
	assert.False(t, errors.Is(err, types.ErrBackendUnavailable))
}

func TestCallStartsNoAttemptPastDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	attempts := 0
	err := adapter.Call(ctx, fastPolicy, mapping.Relational, mapping.Users, "find", func(context.Context) error {
		attempts++
		return nil
	})
	require.ErrorIs(t, err, types.ErrTimeout)
	assert.Zero(t, attempts)
}

func TestCallCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := adapter.Call(ctx, fastPolicy, mapping.Relational, mapping.Users, "find", func(context.Context) error {
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, "ok", adapter.Outcome(nil))
	assert.Equal(t, "validation", adapter.Outcome(types.NewValidationError("x", "y")))
	assert.Equal(t, "unavailable", adapter.Outcome(types.ErrBackendUnavailable))
	assert.Equal(t, "error", adapter.Outcome(errors.New("boom")))
}
