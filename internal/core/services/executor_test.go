package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

func fastPolicy() domain.RetryPolicy {
	return domain.RetryPolicy{
		Attempts:          3,
		MinWait:           time.Millisecond,
		MaxWait:           10 * time.Millisecond,
		Multiplier:        2,
		PerAttemptTimeout: time.Second,
	}
}

func TestExecute_SucceedsFirstTry(t *testing.T) {
	e := NewSafeExecutor(nil)
	calls := 0

	entries, err := e.Execute(context.Background(), "src", fastPolicy(), func(_ context.Context) ([]domain.RawEntry, error) {
		calls++
		return []domain.RawEntry{{"k": "v"}}, nil
	})

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, calls)
}

func TestExecute_RetriesTransientFailures(t *testing.T) {
	e := NewSafeExecutor(nil)
	calls := 0

	entries, err := e.Execute(context.Background(), "src", fastPolicy(), func(_ context.Context) ([]domain.RawEntry, error) {
		calls++
		if calls < 3 {
			return nil, domain.Transient(errors.New("flaky"))
		}
		return []domain.RawEntry{{"k": "v"}}, nil
	})

	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 3, calls)
}

func TestExecute_ExhaustsAttempts(t *testing.T) {
	e := NewSafeExecutor(nil)
	calls := 0

	_, err := e.Execute(context.Background(), "src", fastPolicy(), func(_ context.Context) ([]domain.RawEntry, error) {
		calls++
		return nil, domain.Transient(errors.New("always down"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, domain.IsTransient(err))
}

func TestExecute_ClientFaultAbortsImmediately(t *testing.T) {
	e := NewSafeExecutor(nil)
	calls := 0

	_, err := e.Execute(context.Background(), "src", fastPolicy(), func(_ context.Context) ([]domain.RawEntry, error) {
		calls++
		return nil, domain.ClientError(errors.New("bad request"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, domain.KindClient, domain.KindOf(err))
}

func TestExecute_PerAttemptTimeoutCancelsHungCall(t *testing.T) {
	e := NewSafeExecutor(nil)
	policy := fastPolicy()
	policy.Attempts = 1
	policy.PerAttemptTimeout = 20 * time.Millisecond

	_, err := e.Execute(context.Background(), "src", policy, func(ctx context.Context) ([]domain.RawEntry, error) {
		<-ctx.Done()
		return nil, domain.Transient(ctx.Err())
	})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}

func TestExecute_HonoursThrottleWindow(t *testing.T) {
	e := NewSafeExecutor(nil)
	policy := fastPolicy()
	policy.MaxWait = time.Second
	calls := 0

	start := time.Now()
	_, err := e.Execute(context.Background(), "src", policy, func(_ context.Context) ([]domain.RawEntry, error) {
		calls++
		if calls == 1 {
			return nil, &domain.ThrottleError{RetryAfter: 50 * time.Millisecond}
		}
		return []domain.RawEntry{}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestExecute_RejectsInvalidPolicy(t *testing.T) {
	e := NewSafeExecutor(nil)

	_, err := e.Execute(context.Background(), "src", domain.RetryPolicy{}, func(_ context.Context) ([]domain.RawEntry, error) {
		t.Fatal("operation must not run")
		return nil, nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExecuteWithFallback_ServesFallbackOnExhaustion(t *testing.T) {
	e := NewSafeExecutor(nil)
	fallback := []domain.RawEntry{{"warning": true}}

	entries, err := e.ExecuteWithFallback(context.Background(), "src", fastPolicy(),
		func(_ context.Context) ([]domain.RawEntry, error) {
			return nil, domain.Transient(errors.New("down"))
		},
		func() []domain.RawEntry { return fallback })

	// Data is served, the underlying failure is still reported.
	require.Error(t, err)
	assert.Equal(t, fallback, entries)
}

func TestExecuteWithFallback_NoFallbackOnSuccess(t *testing.T) {
	e := NewSafeExecutor(nil)

	entries, err := e.ExecuteWithFallback(context.Background(), "src", fastPolicy(),
		func(_ context.Context) ([]domain.RawEntry, error) {
			return []domain.RawEntry{{"k": "v"}}, nil
		},
		func() []domain.RawEntry {
			t.Fatal("fallback must not run")
			return nil
		})

	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
