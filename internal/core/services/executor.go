package services

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
	"go.uber.org/zap"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// Operation is a single fetch attempt producing raw entries.
type Operation func(ctx context.Context) ([]domain.RawEntry, error)

// Fallback produces degraded output when an operation is exhausted.
// It is a pure function and must not fail.
type Fallback func() []domain.RawEntry

// SafeExecutor wraps an arbitrary fetch operation with bounded retries,
// exponential backoff and a deterministic fallback on exhaustion.
//
// Only failures classified transient are retried; client faults abort
// immediately without consuming remaining attempts. Each attempt runs
// under its own timeout so a hung call is cancelled, not just logged.
// Total wall-clock time is bounded by policy.MaxElapsed().
type SafeExecutor struct {
	log *zap.Logger
}

// NewSafeExecutor creates an executor logging through log.
// A nil logger is replaced with a no-op one.
func NewSafeExecutor(log *zap.Logger) *SafeExecutor {
	if log == nil {
		log = zap.NewNop()
	}
	return &SafeExecutor{log: log}
}

// Execute attempts op up to policy.Attempts times.
// Between attempts it waits min(maxWait, minWait*multiplier^n), except
// when the source reported a throttle window via domain.ThrottleError,
// in which case that window is honoured (still capped at maxWait).
func (e *SafeExecutor) Execute(
	ctx context.Context,
	source string,
	policy domain.RetryPolicy,
	op Operation,
) ([]domain.RawEntry, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	var result []domain.RawEntry
	start := time.Now()

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(policy.Attempts),
		retry.LastErrorOnly(true),
		retry.RetryIf(domain.IsTransient),
		retry.DelayType(func(n uint, err error, _ retry.DelayContext) time.Duration {
			// A throttled source told us when to come back.
			var tErr *domain.ThrottleError
			if errors.As(err, &tErr) && tErr.RetryAfter > 0 && tErr.RetryAfter < policy.MaxWait {
				return tErr.RetryAfter
			}
			return policy.WaitFor(n)
		}),
		retry.OnRetry(func(n uint, err error) {
			e.log.Warn("fetch attempt failed, retrying",
				zap.String("source", source),
				zap.Uint("attempt", n+1),
				zap.Duration("wait", policy.WaitFor(n)),
				zap.Error(err))
		}),
	)

	err := r.Do(func() error {
		tCtx, cancel := context.WithTimeout(ctx, policy.PerAttemptTimeout)
		defer cancel()

		entries, callErr := op(tCtx)
		if callErr != nil {
			return callErr
		}
		result = entries
		return nil
	})

	if err != nil {
		e.log.Warn("fetch failed",
			zap.String("source", source),
			zap.String("disposition", "failed"),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("kind", domain.KindOf(err).String()),
			zap.Error(err))
		return nil, err
	}

	e.log.Debug("fetch succeeded",
		zap.String("source", source),
		zap.String("disposition", "succeeded"),
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("entries", len(result)))
	return result, nil
}

// ExecuteWithFallback runs Execute and, on terminal failure, serves the
// fallback output instead. The underlying error is still returned so
// the orchestrator can record the degradation; callers that only care
// about data can ignore it.
func (e *SafeExecutor) ExecuteWithFallback(
	ctx context.Context,
	source string,
	policy domain.RetryPolicy,
	op Operation,
	fallback Fallback,
) ([]domain.RawEntry, error) {
	entries, err := e.Execute(ctx, source, policy, op)
	if err == nil {
		return entries, nil
	}

	e.log.Info("serving fallback",
		zap.String("source", source),
		zap.String("disposition", "fell back"),
		zap.Error(err))
	return fallback(), err
}
