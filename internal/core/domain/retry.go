package domain

import (
	"fmt"
	"math"
	"time"
)

// RetryPolicy bounds how a single source fetch is retried.
// Immutable once constructed; one policy is bound to each source.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first. >= 1.
	Attempts uint

	// MinWait is the wait before the first retry.
	MinWait time.Duration

	// MaxWait caps the wait between any two attempts.
	MaxWait time.Duration

	// Multiplier grows the wait exponentially between attempts.
	Multiplier float64

	// PerAttemptTimeout bounds each individual attempt. A hung
	// attempt is cancelled, not merely logged.
	PerAttemptTimeout time.Duration
}

// DefaultRetryPolicy returns the policy used when a source declares none.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:          3,
		MinWait:           1 * time.Second,
		MaxWait:           10 * time.Second,
		Multiplier:        2,
		PerAttemptTimeout: 15 * time.Second,
	}
}

// Validate checks the policy parameters.
func (p RetryPolicy) Validate() error {
	if p.Attempts < 1 {
		return fmt.Errorf("%w: attempts must be >= 1", ErrInvalidInput)
	}
	if p.MinWait < 0 || p.MaxWait < 0 || p.PerAttemptTimeout <= 0 {
		return fmt.Errorf("%w: waits must be non-negative and timeout positive", ErrInvalidInput)
	}
	if p.Multiplier < 1 {
		return fmt.Errorf("%w: multiplier must be >= 1", ErrInvalidInput)
	}
	return nil
}

// WaitFor returns the wait after attempt n (0-based):
// min(MaxWait, MinWait * Multiplier^n).
func (p RetryPolicy) WaitFor(n uint) time.Duration {
	wait := time.Duration(float64(p.MinWait) * math.Pow(p.Multiplier, float64(n)))
	if wait > p.MaxWait || wait < 0 {
		return p.MaxWait
	}
	return wait
}

// MaxElapsed returns the worst-case wall-clock bound for one safe fetch:
// attempts * (perAttemptTimeout + maxWait).
func (p RetryPolicy) MaxElapsed() time.Duration {
	return time.Duration(p.Attempts) * (p.PerAttemptTimeout + p.MaxWait)
}
