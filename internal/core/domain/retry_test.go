package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_Validate(t *testing.T) {
	require.NoError(t, DefaultRetryPolicy().Validate())

	bad := DefaultRetryPolicy()
	bad.Attempts = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = DefaultRetryPolicy()
	bad.Multiplier = 0.5
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	bad = DefaultRetryPolicy()
	bad.PerAttemptTimeout = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)
}

func TestRetryPolicy_WaitFor(t *testing.T) {
	p := RetryPolicy{
		Attempts:          3,
		MinWait:           1 * time.Second,
		MaxWait:           10 * time.Second,
		Multiplier:        2,
		PerAttemptTimeout: 5 * time.Second,
	}

	assert.Equal(t, 1*time.Second, p.WaitFor(0))
	assert.Equal(t, 2*time.Second, p.WaitFor(1))
	assert.Equal(t, 4*time.Second, p.WaitFor(2))

	// Capped at MaxWait.
	assert.Equal(t, 10*time.Second, p.WaitFor(5))
	assert.Equal(t, 10*time.Second, p.WaitFor(30))
}

func TestRetryPolicy_MaxElapsed(t *testing.T) {
	p := RetryPolicy{
		Attempts:          3,
		MinWait:           1 * time.Second,
		MaxWait:           10 * time.Second,
		Multiplier:        2,
		PerAttemptTimeout: 5 * time.Second,
	}

	assert.Equal(t, 45*time.Second, p.MaxElapsed())
}
