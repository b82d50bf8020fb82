package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Validate(t *testing.T) {
	q := Query{DrugName: "aspirin"}
	require.NoError(t, q.Validate())
}

func TestQuery_Validate_MissingDrug(t *testing.T) {
	q := Query{}

	err := q.Validate()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindClient, KindOf(err))
}

func TestQuery_Validate_NegativeLimit(t *testing.T) {
	q := Query{DrugName: "aspirin", Limit: -1}

	assert.ErrorIs(t, q.Validate(), ErrInvalidInput)
}

func TestQuery_Validate_InvertedRange(t *testing.T) {
	later := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	earlier := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	q := Query{DrugName: "aspirin", Since: &later, Until: &earlier}

	assert.ErrorIs(t, q.Validate(), ErrInvalidInput)
}
