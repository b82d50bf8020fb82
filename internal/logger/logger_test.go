package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	log, err := New("info", "json")

	require.NoError(t, err)
	require.NotNil(t, log)
	assert.False(t, log.Core().Enabled(-1)) // debug disabled at info level
}

func TestNew_Console(t *testing.T) {
	log, err := New("debug", "console")

	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))
}

func TestNew_DefaultFormat(t *testing.T) {
	log, err := New("warn", "")

	require.NoError(t, err)
	require.NotNil(t, log)
}

func TestNew_BadLevel(t *testing.T) {
	_, err := New("loud", "json")

	assert.Error(t, err)
}

func TestNew_BadFormat(t *testing.T) {
	_, err := New("info", "yaml")

	assert.Error(t, err)
}
