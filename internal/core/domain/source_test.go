package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnablement(t *testing.T) {
	for _, valid := range []string{"true", "false", "auto"} {
		e, err := ParseEnablement(valid)
		require.NoError(t, err)
		assert.Equal(t, Enablement(valid), e)
	}

	_, err := ParseEnablement("yes")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestParseFallbackMode(t *testing.T) {
	for _, valid := range []string{"silent", "warning", "dummy"} {
		m, err := ParseFallbackMode(valid)
		require.NoError(t, err)
		assert.Equal(t, FallbackMode(valid), m)
	}

	_, err := ParseFallbackMode("loud")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSourceConfig_Validate(t *testing.T) {
	cfg := SourceConfig{
		Name:     "openfda",
		Enabled:  EnabledAuto,
		Fallback: FallbackSilent,
	}

	require.NoError(t, cfg.Validate())

	cfg.Name = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestSourceConfig_Validate_BadFallback(t *testing.T) {
	cfg := SourceConfig{
		Name:     "openfda",
		Enabled:  EnabledOn,
		Fallback: "shout",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
}

func TestFallbackEntries_Silent(t *testing.T) {
	cfg := SourceConfig{Name: "beta", Fallback: FallbackSilent}

	assert.Empty(t, cfg.FallbackEntries())
}

func TestFallbackEntries_Warning(t *testing.T) {
	cfg := SourceConfig{Name: "beta", Fallback: FallbackWarning}

	entries := cfg.FallbackEntries()

	require.Len(t, entries, 1)
	assert.Contains(t, entries[0]["text"], "beta")
	assert.Equal(t, true, entries[0]["warning"])
}

func TestFallbackEntries_Dummy(t *testing.T) {
	cfg := SourceConfig{Name: "beta", Fallback: FallbackDummy}

	entries := cfg.FallbackEntries()

	require.NotEmpty(t, entries)
	for _, e := range entries {
		assert.Equal(t, true, e["isDummy"])
	}
}

func TestFallbackEntries_Pure(t *testing.T) {
	cfg := SourceConfig{Name: "beta", Fallback: FallbackWarning}

	// Same config, same output, every time.
	assert.Equal(t, cfg.FallbackEntries(), cfg.FallbackEntries())
}
