package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

func newTestStore(t *testing.T) *SourceStore {
	t.Helper()
	store, err := NewSourceStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestLoad_MissingFileReturnsNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	configs := []domain.SourceConfig{
		{
			Name:         "openfda",
			Enabled:      domain.EnabledAuto,
			Fallback:     domain.FallbackWarning,
			APIKeyEnvVar: "OPENFDA_API_KEY",
			Priority:     100,
			Metadata:     map[string]string{"base_url": "https://api.fda.gov"},
		},
		{
			Name:     "pubmed",
			Enabled:  domain.EnabledOn,
			Fallback: domain.FallbackSilent,
			Priority: 80,
		},
	}

	require.NoError(t, store.Save(context.Background(), configs))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, configs, loaded)
}

func TestSave_ReplacesExistingSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []domain.SourceConfig{
		{Name: "a", Enabled: domain.EnabledOn, Fallback: domain.FallbackSilent},
		{Name: "b", Enabled: domain.EnabledOn, Fallback: domain.FallbackSilent},
	}))
	require.NoError(t, store.Save(ctx, []domain.SourceConfig{
		{Name: "a", Enabled: domain.EnabledOff, Fallback: domain.FallbackDummy},
	}))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, domain.EnabledOff, loaded[0].Enabled)
	assert.Equal(t, domain.FallbackDummy, loaded[0].Fallback)
}

func TestLoad_RejectsInvalidEnablement(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSourceStore(dir)
	require.NoError(t, err)

	bad := "[[sources]]\nname = \"x\"\nenabled = \"maybe\"\nfallback = \"silent\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sources.toml"), []byte(bad), 0600))

	_, err = store.Load(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	store, err := NewSourceStore(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "sources.toml"), store.Path())
}
