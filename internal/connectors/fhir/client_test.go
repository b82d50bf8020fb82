package fhir

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

const sampleBundle = `{
	"resourceType": "Bundle",
	"entry": [
		{
			"resource": {
				"resourceType": "AdverseEvent",
				"id": "ae-001",
				"date": "2026-01-14T09:00:00Z",
				"event": {"text": "Anaphylactic reaction"},
				"seriousness": {"coding": [{"code": "serious"}]},
				"suspectEntity": [
					{"instance": {"text": "Aspirin"}}
				]
			}
		}
	]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := New(domain.SourceConfig{
		Name:     Name,
		Enabled:  domain.EnabledOn,
		Fallback: domain.FallbackSilent,
		Metadata: map[string]string{"base_url": srv.URL},
	})
	require.NoError(t, err)
	return client.(*Client)
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New(domain.SourceConfig{
		Name:     Name,
		Enabled:  domain.EnabledOn,
		Fallback: domain.FallbackSilent,
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestNew_OAuthRequiresSecret(t *testing.T) {
	_, err := New(domain.SourceConfig{
		Name:         Name,
		Enabled:      domain.EnabledOn,
		Fallback:     domain.FallbackSilent,
		APIKeyEnvVar: "VIGIL_TEST_FHIR_SECRET_UNSET",
		Metadata: map[string]string{
			"base_url":  "https://fhir.example.test",
			"token_url": "https://fhir.example.test/token",
			"client_id": "vigil",
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCredentialMissing)
}

func TestFetch_ParsesBundle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AdverseEvent", r.URL.Path)
		assert.Equal(t, "aspirin", r.URL.Query().Get("substance"))
		w.Write([]byte(sampleBundle))
	})

	entries, err := c.Fetch(context.Background(), domain.Query{DrugName: "aspirin"})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ae-001", entries[0]["id"])
}

func TestFetch_SinceBecomesDateFilter(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "ge2026-01-01", r.URL.Query().Get("date"))
		w.Write([]byte(`{"entry": []}`))
	})

	_, err := c.Fetch(context.Background(), domain.Query{DrugName: "aspirin", Since: &since})

	require.NoError(t, err)
}

func TestNormalise_AdverseEventResource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(sampleBundle))
	})

	entries, err := c.Fetch(context.Background(), domain.Query{DrugName: "aspirin"})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry, err := c.Normalise(entries[0])

	require.NoError(t, err)
	assert.Equal(t, "Anaphylactic reaction", entry.Reaction)
	assert.Equal(t, "Aspirin", entry.Drug)
	assert.Equal(t, 0.8, entry.Confidence)
	assert.Equal(t, 0.7, entry.Severity) // "serious" coding
	require.NotNil(t, entry.Timestamp)
	assert.Equal(t, time.Date(2026, 1, 14, 9, 0, 0, 0, time.UTC), *entry.Timestamp)
	assert.Equal(t, Name, entry.Source)
}

func TestNormalise_DropsResourceWithoutEvent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {})

	_, err := c.Normalise(domain.RawEntry{"id": "ae-002"})

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyEntry)
}

func TestNormalise_StableIDFromResourceID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {})

	base := domain.RawEntry{"id": "ae-003", "event": map[string]any{"text": "Nausea"}}
	mutated := domain.RawEntry{"id": "ae-003", "event": map[string]any{"text": "Nausea, resolved"}}

	first, err := c.Normalise(base)
	require.NoError(t, err)
	second, err := c.Normalise(mutated)
	require.NoError(t, err)

	// Same server resource keeps the same unified ID across revisions.
	assert.Equal(t, first.ID, second.ID)
}
