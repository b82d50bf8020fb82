package ctgov

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

const sampleStudies = `{
	"studies": [
		{
			"protocolSection": {
				"identificationModule": {
					"nctId": "NCT05012345",
					"briefTitle": "Aspirin Safety in Elderly Patients"
				},
				"statusModule": {
					"startDateStruct": {"date": "2026-01-10"}
				},
				"descriptionModule": {
					"briefSummary": "Observational study of serious bleeding events."
				}
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

func TestFetch_FlattensStudies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/studies", r.URL.Path)
		assert.Equal(t, "aspirin", r.URL.Query().Get("query.term"))
		w.Write([]byte(sampleStudies))
	})

	entries, err := c.Fetch(context.Background(), domain.Query{DrugName: "aspirin"})

	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "NCT05012345", entries[0]["nctId"])
	assert.Equal(t, "Aspirin Safety in Elderly Patients", entries[0]["title"])
	assert.Equal(t, "2026-01-10", entries[0]["startdate"])
	assert.Equal(t, "aspirin", entries[0]["drug"])
}

func TestFetch_ReactionWidensTerm(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aspirin bleeding", r.URL.Query().Get("query.term"))
		w.Write([]byte(`{"studies": []}`))
	})

	_, err := c.Fetch(context.Background(), domain.Query{DrugName: "aspirin", Reaction: "bleeding"})

	require.NoError(t, err)
}

func TestFetch_AppliesQueryLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("pageSize"))
		w.Write([]byte(`{"studies": []}`))
	})

	_, err := c.Fetch(context.Background(), domain.Query{DrugName: "aspirin", Limit: 3})

	require.NoError(t, err)
}

func TestFetch_ServerErrorIsTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Fetch(context.Background(), domain.Query{DrugName: "aspirin"})

	require.Error(t, err)
	assert.True(t, domain.IsTransient(err))
}
