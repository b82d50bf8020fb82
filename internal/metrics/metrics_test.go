package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FetchDuration.WithLabelValues("openfda", "ok").Observe(0.2)
	m.EntriesTotal.WithLabelValues("openfda").Add(3)
	m.ErrorsTotal.WithLabelValues("pubmed", "transient").Inc()
	m.BreakerState.WithLabelValues("openfda").Set(0)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["vigil_fetch_duration_seconds"])
	assert.True(t, names["vigil_entries_total"])
	assert.True(t, names["vigil_fetch_errors_total"])
	assert.True(t, names["vigil_breaker_state"])
}

func TestNew_NilRegistererUsesPrivateRegistry(t *testing.T) {
	first := New(nil)
	second := New(nil)

	// No duplicate-registration panic across instances.
	first.EntriesTotal.WithLabelValues("a").Inc()
	second.EntriesTotal.WithLabelValues("a").Inc()
}
