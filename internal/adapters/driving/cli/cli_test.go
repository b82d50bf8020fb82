package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmos-labs/vigil-cli/internal/adapters/driven/storage/memory"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// stubManager is a canned IngestionManager for command tests.
type stubManager struct {
	entries  []domain.UnifiedEntry
	statuses []domain.SourceStatus
	saved    bool
	disabled []string
}

func (s *stubManager) FetchAll(_ context.Context, _ domain.Query) ([]domain.UnifiedEntry, error) {
	return s.entries, nil
}

func (s *stubManager) FetchBySource(_ context.Context, name string, _ domain.Query) ([]domain.UnifiedEntry, error) {
	var out []domain.UnifiedEntry
	for _, e := range s.entries {
		if e.Source == name {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *stubManager) SourceStatus(name string) (*domain.SourceStatus, error) {
	for i := range s.statuses {
		if s.statuses[i].Name == name {
			return &s.statuses[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *stubManager) AllSourcesStatus() []domain.SourceStatus { return s.statuses }

func (s *stubManager) Enable(_ string) error { return nil }

func (s *stubManager) Disable(name string) error {
	s.disabled = append(s.disabled, name)
	return nil
}

func (s *stubManager) SetPriority(_ string, _ int) error { return nil }

func (s *stubManager) SetFallbackMode(_ string, _ domain.FallbackMode) error { return nil }

func (s *stubManager) SaveConfig(_ context.Context) error {
	s.saved = true
	return nil
}

func executeCommand(t *testing.T, args ...string) string {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	Configure(Dependencies{Manager: &stubManager{}, Version: "1.2.3"})

	out := executeCommand(t, "version")

	assert.Contains(t, out, "vigil version 1.2.3")
}

func TestFetchCommand_TableOutput(t *testing.T) {
	Configure(Dependencies{Manager: &stubManager{entries: []domain.UnifiedEntry{
		{ID: "e1", Source: "openfda", Drug: "aspirin", Reaction: "nausea", Confidence: 0.9, Severity: 0.4},
	}}})

	out := executeCommand(t, "fetch", "aspirin")

	assert.Contains(t, out, "nausea")
	assert.Contains(t, out, "openfda")
}

func TestFetchCommand_JSONOutput(t *testing.T) {
	Configure(Dependencies{Manager: &stubManager{entries: []domain.UnifiedEntry{
		{ID: "e1", Source: "pubmed", Reaction: "headache"},
	}}})

	out := executeCommand(t, "fetch", "aspirin", "--json")

	assert.Contains(t, out, `"source": "pubmed"`)
	assert.Contains(t, out, `"reaction": "headache"`)
}

func TestSourcesListCommand(t *testing.T) {
	Configure(Dependencies{Manager: &stubManager{statuses: []domain.SourceStatus{
		{Name: "openfda", Enabled: true, HasKey: true, Priority: 100, Fallback: domain.FallbackWarning},
		{Name: "fhir", Enabled: false, HasKey: false, Priority: 40, Fallback: domain.FallbackWarning},
	}}})

	out := executeCommand(t, "sources", "list")

	assert.Contains(t, out, "openfda")
	assert.Contains(t, out, "enabled")
	assert.Contains(t, out, "fhir")
	assert.Contains(t, out, "disabled")
}

func TestSourcesDisableWithSave(t *testing.T) {
	stub := &stubManager{}
	Configure(Dependencies{Manager: stub})

	out := executeCommand(t, "sources", "disable", "pubmed", "--save")

	assert.Equal(t, []string{"pubmed"}, stub.disabled)
	assert.True(t, stub.saved)
	assert.Contains(t, out, "Configuration saved.")
}

func TestStatusCommand_JSON(t *testing.T) {
	Configure(Dependencies{Manager: &stubManager{statuses: []domain.SourceStatus{
		{Name: "ctgov", Enabled: true, FetchCount: 7, ErrorCount: 2, LastError: "boom"},
	}}})

	out := executeCommand(t, "status", "--json")

	assert.Contains(t, out, `"name": "ctgov"`)
	assert.Contains(t, out, `"fetch_count": 7`)
	assert.Contains(t, out, `"last_error": "boom"`)
}

func TestEntriesCommand(t *testing.T) {
	store := memory.NewEntryStore()
	require.NoError(t, store.SaveEntries(context.Background(), []domain.UnifiedEntry{
		{ID: "e1", Source: "openfda", Reaction: "rash"},
	}))
	Configure(Dependencies{Manager: &stubManager{}, EntryStore: store})

	out := executeCommand(t, "entries", "openfda")

	assert.Contains(t, out, "rash")
	assert.Contains(t, out, "1 entries stored in total.")
}
