// Package fhir fetches AdverseEvent resources from a FHIR R4 server.
// Servers that require OAuth2 client-credentials are supported via
// metadata; without a token endpoint the client talks plain HTTP.
package fhir

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/pharmos-labs/vigil-cli/internal/connectors/httpc"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
)

const (
	// Name is the source key this client serves.
	Name = "fhir"

	defaultPageSize = 20
)

// Ensure Client implements the interfaces.
var (
	_ driven.SourceClient    = (*Client)(nil)
	_ driven.EntryNormaliser = (*Client)(nil)
)

// Client queries a FHIR server's AdverseEvent search endpoint.
type Client struct {
	baseURL  string
	pageSize int
	hc       *http.Client
	cancel   context.CancelFunc
}

// New builds a FHIR client from its source configuration.
// Recognised metadata keys: base_url (required), token_url, client_id.
// When token_url is set, the client secret is read from APIKeyEnvVar
// and all requests carry an OAuth2 client-credentials token.
func New(cfg domain.SourceConfig) (driven.SourceClient, error) {
	base := cfg.Metadata["base_url"]
	if base == "" {
		return nil, domain.ConfigError(fmt.Errorf("fhir: metadata key %q is required", "base_url"))
	}

	c := &Client{
		baseURL:  strings.TrimSuffix(base, "/"),
		pageSize: defaultPageSize,
		hc:       httpc.NewClient(),
	}

	if tokenURL := cfg.Metadata["token_url"]; tokenURL != "" {
		secret := ""
		if cfg.APIKeyEnvVar != "" {
			secret = os.Getenv(cfg.APIKeyEnvVar)
		}
		if secret == "" {
			return nil, domain.ConfigError(fmt.Errorf("fhir: %w: %s", domain.ErrCredentialMissing, cfg.APIKeyEnvVar))
		}

		conf := &clientcredentials.Config{
			ClientID:     cfg.Metadata["client_id"],
			ClientSecret: secret,
			TokenURL:     tokenURL,
		}
		// The token source reuses this context for refreshes, so it
		// must outlive individual fetches.
		ctx, cancel := context.WithCancel(context.Background())
		c.hc = conf.Client(ctx)
		c.hc.Timeout = httpc.DefaultTimeout
		c.cancel = cancel
	}

	return c, nil
}

// Name returns the source key.
func (c *Client) Name() string { return Name }

// Close stops background token refreshes.
func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

type bundle struct {
	Entry []struct {
		Resource map[string]any `json:"resource"`
	} `json:"entry"`
}

// Fetch searches the server for AdverseEvent resources naming the drug.
func (c *Client) Fetch(ctx context.Context, query domain.Query) ([]domain.RawEntry, error) {
	limit := c.pageSize
	if query.Limit > 0 && query.Limit < limit {
		limit = query.Limit
	}

	params := url.Values{}
	params.Set("substance", query.DrugName)
	params.Set("_count", fmt.Sprint(limit))
	if query.Since != nil {
		params.Set("date", "ge"+query.Since.Format("2006-01-02"))
	}

	var out bundle
	if err := httpc.GetJSON(ctx, c.hc, c.baseURL+"/AdverseEvent?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("fetch fhir: %w", err)
	}

	entries := make([]domain.RawEntry, 0, len(out.Entry))
	for _, e := range out.Entry {
		if e.Resource != nil {
			entries = append(entries, domain.RawEntry(e.Resource))
		}
	}
	return entries, nil
}

// seriousnessScores maps FHIR AdverseEvent seriousness codes.
var seriousnessScores = map[string]float64{
	"serious":     0.7,
	"non-serious": 0.3,
}

// Normalise maps one AdverseEvent resource to the unified schema.
func (c *Client) Normalise(raw domain.RawEntry) (*domain.UnifiedEntry, error) {
	reaction := codeableConceptText(raw["event"])
	if reaction == "" {
		return nil, domain.NormalisationError(domain.ErrEmptyEntry)
	}

	entry := &domain.UnifiedEntry{
		ID:         entryID(raw),
		Source:     Name,
		Reaction:   reaction,
		Confidence: 0.8,
		Severity:   0.3,
		Metadata:   map[string]any{"raw": map[string]any(raw)},
	}

	if code := codeableConceptCode(raw["seriousness"]); code != "" {
		if score, ok := seriousnessScores[code]; ok {
			entry.Severity = score
		}
	}
	if suspects, ok := raw["suspectEntity"].([]any); ok && len(suspects) > 0 {
		if s, ok := suspects[0].(map[string]any); ok {
			entry.Drug = codeableConceptText(s["instance"])
		}
	}
	if date, ok := raw["date"].(string); ok {
		if ts, err := parseFHIRDate(date); err == nil {
			entry.Timestamp = &ts
		}
	}
	return entry, nil
}
