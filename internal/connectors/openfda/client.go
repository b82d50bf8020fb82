// Package openfda fetches adverse-event reports from the openFDA drug
// event API (FAERS). Its payloads are deeply nested, so the client
// carries its own normaliser instead of relying on the alias defaults.
package openfda

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/pharmos-labs/vigil-cli/internal/connectors/httpc"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
	"github.com/pharmos-labs/vigil-cli/internal/normalisers/unified"
)

const (
	// Name is the source key this client serves.
	Name = "openfda"

	defaultBaseURL  = "https://api.fda.gov"
	defaultPageSize = 20

	// openFDA allows 240 requests/minute with a key, 40 without.
	keyedRate   = rate.Limit(4)
	keylessRate = rate.Limit(0.66)
)

// Ensure Client implements the interfaces.
var (
	_ driven.SourceClient    = (*Client)(nil)
	_ driven.EntryNormaliser = (*Client)(nil)
)

// Client queries the openFDA drug event endpoint.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	hc       *http.Client
	limiter  *rate.Limiter
}

// New builds an openFDA client from its source configuration.
// Recognised metadata keys: base_url, page_size.
func New(cfg domain.SourceConfig) (driven.SourceClient, error) {
	c := &Client{
		baseURL:  defaultBaseURL,
		pageSize: defaultPageSize,
		hc:       httpc.NewClient(),
	}
	if u := cfg.Metadata["base_url"]; u != "" {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
	if cfg.APIKeyEnvVar != "" {
		c.apiKey = os.Getenv(cfg.APIKeyEnvVar)
	}

	limit := keylessRate
	if c.apiKey != "" {
		limit = keyedRate
	}
	c.limiter = rate.NewLimiter(limit, 1)

	return c, nil
}

// Name returns the source key.
func (c *Client) Name() string { return Name }

// Close releases resources. The shared HTTP client has none to free.
func (c *Client) Close() error { return nil }

type eventResponse struct {
	Results []map[string]any `json:"results"`
}

// Fetch retrieves raw FAERS reports matching the query.
// openFDA answers 404 for "no matches", which is not a failure.
func (c *Client) Fetch(ctx context.Context, query domain.Query) ([]domain.RawEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.Transient(err)
	}

	var out eventResponse
	if err := httpc.GetJSON(ctx, c.hc, c.searchURL(query), &out); err != nil {
		var se *httpc.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch openfda: %w", err)
	}

	entries := make([]domain.RawEntry, 0, len(out.Results))
	for _, result := range out.Results {
		entries = append(entries, domain.RawEntry(result))
	}
	return entries, nil
}

func (c *Client) searchURL(query domain.Query) string {
	terms := []string{
		fmt.Sprintf(`patient.drug.medicinalproduct:%q`, query.DrugName),
	}
	if query.Reaction != "" {
		terms = append(terms, fmt.Sprintf(`patient.reaction.reactionmeddrapt:%q`, query.Reaction))
	}
	if query.Since != nil && query.Until != nil {
		terms = append(terms, fmt.Sprintf("receivedate:[%s TO %s]",
			query.Since.Format("20060102"), query.Until.Format("20060102")))
	}

	limit := c.pageSize
	if query.Limit > 0 && query.Limit < limit {
		limit = query.Limit
	}

	params := url.Values{}
	params.Set("search", strings.Join(terms, " AND "))
	params.Set("limit", fmt.Sprint(limit))
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	return c.baseURL + "/drug/event.json?" + params.Encode()
}

// Normalise maps one nested FAERS report to the unified schema.
// Regulatory reports are high-confidence; severity comes from the
// report's seriousness flags rather than text heuristics.
func (c *Client) Normalise(raw domain.RawEntry) (*domain.UnifiedEntry, error) {
	drug, reaction := extractPatient(raw)
	if reaction == "" {
		return nil, domain.NormalisationError(domain.ErrEmptyEntry)
	}

	entry := &domain.UnifiedEntry{
		ID:         unified.EntryID(Name, raw),
		Source:     Name,
		Drug:       unified.CanonicalDrug(drug),
		Reaction:   reaction,
		Confidence: 0.9,
		Severity:   severityOf(raw),
		Metadata:   map[string]any{"raw": map[string]any(raw)},
	}

	if date, ok := raw["receivedate"].(string); ok {
		if ts, err := parseReceiveDate(date); err == nil {
			entry.Timestamp = &ts
		}
	}
	return entry, nil
}

func parseReceiveDate(s string) (time.Time, error) {
	ts, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, err
	}
	return ts.UTC(), nil
}

// extractPatient pulls the first suspect drug and reaction out of the
// nested patient block.
func extractPatient(raw domain.RawEntry) (drug, reaction string) {
	patient, ok := raw["patient"].(map[string]any)
	if !ok {
		return "", ""
	}
	if drugs, ok := patient["drug"].([]any); ok && len(drugs) > 0 {
		if d, ok := drugs[0].(map[string]any); ok {
			drug, _ = d["medicinalproduct"].(string)
		}
	}
	if reactions, ok := patient["reaction"].([]any); ok && len(reactions) > 0 {
		if r, ok := reactions[0].(map[string]any); ok {
			reaction, _ = r["reactionmeddrapt"].(string)
		}
	}
	return drug, reaction
}

// severityOf scores a report from its seriousness flags.
// FAERS encodes flags as the string "1".
func severityOf(raw domain.RawEntry) float64 {
	flag := func(key string) bool {
		v, _ := raw[key].(string)
		return v == "1"
	}
	switch {
	case flag("seriousnessdeath"):
		return 0.95
	case flag("seriousnesslifethreatening"):
		return 0.9
	case flag("seriousnesshospitalization"):
		return 0.7
	case flag("serious"):
		return 0.6
	default:
		return 0.3
	}
}
