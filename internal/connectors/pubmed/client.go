// Package pubmed fetches adverse-event literature via the NCBI
// E-utilities (esearch + esummary). Summaries already fit the common
// aliased field names, so the default normaliser applies.
package pubmed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"golang.org/x/time/rate"

	"github.com/pharmos-labs/vigil-cli/internal/connectors/httpc"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
)

const (
	// Name is the source key this client serves.
	Name = "pubmed"

	defaultBaseURL  = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	defaultPageSize = 20
)

// NCBI allows 10 requests/second with a key, 3 without.
const (
	keyedRate   = rate.Limit(10)
	keylessRate = rate.Limit(3)
)

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

// Client queries PubMed for case reports and safety literature.
type Client struct {
	baseURL  string
	apiKey   string
	pageSize int
	hc       *http.Client
	limiter  *rate.Limiter
}

// New builds a PubMed client from its source configuration.
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

// Close releases resources.
func (c *Client) Close() error { return nil }

type searchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

type summaryResponse struct {
	Result map[string]any `json:"result"`
}

// Fetch searches PubMed and expands the hits into summary records.
func (c *Client) Fetch(ctx context.Context, query domain.Query) ([]domain.RawEntry, error) {
	ids, err := c.search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("fetch pubmed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	summaries, err := c.summaries(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch pubmed: %w", err)
	}
	return summaries, nil
}

func (c *Client) search(ctx context.Context, query domain.Query) ([]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.Transient(err)
	}

	term := fmt.Sprintf("%s AND adverse event", query.DrugName)
	if query.Reaction != "" {
		term = fmt.Sprintf("%s AND %s", query.DrugName, query.Reaction)
	}

	limit := c.pageSize
	if query.Limit > 0 && query.Limit < limit {
		limit = query.Limit
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmode", "json")
	params.Set("retmax", fmt.Sprint(limit))
	if query.Since != nil {
		params.Set("mindate", query.Since.Format("2006/01/02"))
	}
	if query.Until != nil {
		params.Set("maxdate", query.Until.Format("2006/01/02"))
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	var out searchResponse
	if err := httpc.GetJSON(ctx, c.hc, c.baseURL+"/esearch.fcgi?"+params.Encode(), &out); err != nil {
		return nil, err
	}
	return out.ESearchResult.IDList, nil
}

func (c *Client) summaries(ctx context.Context, ids []string) ([]domain.RawEntry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.Transient(err)
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(ids, ","))
	params.Set("retmode", "json")
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}

	var out summaryResponse
	if err := httpc.GetJSON(ctx, c.hc, c.baseURL+"/esummary.fcgi?"+params.Encode(), &out); err != nil {
		return nil, err
	}

	entries := make([]domain.RawEntry, 0, len(ids))
	for _, id := range ids {
		record, ok := out.Result[id].(map[string]any)
		if !ok {
			continue
		}
		title, _ := record["title"].(string)
		pubdate, _ := record["pubdate"].(string)
		journal, _ := record["fulljournalname"].(string)

		entries = append(entries, domain.RawEntry{
			"uid":     id,
			"title":   title,
			"pubdate": pubdate,
			"journal": journal,
		})
	}
	return entries, nil
}
