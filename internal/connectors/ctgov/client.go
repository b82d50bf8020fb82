// Package ctgov fetches study records from the ClinicalTrials.gov v2
// API. Studies are flattened to the common aliased field names, so the
// default normaliser applies.
package ctgov

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pharmos-labs/vigil-cli/internal/connectors/httpc"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
)

const (
	// Name is the source key this client serves.
	Name = "ctgov"

	defaultBaseURL  = "https://clinicaltrials.gov/api/v2"
	defaultPageSize = 20
)

// Ensure Client implements the interface.
var _ driven.SourceClient = (*Client)(nil)

// Client queries the ClinicalTrials.gov study registry.
type Client struct {
	baseURL  string
	pageSize int
	hc       *http.Client
}

// New builds a ClinicalTrials.gov client from its source configuration.
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
	return c, nil
}

// Name returns the source key.
func (c *Client) Name() string { return Name }

// Close releases resources.
func (c *Client) Close() error { return nil }

type studiesResponse struct {
	Studies []struct {
		ProtocolSection struct {
			IdentificationModule struct {
				NCTID      string `json:"nctId"`
				BriefTitle string `json:"briefTitle"`
			} `json:"identificationModule"`
			StatusModule struct {
				StartDateStruct struct {
					Date string `json:"date"`
				} `json:"startDateStruct"`
			} `json:"statusModule"`
			DescriptionModule struct {
				BriefSummary string `json:"briefSummary"`
			} `json:"descriptionModule"`
		} `json:"protocolSection"`
	} `json:"studies"`
}

// Fetch retrieves studies mentioning the drug (and reaction, if given).
func (c *Client) Fetch(ctx context.Context, query domain.Query) ([]domain.RawEntry, error) {
	term := query.DrugName
	if query.Reaction != "" {
		term = fmt.Sprintf("%s %s", query.DrugName, query.Reaction)
	}

	limit := c.pageSize
	if query.Limit > 0 && query.Limit < limit {
		limit = query.Limit
	}

	params := url.Values{}
	params.Set("query.term", term)
	params.Set("pageSize", fmt.Sprint(limit))

	var out studiesResponse
	if err := httpc.GetJSON(ctx, c.hc, c.baseURL+"/studies?"+params.Encode(), &out); err != nil {
		return nil, fmt.Errorf("fetch ctgov: %w", err)
	}

	entries := make([]domain.RawEntry, 0, len(out.Studies))
	for _, study := range out.Studies {
		ps := study.ProtocolSection
		entries = append(entries, domain.RawEntry{
			"nctId":     ps.IdentificationModule.NCTID,
			"title":     ps.IdentificationModule.BriefTitle,
			"summary":   ps.DescriptionModule.BriefSummary,
			"startdate": ps.StatusModule.StartDateStruct.Date,
			"drug":      query.DrugName,
		})
	}
	return entries, nil
}
