// Package medwatch reads the FDA MedWatch safety-alert RSS feed and
// keeps the items that mention the queried drug. Feeds carry no
// structured reaction data, so the client normalises items itself.
package medwatch

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pharmos-labs/vigil-cli/internal/connectors/httpc"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
	"github.com/pharmos-labs/vigil-cli/internal/normalisers/unified"
)

const (
	// Name is the source key this client serves.
	Name = "medwatch"

	defaultFeedURL = "https://www.fda.gov/about-fda/contact-fda/stay-informed/rss-feeds/medwatch/rss.xml"
)

// Ensure Client implements the interfaces.
var (
	_ driven.SourceClient    = (*Client)(nil)
	_ driven.EntryNormaliser = (*Client)(nil)
)

// Client polls the MedWatch alert feed.
type Client struct {
	feedURL string
	hc      *http.Client
}

// New builds a MedWatch client from its source configuration.
// Recognised metadata keys: feed_url.
func New(cfg domain.SourceConfig) (driven.SourceClient, error) {
	c := &Client{
		feedURL: defaultFeedURL,
		hc:      httpc.NewClient(),
	}
	if u := cfg.Metadata["feed_url"]; u != "" {
		c.feedURL = u
	}
	return c, nil
}

// Name returns the source key.
func (c *Client) Name() string { return Name }

// Close releases resources.
func (c *Client) Close() error { return nil }

type rssFeed struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate"`
	GUID        string `xml:"guid"`
}

// Fetch downloads the feed and keeps items mentioning the drug.
// RSS has no server-side search, so filtering happens locally.
func (c *Client) Fetch(ctx context.Context, query domain.Query) ([]domain.RawEntry, error) {
	body, err := httpc.GetBody(ctx, c.hc, c.feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch medwatch: %w", err)
	}

	var feed rssFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, domain.ClientError(fmt.Errorf("parse medwatch feed: %w", err))
	}

	needle := strings.ToLower(query.DrugName)
	entries := make([]domain.RawEntry, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		haystack := strings.ToLower(item.Title + " " + item.Description)
		if !strings.Contains(haystack, needle) {
			continue
		}
		if !withinRange(item.PubDate, query) {
			continue
		}
		entries = append(entries, domain.RawEntry{
			"guid":        item.GUID,
			"title":       item.Title,
			"link":        item.Link,
			"description": item.Description,
			"pubdate":     item.PubDate,
			"drug":        query.DrugName,
		})
		if query.Limit > 0 && len(entries) >= query.Limit {
			break
		}
	}
	return entries, nil
}

func withinRange(pubDate string, query domain.Query) bool {
	if query.Since == nil && query.Until == nil {
		return true
	}
	ts, err := time.Parse(time.RFC1123Z, pubDate)
	if err != nil {
		ts, err = time.Parse(time.RFC1123, pubDate)
	}
	if err != nil {
		// Undated items pass through rather than silently vanishing.
		return true
	}
	if query.Since != nil && ts.Before(*query.Since) {
		return false
	}
	if query.Until != nil && ts.After(*query.Until) {
		return false
	}
	return true
}

// Normalise maps one feed item to the unified schema. Alerts are
// unstructured prose, so confidence is low and severity comes from the
// shared keyword heuristic.
func (c *Client) Normalise(raw domain.RawEntry) (*domain.UnifiedEntry, error) {
	title, _ := raw["title"].(string)
	description, _ := raw["description"].(string)
	text := strings.TrimSpace(title)
	if description != "" {
		text = strings.TrimSpace(title + ": " + description)
	}
	if text == "" {
		return nil, domain.NormalisationError(domain.ErrEmptyEntry)
	}
	if len(text) > domain.MaxNarrativeLength {
		text = text[:domain.MaxNarrativeLength]
	}

	drug, _ := raw["drug"].(string)
	entry := &domain.UnifiedEntry{
		ID:         unified.EntryID(Name, raw),
		Source:     Name,
		Drug:       unified.CanonicalDrug(drug),
		Text:       text,
		Confidence: 0.5,
		Severity:   unified.EstimateSeverity(text, ""),
		Metadata:   map[string]any{"raw": map[string]any(raw)},
	}

	if pubDate, ok := raw["pubdate"].(string); ok {
		if ts, err := time.Parse(time.RFC1123Z, pubDate); err == nil {
			ts = ts.UTC()
			entry.Timestamp = &ts
		} else if ts, err := time.Parse(time.RFC1123, pubDate); err == nil {
			ts = ts.UTC()
			entry.Timestamp = &ts
		}
	}
	return entry, nil
}
