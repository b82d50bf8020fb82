// Package unified implements the default normaliser that maps
// arbitrarily-shaped raw source payloads into the UnifiedEntry schema.
//
// Normalisation is a pure function: the same raw payload always yields
// the same entry, including its identifier. Missing confidence and
// severity are backfilled with deterministic text heuristics so that
// downstream consumers never see a null score.
package unified

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
)

// Field aliases seen across the supported source families.
var (
	drugAliases     = []string{"drug", "drugName", "drug_name", "drugMatch", "medicinalproduct", "substance"}
	reactionAliases = []string{"reaction", "reactionmeddrapt", "adverse_event", "side_effect", "event"}
	textAliases     = []string{"text", "narrative", "description", "summary", "abstract", "title"}
	dateAliases     = []string{"timestamp", "date", "receivedate", "receiptdate", "published", "pubdate", "startdate"}
)

// timeLayouts are tried in order when parsing a raw date string.
var timeLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
	"20060102",
	"2006/01/02",
	"2006 Jan 2",
	"January 2, 2006",
}

// drugSynonyms maps common alternate names onto one canonical form.
var drugSynonyms = map[string]string{
	"acetylsalicylic acid": "aspirin",
	"asa":                  "aspirin",
	"paracetamol":          "acetaminophen",
	"salbutamol":           "albuterol",
	"adrenaline":           "epinephrine",
	"glucophage":           "metformin",
}

// Normalise maps one raw payload to the unified schema.
// A payload with neither narrative text nor a reaction is rejected with
// a normalisation-kind error; the caller drops that single entry.
func Normalise(raw domain.RawEntry, source string) (*domain.UnifiedEntry, error) {
	if s := stringField(raw, "source"); s != "" {
		source = s
	}
	if source == "" {
		return nil, domain.NormalisationError(fmt.Errorf("%w: entry has no source", domain.ErrInvalidInput))
	}

	entry := &domain.UnifiedEntry{
		Source:   source,
		Drug:     CanonicalDrug(firstString(raw, drugAliases)),
		Reaction: strings.TrimSpace(firstString(raw, reactionAliases)),
		Text:     truncate(strings.TrimSpace(firstString(raw, textAliases))),
	}

	if entry.Text == "" && entry.Reaction == "" {
		return nil, domain.NormalisationError(domain.ErrEmptyEntry)
	}

	if ts := parseWhen(firstString(raw, dateAliases)); ts != nil {
		entry.Timestamp = ts
	}

	if c, ok := floatField(raw, "confidence"); ok {
		entry.Confidence = clamp(c)
	} else {
		entry.Confidence = EstimateConfidence(entry)
	}
	if s, ok := floatField(raw, "severity"); ok {
		entry.Severity = clamp(s)
	} else {
		entry.Severity = EstimateSeverity(entry.Text, entry.Reaction)
	}

	entry.ID = EntryID(source, raw)
	entry.Metadata = map[string]any{"raw": map[string]any(raw)}

	return entry, nil
}

// EntryID derives a deterministic identifier from the source name and
// the raw payload. json.Marshal sorts map keys, so equal payloads
// always serialise identically.
func EntryID(source string, raw domain.RawEntry) string {
	data, err := json.Marshal(raw)
	if err != nil {
		data = []byte(fmt.Sprint(raw))
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, append([]byte(source+"|"), data...)).String()
}

// CanonicalDrug lower-cases, trims and resolves known synonyms.
func CanonicalDrug(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := drugSynonyms[name]; ok {
		return canonical
	}
	return name
}

// severityKeywords are scanned in order; the first match wins.
var severityKeywords = []struct {
	word  string
	score float64
}{
	{"death", 0.95},
	{"fatal", 0.95},
	{"died", 0.95},
	{"life-threatening", 0.9},
	{"life threatening", 0.9},
	{"hospitalization", 0.7},
	{"hospitalisation", 0.7},
	{"hospitalized", 0.7},
	{"disability", 0.65},
	{"serious", 0.6},
	{"severe", 0.6},
	{"moderate", 0.4},
	{"mild", 0.2},
	{"minor", 0.2},
}

// EstimateSeverity scores an event from narrative keywords.
// Returns 0.3 when nothing indicative is found.
func EstimateSeverity(text, reaction string) float64 {
	haystack := strings.ToLower(text + " " + reaction)
	for _, kw := range severityKeywords {
		if strings.Contains(haystack, kw.word) {
			return kw.score
		}
	}
	return 0.3
}

// EstimateConfidence scores how complete a normalised entry is.
// More structured fields present means a more trustworthy record.
func EstimateConfidence(e *domain.UnifiedEntry) float64 {
	score := 0.3
	if e.Drug != "" {
		score += 0.2
	}
	if e.Reaction != "" {
		score += 0.2
	}
	if e.Timestamp != nil {
		score += 0.1
	}
	if len(e.Text) > 40 {
		score += 0.1
	}
	return clamp(score)
}

func truncate(s string) string {
	if len(s) > domain.MaxNarrativeLength {
		return s[:domain.MaxNarrativeLength]
	}
	return s
}

func clamp(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// firstString returns the first non-empty string among the aliases.
func firstString(raw domain.RawEntry, aliases []string) string {
	for _, key := range aliases {
		if s := stringField(raw, key); s != "" {
			return s
		}
	}
	return ""
}

func stringField(raw domain.RawEntry, key string) string {
	v, ok := raw[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

func floatField(raw domain.RawEntry, key string) (float64, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func parseWhen(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}
