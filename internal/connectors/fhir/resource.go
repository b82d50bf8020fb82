package fhir

import (
	"time"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/normalisers/unified"
)

// fhirDateLayouts covers the precisions FHIR dateTime allows.
var fhirDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01",
	"2006",
}

func parseFHIRDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range fhirDateLayouts {
		ts, err := time.Parse(layout, s)
		if err == nil {
			return ts.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// codeableConceptText extracts the display text of a CodeableConcept,
// falling back to the first coding's display.
func codeableConceptText(v any) string {
	concept, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	if text, ok := concept["text"].(string); ok && text != "" {
		return text
	}
	if codings, ok := concept["coding"].([]any); ok && len(codings) > 0 {
		if coding, ok := codings[0].(map[string]any); ok {
			display, _ := coding["display"].(string)
			return display
		}
	}
	return ""
}

// codeableConceptCode extracts the first coding's code.
func codeableConceptCode(v any) string {
	concept, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	if codings, ok := concept["coding"].([]any); ok && len(codings) > 0 {
		if coding, ok := codings[0].(map[string]any); ok {
			code, _ := coding["code"].(string)
			return code
		}
	}
	return ""
}

// entryID prefers the server-assigned resource id so re-fetches of a
// mutated resource update in place rather than duplicating.
func entryID(raw domain.RawEntry) string {
	if id, ok := raw["id"].(string); ok && id != "" {
		return unified.EntryID(Name, domain.RawEntry{"id": id})
	}
	return unified.EntryID(Name, raw)
}
