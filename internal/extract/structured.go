package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"cardscan/internal/contact"
)

// StructuredExtractor consumes a JSON object already shaped like a contact
// record, typically produced by a generative model. Every expected field reads
// with an empty-string default when absent, wrong-typed, or null. A payload
// that cannot be parsed at all fails soft: the caller still gets a well-formed
// empty contact plus the raw text for manual entry.
type StructuredExtractor struct {
	logger *slog.Logger
}

func NewStructuredExtractor(logger *slog.Logger) *StructuredExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &StructuredExtractor{logger: logger}
}

func (s *StructuredExtractor) Extract(_ context.Context, raw string) (Result, error) {
	start := time.Now()
	res := Result{Raw: raw}

	span := firstJSONSpan(raw)
	if span == "" {
		res.ParseDiagnostic = "no JSON object found in response"
		s.logger.Warn("extract.structured.no_json", "raw_bytes", len(raw))
		return res, nil
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(span), &m); err != nil {
		res.ParseDiagnostic = "decode JSON: " + err.Error()
		s.logger.Warn("extract.structured.decode_error",
			"error", err,
			"span_bytes", len(span),
		)
		return res, nil
	}

	// Schema mismatches are diagnostics, not rejections: the lenient field
	// reads below still salvage whatever is usable.
	if err := ValidateJSONAgainstSchema(BuildContactJSONSchema(), []byte(span)); err != nil {
		res.ParseDiagnostic = "schema: " + err.Error()
		s.logger.Warn("extract.structured.schema_mismatch", "error", err)
	}

	res.Contact = contact.ExtractedContact{
		Name:    stringField(m, "name"),
		Company: stringField(m, "company"),
		Title:   stringField(m, "title"),
		Phone:   stringField(m, "phone"),
		Email:   stringField(m, "email"),
		Website: stringField(m, "website"),
		Address: stringField(m, "address"),
	}
	res.Items = itemsField(m, "extractedItems")

	s.logger.Info("extract.structured.ok",
		"has_name", res.Contact.Name != "",
		"has_company", res.Contact.Company != "",
		"unassigned_items", len(res.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// firstJSONSpan locates the first '{' and the last '}' in text, mirroring the
// backend's markdown-tolerant extraction. Empty when no such span exists.
func firstJSONSpan(text string) string {
	open := strings.Index(text, "{")
	if open < 0 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end < open {
		return ""
	}
	return text[open : end+1]
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// itemsField reads the ordered extractedItems sequence. Each entry with a
// non-empty text becomes one unassigned item; sourceIndex is its position in
// the original sequence so identity stays stable across skipped entries.
func itemsField(m map[string]any, key string) []contact.UnassignedItem {
	arr, ok := m[key].([]any)
	if !ok {
		return nil
	}
	items := make([]contact.UnassignedItem, 0, len(arr))
	for i, e := range arr {
		obj, ok := e.(map[string]any)
		if !ok {
			continue
		}
		text := stringField(obj, "text")
		if text == "" {
			continue
		}
		items = append(items, contact.UnassignedItem{
			Text:        text,
			Type:        stringField(obj, "type"),
			SourceIndex: i,
			Used:        false,
		})
	}
	return items
}
