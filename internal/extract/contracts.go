package extract

import (
	"context"

	"cardscan/internal/contact"
)

// Result is the normalized output of any extractor variant.
type Result struct {
	Contact contact.ExtractedContact
	Items   []contact.UnassignedItem

	// Raw preserves the input text so a caller can still show something when
	// extraction degraded.
	Raw string
	// ParseDiagnostic carries a soft parse or schema failure. A parse failure
	// leaves every contact field empty; a schema mismatch still salvages the
	// fields that read as strings. Either way it is never a hard error.
	ParseDiagnostic string
}

// Extractor is the interface the analyze pipeline depends on.
type Extractor interface {
	Extract(ctx context.Context, raw string) (Result, error)
}
