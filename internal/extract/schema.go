package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildContactJSONSchema returns a JSON-Schema (draft 2020-12 subset) for the
// structured recognition payload. The backend prompt asks for exactly this
// shape; locally it is used for diagnostics only, never to reject a payload.
func BuildContactJSONSchema() map[string]any {
	item := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
			"type": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":           map[string]any{"type": "string"},
			"company":        map[string]any{"type": "string"},
			"title":          map[string]any{"type": "string"},
			"phone":          map[string]any{"type": "string"},
			"email":          map[string]any{"type": "string"},
			"address":        map[string]any{"type": "string"},
			"website":        map[string]any{"type": "string"},
			"extractedItems": map[string]any{"type": "array", "items": item},
		},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
