package docintel

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// operationSchema pins down the parts of the poll envelope the client relies on.
var operationSchema = map[string]any{
	"type":     "object",
	"required": []any{"status"},
	"properties": map[string]any{
		"status": map[string]any{
			"type": "string",
			"enum": []any{StatusNotStarted, StatusRunning, StatusSucceeded, StatusFailed},
		},
		"analyzeResult": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"content":    map[string]any{"type": "string"},
				"pages":      map[string]any{"type": "array"},
				"tables":     map[string]any{"type": "array"},
				"paragraphs": map[string]any{"type": "array"},
				"documents": map[string]any{
					"type": "array",
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"confidence": map[string]any{"type": "number", "minimum": 0, "maximum": 1},
							"fields":     map[string]any{"type": "object"},
						},
					},
				},
			},
		},
	},
	"if": map[string]any{
		"properties": map[string]any{"status": map[string]any{"const": StatusSucceeded}},
	},
	"then": map[string]any{"required": []any{"analyzeResult"}},
}

var compiledOperationSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	b, err := json.Marshal(operationSchema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("operation.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("operation.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
})

// ValidateEnvelope checks a poll response body against the operation schema.
func ValidateEnvelope(data []byte) error {
	schema, err := compiledOperationSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal envelope: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("envelope does not match schema: %w", err)
	}
	return nil
}
