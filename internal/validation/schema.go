// Package validation provides a JSON-schema validation layer that sits
// alongside struct-tag validation for the one payload shape loose
// enough to need it: the A/B test start request, whose duration/control
// split combination struct tags alone can't fully pin down.
package validation

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

const abStartSchemaJSON = `{
	"type": "object",
	"required": ["test_name", "duration_days"],
	"properties": {
		"test_name": {"type": "string", "minLength": 1},
		"control_pct": {"type": "integer", "minimum": 0, "maximum": 100},
		"duration_days": {"type": "integer", "minimum": 1, "maximum": 90}
	}
}`

// SchemaValidator wraps the loaded schemas this service checks incoming
// requests against.
type SchemaValidator struct {
	abStart *gojsonschema.Schema
}

func NewSchemaValidator() (*SchemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(abStartSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to compile ab-start schema: %w", err)
	}
	return &SchemaValidator{abStart: schema}, nil
}

// ValidateABStart checks the raw request body against the A/B start
// schema, returning a flattened list of human-readable violations.
func (sv *SchemaValidator) ValidateABStart(body []byte) ([]string, error) {
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("invalid json: %w", err)
	}

	result, err := sv.abStart.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("schema validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}
