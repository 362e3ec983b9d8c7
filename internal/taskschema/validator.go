// Package taskschema validates task creation payloads against the embedded
// JSON Schema before they reach the lifecycle engine.
package taskschema

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed task.v1.json
var taskSchemaV1 string

// ErrValidation can be used with errors.Is to detect schema failures.
var ErrValidation = errors.New("validation failed")

type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	schema, err := jsonschema.CompileString("https://moltmarket.dev/schemas/task.v1", taskSchemaV1)
	if err != nil {
		return nil, fmt.Errorf("compile task schema: %w", err)
	}
	return &Validator{schema: schema}, nil
}

// ValidateCreate performs hard reject: returns an error if the payload does
// not match the task creation schema.
func (v *Validator) ValidateCreate(raw json.RawMessage) error {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
