package tool

import (
	"encoding/json"
	"fmt"
	"math"
)

type schemaShape struct {
	Type       string                    `json:"type"`
	Properties map[string]map[string]any `json:"properties"`
	Required   []string                  `json:"required"`
}

// ValidateArgs checks a decoded argument payload against a raw JSON schema:
// required fields must be present and properties must match their declared
// primitive type. Unknown fields pass through untouched.
func ValidateArgs(args map[string]any, schema json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	var shape schemaShape
	if err := json.Unmarshal(schema, &shape); err != nil {
		return fmt.Errorf("decode parameter schema: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}

	for _, field := range shape.Required {
		if _, exists := args[field]; !exists {
			return fmt.Errorf("missing required field: %s", field)
		}
	}

	for key, value := range args {
		propDef, ok := shape.Properties[key]
		if !ok {
			continue
		}
		expected, _ := propDef["type"].(string)
		if expected == "" {
			continue
		}
		if err := validateType(value, expected); err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
	}
	return nil
}

func validateType(value any, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); ok {
			return nil
		}
	case "number":
		if isNumber(value) {
			return nil
		}
	case "integer":
		if isInteger(value) {
			return nil
		}
	case "boolean":
		if _, ok := value.(bool); ok {
			return nil
		}
	case "object":
		if _, ok := value.(map[string]any); ok {
			return nil
		}
	case "array":
		if _, ok := value.([]any); ok {
			return nil
		}
	case "null":
		if value == nil {
			return nil
		}
	default:
		return nil
	}
	return fmt.Errorf("expected %s but got %T", expected, value)
}

func isNumber(value any) bool {
	switch v := value.(type) {
	case float32, float64, int, int32, int64:
		return true
	case json.Number:
		_, err := v.Float64()
		return err == nil
	}
	return false
}

func isInteger(value any) bool {
	switch v := value.(type) {
	case int, int32, int64:
		return true
	case float64:
		return math.Trunc(v) == v
	case json.Number:
		_, err := v.Int64()
		return err == nil
	}
	return false
}
