// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Violation is one failed constraint on one argument.
type Violation struct {
	Field  string
	Reason string
}

func (v Violation) String() string { return v.Field + ": " + v.Reason }

// ValidationError lists every violation found in one set of
// arguments, sorted by field name.
type ValidationError struct {
	Operation  string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, violation := range e.Violations {
		parts[i] = violation.String()
	}
	return fmt.Sprintf("invalid arguments for %s: %s", e.Operation, strings.Join(parts, "; "))
}

// DecodeArguments parses a JSON arguments object. Numbers are kept as
// json.Number so integer checks are exact. Empty input and null decode
// to an empty map; any other non-object is an error.
func DecodeArguments(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return map[string]any{}, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("arguments must be a JSON object, got %s", describeRaw(trimmed))
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	var arguments map[string]any
	if err := decoder.Decode(&arguments); err != nil {
		return nil, fmt.Errorf("arguments: %w", err)
	}
	if arguments == nil {
		arguments = map[string]any{}
	}
	return arguments, nil
}

// check validates arguments against schema and returns a copy with
// defaults filled in. Unknown arguments are dropped.
func check(schema *Schema, arguments map[string]any) (map[string]any, []Violation) {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	normalized := make(map[string]any, len(schema.order))
	var violations []Violation
	for _, name := range schema.order {
		property := schema.Properties[name]
		value, present := arguments[name]
		if present && value == nil {
			present = false
		}
		if !present {
			switch {
			case property.Default != nil:
				normalized[name] = property.Default
			case required[name]:
				violations = append(violations, Violation{Field: name, Reason: "required"})
			}
			continue
		}
		fieldViolations := checkValue(name, property, value)
		if len(fieldViolations) == 0 {
			normalized[name] = canonical(property, value)
		}
		violations = append(violations, fieldViolations...)
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Field < violations[j].Field
	})
	return normalized, violations
}

func checkValue(name string, property *Schema, value any) []Violation {
	mismatch := func() []Violation {
		return []Violation{{Field: name, Reason: fmt.Sprintf("must be %s, got %s", article(property.Type), describe(value))}}
	}

	switch property.Type {
	case "string":
		if _, ok := value.(string); !ok {
			return mismatch()
		}

	case "boolean":
		if _, ok := value.(bool); !ok {
			return mismatch()
		}

	case "number":
		if _, ok := asFloat(value); !ok {
			return mismatch()
		}

	case "integer":
		number, ok := asInteger(value)
		if !ok {
			return mismatch()
		}
		var violations []Violation
		if property.Minimum != nil && number < *property.Minimum {
			violations = append(violations, Violation{Field: name, Reason: fmt.Sprintf("must be at least %d", *property.Minimum)})
		}
		if property.Maximum != nil && number > *property.Maximum {
			violations = append(violations, Violation{Field: name, Reason: fmt.Sprintf("must be at most %d", *property.Maximum)})
		}
		return violations

	case "array":
		items, ok := value.([]any)
		if !ok {
			return mismatch()
		}
		var violations []Violation
		if property.MinItems != nil && len(items) < *property.MinItems {
			noun := "items"
			if *property.MinItems == 1 {
				noun = "item"
			}
			violations = append(violations, Violation{Field: name, Reason: fmt.Sprintf("must contain at least %d %s", *property.MinItems, noun)})
		}
		if property.Items != nil {
			for i, item := range items {
				violations = append(violations, checkValue(fmt.Sprintf("%s[%d]", name, i), property.Items, item)...)
			}
		}
		return violations
	}
	return nil
}

// canonical converts a checked value to the Go type the decoder
// expects, so "5.0" reaches an int field as 5.
func canonical(property *Schema, value any) any {
	switch property.Type {
	case "integer":
		number, _ := asInteger(value)
		return number
	case "number":
		number, _ := asFloat(value)
		return number
	}
	return value
}

// decodeInto copies validated arguments into a params struct.
func decodeInto(normalized map[string]any, params any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           params,
		WeaklyTypedInput: false,
		ZeroFields:       true,
	})
	if err != nil {
		return fmt.Errorf("operation: building decoder: %w", err)
	}
	return decoder.Decode(normalized)
}

func asInteger(value any) (int64, bool) {
	switch number := value.(type) {
	case json.Number:
		if parsed, err := number.Int64(); err == nil {
			return parsed, true
		}
		parsed, err := number.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return integral(parsed)
	case float64:
		return integral(number)
	case int:
		return int64(number), true
	case int64:
		return number, true
	}
	return 0, false
}

// integral converts a float with no fractional part. Values outside
// the int64 range saturate, so a bound check reports them against the
// bound they exceed.
func integral(number float64) (int64, bool) {
	switch {
	case math.IsNaN(number):
		return 0, false
	case number >= math.MaxInt64:
		return math.MaxInt64, true
	case number <= math.MinInt64:
		return math.MinInt64, true
	case number != math.Trunc(number):
		return 0, false
	}
	return int64(number), true
}

func asFloat(value any) (float64, bool) {
	switch number := value.(type) {
	case json.Number:
		parsed, err := number.Float64()
		return parsed, err == nil
	case float64:
		return number, true
	case int:
		return float64(number), true
	case int64:
		return float64(number), true
	}
	return 0, false
}

func article(jsonType string) string {
	switch jsonType {
	case "integer", "array", "object":
		return "an " + jsonType
	}
	return "a " + jsonType
}

func describe(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case json.Number, float64, int, int64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return fmt.Sprintf("%T", value)
}

func describeRaw(raw []byte) string {
	switch raw[0] {
	case '[':
		return "array"
	case '"':
		return "string"
	case 't', 'f':
		return "boolean"
	}
	return "number"
}
