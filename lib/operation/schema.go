// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the JSON Schema subset used for operation input
// descriptions. It is served verbatim as an MCP inputSchema.
type Schema struct {
	// Type is "object", "string", "boolean", "integer", "number", or
	// "array".
	Type string `json:"type"`

	// Description comes from the desc struct tag.
	Description string `json:"description,omitempty"`

	// Properties is set only for objects.
	Properties map[string]*Schema `json:"properties,omitempty"`

	// Required lists property names that must be provided, in field
	// order.
	Required []string `json:"required,omitempty"`

	// Default is the parsed default tag, typed so it marshals as the
	// right JSON kind.
	Default any `json:"default,omitempty"`

	Minimum  *int64 `json:"minimum,omitempty"`
	Maximum  *int64 `json:"maximum,omitempty"`
	MinItems *int   `json:"minItems,omitempty"`

	// Items describes array elements.
	Items *Schema `json:"items,omitempty"`

	// order holds property names in struct field order so validation
	// reports and discovery listings are stable.
	order []string
}

// Order returns the object's property names in declaration order.
func (s *Schema) Order() []string { return s.order }

// ParamsSchema builds the input schema of a params struct. Property
// names come from json tags; fields without a json tag, or tagged
// "-", are not part of the input.
//
// Tags understood on each field:
//
//	desc:"..."       description
//	required:"true"  must be present (ignored when a default is set)
//	default:"..."    value used when absent
//	min:"N" max:"N"  integer bounds
//	minItems:"N"     minimum array length
func ParamsSchema(params any) (*Schema, error) {
	typ := reflect.TypeOf(params)
	if typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("operation: params must be a struct or pointer to struct, got %T", params)
	}
	return buildObjectSchema(typ)
}

func buildObjectSchema(structType reflect.Type) (*Schema, error) {
	schema := &Schema{
		Type:       "object",
		Properties: make(map[string]*Schema),
	}

	for i := range structType.NumField() {
		field := structType.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			embedded, err := buildObjectSchema(field.Type)
			if err != nil {
				return nil, fmt.Errorf("embedded %s: %w", field.Name, err)
			}
			for _, name := range embedded.order {
				schema.Properties[name] = embedded.Properties[name]
				schema.order = append(schema.order, name)
			}
			schema.Required = append(schema.Required, embedded.Required...)
			continue
		}
		if !field.IsExported() {
			continue
		}

		name := jsonPropertyName(field)
		if name == "" || name == "-" {
			continue
		}
		property, err := fieldSchema(field)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		schema.Properties[name] = property
		schema.order = append(schema.order, name)

		if field.Tag.Get("required") == "true" && field.Tag.Get("default") == "" {
			schema.Required = append(schema.Required, name)
		}
	}
	return schema, nil
}

func jsonPropertyName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return ""
	}
	name, _, _ := strings.Cut(tag, ",")
	return name
}

func fieldSchema(field reflect.StructField) (*Schema, error) {
	fieldType := field.Type
	if fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	schema := &Schema{Description: field.Tag.Get("desc")}
	switch fieldType.Kind() {
	case reflect.String:
		schema.Type = "string"
	case reflect.Bool:
		schema.Type = "boolean"
	case reflect.Int, reflect.Int32, reflect.Int64:
		schema.Type = "integer"
	case reflect.Float64:
		schema.Type = "number"
	case reflect.Slice:
		if fieldType.Elem().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported slice type %s", fieldType)
		}
		schema.Type = "array"
		schema.Items = &Schema{Type: "string"}
	default:
		return nil, fmt.Errorf("unsupported type %s", fieldType)
	}

	if value := field.Tag.Get("default"); value != "" {
		parsed, err := parseDefault(fieldType, value)
		if err != nil {
			return nil, fmt.Errorf("default: %w", err)
		}
		schema.Default = parsed
	}
	if value := field.Tag.Get("min"); value != "" {
		bound, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("min: %w", err)
		}
		schema.Minimum = &bound
	}
	if value := field.Tag.Get("max"); value != "" {
		bound, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("max: %w", err)
		}
		schema.Maximum = &bound
	}
	if value := field.Tag.Get("minItems"); value != "" {
		count, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("minItems: %w", err)
		}
		schema.MinItems = &count
	}
	return schema, nil
}

// parseDefault parses a default tag into the Go type matching the
// field so it marshals to the correct JSON kind.
func parseDefault(fieldType reflect.Type, value string) (any, error) {
	switch fieldType.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Bool:
		return strconv.ParseBool(value)
	case reflect.Int, reflect.Int32, reflect.Int64:
		return strconv.ParseInt(value, 10, 64)
	case reflect.Float64:
		return strconv.ParseFloat(value, 64)
	case reflect.Slice:
		return strings.Split(value, ","), nil
	}
	return nil, fmt.Errorf("unsupported type %s", fieldType)
}
