package schema

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// FieldType enumerates the primitive types a record field may declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInteger FieldType = "integer"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
)

// Field declares one record field: its name, type and whether a response
// must include it.
type Field struct {
	Name     string
	Type     FieldType
	Required bool
}

// Schema is an explicit, ordered description of the record a provider
// response must conform to. Field order is the serialization order.
type Schema struct {
	Fields []Field
}

// Record is one schema-conformant unit of generated output. Produced once
// per successful task, written once, never mutated.
type Record map[string]interface{}

// ValidationError reports why a provider response could not be accepted as
// a Record.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return "schema validation: " + e.Msg
}

// PidginText is the record shape for generated Pidgin corpus entries.
func PidginText() *Schema {
	return &Schema{Fields: []Field{
		{Name: "title", Type: TypeString, Required: true},
		{Name: "content", Type: TypeString, Required: true},
	}}
}

// Validate checks parsed JSON data against the schema and returns it as a
// Record containing only declared fields. Missing required fields, wrong
// types and non-integral values for integer fields are ValidationErrors.
func (s *Schema) Validate(data map[string]interface{}) (Record, error) {
	if err := s.check(); err != nil {
		return nil, err
	}

	record := make(Record, len(s.Fields))
	var problems []string

	for _, f := range s.Fields {
		value, ok := data[f.Name]
		if !ok || value == nil {
			if f.Required {
				problems = append(problems, fmt.Sprintf("missing required field %q", f.Name))
			}
			continue
		}

		coerced, err := coerce(f, value)
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		record[f.Name] = coerced
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &ValidationError{Msg: strings.Join(problems, "; ")}
	}
	return record, nil
}

// JSONSchema renders the schema as a JSON Schema object, suitable for
// embedding in prompts or structured-output request parameters.
func (s *Schema) JSONSchema() map[string]interface{} {
	properties := make(map[string]interface{}, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		properties[f.Name] = map[string]interface{}{"type": string(f.Type)}
		if f.Required {
			required = append(required, f.Name)
		}
	}

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// check validates the schema declaration itself.
func (s *Schema) check() error {
	if s == nil || len(s.Fields) == 0 {
		return &ValidationError{Msg: "schema declares no fields"}
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Name == "" {
			return &ValidationError{Msg: "schema declares a field with an empty name"}
		}
		if seen[f.Name] {
			return &ValidationError{Msg: fmt.Sprintf("schema declares field %q twice", f.Name)}
		}
		seen[f.Name] = true
		switch f.Type {
		case TypeString, TypeInteger, TypeNumber, TypeBoolean:
		default:
			return &ValidationError{Msg: fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type)}
		}
	}
	return nil
}

// coerce maps a decoded JSON value onto the field's declared type. JSON
// numbers arrive as float64; integer fields accept them only when integral.
func coerce(f Field, value interface{}) (interface{}, error) {
	switch f.Type {
	case TypeString:
		v, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("field %q: expected string, got %T", f.Name, value)
		}
		return v, nil
	case TypeInteger:
		v, ok := value.(float64)
		if !ok || v != math.Trunc(v) {
			return nil, fmt.Errorf("field %q: expected integer, got %v", f.Name, value)
		}
		return int64(v), nil
	case TypeNumber:
		v, ok := value.(float64)
		if !ok {
			return nil, fmt.Errorf("field %q: expected number, got %T", f.Name, value)
		}
		return v, nil
	case TypeBoolean:
		v, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("field %q: expected boolean, got %T", f.Name, value)
		}
		return v, nil
	}
	return nil, fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
}
