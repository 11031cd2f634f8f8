// Package wireschema checks vendor payloads against a JSON Schema of the
// vendor wire format before they are sent. Schemas are declared in Go with
// the builders below and compiled once per vendor package. A schema must
// form a tree: every builder call returns a fresh node and nodes must not
// be shared between parents.
package wireschema

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/leofalp/aix/providers/ai"
)

// Validator is a compiled vendor payload schema. It is safe for concurrent use.
type Validator struct {
	vendor   string
	resolved *jsonschema.Resolved
}

// Compile resolves schema for vendor.
func Compile(vendor string, schema *jsonschema.Schema) (*Validator, error) {
	resolved, err := schema.Resolve(&jsonschema.ResolveOptions{})
	if err != nil {
		return nil, fmt.Errorf("%s wire schema: %w", vendor, err)
	}
	return &Validator{vendor: vendor, resolved: resolved}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(vendor string, schema *jsonschema.Schema) *Validator {
	v, err := Compile(vendor, schema)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate encodes body and checks it. The first violation is returned as
// an *ai.ValidationError.
func (v *Validator) Validate(body any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return &ai.ValidationError{Vendor: v.vendor, Message: "payload does not encode", Err: err}
	}
	var instance any
	if err := json.Unmarshal(encoded, &instance); err != nil {
		return &ai.ValidationError{Vendor: v.vendor, Message: "payload does not decode", Err: err}
	}
	if err := v.resolved.Validate(instance); err != nil {
		return &ai.ValidationError{Vendor: v.vendor, Message: "payload violates wire schema: " + err.Error(), Err: err}
	}
	return nil
}

/*
	##### BUILDERS #####
*/

// Object is an object schema with the given properties; names in required must be present.
func Object(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

// Closed is Object without additional properties.
func Closed(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	s := Object(props, required...)
	s.AdditionalProperties = &jsonschema.Schema{Not: &jsonschema.Schema{}}
	return s
}

// Map is an object whose values all match values.
func Map(values *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", AdditionalProperties: values}
}

// Array is an array of items.
func Array(items *jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "array", Items: items}
}

// NonEmptyArray is an array of at least one item.
func NonEmptyArray(items *jsonschema.Schema) *jsonschema.Schema {
	one := 1
	s := Array(items)
	s.MinItems = &one
	return s
}

// String is any string.
func String() *jsonschema.Schema { return &jsonschema.Schema{Type: "string"} }

// NonEmptyString is a string of at least one character.
func NonEmptyString() *jsonschema.Schema {
	one := 1
	return &jsonschema.Schema{Type: "string", MinLength: &one}
}

// Enum is a string restricted to values.
func Enum(values ...string) *jsonschema.Schema {
	enum := make([]any, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

// Integer is an integer not lower than minimum.
func Integer(minimum float64) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "integer", Minimum: &minimum}
}

// Number is any number.
func Number() *jsonschema.Schema { return &jsonschema.Schema{Type: "number"} }

// Bool is a boolean.
func Bool() *jsonschema.Schema { return &jsonschema.Schema{Type: "boolean"} }

// Any accepts every value.
func Any() *jsonschema.Schema { return &jsonschema.Schema{} }

// OneOf matches exactly one of the alternatives.
func OneOf(alternatives ...*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{OneOf: alternatives}
}

// AnyOf matches at least one of the alternatives.
func AnyOf(alternatives ...*jsonschema.Schema) *jsonschema.Schema {
	return &jsonschema.Schema{AnyOf: alternatives}
}

// Tagged is an object whose discriminator field equals tag.
func Tagged(field, tag string, props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	all := map[string]*jsonschema.Schema{field: Enum(tag)}
	for k, v := range props {
		all[k] = v
	}
	return Object(all, append([]string{field}, required...)...)
}
