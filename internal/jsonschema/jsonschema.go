package jsonschema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Schema is the subset of JSON Schema used for function-call input schemas.
type Schema struct {
	Type        string             `json:"type,omitempty"`
	Description string             `json:"description,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	// AdditionalProperties is either a bool or a *Schema.
	AdditionalProperties any    `json:"additionalProperties,omitempty"`
	Default              any    `json:"default,omitempty"`
	Enum                 []any  `json:"enum,omitempty"`
	Format               string `json:"format,omitempty"`
	Nullable             bool   `json:"nullable,omitempty"`

	Ref  string             `json:"$ref,omitempty"`
	Defs map[string]*Schema `json:"$defs,omitempty"`
}

const defsPrefix = "#/$defs/"

// GenerateJSONSchema generates the schema of T. Pointer types are
// dereferenced. Struct fields without omitempty and not of pointer type are
// required, as are fields tagged `jsonschema:"required"`.
func GenerateJSONSchema[T any]() (*Schema, error) {
	g := &generator{
		visited: make(map[reflect.Type]string),
		defs:    make(map[string]*Schema),
	}
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var schema *Schema
	var err error
	if t.Kind() == reflect.Struct {
		schema, err = g.object(t)
	} else {
		schema, err = g.field(t)
	}
	if err != nil {
		return nil, err
	}
	if len(g.defs) > 0 {
		schema.Defs = g.defs
	}
	return schema, nil
}

type generator struct {
	visited map[reflect.Type]string
	defs    map[string]*Schema
}

func (g *generator) field(t reflect.Type) (*Schema, error) {
	switch t.Kind() {
	case reflect.String:
		return &Schema{Type: "string"}, nil
	case reflect.Bool:
		return &Schema{Type: "boolean"}, nil
	case reflect.Float32, reflect.Float64:
		return &Schema{Type: "number"}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Schema{Type: "integer"}, nil
	case reflect.Slice, reflect.Array:
		items, err := g.field(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: items}, nil
	case reflect.Map:
		values, err := g.field(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: values}, nil
	case reflect.Ptr:
		return g.field(t.Elem())
	case reflect.Struct:
		if name, ok := g.visited[t]; ok {
			return &Schema{Ref: defsPrefix + name}, nil
		}
		if !isRecursive(t) {
			return g.object(t)
		}
		name := defName(t)
		g.visited[t] = name
		def, err := g.object(t)
		if err != nil {
			return nil, err
		}
		g.defs[name] = def
		return &Schema{Ref: defsPrefix + name}, nil
	default:
		return &Schema{Type: "object"}, nil
	}
}

// object builds the schema of a struct. A recursive root is registered as
// visited so self references resolve to its definition.
func (g *generator) object(t reflect.Type) (*Schema, error) {
	if _, ok := g.visited[t]; !ok && isRecursive(t) {
		g.visited[t] = defName(t)
	}

	schema := &Schema{Type: "object", Properties: map[string]*Schema{}}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, omitEmpty, skip := jsonName(f)
		if skip {
			continue
		}

		fieldSchema, err := g.field(f.Type)
		if err != nil {
			return nil, err
		}
		requiredByTag := false
		if fieldSchema.Ref == "" {
			requiredByTag, err = applyTag(f.Type, f.Tag.Get("jsonschema"), fieldSchema)
			if err != nil {
				return nil, fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
			}
		}
		schema.Properties[name] = fieldSchema
		if (f.Type.Kind() != reflect.Ptr && !omitEmpty) || requiredByTag {
			schema.Required = append(schema.Required, name)
		}
	}
	if name, ok := g.visited[t]; ok {
		if _, stored := g.defs[name]; !stored {
			g.defs[name] = schema
		}
	}
	return schema, nil
}

func jsonName(f reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, true
	}
	name = f.Name
	if tag == "" {
		return name, false, false
	}
	head, opts, _ := strings.Cut(tag, ",")
	if head != "" {
		name = head
	}
	return name, strings.Contains(opts, "omitempty"), false
}

// applyTag applies `jsonschema:"description=...,enum=a,enum=b,required"`.
// Descriptions cannot contain commas.
func applyTag(t reflect.Type, tag string, schema *Schema) (required bool, err error) {
	if tag == "" {
		return false, nil
	}
	for _, item := range strings.Split(tag, ",") {
		key, value, hasValue := strings.Cut(item, "=")
		if !hasValue {
			if key == "required" {
				required = true
			}
			continue
		}
		switch key {
		case "description":
			schema.Description = value
		case "format":
			schema.Format = value
		case "enum":
			v, err := enumValue(t, value)
			if err != nil {
				return false, err
			}
			schema.Enum = append(schema.Enum, v)
		}
	}
	return required, nil
}

func enumValue(t reflect.Type, value string) (any, error) {
	switch t.Kind() {
	case reflect.String:
		return value, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not an integer: %w", value, err)
		}
		return v, nil
	case reflect.Float32, reflect.Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a number: %w", value, err)
		}
		return v, nil
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("enum value %q is not a bool: %w", value, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("enum unsupported for %v", t)
	}
}

func isRecursive(t reflect.Type) bool {
	return reaches(t, t, map[reflect.Type]bool{})
}

func reaches(target, current reflect.Type, seen map[reflect.Type]bool) bool {
	if seen[current] {
		return false
	}
	seen[current] = true
	for i := 0; i < current.NumField(); i++ {
		f := current.Field(i)
		if !f.IsExported() {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr || ft.Kind() == reflect.Slice || ft.Kind() == reflect.Array || ft.Kind() == reflect.Map {
			ft = ft.Elem()
		}
		if ft == target {
			return true
		}
		if ft.Kind() == reflect.Struct && reaches(target, ft, seen) {
			return true
		}
	}
	return false
}

func defName(t reflect.Type) string {
	if t.Name() != "" {
		return strings.ToLower(t.Name())
	}
	return "anonymousStruct"
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	c := *s
	c.Required = append([]string(nil), s.Required...)
	c.Enum = append([]any(nil), s.Enum...)
	c.Items = s.Items.Clone()
	c.Properties = cloneMap(s.Properties)
	c.Defs = cloneMap(s.Defs)
	if sub, ok := s.AdditionalProperties.(*Schema); ok {
		c.AdditionalProperties = sub.Clone()
	}
	return &c
}

func cloneMap(m map[string]*Schema) map[string]*Schema {
	if m == nil {
		return nil
	}
	out := make(map[string]*Schema, len(m))
	for k, v := range m {
		out[k] = v.Clone()
	}
	return out
}

// GeminiSubset returns a copy of s that Gemini function declarations accept:
// $ref is inlined from $defs, and additionalProperties, default and $defs
// are removed. References deeper than maxDepth collapse to a bare object.
func (s *Schema) GeminiSubset(maxDepth int) *Schema {
	if s == nil {
		return nil
	}
	return subset(s, s.Defs, maxDepth)
}

func subset(s *Schema, defs map[string]*Schema, depth int) *Schema {
	if s.Ref != "" {
		def, ok := defs[strings.TrimPrefix(s.Ref, defsPrefix)]
		if !ok || depth <= 0 {
			return &Schema{Type: "object", Description: s.Description}
		}
		inlined := subset(def, defs, depth-1)
		if s.Description != "" {
			inlined.Description = s.Description
		}
		return inlined
	}
	out := &Schema{
		Type:        s.Type,
		Description: s.Description,
		Required:    append([]string(nil), s.Required...),
		Enum:        append([]any(nil), s.Enum...),
		Format:      s.Format,
		Nullable:    s.Nullable,
	}
	if s.Items != nil {
		out.Items = subset(s.Items, defs, depth)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*Schema, len(s.Properties))
		for name, prop := range s.Properties {
			out.Properties[name] = subset(prop, defs, depth)
		}
	}
	if len(out.Required) == 0 {
		out.Required = nil
	}
	if len(out.Enum) == 0 {
		out.Enum = nil
	}
	return out
}

// JsonString returns the compact JSON encoding, or the indented one when
// indent is true.
func (s *Schema) JsonString(indent ...bool) (string, error) {
	var data []byte
	var err error
	if len(indent) > 0 && indent[0] {
		data, err = json.MarshalIndent(s, "", "  ")
	} else {
		data, err = json.Marshal(s)
	}
	if err != nil {
		return "", fmt.Errorf("failed to marshal schema to JSON: %w", err)
	}
	return string(data), nil
}

func (s *Schema) String() string {
	str, err := s.JsonString()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return str
}
