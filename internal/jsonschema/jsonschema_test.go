package jsonschema

import (
	"encoding/json"
	"reflect"
	"testing"
)

type weatherArgs struct {
	City  string   `json:"city" jsonschema:"description=City name"`
	Unit  string   `json:"unit,omitempty" jsonschema:"enum=celsius,enum=fahrenheit"`
	Days  *int     `json:"days,omitempty"`
	Tags  []string `json:"tags,omitempty" jsonschema:"required"`
	Debug bool     `json:"-"`
	inner string
}

type treeNode struct {
	Value    string      `json:"value"`
	Children []*treeNode `json:"children,omitempty"`
}

type forest struct {
	Root treeNode `json:"root"`
}

func TestGeneratePrimitives(t *testing.T) {
	tests := []struct {
		name string
		gen  func() (*Schema, error)
		want string
	}{
		{"string", GenerateJSONSchema[string], "string"},
		{"int", GenerateJSONSchema[int], "integer"},
		{"uint8", GenerateJSONSchema[uint8], "integer"},
		{"float32", GenerateJSONSchema[float32], "number"},
		{"bool", GenerateJSONSchema[bool], "boolean"},
		{"slice", GenerateJSONSchema[[]string], "array"},
		{"map", GenerateJSONSchema[map[string]int], "object"},
		{"pointer", GenerateJSONSchema[*string], "string"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema, err := tt.gen()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if schema.Type != tt.want {
				t.Errorf("got type %q, want %q", schema.Type, tt.want)
			}
		})
	}
}

func TestGenerateStruct(t *testing.T) {
	schema, err := GenerateJSONSchema[weatherArgs]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if schema.Type != "object" {
		t.Fatalf("got type %q", schema.Type)
	}
	if len(schema.Properties) != 4 {
		t.Fatalf("got %d properties, want 4: %v", len(schema.Properties), schema.Properties)
	}
	if got := schema.Properties["city"].Description; got != "City name" {
		t.Errorf("got description %q", got)
	}
	if got := schema.Properties["unit"].Enum; !reflect.DeepEqual(got, []any{"celsius", "fahrenheit"}) {
		t.Errorf("got enum %v", got)
	}
	if !reflect.DeepEqual(schema.Required, []string{"city", "tags"}) {
		t.Errorf("got required %v, want [city tags]", schema.Required)
	}
	if schema.Defs != nil {
		t.Errorf("expected no $defs for a non-recursive type, got %v", schema.Defs)
	}
}

func TestGenerateEnumTypes(t *testing.T) {
	type args struct {
		Level int     `json:"level" jsonschema:"enum=1,enum=2"`
		Ratio float64 `json:"ratio" jsonschema:"enum=0.5"`
		Flag  bool    `json:"flag" jsonschema:"enum=true"`
	}
	schema, err := GenerateJSONSchema[args]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := schema.Properties["level"].Enum; !reflect.DeepEqual(got, []any{int64(1), int64(2)}) {
		t.Errorf("got %v", got)
	}
	if got := schema.Properties["ratio"].Enum; !reflect.DeepEqual(got, []any{0.5}) {
		t.Errorf("got %v", got)
	}
	if got := schema.Properties["flag"].Enum; !reflect.DeepEqual(got, []any{true}) {
		t.Errorf("got %v", got)
	}
}

func TestGenerateInvalidEnum(t *testing.T) {
	type args struct {
		Level int `json:"level" jsonschema:"enum=high"`
	}
	if _, err := GenerateJSONSchema[args](); err == nil {
		t.Fatal("expected error for non-integer enum")
	}
}

func TestGenerateRecursive(t *testing.T) {
	schema, err := GenerateJSONSchema[forest]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := schema.Properties["root"]
	if root.Ref != "#/$defs/treenode" {
		t.Fatalf("got root %+v, want a $ref", root)
	}
	def, ok := schema.Defs["treenode"]
	if !ok {
		t.Fatalf("missing treenode definition in %v", schema.Defs)
	}
	if got := def.Properties["children"].Items.Ref; got != "#/$defs/treenode" {
		t.Errorf("got children items ref %q", got)
	}
}

func TestGeminiSubset(t *testing.T) {
	schema, err := GenerateJSONSchema[forest]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	schema.Properties["root"].Description = "top"
	schema.Default = map[string]any{}

	got := schema.GeminiSubset(2)
	encoded, _ := json.Marshal(got)
	want := `{"type":"object","required":["root"],"properties":{"root":{"type":"object","description":"top","required":["value"],"properties":{"children":{"type":"array","items":{"type":"object","required":["value"],"properties":{"children":{"type":"array","items":{"type":"object"}},"value":{"type":"string"}}}},"value":{"type":"string"}}}}}`
	if string(encoded) != want {
		t.Errorf("got  %s\nwant %s", encoded, want)
	}
	if schema.Defs == nil {
		t.Error("GeminiSubset must not modify the receiver")
	}
}

func TestGeminiSubset_DropsAdditionalProperties(t *testing.T) {
	schema, err := GenerateJSONSchema[map[string]string]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := schema.GeminiSubset(4); got.AdditionalProperties != nil {
		t.Errorf("additionalProperties kept: %v", got.AdditionalProperties)
	}
}

func TestClone(t *testing.T) {
	schema, err := GenerateJSONSchema[weatherArgs]()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clone := schema.Clone()
	clone.Properties["city"].Description = "changed"
	clone.Required[0] = "changed"
	if schema.Properties["city"].Description != "City name" || schema.Required[0] != "city" {
		t.Error("clone shares state with the original")
	}
	if (*Schema)(nil).Clone() != nil {
		t.Error("nil clone should be nil")
	}
}

func TestJsonString(t *testing.T) {
	schema := &Schema{Type: "string"}
	compact, err := schema.JsonString()
	if err != nil || compact != `{"type":"string"}` {
		t.Errorf("got %q, %v", compact, err)
	}
	indented, _ := schema.JsonString(true)
	if indented != "{\n  \"type\": \"string\"\n}" {
		t.Errorf("got %q", indented)
	}
	if schema.String() != compact {
		t.Errorf("String() = %q", schema.String())
	}
}
