// Package jsonschema derives JSON Schema documents from Go types and
// reshapes tool input schemas for vendors that accept only a subset of the
// standard.
//
// [GenerateJSONSchema] walks exported struct fields using their json tags
// and an optional jsonschema tag (description, enum, required). Recursive
// types are emitted through $ref and $defs. [Schema.GeminiSubset] inlines
// those references and drops the keywords Gemini rejects.
package jsonschema
