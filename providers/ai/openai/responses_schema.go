package openai

import (
	"github.com/google/jsonschema-go/jsonschema"

	ws "github.com/leofalp/aix/internal/wireschema"
)

func responsesItemSchema() *jsonschema.Schema {
	content := ws.OneOf(
		ws.Tagged("type", "input_text", props{"text": ws.String()}, "text"),
		ws.Tagged("type", "output_text", props{"text": ws.String()}, "text"),
		ws.Tagged("type", "input_image", props{"image_url": ws.NonEmptyString()}, "image_url"),
	)
	return ws.OneOf(
		ws.Tagged("type", "message", props{
			"role":    ws.Enum("system", "developer", "user", "assistant"),
			"content": ws.NonEmptyArray(content),
		}, "role", "content"),
		ws.Tagged("type", "function_call", props{
			"call_id":   ws.NonEmptyString(),
			"name":      ws.NonEmptyString(),
			"arguments": ws.String(),
		}, "call_id", "name", "arguments"),
		ws.Tagged("type", "function_call_output", props{
			"call_id": ws.NonEmptyString(),
			"output":  ws.String(),
		}, "call_id", "output"),
	)
}

func responsesToolSchema() *jsonschema.Schema {
	return ws.OneOf(
		ws.Tagged("type", "function", props{
			"name":        ws.NonEmptyString(),
			"description": ws.String(),
			"parameters":  ws.Object(nil),
		}, "name", "parameters"),
		ws.Tagged("type", "code_interpreter", props{
			"container": ws.Closed(props{"type": ws.Enum("auto")}, "type"),
		}, "container"),
	)
}

// ResponsesSchema returns a fresh schema of the Responses request subset
// this package emits, for dialects that compile their own validator.
func ResponsesSchema() *jsonschema.Schema {
	return ws.Closed(props{
		"model":             ws.NonEmptyString(),
		"instructions":      ws.String(),
		"input":             ws.NonEmptyArray(responsesItemSchema()),
		"temperature":       ws.Number(),
		"top_p":             ws.Number(),
		"max_output_tokens": ws.Integer(1),
		"stream":            ws.Bool(),
		"reasoning": ws.Closed(props{
			"effort":  ws.Enum("minimal", "low", "medium", "high"),
			"summary": ws.Enum("auto", "concise", "detailed"),
		}),
		"text": ws.Closed(props{
			"format": ws.Closed(props{"type": ws.Enum("text", "json_object")}, "type"),
		}),
		"tools": ws.Array(responsesToolSchema()),
		"tool_choice": ws.AnyOf(
			ws.Enum("auto", "required", "none"),
			ws.Closed(props{"type": ws.Enum("function"), "name": ws.NonEmptyString()}, "type", "name"),
		),
		"parallel_tool_calls": ws.Bool(),
		"store":               ws.Bool(),
		"user":                ws.String(),
		"include":             ws.Array(ws.String()),
	}, "model", "input")
}

var responsesWireSchema = ws.MustCompile(responsesVendorName, ResponsesSchema())
