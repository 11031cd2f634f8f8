package openai

import (
	"github.com/google/jsonschema-go/jsonschema"

	ws "github.com/leofalp/aix/internal/wireschema"
)

type props = map[string]*jsonschema.Schema

func chatContentSchema() *jsonschema.Schema {
	return ws.AnyOf(
		ws.String(),
		ws.Array(ws.OneOf(
			ws.Tagged("type", "text", props{"text": ws.String()}, "text"),
			ws.Tagged("type", "image_url", props{
				"image_url": ws.Closed(props{"url": ws.NonEmptyString()}, "url"),
			}, "image_url"),
		)),
	)
}

func chatToolCallSchema() *jsonschema.Schema {
	return ws.Closed(props{
		"id":   ws.NonEmptyString(),
		"type": ws.Enum("function"),
		"function": ws.Closed(props{
			"name":      ws.NonEmptyString(),
			"arguments": ws.String(),
		}, "name", "arguments"),
	}, "id", "type", "function")
}

// chatSchema is the subset of the Chat Completions request this adapter emits.
var chatSchema = ws.Closed(props{
	"model": ws.NonEmptyString(),
	"messages": ws.NonEmptyArray(ws.Closed(props{
		"role":         ws.Enum("system", "developer", "user", "assistant", "tool"),
		"content":      chatContentSchema(),
		"tool_call_id": ws.NonEmptyString(),
		"tool_calls":   ws.Array(chatToolCallSchema()),
	}, "role")),
	"temperature":           ws.Number(),
	"top_p":                 ws.Number(),
	"max_tokens":            ws.Integer(1),
	"max_completion_tokens": ws.Integer(1),
	"reasoning_effort":      ws.Enum("minimal", "low", "medium", "high"),
	"stream":                ws.Bool(),
	"stream_options":        ws.Closed(props{"include_usage": ws.Bool()}),
	"user":                  ws.String(),
	"tools": ws.Array(ws.Closed(props{
		"type": ws.Enum("function"),
		"function": ws.Closed(props{
			"name":        ws.NonEmptyString(),
			"description": ws.String(),
			"parameters":  ws.Object(nil),
		}, "name", "parameters"),
	}, "type", "function")),
	"tool_choice": ws.AnyOf(
		ws.Enum("auto", "required", "none"),
		ws.Closed(props{
			"type":     ws.Enum("function"),
			"function": ws.Closed(props{"name": ws.NonEmptyString()}, "name"),
		}, "type", "function"),
	),
	"parallel_tool_calls": ws.Bool(),
	"response_format":     ws.Closed(props{"type": ws.Enum("json_object")}, "type"),
}, "model", "messages")

var chatWireSchema = ws.MustCompile(chatVendorName, chatSchema)
