package anthropic

import (
	"github.com/google/jsonschema-go/jsonschema"

	ws "github.com/leofalp/aix/internal/wireschema"
)

type props = map[string]*jsonschema.Schema

func cacheControlSchema() *jsonschema.Schema {
	return ws.Closed(props{"type": ws.Enum("ephemeral")}, "type")
}

func blockSchema(blockType string, fields props, required ...string) *jsonschema.Schema {
	fields["cache_control"] = cacheControlSchema()
	return ws.Tagged("type", blockType, fields, required...)
}

func textBlockSchema() *jsonschema.Schema {
	return blockSchema("text", props{"text": ws.String()}, "text")
}

func contentBlockSchema() *jsonschema.Schema {
	return ws.OneOf(
		textBlockSchema(),
		blockSchema("image", props{
			"source": ws.Closed(props{
				"type":       ws.Enum("base64"),
				"media_type": ws.Enum("image/jpeg", "image/png", "image/gif", "image/webp"),
				"data":       ws.NonEmptyString(),
			}, "type", "media_type", "data"),
		}, "source"),
		blockSchema("document", props{
			"title": ws.String(),
			"source": ws.Closed(props{
				"type":       ws.Enum("text"),
				"media_type": ws.Enum("text/plain"),
				"data":       ws.String(),
			}, "type", "media_type", "data"),
		}, "source"),
		blockSchema("tool_use", props{
			"id":    ws.NonEmptyString(),
			"name":  ws.NonEmptyString(),
			"input": ws.Object(nil),
		}, "id", "name", "input"),
		blockSchema("tool_result", props{
			"tool_use_id": ws.NonEmptyString(),
			"content":     ws.AnyOf(ws.String(), ws.Array(textBlockSchema())),
			"is_error":    ws.Bool(),
		}, "tool_use_id"),
	)
}

// messagesSchema is the subset of the Messages API request this adapter emits.
var messagesSchema = ws.Closed(props{
	"model":      ws.NonEmptyString(),
	"max_tokens": ws.Integer(1),
	"system":     ws.Array(textBlockSchema()),
	"messages": ws.NonEmptyArray(ws.Closed(props{
		"role":    ws.Enum("user", "assistant"),
		"content": ws.NonEmptyArray(contentBlockSchema()),
	}, "role", "content")),
	"tools": ws.Array(ws.Closed(props{
		"name":         ws.NonEmptyString(),
		"description":  ws.String(),
		"input_schema": ws.Object(props{"type": ws.Enum("object")}, "type"),
	}, "name", "input_schema")),
	"tool_choice": ws.Closed(props{
		"type": ws.Enum("auto", "any", "tool"),
		"name": ws.NonEmptyString(),
	}, "type"),
	"temperature": ws.Number(),
	"top_p":       ws.Number(),
	"thinking": ws.Closed(props{
		"type":          ws.Enum("enabled"),
		"budget_tokens": ws.Integer(minThinkingBudget),
	}, "type", "budget_tokens"),
	"metadata": ws.Closed(props{"user_id": ws.String()}),
	"stream":   ws.Bool(),
}, "model", "max_tokens", "messages")

var wireSchema = ws.MustCompile(vendorName, messagesSchema)
