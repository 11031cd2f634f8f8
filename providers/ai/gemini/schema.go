package gemini

import (
	"github.com/google/jsonschema-go/jsonschema"

	ws "github.com/leofalp/aix/internal/wireschema"
)

type props = map[string]*jsonschema.Schema

func partSchema() *jsonschema.Schema {
	return ws.OneOf(
		ws.Closed(props{"text": ws.String(), "thought": ws.Bool()}, "text"),
		ws.Closed(props{"inlineData": ws.Closed(props{
			"mimeType": ws.NonEmptyString(),
			"data":     ws.NonEmptyString(),
		}, "mimeType", "data")}, "inlineData"),
		ws.Closed(props{"functionCall": ws.Closed(props{
			"id":   ws.String(),
			"name": ws.NonEmptyString(),
			"args": ws.Object(nil),
		}, "name")}, "functionCall"),
		ws.Closed(props{"functionResponse": ws.Closed(props{
			"id":       ws.String(),
			"name":     ws.NonEmptyString(),
			"response": ws.Object(nil),
		}, "name", "response")}, "functionResponse"),
		ws.Closed(props{"executableCode": ws.Closed(props{
			"language": ws.Enum("PYTHON"),
			"code":     ws.String(),
		}, "language", "code")}, "executableCode"),
		ws.Closed(props{"codeExecutionResult": ws.Closed(props{
			"outcome": ws.Enum("OUTCOME_OK", "OUTCOME_FAILED", "OUTCOME_DEADLINE_EXCEEDED"),
			"output":  ws.String(),
		}, "outcome")}, "codeExecutionResult"),
	)
}

func textPartSchema() *jsonschema.Schema {
	return ws.Closed(props{"text": ws.String()}, "text")
}

// requestSchema is the subset of the generateContent body this adapter emits.
var requestSchema = ws.Closed(props{
	"contents": ws.NonEmptyArray(ws.Closed(props{
		"role":  ws.Enum("user", "model"),
		"parts": ws.NonEmptyArray(partSchema()),
	}, "role", "parts")),
	"systemInstruction": ws.Closed(props{"parts": ws.NonEmptyArray(textPartSchema())}, "parts"),
	"generationConfig": ws.Closed(props{
		"temperature":      ws.Number(),
		"topP":             ws.Number(),
		"maxOutputTokens":  ws.Integer(1),
		"responseMimeType": ws.Enum("application/json"),
		"thinkingConfig": ws.Closed(props{
			"thinkingBudget":  ws.Integer(-1),
			"includeThoughts": ws.Bool(),
		}),
	}),
	"tools": ws.Array(ws.Closed(props{
		"codeExecution": ws.Closed(nil),
		"functionDeclarations": ws.NonEmptyArray(ws.Closed(props{
			"name":        ws.NonEmptyString(),
			"description": ws.String(),
			"parameters":  ws.Object(nil),
		}, "name")),
	})),
	"toolConfig": ws.Closed(props{
		"functionCallingConfig": ws.Closed(props{
			"mode":                 ws.Enum("AUTO", "ANY", "NONE"),
			"allowedFunctionNames": ws.NonEmptyArray(ws.NonEmptyString()),
		}, "mode"),
	}),
	"safetySettings": ws.Array(ws.Closed(props{
		"category":  ws.NonEmptyString(),
		"threshold": ws.NonEmptyString(),
	}, "category", "threshold")),
}, "contents")

var wireSchema = ws.MustCompile(vendorName, requestSchema)
