package ai

import (
	"encoding/json"
	"fmt"
)

// PartType is the wire discriminator ("pt") of a message part.
type PartType string

const (
	PartText           PartType = "text"
	PartInlineImage    PartType = "inline_image"
	PartDoc            PartType = "doc"
	PartToolInvocation PartType = "tool_invocation"
	PartToolResponse   PartType = "tool_response"
	PartCacheControl   PartType = "meta_cache_control"
	PartInReferenceTo  PartType = "meta_in_reference_to"
)

// CacheControlEphemeral is the only cache-control value vendors understand.
const CacheControlEphemeral = "anthropic-ephemeral"

// Part is a closed union over the concrete part types of this package.
type Part interface {
	PartType() PartType
	isPart()
}

// TextPart is plain text.
type TextPart struct {
	Text string `json:"text"`
}

// InlineImagePart is a base64 image. MimeType is one of SupportedImageMimeTypes.
type InlineImagePart struct {
	MimeType string `json:"mimeType"`
	Base64   string `json:"base64"`
}

// SupportedImageMimeTypes lists the image types every vendor accepts inline.
var SupportedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// DocPart is an attached document carried as inline text.
type DocPart struct {
	MimeType string `json:"vdt"`
	Ref      string `json:"ref"`
	Title    string `json:"l1Title,omitempty"`
	Version  int    `json:"version,omitempty"`
	Text     string `json:"-"`
}

// ToolInvocationPart is a model-authored tool call.
type ToolInvocationPart struct {
	ID         string     `json:"id"`
	Invocation Invocation `json:"invocation"`
}

// ToolResponsePart is the result of a tool call, sent back in a tool message.
type ToolResponsePart struct {
	ID       string       `json:"id"`
	Response ToolResponse `json:"response"`
	// IsError marks a failed execution. ErrorText, when set, implies IsError.
	IsError   bool   `json:"-"`
	ErrorText string `json:"-"`
}

// Failed reports whether the response carries an error marker.
func (p ToolResponsePart) Failed() bool {
	return p.IsError || p.ErrorText != ""
}

// CacheControlPart marks a vendor cache breakpoint at its position.
type CacheControlPart struct {
	Control string `json:"control"`
}

// InReferenceToPart quotes earlier content the user is replying to.
type InReferenceToPart struct {
	ReferTo []ReferenceItem `json:"referTo"`
}

// ReferenceItem is one quoted fragment.
type ReferenceItem struct {
	Text string `json:"mText"`
	Role string `json:"mRole,omitempty"`
}

func (TextPart) PartType() PartType           { return PartText }
func (InlineImagePart) PartType() PartType    { return PartInlineImage }
func (DocPart) PartType() PartType            { return PartDoc }
func (ToolInvocationPart) PartType() PartType { return PartToolInvocation }
func (ToolResponsePart) PartType() PartType   { return PartToolResponse }
func (CacheControlPart) PartType() PartType   { return PartCacheControl }
func (InReferenceToPart) PartType() PartType  { return PartInReferenceTo }

func (TextPart) isPart()           {}
func (InlineImagePart) isPart()    {}
func (DocPart) isPart()            {}
func (ToolInvocationPart) isPart() {}
func (ToolResponsePart) isPart()   {}
func (CacheControlPart) isPart()   {}
func (InReferenceToPart) isPart()  {}

// Invocation is either FunctionCallInvocation or CodeExecutionInvocation.
type Invocation interface {
	isInvocation()
}

// FunctionCallInvocation holds the raw JSON arguments string as produced by the model.
type FunctionCallInvocation struct {
	Name string `json:"name"`
	Args string `json:"args"`
}

// CodeExecutionInvocation is vendor-hosted code the model asked to run.
type CodeExecutionInvocation struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Author   string `json:"author"`
}

func (FunctionCallInvocation) isInvocation()  {}
func (CodeExecutionInvocation) isInvocation() {}

// ToolResponse is either FunctionCallResponse or CodeExecutionResponse.
type ToolResponse interface {
	isToolResponse()
}

// FunctionCallResponse carries the function result. Name repeats the called
// function since some vendors key responses by name.
type FunctionCallResponse struct {
	Name   string `json:"name,omitempty"`
	Result string `json:"result"`
}

// CodeExecutionResponse carries the output of a code execution.
type CodeExecutionResponse struct {
	Result   string `json:"result"`
	Executor string `json:"executor"`
}

func (FunctionCallResponse) isToolResponse()  {}
func (CodeExecutionResponse) isToolResponse() {}

/*
	##### JSON #####
*/

func (p TextPart) MarshalJSON() ([]byte, error) {
	type alias TextPart
	return marshalTagged(PartText, alias(p))
}

func (p InlineImagePart) MarshalJSON() ([]byte, error) {
	type alias InlineImagePart
	return marshalTagged(PartInlineImage, alias(p))
}

func (p DocPart) MarshalJSON() ([]byte, error) {
	type alias DocPart
	type data struct {
		Text string `json:"text"`
	}
	return json.Marshal(struct {
		PT PartType `json:"pt"`
		alias
		Data data `json:"data"`
	}{PartDoc, alias(p), data{p.Text}})
}

func (p ToolInvocationPart) MarshalJSON() ([]byte, error) {
	var invocation any
	switch inv := p.Invocation.(type) {
	case FunctionCallInvocation:
		invocation = struct {
			Type string `json:"type"`
			FunctionCallInvocation
		}{"function_call", inv}
	case CodeExecutionInvocation:
		invocation = struct {
			Type string `json:"type"`
			CodeExecutionInvocation
		}{"code_execution", inv}
	default:
		return nil, fmt.Errorf("tool_invocation %s: unknown invocation %T", p.ID, p.Invocation)
	}
	return json.Marshal(struct {
		PT         PartType `json:"pt"`
		ID         string   `json:"id"`
		Invocation any      `json:"invocation"`
	}{PartToolInvocation, p.ID, invocation})
}

func (p ToolResponsePart) MarshalJSON() ([]byte, error) {
	var response any
	switch resp := p.Response.(type) {
	case FunctionCallResponse:
		response = struct {
			Type string `json:"type"`
			FunctionCallResponse
		}{"function_call", resp}
	case CodeExecutionResponse:
		response = struct {
			Type string `json:"type"`
			CodeExecutionResponse
		}{"code_execution", resp}
	default:
		return nil, fmt.Errorf("tool_response %s: unknown response %T", p.ID, p.Response)
	}
	// error is omitted, true, or the error text
	var errValue any
	if p.ErrorText != "" {
		errValue = p.ErrorText
	} else if p.IsError {
		errValue = true
	}
	return json.Marshal(struct {
		PT       PartType `json:"pt"`
		ID       string   `json:"id"`
		Error    any      `json:"error,omitempty"`
		Response any      `json:"response"`
	}{PartToolResponse, p.ID, errValue, response})
}

func (p CacheControlPart) MarshalJSON() ([]byte, error) {
	type alias CacheControlPart
	return marshalTagged(PartCacheControl, alias(p))
}

func (p InReferenceToPart) MarshalJSON() ([]byte, error) {
	type alias InReferenceToPart
	return marshalTagged(PartInReferenceTo, alias(p))
}

// marshalTagged encodes body as an object with "pt" as its first key.
func marshalTagged(pt PartType, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 || raw[0] != '{' {
		return nil, fmt.Errorf("part %s does not encode as an object", pt)
	}
	tag, _ := json.Marshal(string(pt))
	out := append([]byte(`{"pt":`), tag...)
	if len(raw) > 2 {
		out = append(out, ',')
	}
	return append(out, raw[1:]...), nil
}

// DecodePart decodes one wire part by its "pt" discriminator.
func DecodePart(data []byte) (Part, error) {
	var head struct {
		PT PartType `json:"pt"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	switch head.PT {
	case PartText:
		var p TextPart
		return p, json.Unmarshal(data, &p)
	case PartInlineImage:
		var p InlineImagePart
		return p, json.Unmarshal(data, &p)
	case PartDoc:
		var raw struct {
			DocPart
			Data struct {
				Text string `json:"text"`
			} `json:"data"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		p := raw.DocPart
		p.Text = raw.Data.Text
		return p, nil
	case PartToolInvocation:
		return decodeToolInvocation(data)
	case PartToolResponse:
		return decodeToolResponse(data)
	case PartCacheControl:
		var p CacheControlPart
		return p, json.Unmarshal(data, &p)
	case PartInReferenceTo:
		var p InReferenceToPart
		return p, json.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unknown part type %q", head.PT)
	}
}

func decodeToolInvocation(data []byte) (Part, error) {
	var raw struct {
		ID         string `json:"id"`
		Invocation struct {
			Type     string `json:"type"`
			Name     string `json:"name"`
			Args     string `json:"args"`
			Language string `json:"language"`
			Code     string `json:"code"`
			Author   string `json:"author"`
		} `json:"invocation"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	inv := raw.Invocation
	switch inv.Type {
	case "function_call":
		return ToolInvocationPart{ID: raw.ID, Invocation: FunctionCallInvocation{Name: inv.Name, Args: inv.Args}}, nil
	case "code_execution":
		return ToolInvocationPart{ID: raw.ID, Invocation: CodeExecutionInvocation{Language: inv.Language, Code: inv.Code, Author: inv.Author}}, nil
	default:
		return nil, fmt.Errorf("tool_invocation %s: unknown invocation type %q", raw.ID, inv.Type)
	}
}

func decodeToolResponse(data []byte) (Part, error) {
	var raw struct {
		ID       string          `json:"id"`
		Error    json.RawMessage `json:"error"`
		Response struct {
			Type     string `json:"type"`
			Name     string `json:"name"`
			Result   string `json:"result"`
			Executor string `json:"executor"`
		} `json:"response"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	part := ToolResponsePart{ID: raw.ID}
	if len(raw.Error) > 0 {
		var flag bool
		var text string
		if err := json.Unmarshal(raw.Error, &flag); err == nil {
			part.IsError = flag
		} else if err := json.Unmarshal(raw.Error, &text); err == nil {
			part.IsError = true
			part.ErrorText = text
		} else {
			return nil, fmt.Errorf("tool_response %s: error must be a bool or a string", raw.ID)
		}
	}
	switch raw.Response.Type {
	case "function_call":
		part.Response = FunctionCallResponse{Name: raw.Response.Name, Result: raw.Response.Result}
	case "code_execution":
		part.Response = CodeExecutionResponse{Result: raw.Response.Result, Executor: raw.Response.Executor}
	default:
		return nil, fmt.Errorf("tool_response %s: unknown response type %q", raw.ID, raw.Response.Type)
	}
	return part, nil
}
