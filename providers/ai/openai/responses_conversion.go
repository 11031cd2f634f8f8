package openai

import (
	"context"
	"strings"

	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/ai"
)

// ResponsesStyle selects where a Responses-shaped dialect expects parts of
// the request.
type ResponsesStyle struct {
	// SystemAsInput sends the system message as a leading system input item
	// instead of the instructions field.
	SystemAsInput bool
}

// ToVendorRequest implements [ai.Vendor].
func (v *ResponsesVendor) ToVendorRequest(ctx context.Context, model ai.ModelParams, req *ai.ChatGenerateRequest, streaming bool, opts ai.AdapterOptions) (*ai.VendorRequest, error) {
	body, systemSplit, err := LowerResponses(responsesVendorName, model, req, streaming, opts, ResponsesStyle{})
	if err != nil {
		return nil, err
	}

	applied, err := responsesHotfixes.Run(ctx, ai.DialectOpenAIResponses, model.ID, body, opts.DisabledHotfixes)
	if err != nil {
		return nil, &ai.ValidationError{Vendor: responsesVendorName, Message: err.Error(), Err: err}
	}
	if err := responsesWireSchema.Validate(body); err != nil {
		return nil, err
	}

	return &ai.VendorRequest{
		Path:        responsesPath,
		Streaming:   streaming,
		Body:        body,
		SystemSplit: systemSplit,
		Hotfixes:    applied,
	}, nil
}

// LowerResponses converts req to a Responses request body. It reports
// whether a system message was split out of the chat sequence. vendor names
// the caller in validation errors; hotfixes and schema checks are left to
// the caller.
func LowerResponses(vendor string, model ai.ModelParams, req *ai.ChatGenerateRequest, streaming bool, opts ai.AdapterOptions, style ResponsesStyle) (*ResponsesRequest, bool, error) {
	split, systemSplit := ai.SplitSystemMessage(req)

	body := &ResponsesRequest{
		Model:           model.ID,
		Input:           []ResponsesItem{},
		Temperature:     model.Temperature,
		TopP:            model.TopP,
		MaxOutputTokens: model.MaxTokens,
		Stream:          streaming,
		Store:           utils.Ptr(false),
		User:            model.UserID,
	}
	if model.ReasoningEffort != "" || model.ShowReasoning {
		body.Reasoning = &ResponsesReasoning{Effort: model.ReasoningEffort}
		if model.ShowReasoning {
			body.Reasoning.Summary = "auto"
		}
	}
	if opts.JSONOutput {
		body.Text = &ResponsesText{Format: &ResponsesFormat{Type: "json_object"}}
	}

	if split.SystemMessage != nil {
		if text := joinText(split.SystemMessage.Parts); text != "" {
			if style.SystemAsInput {
				body.Input = append(body.Input, ResponsesItem{
					Type:    "message",
					Role:    "system",
					Content: []ResponsesContent{{Type: "input_text", Text: text}},
				})
			} else {
				body.Instructions = text
			}
		}
	}

	l := responsesLowering{vendor: vendor, policy: opts.Policy}
	for i, msg := range split.ChatSequence {
		items, err := l.message(i, msg)
		if err != nil {
			return nil, false, err
		}
		body.Input = append(body.Input, items...)
	}

	if err := l.tools(body, split.Tools, split.ToolsPolicy); err != nil {
		return nil, false, err
	}
	return body, systemSplit, nil
}

type responsesLowering struct {
	vendor string
	policy ai.PartPolicy
}

func (l responsesLowering) message(index int, msg ai.Message) ([]ResponsesItem, error) {
	var items []ResponsesItem
	var content []ResponsesContent
	var images []ResponsesContent

	textType := "input_text"
	role := "user"
	if msg.Role == ai.RoleModel {
		textType, role = "output_text", "assistant"
	}
	flush := func() {
		if len(content) > 0 {
			items = append(items, ResponsesItem{Type: "message", Role: role, Content: content})
			content = nil
		}
	}

	for j, part := range msg.Parts {
		switch p := part.(type) {
		case ai.TextPart:
			content = append(content, ResponsesContent{Type: textType, Text: p.Text})
		case ai.InlineImagePart:
			image := ResponsesContent{Type: "input_image", ImageURL: buildDataURL(p.MimeType, p.Base64)}
			if msg.Role != ai.RoleModel {
				content = append(content, image)
				continue
			}
			if l.policy.RejectsModelImages() {
				return nil, ai.NewValidationError(l.vendor, "message %d part %d: model-authored images are not accepted", index, j)
			}
			images = append(images, image)
		case ai.DocPart:
			if l.policy.RejectsDocuments() {
				return nil, ai.NewValidationError(l.vendor, "message %d part %d: documents are rejected by the part policy", index, j)
			}
			content = append(content, ResponsesContent{Type: textType, Text: ai.DocAsText(p)})
		case ai.InReferenceToPart:
			if l.policy.RejectsReferences() {
				return nil, ai.NewValidationError(l.vendor, "message %d part %d: references are rejected by the part policy", index, j)
			}
			content = append(content, ResponsesContent{Type: textType, Text: ai.ReferencesAsText(p)})
		case ai.ToolInvocationPart:
			fc, ok := p.Invocation.(ai.FunctionCallInvocation)
			if !ok {
				return nil, ai.NewValidationError(l.vendor, "message %d part %d: code execution history cannot be replayed", index, j)
			}
			flush()
			args := fc.Args
			if strings.TrimSpace(args) == "" {
				args = "{}"
			}
			items = append(items, ResponsesItem{Type: "function_call", CallID: p.ID, Name: fc.Name, Arguments: args})
		case ai.ToolResponsePart:
			fr, ok := p.Response.(ai.FunctionCallResponse)
			if !ok {
				return nil, ai.NewValidationError(l.vendor, "message %d part %d: code execution results cannot be replayed", index, j)
			}
			flush()
			output := fr.Result
			if p.ErrorText != "" {
				output = strings.TrimSpace("error: " + p.ErrorText + " " + fr.Result)
			} else if p.IsError {
				output = "error: " + fr.Result
			}
			items = append(items, ResponsesItem{Type: "function_call_output", CallID: p.ID, Output: &output})
		case ai.CacheControlPart:
		default:
			return nil, ai.NewValidationError(l.vendor, "message %d part %d: %s is not supported", index, j, part.PartType())
		}
	}
	flush()
	if len(images) > 0 {
		items = append(items, ResponsesItem{Type: "message", Role: "user", Content: images})
	}
	return items, nil
}

func (l responsesLowering) tools(body *ResponsesRequest, tools []ai.ToolDefinition, policy *ai.ToolsPolicy) error {
	for i, definition := range tools {
		switch t := definition.(type) {
		case ai.FunctionCallTool:
			tool := ResponsesTool{Type: "function", Name: t.Name, Description: t.Description, Parameters: emptyParameters}
			if t.InputSchema != nil {
				tool.Parameters = t.InputSchema
			}
			body.Tools = append(body.Tools, tool)
		case ai.CodeExecutionTool:
			body.Tools = append(body.Tools, ResponsesTool{Type: "code_interpreter", Container: &ResponsesContainer{Type: "auto"}})
		default:
			return ai.NewValidationError(l.vendor, "tool %d: unknown tool type %T", i, definition)
		}
	}
	if len(body.Tools) == 0 || policy == nil {
		return nil
	}
	switch policy.Type {
	case ai.ToolsPolicyAuto:
		body.ToolChoice = "auto"
	case ai.ToolsPolicyAny:
		body.ToolChoice = "required"
	case ai.ToolsPolicyFunctionCall:
		body.ToolChoice = ResponsesNamedToolChoice{Type: "function", Name: policy.FunctionName}
	default:
		return ai.NewValidationError(l.vendor, "unknown tools policy %q", policy.Type)
	}
	return nil
}
