package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/ai"
)

var emptyParameters = json.RawMessage(`{"type":"object","properties":{}}`)

// ToVendorRequest implements [ai.Vendor]. Cache-control parts are dropped
// since Chat Completions caches automatically.
func (v *ChatVendor) ToVendorRequest(ctx context.Context, model ai.ModelParams, req *ai.ChatGenerateRequest, streaming bool, opts ai.AdapterOptions) (*ai.VendorRequest, error) {
	dialect := opts.Dialect
	if dialect == "" {
		dialect = ai.DialectOpenAI
	}
	if _, ok := CapabilitiesFor(dialect); !ok {
		return nil, ai.NewValidationError(chatVendorName, "dialect %q is not OpenAI-compatible", dialect)
	}

	split, systemSplit := ai.SplitSystemMessage(req)

	body := &chatRequest{
		Model:           model.ID,
		Temperature:     model.Temperature,
		TopP:            model.TopP,
		MaxTokens:       model.MaxTokens,
		ReasoningEffort: model.ReasoningEffort,
		Stream:          streaming,
		User:            model.UserID,
	}
	if streaming {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if opts.JSONOutput {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	if split.SystemMessage != nil {
		if text := joinText(split.SystemMessage.Parts); text != "" {
			body.Messages = append(body.Messages, chatMessage{Role: "system", Content: text})
		}
	}

	messages, err := chatMessages(split.ChatSequence, opts.Policy)
	if err != nil {
		return nil, err
	}
	body.Messages = append(body.Messages, messages...)

	if err := chatTools(body, split.Tools, split.ToolsPolicy); err != nil {
		return nil, err
	}

	applied, err := chatHotfixes.Run(ctx, dialect, model.ID, body, opts.DisabledHotfixes)
	if err != nil {
		return nil, &ai.ValidationError{Vendor: chatVendorName, Message: err.Error(), Err: err}
	}

	if err := chatWireSchema.Validate(body); err != nil {
		return nil, err
	}

	return &ai.VendorRequest{
		Path:        chatPath,
		Streaming:   streaming,
		Body:        body,
		SystemSplit: systemSplit,
		Hotfixes:    applied,
	}, nil
}

// joinText concatenates the text parts of a system message.
func joinText(parts []ai.Part) string {
	var texts []string
	for _, part := range parts {
		if p, ok := part.(ai.TextPart); ok {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n\n")
}

func chatMessages(sequence []ai.Message, policy ai.PartPolicy) ([]chatMessage, error) {
	var out []chatMessage
	for i, msg := range sequence {
		if len(msg.Parts) == 0 {
			continue
		}
		var err error
		switch msg.Role {
		case ai.RoleUser:
			var m chatMessage
			m, err = userMessage(i, msg.Parts, policy)
			if content, _ := m.Content.([]chatContentPart); len(content) > 0 {
				out = append(out, m)
			}
		case ai.RoleModel:
			var ms []chatMessage
			ms, err = assistantMessages(i, msg.Parts, policy)
			out = append(out, ms...)
		case ai.RoleTool:
			var ms []chatMessage
			ms, err = toolMessages(i, msg.Parts)
			out = append(out, ms...)
		default:
			err = ai.NewValidationError(chatVendorName, "message %d: role %q cannot be sent to Chat Completions", i, msg.Role)
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func userMessage(index int, parts []ai.Part, policy ai.PartPolicy) (chatMessage, error) {
	content := make([]chatContentPart, 0, len(parts))
	for j, part := range parts {
		switch p := part.(type) {
		case ai.TextPart:
			content = append(content, chatContentPart{Type: "text", Text: p.Text})
		case ai.InlineImagePart:
			content = append(content, imagePart(p))
		case ai.DocPart:
			if policy.RejectsDocuments() {
				return chatMessage{}, ai.NewValidationError(chatVendorName, "message %d part %d: documents are rejected by the part policy", index, j)
			}
			content = append(content, chatContentPart{Type: "text", Text: ai.DocAsText(p)})
		case ai.InReferenceToPart:
			if policy.RejectsReferences() {
				return chatMessage{}, ai.NewValidationError(chatVendorName, "message %d part %d: references are rejected by the part policy", index, j)
			}
			content = append(content, chatContentPart{Type: "text", Text: ai.ReferencesAsText(p)})
		case ai.CacheControlPart:
		default:
			return chatMessage{}, ai.NewValidationError(chatVendorName, "message %d part %d: %s is not supported in a user message", index, j, part.PartType())
		}
	}
	return chatMessage{Role: "user", Content: content}, nil
}

func imagePart(p ai.InlineImagePart) chatContentPart {
	return chatContentPart{Type: "image_url", ImageURL: &chatImageURL{URL: buildDataURL(p.MimeType, p.Base64)}}
}

// assistantMessages returns the assistant message, followed by a synthetic
// user message when the model authored images.
func assistantMessages(index int, parts []ai.Part, policy ai.PartPolicy) ([]chatMessage, error) {
	var texts []string
	var calls []chatToolCall
	var images []chatContentPart
	for j, part := range parts {
		switch p := part.(type) {
		case ai.TextPart:
			texts = append(texts, p.Text)
		case ai.ToolInvocationPart:
			fc, ok := p.Invocation.(ai.FunctionCallInvocation)
			if !ok {
				return nil, ai.NewValidationError(chatVendorName, "message %d part %d: code execution cannot be sent to Chat Completions", index, j)
			}
			args := fc.Args
			if strings.TrimSpace(args) == "" {
				args = "{}"
			}
			calls = append(calls, chatToolCall{ID: p.ID, Type: "function", Function: chatFunctionCall{Name: fc.Name, Arguments: args}})
		case ai.InlineImagePart:
			if policy.RejectsModelImages() {
				return nil, ai.NewValidationError(chatVendorName, "message %d part %d: model-authored images are not accepted", index, j)
			}
			images = append(images, imagePart(p))
		case ai.CacheControlPart:
		default:
			return nil, ai.NewValidationError(chatVendorName, "message %d part %d: %s is not supported in a model message", index, j, part.PartType())
		}
	}

	var out []chatMessage
	if len(texts) > 0 || len(calls) > 0 {
		m := chatMessage{Role: "assistant", ToolCalls: calls}
		if len(texts) > 0 {
			m.Content = strings.Join(texts, "")
		}
		out = append(out, m)
	}
	if len(images) > 0 {
		out = append(out, chatMessage{Role: "user", Content: images})
	}
	return out, nil
}

// toolMessages returns one tool message per response part.
func toolMessages(index int, parts []ai.Part) ([]chatMessage, error) {
	var out []chatMessage
	for j, part := range parts {
		switch p := part.(type) {
		case ai.ToolResponsePart:
			fr, ok := p.Response.(ai.FunctionCallResponse)
			if !ok {
				return nil, ai.NewValidationError(chatVendorName, "message %d part %d: code execution results cannot be sent to Chat Completions", index, j)
			}
			content := fr.Result
			if p.ErrorText != "" {
				content = strings.TrimSpace(fmt.Sprintf("error: %s %s", p.ErrorText, fr.Result))
			} else if p.IsError {
				content = "error: " + fr.Result
			}
			out = append(out, chatMessage{Role: "tool", ToolCallID: p.ID, Content: content})
		case ai.CacheControlPart:
		default:
			return nil, ai.NewValidationError(chatVendorName, "message %d part %d: %s is not supported in a tool message", index, j, part.PartType())
		}
	}
	return out, nil
}

func chatTools(body *chatRequest, tools []ai.ToolDefinition, policy *ai.ToolsPolicy) error {
	for i, definition := range tools {
		switch t := definition.(type) {
		case ai.FunctionCallTool:
			fn := chatFunction{Name: t.Name, Description: t.Description, Parameters: emptyParameters}
			if t.InputSchema != nil {
				fn.Parameters = t.InputSchema
			}
			body.Tools = append(body.Tools, chatTool{Type: "function", Function: fn})
		case ai.CodeExecutionTool:
			return ai.NewValidationError(chatVendorName, "tool %d: code execution (%s) is not available on Chat Completions", i, t.Variant)
		default:
			return ai.NewValidationError(chatVendorName, "tool %d: unknown tool type %T", i, definition)
		}
	}
	if len(body.Tools) == 0 {
		return nil
	}
	body.ParallelToolCalls = utils.Ptr(true)

	if policy == nil {
		return nil
	}
	switch policy.Type {
	case ai.ToolsPolicyAuto:
		body.ToolChoice = "auto"
	case ai.ToolsPolicyAny:
		body.ToolChoice = "required"
	case ai.ToolsPolicyFunctionCall:
		choice := chatNamedToolChoice{Type: "function"}
		choice.Function.Name = policy.FunctionName
		body.ToolChoice = choice
	default:
		return ai.NewValidationError(chatVendorName, "unknown tools policy %q", policy.Type)
	}
	return nil
}
