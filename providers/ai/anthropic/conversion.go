package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/leofalp/aix/core/parse"
	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/ai"
)

const (
	// defaultMaxTokens applies when the model params leave max_tokens unset,
	// since Anthropic requires it on every request.
	defaultMaxTokens = 4096

	// minThinkingBudget is the smallest budget_tokens Anthropic accepts.
	minThinkingBudget = 1024
)

var emptyObjectSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// ToVendorRequest implements [ai.Vendor]. System parts after the leading
// text run are spilled into a synthetic user message; model-authored images
// are moved into a synthetic user message following the assistant turn,
// unless the part policy rejects them.
func (v *Vendor) ToVendorRequest(ctx context.Context, model ai.ModelParams, req *ai.ChatGenerateRequest, streaming bool, opts ai.AdapterOptions) (*ai.VendorRequest, error) {
	if opts.JSONOutput {
		return nil, ai.NewValidationError(vendorName, "JSON output mode is not supported")
	}

	split, systemSplit := ai.SplitSystemMessage(req)

	body := &messagesRequest{
		Model:       model.ID,
		MaxTokens:   utils.ValueOr(model.MaxTokens, defaultMaxTokens),
		Temperature: model.Temperature,
		TopP:        model.TopP,
		Stream:      streaming,
	}
	if model.UserID != "" {
		body.Metadata = &metadata{UserID: model.UserID}
	}
	if split.SystemMessage != nil {
		body.System = systemBlocks(split.SystemMessage.Parts)
	}

	messages, err := buildMessages(split.ChatSequence, opts.Policy)
	if err != nil {
		return nil, err
	}
	body.Messages = messages

	if err := applyTools(body, split.Tools, split.ToolsPolicy); err != nil {
		return nil, err
	}

	if budget := model.ThinkingBudget; budget != nil && *budget > 0 {
		if body.MaxTokens <= *budget {
			return nil, ai.NewValidationError(vendorName, "max_tokens (%d) must be greater than the thinking budget (%d)", body.MaxTokens, *budget)
		}
		body.Thinking = &thinkingConfig{Type: "enabled", BudgetTokens: *budget}
	}

	dialect := opts.Dialect
	if dialect == "" {
		dialect = ai.DialectAnthropic
	}
	applied, err := hotfixes.Run(ctx, dialect, model.ID, body, opts.DisabledHotfixes)
	if err != nil {
		return nil, &ai.ValidationError{Vendor: vendorName, Message: err.Error(), Err: err}
	}

	if err := wireSchema.Validate(body); err != nil {
		return nil, err
	}

	return &ai.VendorRequest{
		Path:        messagesPath,
		Streaming:   streaming,
		Body:        body,
		SystemSplit: systemSplit,
		Hotfixes:    applied,
	}, nil
}

// systemBlocks converts the text and cache-control parts left in the system
// message after the spill. A cache-control part marks the block before it.
func systemBlocks(parts []ai.Part) []contentBlock {
	var blocks []contentBlock
	for _, part := range parts {
		switch p := part.(type) {
		case ai.TextPart:
			blocks = append(blocks, contentBlock{Type: "text", Text: p.Text})
		case ai.CacheControlPart:
			markCache(blocks)
		}
	}
	return blocks
}

func markCache(blocks []contentBlock) bool {
	if len(blocks) == 0 {
		return false
	}
	blocks[len(blocks)-1].CacheControl = &cacheControl{Type: "ephemeral"}
	return true
}

// buildMessages converts the chat sequence. Tool messages become user
// messages of tool_result blocks; the merge-consecutive-roles hotfix folds
// them into their neighbours.
func buildMessages(sequence []ai.Message, policy ai.PartPolicy) ([]message, error) {
	var out []message
	pendingCache := false

	emit := func(role string, blocks []contentBlock) {
		if len(blocks) == 0 {
			return
		}
		if pendingCache {
			blocks[len(blocks)-1].CacheControl = &cacheControl{Type: "ephemeral"}
			pendingCache = false
		}
		out = append(out, message{Role: role, Content: blocks})
	}

	for i, msg := range sequence {
		var blocks []contentBlock
		var movedImages []contentBlock
		for j, part := range msg.Parts {
			where := fmt.Sprintf("message %d part %d", i, j)
			switch p := part.(type) {
			case ai.CacheControlPart:
				if !markCache(blocks) && len(out) > 0 {
					markCache(out[len(out)-1].Content)
				} else if len(blocks) == 0 {
					pendingCache = true
				}
				continue
			case ai.InlineImagePart:
				block := imageBlock(p)
				if msg.Role == ai.RoleModel {
					if policy.RejectsModelImages() {
						return nil, ai.NewValidationError(vendorName, "%s: model-authored images are not accepted", where)
					}
					movedImages = append(movedImages, block)
					continue
				}
				blocks = append(blocks, block)
			default:
				block, err := partBlock(msg.Role, part, policy)
				if err != nil {
					return nil, ai.NewValidationError(vendorName, "%s: %v", where, err)
				}
				blocks = append(blocks, block)
			}
		}

		switch msg.Role {
		case ai.RoleUser, ai.RoleTool:
			emit("user", blocks)
		case ai.RoleModel:
			emit("assistant", blocks)
			emit("user", movedImages)
		default:
			return nil, ai.NewValidationError(vendorName, "message %d: role %q cannot be sent to Anthropic", i, msg.Role)
		}
	}
	return out, nil
}

func imageBlock(p ai.InlineImagePart) contentBlock {
	return contentBlock{Type: "image", Source: &source{Type: "base64", MediaType: p.MimeType, Data: p.Base64}}
}

// partBlock converts every part kind other than images and cache control.
func partBlock(role ai.Role, part ai.Part, policy ai.PartPolicy) (contentBlock, error) {
	switch p := part.(type) {
	case ai.TextPart:
		return contentBlock{Type: "text", Text: p.Text}, nil

	case ai.DocPart:
		title := p.Title
		if title == "" {
			title = p.Ref
		}
		return contentBlock{
			Type:   "document",
			Title:  title,
			Source: &source{Type: "text", MediaType: "text/plain", Data: p.Text},
		}, nil

	case ai.InReferenceToPart:
		if policy.RejectsReferences() {
			return contentBlock{}, fmt.Errorf("references are rejected by the part policy")
		}
		return contentBlock{Type: "text", Text: ai.ReferencesAsText(p)}, nil

	case ai.ToolInvocationPart:
		fc, ok := p.Invocation.(ai.FunctionCallInvocation)
		if !ok {
			return contentBlock{}, fmt.Errorf("invocation %s: %T cannot be sent to Anthropic", p.ID, p.Invocation)
		}
		args, err := parse.ArgsObject(fc.Args)
		if err != nil {
			return contentBlock{}, fmt.Errorf("invocation %s: %w", p.ID, err)
		}
		input, err := json.Marshal(args)
		if err != nil {
			return contentBlock{}, err
		}
		return contentBlock{Type: "tool_use", ID: p.ID, Name: fc.Name, Input: input}, nil

	case ai.ToolResponsePart:
		fr, ok := p.Response.(ai.FunctionCallResponse)
		if !ok {
			return contentBlock{}, fmt.Errorf("response %s: %T cannot be sent to Anthropic", p.ID, p.Response)
		}
		result := fr.Result
		if result == "" && p.ErrorText != "" {
			result = p.ErrorText
		}
		content, err := json.Marshal(result)
		if err != nil {
			return contentBlock{}, err
		}
		return contentBlock{Type: "tool_result", ToolUseID: p.ID, Content: content, IsError: p.Failed()}, nil

	default:
		return contentBlock{}, fmt.Errorf("%s is not supported in a %s message", part.PartType(), role)
	}
}

// applyTools maps tool definitions and the tools policy.
func applyTools(body *messagesRequest, tools []ai.ToolDefinition, policy *ai.ToolsPolicy) error {
	for i, definition := range tools {
		switch t := definition.(type) {
		case ai.FunctionCallTool:
			entry := tool{Name: t.Name, Description: t.Description, InputSchema: emptyObjectSchema}
			if t.InputSchema != nil {
				entry.InputSchema = t.InputSchema
			}
			body.Tools = append(body.Tools, entry)
		case ai.CodeExecutionTool:
			return ai.NewValidationError(vendorName, "tool %d: code execution (%s) is not available on Anthropic", i, t.Variant)
		default:
			return ai.NewValidationError(vendorName, "tool %d: unknown tool type %T", i, definition)
		}
	}

	if policy == nil || len(body.Tools) == 0 {
		return nil
	}
	switch policy.Type {
	case ai.ToolsPolicyAuto:
		body.ToolChoice = &toolChoice{Type: "auto"}
	case ai.ToolsPolicyAny:
		body.ToolChoice = &toolChoice{Type: "any"}
	case ai.ToolsPolicyFunctionCall:
		body.ToolChoice = &toolChoice{Type: "tool", Name: policy.FunctionName}
	default:
		return ai.NewValidationError(vendorName, "unknown tools policy %q", policy.Type)
	}
	return nil
}
