package gemini

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/leofalp/aix/core/parse"
	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/observability"
)

// ToVendorRequest implements [ai.Vendor].
func (v *Vendor) ToVendorRequest(ctx context.Context, model ai.ModelParams, req *ai.ChatGenerateRequest, streaming bool, opts ai.AdapterOptions) (*ai.VendorRequest, error) {
	if model.SafetyThreshold != "" && !validThreshold(model.SafetyThreshold) {
		return nil, ai.NewValidationError(vendorName, "unknown safety threshold %q", model.SafetyThreshold)
	}

	split, systemSplit := ai.SplitSystemMessage(req)
	body := &generateContentRequest{
		Contents:       []content{},
		SafetySettings: safetySettings(model.SafetyThreshold),
	}

	if split.SystemMessage != nil {
		var parts []part
		for _, p := range split.SystemMessage.Parts {
			if text, ok := p.(ai.TextPart); ok {
				parts = append(parts, part{Text: text.Text})
			}
		}
		if len(parts) > 0 {
			body.SystemInstruction = &systemInstruction{Parts: parts}
		}
	}

	for i, msg := range split.ChatSequence {
		contents, err := lowerMessage(i, msg, opts.Policy)
		if err != nil {
			return nil, err
		}
		body.Contents = append(body.Contents, contents...)
	}

	if err := lowerTools(body, split.Tools, split.ToolsPolicy); err != nil {
		return nil, err
	}
	body.GenerationConfig = lowerGenerationConfig(ctx, model, opts.JSONOutput)

	dialect := opts.Dialect
	if dialect == "" {
		dialect = ai.DialectGemini
	}
	applied, err := hotfixes.Run(ctx, dialect, model.ID, body, opts.DisabledHotfixes)
	if err != nil {
		return nil, &ai.ValidationError{Vendor: vendorName, Message: err.Error(), Err: err}
	}
	if err := wireSchema.Validate(body); err != nil {
		return nil, err
	}

	return &ai.VendorRequest{
		Path:        methodPath(model.ID, streaming),
		Streaming:   streaming,
		Body:        body,
		SystemSplit: systemSplit,
		Hotfixes:    applied,
	}, nil
}

func lowerGenerationConfig(ctx context.Context, model ai.ModelParams, jsonOutput bool) *generationConfig {
	cfg := generationConfig{
		Temperature:     model.Temperature,
		TopP:            model.TopP,
		MaxOutputTokens: model.MaxTokens,
	}
	if jsonOutput {
		cfg.ResponseMimeType = "application/json"
	}
	if model.ThinkingBudget != nil || model.ShowReasoning {
		if ai.HasFamily(model.ID, thinkingFamilies...) {
			cfg.ThinkingConfig = &thinkingConfig{ThinkingBudget: model.ThinkingBudget, IncludeThoughts: model.ShowReasoning}
		} else {
			observability.ObserverFromContext(ctx).Debug(ctx, "thinking config dropped for model without thinking",
				observability.String(observability.AttrLLMModel, model.ID),
			)
		}
	}
	if cfg == (generationConfig{}) {
		return nil
	}
	return &cfg
}

// lowerMessage returns the contents of one IR message. Tool messages split
// into user turns for function responses and model turns for code results.
func lowerMessage(index int, msg ai.Message, policy ai.PartPolicy) ([]content, error) {
	var out []content
	add := func(role string, p part) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, p)
			return
		}
		out = append(out, content{Role: role, Parts: []part{p}})
	}

	role := "user"
	if msg.Role == ai.RoleModel {
		role = "model"
	}
	for j, p := range msg.Parts {
		bad := func(format string, args ...any) error {
			return ai.NewValidationError(vendorName, "message %d part %d: "+format, append([]any{index, j}, args...)...)
		}
		switch p := p.(type) {
		case ai.TextPart:
			add(role, part{Text: p.Text})
		case ai.InlineImagePart:
			add(role, part{InlineData: &inlineData{MimeType: p.MimeType, Data: p.Base64}})
		case ai.DocPart:
			if policy.RejectsDocuments() {
				return nil, bad("documents are rejected by the part policy")
			}
			add(role, part{Text: ai.DocAsText(p)})
		case ai.InReferenceToPart:
			if policy.RejectsReferences() {
				return nil, bad("references are rejected by the part policy")
			}
			add(role, part{Text: ai.ReferencesAsText(p)})
		case ai.ToolInvocationPart:
			lowered, err := invocationPart(p)
			if err != nil {
				return nil, bad("%v", err)
			}
			add("model", lowered)
		case ai.ToolResponsePart:
			switch r := p.Response.(type) {
			case ai.FunctionCallResponse:
				if r.Name == "" {
					return nil, bad("function response %s needs the function name", p.ID)
				}
				response, err := responseObject(p, r)
				if err != nil {
					return nil, bad("%v", err)
				}
				add("user", part{FunctionResponse: &functionResponse{ID: p.ID, Name: r.Name, Response: response}})
			case ai.CodeExecutionResponse:
				outcome := "OUTCOME_OK"
				if p.Failed() {
					outcome = "OUTCOME_FAILED"
				}
				add("model", part{CodeExecutionResult: &codeExecutionResult{Outcome: outcome, Output: r.Result}})
			default:
				return nil, bad("unknown tool response %T", p.Response)
			}
		case ai.CacheControlPart:
		default:
			return nil, bad("%s is not supported", p.PartType())
		}
	}
	return out, nil
}

func invocationPart(p ai.ToolInvocationPart) (part, error) {
	switch inv := p.Invocation.(type) {
	case ai.FunctionCallInvocation:
		args, err := parse.ArgsObject(inv.Args)
		if err != nil {
			return part{}, err
		}
		encoded, err := json.Marshal(args)
		if err != nil {
			return part{}, err
		}
		return part{FunctionCall: &functionCall{ID: p.ID, Name: inv.Name, Args: encoded}}, nil
	case ai.CodeExecutionInvocation:
		language := strings.ToUpper(inv.Language)
		if language == "" {
			language = "PYTHON"
		}
		return part{ExecutableCode: &executableCode{Language: language, Code: inv.Code}}, nil
	}
	return part{}, ai.NewValidationError(vendorName, "unknown invocation %T", p.Invocation)
}

// responseObject wraps a function result into the object Gemini expects.
// Object results are sent as they are; anything else goes under "output",
// failures under "error".
func responseObject(p ai.ToolResponsePart, r ai.FunctionCallResponse) (json.RawMessage, error) {
	var value any = r.Result
	if trimmed := strings.TrimSpace(r.Result); trimmed != "" && json.Valid([]byte(trimmed)) {
		var decoded any
		if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
			return nil, err
		}
		if _, isObject := decoded.(map[string]any); isObject && !p.Failed() {
			return json.RawMessage(trimmed), nil
		}
		value = decoded
	}

	wrapped := map[string]any{}
	switch {
	case !p.Failed():
		wrapped["output"] = value
	case p.ErrorText != "":
		wrapped["error"] = p.ErrorText
		if r.Result != "" {
			wrapped["output"] = value
		}
	default:
		wrapped["error"] = value
	}
	return json.Marshal(wrapped)
}

func lowerTools(body *generateContentRequest, tools []ai.ToolDefinition, policy *ai.ToolsPolicy) error {
	var declarations []functionDeclaration
	codeExecution := false
	for i, definition := range tools {
		switch t := definition.(type) {
		case ai.FunctionCallTool:
			declarations = append(declarations, functionDeclaration{Name: t.Name, Description: t.Description, Parameters: t.InputSchema.Clone()})
		case ai.CodeExecutionTool:
			codeExecution = true
		default:
			return ai.NewValidationError(vendorName, "tool %d: unknown tool type %T", i, definition)
		}
	}
	if len(declarations) > 0 {
		body.Tools = append(body.Tools, tool{FunctionDeclarations: declarations})
	}
	if codeExecution {
		body.Tools = append(body.Tools, tool{CodeExecution: &codeExecutionTool{}})
	}
	if len(declarations) == 0 || policy == nil {
		return nil
	}

	cfg := &functionCallingConfig{}
	switch policy.Type {
	case ai.ToolsPolicyAuto:
		cfg.Mode = "AUTO"
	case ai.ToolsPolicyAny:
		cfg.Mode = "ANY"
	case ai.ToolsPolicyFunctionCall:
		cfg.Mode = "ANY"
		cfg.AllowedFunctionNames = []string{policy.FunctionName}
	default:
		return ai.NewValidationError(vendorName, "unknown tools policy %q", policy.Type)
	}
	body.ToolConfig = &toolConfig{FunctionCallingConfig: cfg}
	return nil
}
