package ai

import (
	"encoding/json"
	"fmt"

	"github.com/leofalp/aix/internal/jsonschema"
)

/*
	##### MESSAGES #####
*/

// Role is the author of a message.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
	RoleModel  Role = "model"
	RoleTool   Role = "tool"
)

// Message is one turn of the conversation.
type Message struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// UnmarshalJSON decodes the role and every part through DecodePart.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role  Role              `json:"role"`
		Parts []json.RawMessage `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Role = raw.Role
	m.Parts = make([]Part, 0, len(raw.Parts))
	for i, rawPart := range raw.Parts {
		part, err := DecodePart(rawPart)
		if err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
		m.Parts = append(m.Parts, part)
	}
	return nil
}

// ChatGenerateRequest is the canonical request handed to every adapter.
// It is built fresh per call and only read by adapters.
type ChatGenerateRequest struct {
	SystemMessage *Message         `json:"systemMessage,omitempty"`
	ChatSequence  []Message        `json:"chatSequence"`
	Tools         []ToolDefinition `json:"tools,omitempty"`
	ToolsPolicy   *ToolsPolicy     `json:"toolsPolicy,omitempty"`
}

// UnmarshalJSON decodes tools through DecodeToolDefinition.
func (r *ChatGenerateRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		SystemMessage *Message          `json:"systemMessage,omitempty"`
		ChatSequence  []Message         `json:"chatSequence"`
		Tools         []json.RawMessage `json:"tools,omitempty"`
		ToolsPolicy   *ToolsPolicy      `json:"toolsPolicy,omitempty"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.SystemMessage = raw.SystemMessage
	r.ChatSequence = raw.ChatSequence
	r.ToolsPolicy = raw.ToolsPolicy
	r.Tools = nil
	for i, rawTool := range raw.Tools {
		tool, err := DecodeToolDefinition(rawTool)
		if err != nil {
			return fmt.Errorf("tool %d: %w", i, err)
		}
		r.Tools = append(r.Tools, tool)
	}
	return nil
}

// Clone returns a copy whose message and part slices can be modified without
// touching the receiver. Parts themselves are values and are shared.
func (r *ChatGenerateRequest) Clone() *ChatGenerateRequest {
	clone := &ChatGenerateRequest{
		Tools:       append([]ToolDefinition(nil), r.Tools...),
		ToolsPolicy: r.ToolsPolicy,
	}
	if r.SystemMessage != nil {
		sys := cloneMessage(*r.SystemMessage)
		clone.SystemMessage = &sys
	}
	clone.ChatSequence = make([]Message, len(r.ChatSequence))
	for i, msg := range r.ChatSequence {
		clone.ChatSequence[i] = cloneMessage(msg)
	}
	return clone
}

func cloneMessage(m Message) Message {
	return Message{Role: m.Role, Parts: append([]Part(nil), m.Parts...)}
}

/*
	##### TOOLS #####
*/

// ToolDefinition is a closed union of FunctionCallTool and CodeExecutionTool.
type ToolDefinition interface {
	isToolDefinition()
}

// FunctionCallTool declares a function the model may call.
type FunctionCallTool struct {
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	InputSchema *jsonschema.Schema `json:"input_schema,omitempty"`
}

// CodeExecutionTool enables vendor-hosted code execution.
type CodeExecutionTool struct {
	Variant string `json:"variant"`
}

// CodeExecutionGeminiAutoInline is the only code-execution variant vendors accept today.
const CodeExecutionGeminiAutoInline = "gemini_auto_inline"

func (FunctionCallTool) isToolDefinition()  {}
func (CodeExecutionTool) isToolDefinition() {}

func (t FunctionCallTool) MarshalJSON() ([]byte, error) {
	type alias FunctionCallTool
	return json.Marshal(struct {
		Type         string `json:"type"`
		FunctionCall alias  `json:"function_call"`
	}{"function_call", alias(t)})
}

func (t CodeExecutionTool) MarshalJSON() ([]byte, error) {
	type alias CodeExecutionTool
	return json.Marshal(struct {
		Type          string `json:"type"`
		CodeExecution alias  `json:"code_execution"`
	}{"code_execution", alias(t)})
}

// DecodeToolDefinition decodes a tagged tool definition.
func DecodeToolDefinition(data []byte) (ToolDefinition, error) {
	var raw struct {
		Type          string             `json:"type"`
		FunctionCall  *FunctionCallTool  `json:"function_call"`
		CodeExecution *CodeExecutionTool `json:"code_execution"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	switch raw.Type {
	case "function_call":
		if raw.FunctionCall == nil {
			return nil, fmt.Errorf("function_call tool without body")
		}
		return *raw.FunctionCall, nil
	case "code_execution":
		if raw.CodeExecution == nil {
			return nil, fmt.Errorf("code_execution tool without body")
		}
		return *raw.CodeExecution, nil
	default:
		return nil, fmt.Errorf("unknown tool type %q", raw.Type)
	}
}

// NewFunctionTool builds a FunctionCallTool whose input schema is generated
// from the exported fields of T.
func NewFunctionTool[T any](name, description string) (FunctionCallTool, error) {
	schema, err := jsonschema.GenerateJSONSchema[T]()
	if err != nil {
		return FunctionCallTool{}, fmt.Errorf("generating schema for %s: %w", name, err)
	}
	return FunctionCallTool{Name: name, Description: description, InputSchema: schema}, nil
}

// ToolsPolicyType selects how the model may use the declared tools.
type ToolsPolicyType string

const (
	ToolsPolicyAuto         ToolsPolicyType = "auto"
	ToolsPolicyAny          ToolsPolicyType = "any"
	ToolsPolicyFunctionCall ToolsPolicyType = "function_call"
)

// ToolsPolicy is auto, any, or pinned to one function.
type ToolsPolicy struct {
	Type ToolsPolicyType `json:"type"`
	// FunctionName is set only for ToolsPolicyFunctionCall.
	FunctionName string `json:"-"`
}

func (p ToolsPolicy) MarshalJSON() ([]byte, error) {
	if p.Type != ToolsPolicyFunctionCall {
		return json.Marshal(struct {
			Type ToolsPolicyType `json:"type"`
		}{p.Type})
	}
	type fn struct {
		Name string `json:"name"`
	}
	return json.Marshal(struct {
		Type         ToolsPolicyType `json:"type"`
		FunctionCall fn              `json:"function_call"`
	}{p.Type, fn{p.FunctionName}})
}

func (p *ToolsPolicy) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type         ToolsPolicyType `json:"type"`
		FunctionCall *struct {
			Name string `json:"name"`
		} `json:"function_call"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Type = raw.Type
	p.FunctionName = ""
	switch raw.Type {
	case ToolsPolicyAuto, ToolsPolicyAny:
	case ToolsPolicyFunctionCall:
		if raw.FunctionCall == nil || raw.FunctionCall.Name == "" {
			return fmt.Errorf("function_call tools policy without a name")
		}
		p.FunctionName = raw.FunctionCall.Name
	default:
		return fmt.Errorf("unknown tools policy %q", raw.Type)
	}
	return nil
}

/*
	##### MODEL #####
*/

// ModelParams carries the pre-resolved model and sampling parameters.
// Nil pointers mean "vendor default".
type ModelParams struct {
	ID          string   `json:"id" yaml:"id"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens   *int     `json:"maxTokens,omitempty" yaml:"max_tokens,omitempty"`
	TopP        *float64 `json:"topP,omitempty" yaml:"top_p,omitempty"`

	// ReasoningEffort is low, medium or high (minimal is accepted by OpenAI).
	ReasoningEffort string `json:"reasoningEffort,omitempty" yaml:"reasoning_effort,omitempty"`
	// ThinkingBudget enables Anthropic extended thinking or sets the Gemini
	// thinking budget. Zero disables Gemini thinking, nil leaves it to the vendor.
	ThinkingBudget *int `json:"thinkingBudget,omitempty" yaml:"thinking_budget,omitempty"`
	// ShowReasoning asks vendors that hide reasoning by default to stream a summary.
	ShowReasoning bool `json:"showReasoning,omitempty" yaml:"show_reasoning,omitempty"`
	// SafetyThreshold is forwarded to Gemini safety settings for every category.
	SafetyThreshold string `json:"safetyThreshold,omitempty" yaml:"safety_threshold,omitempty"`
	// UserID is forwarded as the end-user identifier where supported.
	UserID string `json:"userId,omitempty" yaml:"user_id,omitempty"`
}
