package ai

import (
	"errors"
	"testing"
)

func userText(text string) Message {
	return Message{Role: RoleUser, Parts: []Part{TextPart{Text: text}}}
}

func TestValidate(t *testing.T) {
	fn := FunctionCallTool{Name: "get_weather"}
	tests := []struct {
		name    string
		req     ChatGenerateRequest
		wantErr bool
	}{
		{
			name: "minimal",
			req:  ChatGenerateRequest{ChatSequence: []Message{userText("hi")}},
		},
		{
			name: "system image allowed",
			req: ChatGenerateRequest{
				SystemMessage: &Message{Role: RoleSystem, Parts: []Part{TextPart{Text: "a"}, InlineImagePart{MimeType: "image/png", Base64: "AAAA"}}},
				ChatSequence:  []Message{userText("hi")},
			},
		},
		{
			name:    "system role mismatch",
			req:     ChatGenerateRequest{SystemMessage: &Message{Role: RoleUser}},
			wantErr: true,
		},
		{
			name:    "system message inside sequence",
			req:     ChatGenerateRequest{ChatSequence: []Message{{Role: RoleSystem, Parts: []Part{TextPart{Text: "x"}}}}},
			wantErr: true,
		},
		{
			name:    "unknown role",
			req:     ChatGenerateRequest{ChatSequence: []Message{{Role: "assistant"}}},
			wantErr: true,
		},
		{
			name:    "tool response in user message",
			req:     ChatGenerateRequest{ChatSequence: []Message{{Role: RoleUser, Parts: []Part{ToolResponsePart{ID: "a", Response: FunctionCallResponse{}}}}}},
			wantErr: true,
		},
		{
			name:    "doc in model message",
			req:     ChatGenerateRequest{ChatSequence: []Message{{Role: RoleModel, Parts: []Part{DocPart{Ref: "r"}}}}},
			wantErr: true,
		},
		{
			name:    "unsupported image type",
			req:     ChatGenerateRequest{ChatSequence: []Message{{Role: RoleUser, Parts: []Part{InlineImagePart{MimeType: "image/tiff"}}}}},
			wantErr: true,
		},
		{
			name:    "invocation without id",
			req:     ChatGenerateRequest{ChatSequence: []Message{{Role: RoleModel, Parts: []Part{ToolInvocationPart{Invocation: FunctionCallInvocation{Name: "f"}}}}}},
			wantErr: true,
		},
		{
			name:    "unknown cache control",
			req:     ChatGenerateRequest{ChatSequence: []Message{{Role: RoleUser, Parts: []Part{CacheControlPart{Control: "forever"}}}}},
			wantErr: true,
		},
		{
			name:    "invalid tool name",
			req:     ChatGenerateRequest{ChatSequence: []Message{userText("hi")}, Tools: []ToolDefinition{FunctionCallTool{Name: "get weather"}}},
			wantErr: true,
		},
		{
			name:    "duplicate tool name",
			req:     ChatGenerateRequest{ChatSequence: []Message{userText("hi")}, Tools: []ToolDefinition{fn, fn}},
			wantErr: true,
		},
		{
			name:    "unknown code execution variant",
			req:     ChatGenerateRequest{ChatSequence: []Message{userText("hi")}, Tools: []ToolDefinition{CodeExecutionTool{Variant: "local"}}},
			wantErr: true,
		},
		{
			name: "pinned policy on declared function",
			req: ChatGenerateRequest{
				ChatSequence: []Message{userText("hi")},
				Tools:        []ToolDefinition{fn},
				ToolsPolicy:  &ToolsPolicy{Type: ToolsPolicyFunctionCall, FunctionName: "get_weather"},
			},
		},
		{
			name: "pinned policy on undeclared function",
			req: ChatGenerateRequest{
				ChatSequence: []Message{userText("hi")},
				Tools:        []ToolDefinition{fn},
				ToolsPolicy:  &ToolsPolicy{Type: ToolsPolicyFunctionCall, FunctionName: "other"},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				var vErr *ValidationError
				if !errors.As(err, &vErr) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestIsLegalPart(t *testing.T) {
	if !IsLegalPart(RoleTool, PartToolResponse) {
		t.Error("tool messages carry tool responses")
	}
	if IsLegalPart(RoleTool, PartText) {
		t.Error("tool messages do not carry text")
	}
	if IsLegalPart("nobody", PartText) {
		t.Error("unknown roles carry nothing")
	}
}
