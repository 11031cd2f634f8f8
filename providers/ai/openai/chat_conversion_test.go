package openai

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/ai"
)

func lowerChat(t *testing.T, model ai.ModelParams, req *ai.ChatGenerateRequest, opts ai.AdapterOptions) (*ai.VendorRequest, *chatRequest) {
	t.Helper()
	vr, err := NewChat().ToVendorRequest(context.Background(), model, req, true, opts)
	require.NoError(t, err)
	body, ok := vr.Body.(*chatRequest)
	require.Truef(t, ok, "body is %T", vr.Body)
	return vr, body
}

func weatherRequest() *ai.ChatGenerateRequest {
	return &ai.ChatGenerateRequest{
		SystemMessage: &ai.Message{Role: ai.RoleSystem, Parts: []ai.Part{
			ai.TextPart{Text: "You are terse."},
			ai.CacheControlPart{Control: ai.CacheControlEphemeral},
		}},
		ChatSequence: []ai.Message{
			{Role: ai.RoleUser, Parts: []ai.Part{ai.TextPart{Text: "Weather in Paris?"}}},
			{Role: ai.RoleModel, Parts: []ai.Part{
				ai.TextPart{Text: "Checking."},
				ai.ToolInvocationPart{ID: "call_1", Invocation: ai.FunctionCallInvocation{Name: "get_weather", Args: `{"city":"Paris"}`}},
			}},
			{Role: ai.RoleTool, Parts: []ai.Part{
				ai.ToolResponsePart{ID: "call_1", Response: ai.FunctionCallResponse{Name: "get_weather", Result: `{"temp":21}`}},
			}},
		},
		Tools: []ai.ToolDefinition{ai.FunctionCallTool{Name: "get_weather"}},
	}
}

func userText(texts ...string) ai.Message {
	parts := make([]ai.Part, 0, len(texts))
	for _, text := range texts {
		parts = append(parts, ai.TextPart{Text: text})
	}
	return ai.Message{Role: ai.RoleUser, Parts: parts}
}

func TestChatToVendorRequest_WeatherRoundTrip(t *testing.T) {
	vr, _ := lowerChat(t, ai.ModelParams{ID: "gpt-4o"}, weatherRequest(), ai.AdapterOptions{})

	got, err := vr.JSON()
	require.NoError(t, err)
	want := `{"model":"gpt-4o","messages":[` +
		`{"role":"system","content":"You are terse."},` +
		`{"role":"user","content":[{"type":"text","text":"Weather in Paris?"}]},` +
		`{"role":"assistant","content":"Checking.","tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_weather","arguments":"{\"city\":\"Paris\"}"}}]},` +
		`{"role":"tool","content":"{\"temp\":21}","tool_call_id":"call_1"}],` +
		`"stream":true,"stream_options":{"include_usage":true},` +
		`"tools":[{"type":"function","function":{"name":"get_weather","parameters":{"type":"object","properties":{}}}}],` +
		`"parallel_tool_calls":true}`
	assert.Equal(t, want, string(got))
	assert.Equal(t, chatPath, vr.Path)
	assert.Empty(t, vr.Hotfixes)
	assert.False(t, vr.SystemSplit)
}

func TestChatToVendorRequest_ReasoningFamily(t *testing.T) {
	model := ai.ModelParams{ID: "o3-mini", MaxTokens: utils.Ptr(100), Temperature: utils.Ptr(0.5), ReasoningEffort: "high"}
	vr, body := lowerChat(t, model, weatherRequest(), ai.AdapterOptions{})

	assert.Nil(t, body.MaxTokens)
	assert.Nil(t, body.Temperature)
	require.NotNil(t, body.MaxCompletionTokens)
	assert.Equal(t, 100, *body.MaxCompletionTokens)
	assert.Equal(t, "developer", body.Messages[0].Role)
	assert.Equal(t, "high", body.ReasoningEffort)
	assert.Equal(t, []string{HotfixMaxCompletionTokens, HotfixSystemAsDeveloper}, vr.Hotfixes)

	// Same model through a dialect outside the scope keeps the legacy fields.
	_, body = lowerChat(t, model, weatherRequest(), ai.AdapterOptions{Dialect: ai.DialectGroq})
	assert.NotNil(t, body.MaxTokens)
	assert.Equal(t, "system", body.Messages[0].Role)
}

func TestChatToVendorRequest_DialectHotfixes(t *testing.T) {
	req := &ai.ChatGenerateRequest{ChatSequence: []ai.Message{userText("a"), userText("b", "c")}}

	vr, body := lowerChat(t, ai.ModelParams{ID: "deepseek-chat"}, req, ai.AdapterOptions{Dialect: ai.DialectDeepseek})
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "a\n\nb\n\nc", body.Messages[0].Content)
	assert.Equal(t, []string{HotfixMergeConsecutiveRoles, HotfixSquashTextParts}, vr.Hotfixes)

	vr, body = lowerChat(t, ai.ModelParams{ID: "deepseek-chat"}, req, ai.AdapterOptions{
		Dialect:          ai.DialectDeepseek,
		DisabledHotfixes: []string{HotfixMergeConsecutiveRoles},
	})
	require.Len(t, body.Messages, 2)
	assert.Equal(t, "b\n\nc", body.Messages[1].Content)
	assert.Equal(t, []string{HotfixSquashTextParts}, vr.Hotfixes)

	withTools := weatherRequest()
	vr, body = lowerChat(t, ai.ModelParams{ID: "mistral-large-latest"}, withTools, ai.AdapterOptions{Dialect: ai.DialectMistral})
	assert.Nil(t, body.StreamOptions)
	assert.Nil(t, body.ParallelToolCalls)
	assert.True(t, slices.Contains(vr.Hotfixes, HotfixStripStreamOptions))
	assert.True(t, slices.Contains(vr.Hotfixes, HotfixStripParallelToolCalls))
}

func TestChatToVendorRequest_Rejections(t *testing.T) {
	image := ai.InlineImagePart{MimeType: "image/png", Base64: "iVBORw0KGgo="}
	withImage := &ai.ChatGenerateRequest{ChatSequence: []ai.Message{{Role: ai.RoleUser, Parts: []ai.Part{ai.TextPart{Text: "look"}, image}}}}
	pinned := weatherRequest()
	pinned.ToolsPolicy = &ai.ToolsPolicy{Type: ai.ToolsPolicyAny}
	codeExec := weatherRequest()
	codeExec.Tools = append(codeExec.Tools, ai.CodeExecutionTool{Variant: ai.CodeExecutionGeminiAutoInline})
	modelImage := &ai.ChatGenerateRequest{ChatSequence: []ai.Message{{Role: ai.RoleModel, Parts: []ai.Part{image}}}}
	doc := &ai.ChatGenerateRequest{ChatSequence: []ai.Message{{Role: ai.RoleUser, Parts: []ai.Part{ai.DocPart{MimeType: "text/plain", Ref: "a.txt", Text: "x"}}}}}

	tests := []struct {
		name string
		req  *ai.ChatGenerateRequest
		opts ai.AdapterOptions
	}{
		{name: "unknown dialect", req: weatherRequest(), opts: ai.AdapterOptions{Dialect: ai.DialectGemini}},
		{name: "deepseek images", req: withImage, opts: ai.AdapterOptions{Dialect: ai.DialectDeepseek}},
		{name: "perplexity tools", req: weatherRequest(), opts: ai.AdapterOptions{Dialect: ai.DialectPerplexity}},
		{name: "mistral required tools", req: pinned, opts: ai.AdapterOptions{Dialect: ai.DialectMistral}},
		{name: "code execution tool", req: codeExec},
		{name: "model image rejected", req: modelImage, opts: ai.AdapterOptions{Policy: ai.PartPolicy{ModelImages: ai.Reject}}},
		{name: "document rejected", req: doc, opts: ai.AdapterOptions{Policy: ai.PartPolicy{Documents: ai.Reject}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChat().ToVendorRequest(context.Background(), ai.ModelParams{ID: "m"}, tt.req, false, tt.opts)
			require.Error(t, err)
			assert.True(t, ai.IsValidationError(err), "got %T: %v", err, err)
		})
	}
}

func TestChatToVendorRequest_Approximations(t *testing.T) {
	image := ai.InlineImagePart{MimeType: "image/png", Base64: "iVBORw0KGgo="}
	req := &ai.ChatGenerateRequest{ChatSequence: []ai.Message{
		{Role: ai.RoleUser, Parts: []ai.Part{
			ai.DocPart{MimeType: "text/plain", Ref: "notes.txt", Text: "hello"},
			ai.InReferenceToPart{ReferTo: []ai.ReferenceItem{{Text: "earlier answer"}}},
		}},
		{Role: ai.RoleModel, Parts: []ai.Part{ai.TextPart{Text: "Here."}, image}},
	}}
	_, body := lowerChat(t, ai.ModelParams{ID: "gpt-4o"}, req, ai.AdapterOptions{JSONOutput: true})

	require.Len(t, body.Messages, 3)
	user := body.Messages[0].Content.([]chatContentPart)
	require.Len(t, user, 2)
	assert.Contains(t, user[0].Text, "hello")
	assert.Contains(t, user[1].Text, "earlier answer")
	assert.Equal(t, "assistant", body.Messages[1].Role)
	spill := body.Messages[2]
	assert.Equal(t, "user", spill.Role)
	assert.Equal(t, "data:image/png;base64,iVBORw0KGgo=", spill.Content.([]chatContentPart)[0].ImageURL.URL)
	require.NotNil(t, body.ResponseFormat)
	assert.Equal(t, "json_object", body.ResponseFormat.Type)
}

func TestChatToVendorRequest_FailedToolResponse(t *testing.T) {
	req := weatherRequest()
	req.ChatSequence[2].Parts[0] = ai.ToolResponsePart{ID: "call_1", IsError: true, Response: ai.FunctionCallResponse{Name: "get_weather", Result: "timeout"}}
	req.ToolsPolicy = &ai.ToolsPolicy{Type: ai.ToolsPolicyFunctionCall, FunctionName: "get_weather"}
	_, body := lowerChat(t, ai.ModelParams{ID: "gpt-4o"}, req, ai.AdapterOptions{})

	assert.Equal(t, "error: timeout", body.Messages[3].Content)
	choice, ok := body.ToolChoice.(chatNamedToolChoice)
	require.True(t, ok)
	assert.Equal(t, "get_weather", choice.Function.Name)
}

func TestEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		access  ai.Access
		model   string
		url     string
		headers map[string]string
	}{
		{
			name:    "openai",
			access:  ai.Access{Dialect: ai.DialectOpenAI, APIKey: "sk", OrgID: "org-1"},
			url:     "https://api.openai.com/v1/chat/completions",
			headers: map[string]string{"Authorization": "Bearer sk", "OpenAI-Organization": "org-1"},
		},
		{
			name:    "empty dialect is openai",
			access:  ai.Access{APIKey: "sk"},
			url:     "https://api.openai.com/v1/chat/completions",
			headers: map[string]string{"Authorization": "Bearer sk"},
		},
		{
			name:    "azure deployment",
			access:  ai.Access{Dialect: ai.DialectAzure, APIKey: "az", Host: "myres.openai.azure.com/"},
			model:   "gpt-4o",
			url:     "https://myres.openai.azure.com/openai/deployments/gpt-4o/chat/completions?api-version=2024-10-21",
			headers: map[string]string{"api-key": "az"},
		},
		{
			name:    "groq prefix",
			access:  ai.Access{Dialect: ai.DialectGroq, APIKey: "gk"},
			url:     "https://api.groq.com/openai/v1/chat/completions",
			headers: map[string]string{"Authorization": "Bearer gk"},
		},
		{
			name:    "ollama anonymous",
			access:  ai.Access{Dialect: ai.DialectOllama, Headers: map[string]string{"X-Trace": "1"}},
			url:     "http://localhost:11434/v1/chat/completions",
			headers: map[string]string{"X-Trace": "1"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := NewChat().Endpoint(tt.access, ai.ModelParams{ID: tt.model}, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.url, ep.URL)
			assert.Equal(t, tt.headers, ep.Headers)
		})
	}
}

func TestEndpoint_Errors(t *testing.T) {
	_, err := NewChat().Endpoint(ai.Access{Dialect: ai.DialectOpenAI}, ai.ModelParams{}, nil)
	assert.Error(t, err, "missing key")
	_, err = NewChat().Endpoint(ai.Access{Dialect: ai.DialectAzure, APIKey: "k"}, ai.ModelParams{}, nil)
	assert.Error(t, err, "azure without host")
	_, err = NewChat().Endpoint(ai.Access{Dialect: ai.DialectAnthropic, APIKey: "k"}, ai.ModelParams{}, nil)
	assert.Error(t, err, "foreign dialect")
}

func TestHotfixCatalogue(t *testing.T) {
	assert.Len(t, ChatHotfixes(), 10)
	assert.Equal(t, []string{HotfixResponsesReasoningNoSampling}, ResponsesHotfixes())
	assert.True(t, IsReasoningModel("openai/gpt-5-mini"))
	assert.False(t, IsReasoningModel("gpt-4o"))
}
