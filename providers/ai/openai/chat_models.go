package openai

import "encoding/json"

/*
	CHAT COMPLETIONS API - INPUT
*/

// chatRequest is the /chat/completions request body.
type chatRequest struct {
	Model               string          `json:"model"`
	Messages            []chatMessage   `json:"messages"`
	Temperature         *float64        `json:"temperature,omitempty"`
	TopP                *float64        `json:"top_p,omitempty"`
	MaxTokens           *int            `json:"max_tokens,omitempty"`            // Legacy, still the only one most compatible hosts accept
	MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"` // Required by reasoning families
	ReasoningEffort     string          `json:"reasoning_effort,omitempty"`
	Stream              bool            `json:"stream,omitempty"`
	StreamOptions       *streamOptions  `json:"stream_options,omitempty"`
	User                string          `json:"user,omitempty"`
	Tools               []chatTool      `json:"tools,omitempty"`
	ToolChoice          any             `json:"tool_choice,omitempty"` // "auto", "required" or chatNamedToolChoice
	ParallelToolCalls   *bool           `json:"parallel_tool_calls,omitempty"`
	ResponseFormat      *responseFormat `json:"response_format,omitempty"`
}

// streamOptions asks for a final usage chunk.
type streamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

// chatMessage is one message. Content is a string or []chatContentPart and
// is omitted on assistant messages that only carry tool calls.
type chatMessage struct {
	Role       string         `json:"role"` // system, developer, user, assistant, tool
	Content    any            `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"` // For role=tool
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`   // For role=assistant
}

// chatContentPart is a multimodal content part.
type chatContentPart struct {
	Type     string        `json:"type"` // "text" or "image_url"
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

type chatTool struct {
	Type     string       `json:"type"` // "function"
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function chatFunctionCall `json:"function"`
}

type chatFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// chatNamedToolChoice pins one function.
type chatNamedToolChoice struct {
	Type     string `json:"type"` // "function"
	Function struct {
		Name string `json:"name"`
	} `json:"function"`
}

type responseFormat struct {
	Type string `json:"type"` // "json_object"
}

// buildDataURL formats base64 data into a data URL for image inputs.
func buildDataURL(mimeType, data string) string {
	return "data:" + mimeType + ";base64," + data
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

// chatResponse is the whole non-streaming response.
type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"` // "chat.completion"
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"` // "stop", "length", "tool_calls", "content_filter"
}

type chatResponseMessage struct {
	Role             string            `json:"role"`
	Content          *string           `json:"content"`
	Refusal          string            `json:"refusal,omitempty"`
	ReasoningContent string            `json:"reasoning_content,omitempty"` // Deepseek
	Reasoning        string            `json:"reasoning,omitempty"`         // OpenRouter, Groq
	ReasoningDetails []reasoningDetail `json:"reasoning_details,omitempty"` // OpenRouter
	ToolCalls        []chatToolCall    `json:"tool_calls,omitempty"`
	Annotations      []chatAnnotation  `json:"annotations,omitempty"`
}

// reasoningDetail is an OpenRouter structured reasoning block. Only text and
// summary kinds carry readable text; encrypted blocks are skipped.
type reasoningDetail struct {
	Type    string `json:"type"` // "reasoning.text", "reasoning.summary", "reasoning.encrypted"
	Text    string `json:"text,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// chatAnnotation is a url citation attached to the answer (search models).
type chatAnnotation struct {
	Type        string `json:"type"` // "url_citation"
	URLCitation *struct {
		URL        string `json:"url"`
		Title      string `json:"title"`
		StartIndex *int   `json:"start_index,omitempty"`
		EndIndex   *int   `json:"end_index,omitempty"`
	} `json:"url_citation,omitempty"`
}

type chatUsage struct {
	PromptTokens            int `json:"prompt_tokens"`
	CompletionTokens        int `json:"completion_tokens"`
	TotalTokens             int `json:"total_tokens"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens,omitempty"`
	} `json:"completion_tokens_details,omitempty"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens,omitempty"`
	} `json:"prompt_tokens_details,omitempty"`
}

/*
	CHAT COMPLETIONS STREAMING API - RESPONSE TYPES

	Each SSE chunk carries incremental deltas for content, reasoning and tool
	calls. With stream_options.include_usage the last chunk has no choices
	and carries the usage.
*/

type chatChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"` // "chat.completion.chunk"
	Model   string        `json:"model"`
	Choices []chunkChoice `json:"choices"`
	Usage   *chatUsage    `json:"usage,omitempty"`
}

type chunkChoice struct {
	Index        int        `json:"index"`
	Delta        chunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"` // nil until the last chunk of the choice
}

type chunkDelta struct {
	Role             string            `json:"role,omitempty"`
	Content          *string           `json:"content,omitempty"`
	Refusal          *string           `json:"refusal,omitempty"`
	ReasoningContent *string           `json:"reasoning_content,omitempty"`
	Reasoning        *string           `json:"reasoning,omitempty"`
	ReasoningDetails []reasoningDetail `json:"reasoning_details,omitempty"`
	ToolCalls        []chunkToolCall   `json:"tool_calls,omitempty"`
	Annotations      []chatAnnotation  `json:"annotations,omitempty"`
}

// chunkToolCall is a tool call delta. The first delta of an index carries
// the id and name; later ones only append argument fragments.
type chunkToolCall struct {
	Index    *int   `json:"index,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// errorProbe detects an upstream error object relayed in place of a
// success payload. Error is an object or, on some proxies, a string.
type errorProbe struct {
	Error json.RawMessage `json:"error"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}
