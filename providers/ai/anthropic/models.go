package anthropic

import "encoding/json"

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// messagesRequest is the body of POST /v1/messages.
type messagesRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"` // Required by Anthropic on every request
	System      []contentBlock  `json:"system,omitempty"`
	Messages    []message       `json:"messages"`
	Tools       []tool          `json:"tools,omitempty"`
	ToolChoice  *toolChoice     `json:"tool_choice,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	TopP        *float64        `json:"top_p,omitempty"`
	Thinking    *thinkingConfig `json:"thinking,omitempty"`
	Metadata    *metadata       `json:"metadata,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
}

// thinkingConfig enables extended thinking with a fixed token budget.
type thinkingConfig struct {
	Type         string `json:"type"` // "enabled"
	BudgetTokens int    `json:"budget_tokens"`
}

type metadata struct {
	UserID string `json:"user_id,omitempty"`
}

// message is one user or assistant turn.
type message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []contentBlock `json:"content"`
}

// contentBlock is a discriminated union via the Type field:
//   - "text": Text
//   - "image": Source (base64)
//   - "document": Source (text), Title
//   - "tool_use": ID, Name, Input
//   - "tool_result": ToolUseID, Content, IsError
type contentBlock struct {
	Type         string          `json:"type"`
	Text         string          `json:"text,omitempty"`
	Source       *source         `json:"source,omitempty"`
	Title        string          `json:"title,omitempty"`
	ID           string          `json:"id,omitempty"`
	Name         string          `json:"name,omitempty"`
	Input        json.RawMessage `json:"input,omitempty"`
	ToolUseID    string          `json:"tool_use_id,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	IsError      bool            `json:"is_error,omitempty"`
	CacheControl *cacheControl   `json:"cache_control,omitempty"`
}

// source is the payload of an image (base64) or document (text) block.
type source struct {
	Type      string `json:"type"` // "base64" or "text"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type cacheControl struct {
	Type string `json:"type"` // "ephemeral"
}

type tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`           // "auto", "any", "tool"
	Name string `json:"name,omitempty"` // Only for type="tool"
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

// messageResponse is the whole non-streaming response, also embedded in message_start.
type messageResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"` // "message"
	Model      string          `json:"model"`
	Content    []responseBlock `json:"content"`
	StopReason *string         `json:"stop_reason"`
	Usage      *usage          `json:"usage"`
}

// responseBlock is a content block of a response. Unknown types are logged
// and skipped.
type responseBlock struct {
	Type      string          `json:"type"` // "text", "thinking", "redacted_thinking", "tool_use", ...
	Text      string          `json:"text,omitempty"`
	Thinking  string          `json:"thinking,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	Citations []citation      `json:"citations,omitempty"`
}

// citation is a web search or document location cited by a text block.
type citation struct {
	Type      string `json:"type"`
	URL       string `json:"url,omitempty"`
	Title     string `json:"title,omitempty"`
	CitedText string `json:"cited_text,omitempty"`
}

// usage counts tokens. InputTokens already excludes cache reads and writes.
type usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Event lifecycle:
	  message_start → (content_block_start → content_block_delta* → content_block_stop)* →
	  message_delta → message_stop

	ping may appear anywhere; error terminates the stream.
*/

// streamEvent is the envelope of every SSE data payload. Type repeats the
// SSE event name.
type streamEvent struct {
	Type         string           `json:"type"`
	Message      *messageResponse `json:"message,omitempty"`       // message_start
	Index        *int             `json:"index,omitempty"`         // content_block_*
	ContentBlock *responseBlock   `json:"content_block,omitempty"` // content_block_start
	Delta        *streamDelta     `json:"delta,omitempty"`         // content_block_delta, message_delta
	Usage        *usage           `json:"usage,omitempty"`         // message_delta
	Error        *apiError        `json:"error,omitempty"`         // error
}

// streamDelta is either a block delta (Type set) or a message delta (StopReason set).
type streamDelta struct {
	Type        string    `json:"type,omitempty"` // text_delta, thinking_delta, signature_delta, input_json_delta, citations_delta
	Text        string    `json:"text,omitempty"`
	Thinking    string    `json:"thinking,omitempty"`
	PartialJSON string    `json:"partial_json,omitempty"`
	Citation    *citation `json:"citation,omitempty"`
	StopReason  *string   `json:"stop_reason,omitempty"`
}

// apiError is the error object of an error event or a non-2xx body.
type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// errorEnvelope is {"type":"error","error":{...}}.
type errorEnvelope struct {
	Type  string    `json:"type"`
	Error *apiError `json:"error"`
}
