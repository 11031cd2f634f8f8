package openai

/*
	RESPONSES API - INPUT

	The request types are exported so that dialects speaking the Responses
	shape (xAI) can run their own hotfix passes over them.
*/

// ResponsesRequest is the /responses request body.
type ResponsesRequest struct {
	Model             string              `json:"model"`
	Instructions      string              `json:"instructions,omitempty"`
	Input             []ResponsesItem     `json:"input"`
	Temperature       *float64            `json:"temperature,omitempty"`
	TopP              *float64            `json:"top_p,omitempty"`
	MaxOutputTokens   *int                `json:"max_output_tokens,omitempty"`
	Stream            bool                `json:"stream,omitempty"`
	Reasoning         *ResponsesReasoning `json:"reasoning,omitempty"`
	Text              *ResponsesText      `json:"text,omitempty"`
	Tools             []ResponsesTool     `json:"tools,omitempty"`
	ToolChoice        any                 `json:"tool_choice,omitempty"` // "auto", "required" or ResponsesNamedToolChoice
	ParallelToolCalls *bool               `json:"parallel_tool_calls,omitempty"`
	Store             *bool               `json:"store,omitempty"`
	User              string              `json:"user,omitempty"`
	Include           []string            `json:"include,omitempty"` // e.g. ["reasoning.encrypted_content"]
}

// ResponsesItem is one input item: a message, a function call replayed from
// history, or the output of that call.
type ResponsesItem struct {
	Type    string             `json:"type"`           // message, function_call, function_call_output
	Role    string             `json:"role,omitempty"` // system, developer, user, assistant
	Content []ResponsesContent `json:"content,omitempty"`

	// For function_call and function_call_output
	CallID    string  `json:"call_id,omitempty"`
	Name      string  `json:"name,omitempty"`
	Arguments string  `json:"arguments,omitempty"`
	Output    *string `json:"output,omitempty"`
}

// ResponsesContent is a message content item.
type ResponsesContent struct {
	Type     string `json:"type"` // input_text, input_image, output_text
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// ResponsesReasoning configures reasoning-capable models (o-series, gpt-5, grok).
type ResponsesReasoning struct {
	Effort  string `json:"effort,omitempty"`  // "minimal", "low", "medium", "high"
	Summary string `json:"summary,omitempty"` // "auto", "concise", "detailed"
}

// ResponsesText controls output formatting.
type ResponsesText struct {
	Format *ResponsesFormat `json:"format,omitempty"`
}

type ResponsesFormat struct {
	Type string `json:"type"` // "text", "json_object"
}

// ResponsesTool is a function tool or a hosted tool.
type ResponsesTool struct {
	Type string `json:"type"` // "function", "code_interpreter"

	// For function calling
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`

	// For code_interpreter
	Container *ResponsesContainer `json:"container,omitempty"`
}

type ResponsesContainer struct {
	Type string `json:"type"` // "auto"
}

// ResponsesNamedToolChoice pins one function.
type ResponsesNamedToolChoice struct {
	Type string `json:"type"` // "function"
	Name string `json:"name"`
}

/*
	RESPONSES API - OUTPUT
*/

type responsesResponse struct {
	ID                string          `json:"id"`
	Object            string          `json:"object"` // "response"
	Model             string          `json:"model"`
	Status            string          `json:"status"` // "completed", "incomplete", "failed", "in_progress"
	Output            []outputItem    `json:"output"`
	Usage             *usageDetails   `json:"usage,omitempty"`
	Error             *errorDetails   `json:"error,omitempty"`
	IncompleteDetails *incompleteInfo `json:"incomplete_details,omitempty"`
}

type incompleteInfo struct {
	Reason string `json:"reason"` // "max_output_tokens", "content_filter"
}

// outputItem is an element of the output array, also carried by the
// output_item.added and output_item.done stream events.
type outputItem struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`           // "message", "reasoning", "function_call", "code_interpreter_call", ...
	Role    string          `json:"role,omitempty"` // "assistant"
	Content []contentOutput `json:"content,omitempty"`
	Status  string          `json:"status,omitempty"`
	Summary []summaryItem   `json:"summary,omitempty"`

	// For function calls
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`

	// For code_interpreter_call
	Code    *string      `json:"code,omitempty"`
	Outputs []codeOutput `json:"outputs,omitempty"`
}

type contentOutput struct {
	Type        string       `json:"type"` // "output_text", "refusal", "reasoning_text"
	Text        string       `json:"text,omitempty"`
	Refusal     string       `json:"refusal,omitempty"`
	Annotations []annotation `json:"annotations,omitempty"`
}

type annotation struct {
	Type       string `json:"type"` // "url_citation"
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
	StartIndex *int   `json:"start_index,omitempty"`
	EndIndex   *int   `json:"end_index,omitempty"`
}

type summaryItem struct {
	Text string `json:"text,omitempty"`
	Type string `json:"type"` // "summary_text"
}

type codeOutput struct {
	Type string `json:"type"` // "logs", "image"
	Logs string `json:"logs,omitempty"`
	URL  string `json:"url,omitempty"`
}

type usageDetails struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	TotalTokens        int `json:"total_tokens"`
	InputTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details,omitempty"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details,omitempty"`
}

type errorDetails struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
}

/*
	RESPONSES STREAMING API

	Every SSE event carries its type in the payload; the event name line
	repeats it.
*/

type responsesEvent struct {
	Type         string             `json:"type"`
	OutputIndex  int                `json:"output_index"`
	ItemID       string             `json:"item_id,omitempty"`
	SummaryIndex int                `json:"summary_index,omitempty"`
	Delta        string             `json:"delta,omitempty"`
	Item         *outputItem        `json:"item,omitempty"`
	Annotation   *annotation        `json:"annotation,omitempty"`
	Response     *responsesResponse `json:"response,omitempty"`

	// For the error event
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}
