package observability

// Semantic conventions for observability attributes.
// These constants define standard attribute names to ensure consistency
// across different components of the system.

// --- LLM Attributes ---

const (
	// AttrLLMVendor is the adapter family (e.g., "anthropic", "openai")
	AttrLLMVendor = "llm.vendor"

	// AttrLLMDialect is the API dialect (e.g., "mistral", "openrouter")
	AttrLLMDialect = "llm.dialect"

	// AttrLLMModel is the model identifier
	AttrLLMModel = "llm.model"

	// AttrLLMStreaming tells whether the call streams
	AttrLLMStreaming = "llm.streaming"

	// AttrLLMFinishReason is the vendor finish reason as received
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMStopReason is the canonical token stop reason
	AttrLLMStopReason = "llm.stop_reason"

	// AttrLLMEndReason is the canonical end reason
	AttrLLMEndReason = "llm.end_reason"

	// AttrLLMEventName is the SSE event name of a raw vendor event
	AttrLLMEventName = "llm.event"

	// AttrLLMHotfix is the name of an applied hotfix
	AttrLLMHotfix = "llm.hotfix"

	// AttrLLMSystemSplit tells whether the system message spilled into a user message
	AttrLLMSystemSplit = "llm.system_split"
)

// --- Token Usage Attributes ---

const (
	AttrLLMTokensIn         = "llm.tokens.in"          // #nosec G101 -- Not a credential, token refers to LLM tokens
	AttrLLMTokensOut        = "llm.tokens.out"         // #nosec G101 -- Not a credential, token refers to LLM tokens
	AttrLLMTokensCacheRead  = "llm.tokens.cache_read"  // #nosec G101 -- Not a credential, token refers to LLM tokens
	AttrLLMTokensCacheWrite = "llm.tokens.cache_write" // #nosec G101 -- Not a credential, token refers to LLM tokens
	AttrLLMTokensReasoning  = "llm.tokens.reasoning"   // #nosec G101 -- Not a credential, token refers to LLM tokens

	// AttrLLMTokenKind labels MetricTokens with one of the buckets above
	AttrLLMTokenKind = "llm.token_kind"
)

// --- Request/Response Attributes ---

const (
	// AttrRequestMessagesCount is the number of messages in the request
	AttrRequestMessagesCount = "request.messages_count"

	// AttrRequestToolsCount is the number of tools in the request
	AttrRequestToolsCount = "request.tools_count"

	// AttrParticleKind is the kind of particle being counted
	AttrParticleKind = "particle.kind"

	// AttrFragmentsCount is the number of fragments at the end of a call
	AttrFragmentsCount = "fragments.count"
)

// --- HTTP Attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPURL              = "http.url"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- General Attributes ---

const (
	AttrError             = "error"
	AttrErrorType         = "error.type"
	AttrDuration          = "duration"
	AttrStatus            = "status"
	AttrStatusDescription = "status_description"
)

// --- Span Names ---

const (
	// SpanChatGenerate wraps one generation call end to end
	SpanChatGenerate = "aix.chat_generate"

	// SpanLLMRequest is the span name for LLM API requests
	SpanLLMRequest = "llm.request"
)

// --- Event Names ---

const (
	EventRequestPrepared = "aix.request.prepared"
	EventFirstEvent      = "aix.stream.first_event"
	EventTerminated      = "aix.terminated"
)

// --- Metric Names ---

const (
	// MetricGenerations counts finished generations by end reason
	MetricGenerations = "aix_generations_total"

	// MetricParticles counts particles by kind
	MetricParticles = "aix_particles_total"

	// MetricTokens counts tokens by direction
	MetricTokens = "aix_tokens_total" // #nosec G101 -- Not a credential, token refers to LLM tokens

	// MetricTimeToFirstEvent records the delay to the first vendor event in seconds
	MetricTimeToFirstEvent = "aix_time_to_first_event_seconds"

	// MetricGenerationDuration records the whole call duration in seconds
	MetricGenerationDuration = "aix_generation_duration_seconds"
)
