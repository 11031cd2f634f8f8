package openai

import "github.com/leofalp/aix/providers/ai"

// Capabilities describes how to reach one OpenAI-compatible dialect. They
// are looked up by dialect with [CapabilitiesFor]; a custom host only
// changes Host, never the path layout.
type Capabilities struct {
	// Host is the default scheme and host, used when Access.Host is empty.
	Host string
	// PathPrefix sits between the host and the endpoint path ("/v1").
	PathPrefix string
	// RequiresKey is false for local servers that accept anonymous calls.
	RequiresKey bool
	// RequiresHost is true when there is no usable default host (Azure).
	RequiresHost bool
}

var dialectCapabilities = map[ai.Dialect]Capabilities{
	ai.DialectOpenAI:     {Host: "https://api.openai.com", PathPrefix: "/v1", RequiresKey: true},
	ai.DialectAzure:      {RequiresKey: true, RequiresHost: true},
	ai.DialectDeepseek:   {Host: "https://api.deepseek.com", PathPrefix: "/v1", RequiresKey: true},
	ai.DialectGroq:       {Host: "https://api.groq.com", PathPrefix: "/openai/v1", RequiresKey: true},
	ai.DialectLMStudio:   {Host: "http://localhost:1234", PathPrefix: "/v1"},
	ai.DialectLocalAI:    {Host: "http://localhost:8080", PathPrefix: "/v1"},
	ai.DialectMistral:    {Host: "https://api.mistral.ai", PathPrefix: "/v1", RequiresKey: true},
	ai.DialectOllama:     {Host: "http://localhost:11434", PathPrefix: "/v1"},
	ai.DialectOpenRouter: {Host: "https://openrouter.ai", PathPrefix: "/api/v1", RequiresKey: true},
	ai.DialectPerplexity: {Host: "https://api.perplexity.ai", RequiresKey: true},
	ai.DialectTogetherAI: {Host: "https://api.together.xyz", PathPrefix: "/v1", RequiresKey: true},
}

// CapabilitiesFor returns the capabilities of dialect and whether it is an
// OpenAI-compatible dialect.
func CapabilitiesFor(dialect ai.Dialect) (Capabilities, bool) {
	c, ok := dialectCapabilities[dialect]
	return c, ok
}

// reasoningFamilies are the OpenAI model families with reasoning semantics:
// developer messages, max_completion_tokens and no sampling parameters.
var reasoningFamilies = []string{"o1", "o3", "o4", "gpt-5"}

// IsReasoningModel reports whether modelID belongs to a reasoning family.
func IsReasoningModel(modelID string) bool {
	return ai.HasFamily(modelID, reasoningFamilies...)
}
