package ai

import "strings"

// Dialect identifies a vendor API variant. Several dialects share a wire
// shape (all OpenAI-compatible dialects speak Chat Completions) and differ
// only in hotfixes and access.
type Dialect string

const (
	DialectAnthropic       Dialect = "anthropic"
	DialectGemini          Dialect = "gemini"
	DialectOpenAI          Dialect = "openai"
	DialectOpenAIResponses Dialect = "openai-responses"
	DialectAzure           Dialect = "azure"
	DialectDeepseek        Dialect = "deepseek"
	DialectGroq            Dialect = "groq"
	DialectLMStudio        Dialect = "lmstudio"
	DialectLocalAI         Dialect = "localai"
	DialectMistral         Dialect = "mistral"
	DialectOllama          Dialect = "ollama"
	DialectOpenRouter      Dialect = "openrouter"
	DialectPerplexity      Dialect = "perplexity"
	DialectTogetherAI      Dialect = "togetherai"
	DialectXAI             Dialect = "xai"
)

// OpenAICompatibleDialects speak the Chat Completions shape.
var OpenAICompatibleDialects = []Dialect{
	DialectOpenAI, DialectAzure, DialectDeepseek, DialectGroq, DialectLMStudio,
	DialectLocalAI, DialectMistral, DialectOllama, DialectOpenRouter,
	DialectPerplexity, DialectTogetherAI,
}

// Access is the resolved endpoint and credential for one dialect.
type Access struct {
	Dialect Dialect `json:"dialect" yaml:"dialect"`
	// Host overrides the dialect default base URL (scheme optional).
	Host   string `json:"host,omitempty" yaml:"host,omitempty"`
	APIKey string `json:"-" yaml:"api_key,omitempty"`
	// APIVersion is the Azure api-version query parameter.
	APIVersion string `json:"apiVersion,omitempty" yaml:"api_version,omitempty"`
	// OrgID is sent as OpenAI-Organization.
	OrgID   string            `json:"orgId,omitempty" yaml:"org_id,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// BaseURL returns Host normalised to an absolute URL without a trailing
// slash, or fallback when Host is empty.
func (a Access) BaseURL(fallback string) string {
	host := strings.TrimRight(strings.TrimSpace(a.Host), "/")
	if host == "" {
		return fallback
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host
}

// Endpoint is the URL and headers of a vendor call.
type Endpoint struct {
	URL     string
	Headers map[string]string
}

// ModelFamily strips vendor routing prefixes ("openai/gpt-4o", "models/gemini-2.5-pro")
// and lowercases the id so that family matching is uniform across dialects.
func ModelFamily(modelID string) string {
	id := strings.ToLower(strings.TrimSpace(modelID))
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

// HasFamily reports whether modelID belongs to any of the given families.
// A family matches the whole id or a prefix followed by '-' or '.'.
func HasFamily(modelID string, families ...string) bool {
	id := ModelFamily(modelID)
	for _, family := range families {
		if id == family {
			return true
		}
		if strings.HasPrefix(id, family) && len(id) > len(family) {
			switch id[len(family)] {
			case '-', '.', ':':
				return true
			}
		}
	}
	return false
}
