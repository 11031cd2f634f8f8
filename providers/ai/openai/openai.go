package openai

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"slices"

	"github.com/leofalp/aix/providers/ai"
)

const (
	chatVendorName      = "openai"
	responsesVendorName = "openai-responses"

	chatPath      = "/chat/completions"
	responsesPath = "/responses"

	// defaultAzureAPIVersion is the api-version query parameter used when
	// Access.APIVersion is empty.
	defaultAzureAPIVersion = "2024-10-21"
)

// ChatVendor lowers requests to Chat Completions for every OpenAI-compatible
// dialect. Dialect differences live in the hotfix registry and in
// [Capabilities].
type ChatVendor struct{}

var _ ai.Vendor = (*ChatVendor)(nil)

// NewChat returns the Chat Completions vendor.
func NewChat() *ChatVendor {
	return &ChatVendor{}
}

// Name implements [ai.Vendor].
func (v *ChatVendor) Name() string { return chatVendorName }

// Dialects implements [ai.Vendor].
func (v *ChatVendor) Dialects() []ai.Dialect {
	return slices.Clone(ai.OpenAICompatibleDialects)
}

// Endpoint implements [ai.Vendor]. Azure addresses the model as a
// deployment and authenticates with api-key; every other dialect uses a
// bearer token.
func (v *ChatVendor) Endpoint(access ai.Access, model ai.ModelParams, req *ai.VendorRequest) (ai.Endpoint, error) {
	path := chatPath
	if req != nil && req.Path != "" {
		path = req.Path
	}
	return endpoint(chatVendorName, access, model, path)
}

// NewParser implements [ai.Vendor]. Inline <think> spans are split into
// reasoning only for hosts that serve open reasoning models that way.
func (v *ChatVendor) NewParser(ctx context.Context, dialect ai.Dialect, _ ai.ModelParams, streaming bool) ai.Parser {
	splitThink := slices.Contains(thinkTagDialects, dialect)
	if streaming {
		return newChatStreamParser(ctx, splitThink).parse
	}
	return newChatWholeParser(ctx, splitThink).parse
}

// ResponsesVendor lowers requests to the OpenAI Responses API.
type ResponsesVendor struct{}

var _ ai.Vendor = (*ResponsesVendor)(nil)

// NewResponses returns the Responses vendor.
func NewResponses() *ResponsesVendor {
	return &ResponsesVendor{}
}

// Name implements [ai.Vendor].
func (v *ResponsesVendor) Name() string { return responsesVendorName }

// Dialects implements [ai.Vendor].
func (v *ResponsesVendor) Dialects() []ai.Dialect {
	return []ai.Dialect{ai.DialectOpenAIResponses}
}

// Endpoint implements [ai.Vendor]. It shares the OpenAI host and credentials.
func (v *ResponsesVendor) Endpoint(access ai.Access, model ai.ModelParams, req *ai.VendorRequest) (ai.Endpoint, error) {
	access.Dialect = ai.DialectOpenAI
	path := responsesPath
	if req != nil && req.Path != "" {
		path = req.Path
	}
	return endpoint(responsesVendorName, access, model, path)
}

// NewParser implements [ai.Vendor].
func (v *ResponsesVendor) NewParser(ctx context.Context, _ ai.Dialect, _ ai.ModelParams, streaming bool) ai.Parser {
	return NewResponsesParser(ctx, responsesVendorName, streaming)
}

func endpoint(vendor string, access ai.Access, model ai.ModelParams, path string) (ai.Endpoint, error) {
	if access.Dialect == "" {
		access.Dialect = ai.DialectOpenAI
	}
	caps, ok := CapabilitiesFor(access.Dialect)
	if !ok {
		return ai.Endpoint{}, fmt.Errorf("%s: dialect %q is not OpenAI-compatible", vendor, access.Dialect)
	}
	if caps.RequiresKey && access.APIKey == "" {
		return ai.Endpoint{}, fmt.Errorf("%s: missing API key for %s", vendor, access.Dialect)
	}
	if caps.RequiresHost && access.Host == "" {
		return ai.Endpoint{}, fmt.Errorf("%s: %s needs a host", vendor, access.Dialect)
	}

	headers := map[string]string{}
	base := access.BaseURL(caps.Host) + caps.PathPrefix
	target := base + path

	if access.Dialect == ai.DialectAzure {
		version := access.APIVersion
		if version == "" {
			version = defaultAzureAPIVersion
		}
		target = fmt.Sprintf("%s/openai/deployments/%s%s?api-version=%s",
			base, url.PathEscape(model.ID), path, url.QueryEscape(version))
		headers["api-key"] = access.APIKey
	} else if access.APIKey != "" {
		headers["Authorization"] = "Bearer " + access.APIKey
	}
	if access.OrgID != "" && access.Dialect == ai.DialectOpenAI {
		headers["OpenAI-Organization"] = access.OrgID
	}
	maps.Copy(headers, access.Headers)

	return ai.Endpoint{URL: target, Headers: headers}, nil
}
