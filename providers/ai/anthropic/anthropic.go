package anthropic

import (
	"context"
	"fmt"
	"maps"

	"github.com/leofalp/aix/providers/ai"
)

const (
	vendorName = "anthropic"

	// defaultBaseURL is the canonical host of the Messages API.
	defaultBaseURL = "https://api.anthropic.com"

	messagesPath = "/v1/messages"

	// defaultAPIVersion is the anthropic-version header value. Access.APIVersion overrides it.
	defaultAPIVersion = "2023-06-01"
)

// Vendor lowers requests to the Anthropic Messages API and parses its
// responses. Use [New] to build one.
type Vendor struct {
	capabilities Capabilities
}

var _ ai.Vendor = (*Vendor)(nil)

// New returns a Vendor with default capabilities.
func New() *Vendor {
	return &Vendor{}
}

// WithCapabilities replaces the capabilities and returns the vendor so calls
// can be chained.
func (v *Vendor) WithCapabilities(capabilities Capabilities) *Vendor {
	v.capabilities = capabilities
	return v
}

// Name implements [ai.Vendor].
func (v *Vendor) Name() string { return vendorName }

// Dialects implements [ai.Vendor].
func (v *Vendor) Dialects() []ai.Dialect {
	return []ai.Dialect{ai.DialectAnthropic}
}

// Endpoint implements [ai.Vendor]. Authentication uses x-api-key; headers in
// access.Headers are applied last and win over the computed ones.
func (v *Vendor) Endpoint(access ai.Access, _ ai.ModelParams, req *ai.VendorRequest) (ai.Endpoint, error) {
	if access.APIKey == "" {
		return ai.Endpoint{}, fmt.Errorf("%s: missing API key", vendorName)
	}
	path := messagesPath
	if req != nil && req.Path != "" {
		path = req.Path
	}

	version := access.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	headers := map[string]string{
		"x-api-key":         access.APIKey,
		"anthropic-version": version,
	}

	var body *messagesRequest
	if req != nil {
		body, _ = req.Body.(*messagesRequest)
	}
	if beta := v.capabilities.betaHeaderValue(body); beta != "" {
		headers["anthropic-beta"] = beta
	}
	maps.Copy(headers, access.Headers)

	return ai.Endpoint{URL: access.BaseURL(defaultBaseURL) + path, Headers: headers}, nil
}

// NewParser implements [ai.Vendor].
func (v *Vendor) NewParser(ctx context.Context, _ ai.Dialect, _ ai.ModelParams, streaming bool) ai.Parser {
	if streaming {
		return newStreamParser(ctx).parse
	}
	return newWholeParser(ctx).parse
}
