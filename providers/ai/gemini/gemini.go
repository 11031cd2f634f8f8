package gemini

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/leofalp/aix/providers/ai"
)

const (
	vendorName     = "gemini"
	defaultBaseURL = "https://generativelanguage.googleapis.com"
	apiVersion     = "/v1beta"
)

// Vendor lowers requests to generateContent and parses its responses.
type Vendor struct{}

var _ ai.Vendor = (*Vendor)(nil)

// New returns the Gemini vendor.
func New() *Vendor {
	return &Vendor{}
}

// Name implements [ai.Vendor].
func (v *Vendor) Name() string { return vendorName }

// Dialects implements [ai.Vendor].
func (v *Vendor) Dialects() []ai.Dialect {
	return []ai.Dialect{ai.DialectGemini}
}

// Endpoint implements [ai.Vendor]. Without a prepared request it addresses
// the non-streaming method.
func (v *Vendor) Endpoint(access ai.Access, model ai.ModelParams, req *ai.VendorRequest) (ai.Endpoint, error) {
	if access.APIKey == "" {
		return ai.Endpoint{}, fmt.Errorf("%s: missing API key", vendorName)
	}
	path := methodPath(model.ID, req != nil && req.Streaming)
	if req != nil && req.Path != "" {
		path = req.Path
	}

	headers := map[string]string{"x-goog-api-key": access.APIKey}
	maps.Copy(headers, access.Headers)
	return ai.Endpoint{URL: access.BaseURL(defaultBaseURL) + apiVersion + path, Headers: headers}, nil
}

// NewParser implements [ai.Vendor]. Stream chunks and whole responses share
// a shape and differ only in how text is appended.
func (v *Vendor) NewParser(ctx context.Context, _ ai.Dialect, _ ai.ModelParams, streaming bool) ai.Parser {
	return newParser(ctx, streaming).parse
}

// methodPath returns the path of the generate method for model, accepting
// both "gemini-2.5-pro" and "models/gemini-2.5-pro".
func methodPath(model string, streaming bool) string {
	name := url.PathEscape(strings.TrimPrefix(model, "models/"))
	if streaming {
		return "/models/" + name + ":streamGenerateContent?alt=sse"
	}
	return "/models/" + name + ":generateContent"
}
