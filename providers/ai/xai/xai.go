package xai

import (
	"context"
	"fmt"
	"maps"

	ws "github.com/leofalp/aix/internal/wireschema"
	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/hotfix"
	"github.com/leofalp/aix/providers/ai/openai"
)

const (
	vendorName     = "xai"
	defaultBaseURL = "https://api.x.ai/v1"
	responsesPath  = "/responses"

	HotfixReasoningNoEffort = "xai-reasoning-no-effort"
)

// noEffortFamilies reason on their own and reject a reasoning config.
var noEffortFamilies = []string{"grok-4", "grok-code"}

var (
	hotfixes   hotfix.Registry[openai.ResponsesRequest]
	wireSchema = ws.MustCompile(vendorName, openai.ResponsesSchema())
)

func init() {
	hotfixes.Register(hotfix.Pass[openai.ResponsesRequest]{
		Name:  HotfixReasoningNoEffort,
		Scope: hotfix.Families(noEffortFamilies...),
		Apply: dropReasoning,
	})
}

// Hotfixes lists the hotfix names of this vendor.
func Hotfixes() []string { return hotfixes.Names() }

func dropReasoning(body *openai.ResponsesRequest) (bool, error) {
	if body.Reasoning == nil {
		return false, nil
	}
	body.Reasoning = nil
	return true, nil
}

// Vendor is the xAI adapter.
type Vendor struct{}

var _ ai.Vendor = (*Vendor)(nil)

// New returns the xAI vendor.
func New() *Vendor {
	return &Vendor{}
}

// Name implements [ai.Vendor].
func (v *Vendor) Name() string { return vendorName }

// Dialects implements [ai.Vendor].
func (v *Vendor) Dialects() []ai.Dialect {
	return []ai.Dialect{ai.DialectXAI}
}

// Endpoint implements [ai.Vendor].
func (v *Vendor) Endpoint(access ai.Access, _ ai.ModelParams, req *ai.VendorRequest) (ai.Endpoint, error) {
	if access.APIKey == "" {
		return ai.Endpoint{}, fmt.Errorf("%s: missing API key", vendorName)
	}
	path := responsesPath
	if req != nil && req.Path != "" {
		path = req.Path
	}
	headers := map[string]string{"Authorization": "Bearer " + access.APIKey}
	maps.Copy(headers, access.Headers)
	return ai.Endpoint{URL: access.BaseURL(defaultBaseURL) + path, Headers: headers}, nil
}

// ToVendorRequest implements [ai.Vendor].
func (v *Vendor) ToVendorRequest(ctx context.Context, model ai.ModelParams, req *ai.ChatGenerateRequest, streaming bool, opts ai.AdapterOptions) (*ai.VendorRequest, error) {
	body, systemSplit, err := openai.LowerResponses(vendorName, model, req, streaming, opts, openai.ResponsesStyle{SystemAsInput: true})
	if err != nil {
		return nil, err
	}

	dialect := opts.Dialect
	if dialect == "" {
		dialect = ai.DialectXAI
	}
	applied, err := hotfixes.Run(ctx, dialect, model.ID, body, opts.DisabledHotfixes)
	if err != nil {
		return nil, &ai.ValidationError{Vendor: vendorName, Message: err.Error(), Err: err}
	}
	if err := wireSchema.Validate(body); err != nil {
		return nil, err
	}

	return &ai.VendorRequest{
		Path:        responsesPath,
		Streaming:   streaming,
		Body:        body,
		SystemSplit: systemSplit,
		Hotfixes:    applied,
	}, nil
}

// NewParser implements [ai.Vendor].
func (v *Vendor) NewParser(ctx context.Context, _ ai.Dialect, _ ai.ModelParams, streaming bool) ai.Parser {
	return openai.NewResponsesParser(ctx, vendorName, streaming)
}
