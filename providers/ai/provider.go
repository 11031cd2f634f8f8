package ai

import (
	"context"

	"github.com/leofalp/aix/providers/ai/particle"
)

// StreamEvent is one raw vendor event: a decoded SSE event when streaming,
// or the whole response body otherwise. Name is the SSE event field and is
// empty for vendors that only send data lines.
type StreamEvent struct {
	Name string
	Data []byte
	// End marks the data-less event a streaming parser receives once the
	// event stream closes cleanly, so it can release held-back content.
	End bool
}

// Parser lifts one raw vendor event into particles. A parser is created per
// generation call and keeps its own state between events. Returning an error
// ends the generation with a parse issue.
type Parser func(t particle.Transmitter, event StreamEvent) error

// Vendor lowers requests for a family of dialects and parses their responses.
type Vendor interface {
	// Name is the vendor identifier used in errors and logs.
	Name() string

	// Dialects lists the dialects this vendor serves.
	Dialects() []Dialect

	// Endpoint resolves the URL and headers of a call for access.
	Endpoint(access Access, model ModelParams, req *VendorRequest) (Endpoint, error)

	// ToVendorRequest lowers req into a schema-checked vendor payload. It
	// never mutates req. ctx only carries the observer for hotfix logging.
	ToVendorRequest(ctx context.Context, model ModelParams, req *ChatGenerateRequest, streaming bool, opts AdapterOptions) (*VendorRequest, error)

	// NewParser returns a fresh parser for one call on dialect. ctx carries
	// the observer used for fail-soft logging.
	NewParser(ctx context.Context, dialect Dialect, model ModelParams, streaming bool) Parser
}
