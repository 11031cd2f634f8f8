package chatgenerate

import "context"

// DispatchRecord is the request as it left for the vendor. Credential
// headers are already masked.
type DispatchRecord struct {
	ID      string `json:"id"`
	Vendor  string `json:"vendor"`
	Dialect string `json:"dialect"`
	URL     string `json:"url"`
	Headers string `json:"headers"`
	Body    string `json:"body"`
}

// DebugSink receives one record per dispatched request. When a sink is set
// the request is also echoed into the accumulator as a debug particle.
type DebugSink interface {
	RecordDispatch(ctx context.Context, record DispatchRecord)
}

// DebugFunc adapts a function to DebugSink.
type DebugFunc func(ctx context.Context, record DispatchRecord)

// RecordDispatch calls f.
func (f DebugFunc) RecordDispatch(ctx context.Context, record DispatchRecord) {
	f(ctx, record)
}
