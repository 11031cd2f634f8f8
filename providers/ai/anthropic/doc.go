// Package anthropic is the adapter and parser for Anthropic's Messages API.
//
// [Vendor.ToVendorRequest] lowers the canonical request into a messages
// payload: system text becomes system blocks, tool messages become
// tool_result blocks in user turns, documents are sent as native text
// documents and model-authored images move into a synthetic user turn.
// The payload then goes through the package hotfixes and is checked
// against the Messages wire schema.
//
// [Vendor.NewParser] returns a parser for the SSE stream
// (message_start, content_block_*, message_delta, message_stop, error) or
// for a whole response body.
package anthropic
