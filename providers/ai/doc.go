// Package ai defines the vendor-agnostic chat-generation request model (the
// IR) shared by every vendor adapter and parser: messages and their content
// parts, tool definitions, the tools policy, model parameters and the
// resolved access for a dialect.
//
// A request flows as
//
//	ChatGenerateRequest -> Vendor.ToVendorRequest -> HTTP -> Parser -> particle stream
//
// Each vendor package (anthropic, openai, gemini, xai) implements [Vendor].
// Adapters read the request and never mutate it; [SplitSystemMessage] returns
// a modified copy when a vendor cannot mix part types in its system slot.
//
// Parts, tool definitions and invocations are closed unions: the interfaces
// carry an unexported marker method and consumers type-switch over the
// concrete types, returning an error from the default branch.
package ai
