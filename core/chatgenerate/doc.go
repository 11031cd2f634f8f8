// Package chatgenerate runs one chat generation end to end: it lowers the
// request with the vendor adapter for the access dialect, dispatches it,
// feeds every vendor event through the vendor parser and the reassembler,
// and notifies the caller with throttled accumulator snapshots.
//
// Usage:
//
//	acc, err := chatgenerate.Execute(ctx, access, model, req, chatgenerate.Options{
//		Streaming:     true,
//		ThrottleLevel: 1,
//	}, func(acc reassembler.Accumulator, done bool) {
//		render(acc)
//	})
//
// Execute returns an error only when the request could not be prepared. Every
// failure after that (HTTP status, transport, parse, cancellation) ends the
// generation in-band with issue and end particles, so the returned
// accumulator always explains what happened.
package chatgenerate
