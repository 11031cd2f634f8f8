// Package slogobs provides an observability.Provider backed by log/slog.
// Console output is rendered by github.com/lmittmann/tint; text and JSON
// formats use the standard slog handlers. The entry point is [New], tuned
// with [WithFormat], [WithLevel], [WithOutput], [WithColors] and [WithLogger].
package slogobs
