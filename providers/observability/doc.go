// Package observability defines the interfaces and semantic conventions used
// for tracing, metrics and structured logging throughout aix.
//
// The central entry point is [Provider], which composes [Tracer], [Metrics],
// and [Logger] into a single injectable dependency. Callers attach a Provider
// to a [context.Context] with [ContextWithObserver]; code deep in the parsers
// retrieves it with [ObserverFromContext], which falls back to [Nop].
//
// Backends live in sub-packages: slogobs logs through log/slog, promobs
// exports metrics to Prometheus.
package observability
