// Package utils provides low-level helpers shared by the generation loop and
// the CLI: JSON POST helpers for whole and streaming (SSE) responses, the SSE
// event scanner, header redaction for request echoes, and small pointer and
// string utilities.
//
// Key entry points: [DoPostSync], [DoPostStream] together with [SSEScanner],
// [RedactHeaders] and [Ptr].
package utils
