package ai

import (
	"errors"
	"fmt"
)

// ValidationError reports a request the adapter cannot express, or a vendor
// payload that fails the vendor wire schema. It is always returned before any
// network call.
type ValidationError struct {
	Vendor  string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Vendor == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("%s: validation: %s", e.Vendor, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError formats a ValidationError for vendor.
func NewValidationError(vendor, format string, args ...any) *ValidationError {
	return &ValidationError{Vendor: vendor, Message: fmt.Sprintf(format, args...)}
}

// ProtocolViolation reports an event sequence that breaks a parser invariant,
// such as a tool call changing its id mid-stream.
type ProtocolViolation struct {
	Vendor  string
	Message string
}

func (e *ProtocolViolation) Error() string {
	return fmt.Sprintf("%s: protocol violation: %s", e.Vendor, e.Message)
}

// NewProtocolViolation formats a ProtocolViolation for vendor.
func NewProtocolViolation(vendor, format string, args ...any) *ProtocolViolation {
	return &ProtocolViolation{Vendor: vendor, Message: fmt.Sprintf(format, args...)}
}

// DialectIssue is a structured error the vendor reported, either in-band in
// the stream or as a non-2xx response body.
type DialectIssue struct {
	Vendor     string
	StatusCode int
	Message    string
}

func (e *DialectIssue) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream error (%d): %s", e.Vendor, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: upstream error: %s", e.Vendor, e.Message)
}

// TransportOp names the transport phase that failed.
type TransportOp string

const (
	TransportAbort TransportOp = "abort"
	TransportFetch TransportOp = "fetch"
	TransportRead  TransportOp = "read"
)

// TransportFailure wraps cancellation and connection errors. The generation
// loop translates it into particles; it never escapes as a stream error.
type TransportFailure struct {
	Op  TransportOp
	Err error
}

func (e *TransportFailure) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportFailure) Unwrap() error { return e.Err }

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsProtocolViolation reports whether err wraps a *ProtocolViolation.
func IsProtocolViolation(err error) bool {
	var target *ProtocolViolation
	return errors.As(err, &target)
}
