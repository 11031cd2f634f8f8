package utils

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxSSELineSize is the maximum size of a single SSE line (1 MB).
// The default bufio.Scanner limit is 64 KiB, which is too small for
// large SSE events such as tool-call arguments or inline images.
// Longer lines make Next return a wrapped bufio.ErrTooLong.
const maxSSELineSize = 1 * 1024 * 1024

// SSEEvent is one dispatched Server-Sent Event.
type SSEEvent struct {
	// Name is the "event:" field, empty when the server sends none.
	Name string
	Data string
}

// SSEScanner reads Server-Sent Events (SSE) from an io.Reader.
// It handles multi-line data fields, skips comments and empty lines,
// and detects the [DONE] sentinel used by OpenAI-compatible APIs.
type SSEScanner struct {
	scanner *bufio.Scanner
}

// NewSSEScanner creates an SSEScanner that reads SSE events from the given reader.
func NewSSEScanner(reader io.Reader) *SSEScanner {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineSize)
	return &SSEScanner{scanner: scanner}
}

// Next returns the next event. It returns io.EOF at the end of the stream
// and when the [DONE] sentinel is encountered.
//
// Multi-line data fields (multiple consecutive "data:" lines) are joined
// with newlines into a single payload. An event with a name but no data
// lines is dispatched with empty Data.
func (s *SSEScanner) Next() (SSEEvent, error) {
	var event SSEEvent
	var dataLines []string
	pending := false

	for s.scanner.Scan() {
		line := strings.TrimSuffix(s.scanner.Text(), "\r")

		// Empty line signals end of an event
		if line == "" {
			if pending {
				event.Data = strings.Join(dataLines, "\n")
				return event, nil
			}
			continue
		}

		// Skip SSE comments
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data := strings.TrimSpace(value)
			if data == "[DONE]" {
				return SSEEvent{}, io.EOF
			}
			dataLines = append(dataLines, data)
			pending = true
		case "event":
			event.Name = strings.TrimSpace(value)
			pending = true
		}
		// id: and retry: are ignored
	}

	if err := s.scanner.Err(); err != nil {
		return SSEEvent{}, fmt.Errorf("SSE scanner error: %w", err)
	}

	// Dispatch trailing data when the stream ends without a blank line
	if len(dataLines) > 0 {
		event.Data = strings.Join(dataLines, "\n")
		return event, nil
	}
	return SSEEvent{}, io.EOF
}
