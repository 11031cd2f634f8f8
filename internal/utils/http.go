package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leofalp/aix/providers/observability"
)

// maxResponseBodySize is the maximum response body size (10 MB). Enforced via
// io.LimitReader to prevent unbounded memory allocation from rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// StatusError is returned for non-2xx responses. Body holds at most
// maxResponseBodySize bytes of the response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("non-2xx status %d: %s", e.StatusCode, TruncateString(e.Body, 2000))
}

// DoPostSync POSTs body and reads the whole response.
//
// Error Handling Strategy:
//   - Context errors (timeout, cancellation) are propagated wrapped
//   - Non-2xx statuses return a *StatusError carrying the response body
//   - Response body close errors are logged but don't override primary errors
func DoPostSync(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (*http.Response, []byte, error) {
	res, err := doPost(ctx, client, url, body, headers, "application/json")
	if err != nil {
		return res, nil, err
	}
	defer CloseWithLog(res.Body)

	respBody, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
	if err != nil {
		return res, nil, fmt.Errorf("error reading response body: %w", err)
	}
	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("http.response.received",
			observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
			observability.Int(observability.AttrHTTPResponseBodySize, len(respBody)),
		)
	}
	return res, respBody, nil
}

// DoPostStream POSTs body and returns the response with its body left open
// for SSE reading. The caller closes the body. On error paths the body is
// read and closed before returning.
func DoPostStream(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string) (*http.Response, error) {
	return doPost(ctx, client, url, body, headers, "text/event-stream")
}

func doPost(ctx context.Context, client *http.Client, url string, body []byte, headers map[string]string, accept string) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	if span != nil {
		span.AddEvent("http.request.prepared",
			observability.String(observability.AttrHTTPMethod, http.MethodPost),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(body)),
		)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	requestStart := time.Now()
	res, err := httpClient.Do(req)
	requestDuration := time.Since(requestStart)
	if err != nil {
		if span != nil {
			span.AddEvent("http.request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return res, fmt.Errorf("error sending request: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		defer CloseWithLog(res.Body)
		errorBody, readErr := io.ReadAll(io.LimitReader(res.Body, maxResponseBodySize))
		if readErr != nil {
			return res, &StatusError{StatusCode: res.StatusCode, Body: fmt.Sprintf("(failed to read body: %v)", readErr)}
		}
		return res, &StatusError{StatusCode: res.StatusCode, Body: string(errorBody)}
	}

	if span != nil {
		span.AddEvent("http.response.started",
			observability.Int(observability.AttrHTTPStatusCode, res.StatusCode),
			observability.Duration("http.request.duration", requestDuration),
		)
	}
	return res, nil
}

// CloseWithLog closes c and logs, without returning, any close error.
func CloseWithLog(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}
