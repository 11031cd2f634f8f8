package anthropic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/particle"
)

// writeSSE writes one typed SSE event and flushes it to the client.
func writeSSE(w http.ResponseWriter, eventType, data string) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func event(name, data string) ai.StreamEvent {
	return ai.StreamEvent{Name: name, Data: []byte(data)}
}

// run feeds events through a fresh parser and finishes the emitter.
func run(t *testing.T, streaming bool, events ...ai.StreamEvent) ([]particle.Particle, error) {
	t.Helper()
	parse := New().NewParser(context.Background(), ai.DialectAnthropic, ai.ModelParams{ID: testModel}, streaming)
	emitter := particle.NewEmitter()
	for _, ev := range events {
		if err := parse(emitter, ev); err != nil {
			return emitter.Flush(), err
		}
	}
	emitter.Finish()
	return emitter.Flush(), nil
}

func textOf(particles []particle.Particle) (text, reasoning string) {
	for _, p := range particles {
		switch v := p.(type) {
		case particle.TextDelta:
			text += v.Text
		case particle.ReasoningDelta:
			reasoning += v.Text
		}
	}
	return text, reasoning
}

func endOf(t *testing.T, particles []particle.Particle) particle.End {
	t.Helper()
	if len(particles) == 0 {
		t.Fatal("no particles")
	}
	end, ok := particles[len(particles)-1].(particle.End)
	if !ok {
		t.Fatalf("last particle is %T, want End", particles[len(particles)-1])
	}
	return end
}

func metricsOf(particles []particle.Particle) (particle.Metrics, bool) {
	for _, p := range particles {
		if m, ok := p.(particle.SetMetrics); ok {
			return m.Metrics, true
		}
	}
	return particle.Metrics{}, false
}

var textStream = []ai.StreamEvent{
	event("message_start", `{"type":"message_start","message":{"id":"msg_1","type":"message","role":"assistant","content":[],"model":"claude-sonnet-4-5-20250929","stop_reason":null,"usage":{"input_tokens":25,"output_tokens":1,"cache_read_input_tokens":10,"cache_creation_input_tokens":5}}}`),
	event("ping", `{"type":"ping"}`),
	event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
	event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hello"}}`),
	event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":" world"}}`),
	event("content_block_stop", `{"type":"content_block_stop","index":0}`),
	event("message_delta", `{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":5}}`),
	event("message_stop", `{"type":"message_stop"}`),
}

func TestStreamParser_Text(t *testing.T) {
	particles, err := run(t, true, textStream...)
	if err != nil {
		t.Fatal(err)
	}
	if model, ok := particles[0].(particle.SetModel); !ok || model.Name != "claude-sonnet-4-5-20250929" {
		t.Errorf("first particle %+v, want the model name", particles[0])
	}
	if text, _ := textOf(particles); text != "Hello world" {
		t.Errorf("got text %q", text)
	}
	m, ok := metricsOf(particles)
	if !ok {
		t.Fatal("no metrics particle")
	}
	if m.TIn != 25 || m.TCacheRead != 10 || m.TCacheWrite != 5 || m.TOut != 5 {
		t.Errorf("got metrics %+v", m)
	}
	end := endOf(t, particles)
	if end.Reason != particle.EndDoneDialect || end.TokenStopReason != particle.StopOK {
		t.Errorf("got end %+v", end)
	}
}

func TestStreamParser_OverSSE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, ev := range textStream {
			writeSSE(w, ev.Name, string(ev.Data))
		}
	}))
	defer server.Close()

	res, err := utils.DoPostStream(context.Background(), server.Client(), server.URL, []byte(`{}`), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer utils.CloseWithLog(res.Body)

	var events []ai.StreamEvent
	scanner := utils.NewSSEScanner(res.Body)
	for {
		sse, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		events = append(events, event(sse.Name, sse.Data))
	}
	if len(events) != len(textStream) {
		t.Fatalf("got %d events, want %d", len(events), len(textStream))
	}

	particles, err := run(t, true, events...)
	if err != nil {
		t.Fatal(err)
	}
	if text, _ := textOf(particles); text != "Hello world" {
		t.Errorf("got text %q", text)
	}
}

func TestStreamParser_ToolUseAndThinking(t *testing.T) {
	particles, err := run(t, true,
		event("message_start", `{"type":"message_start","message":{"type":"message","model":"claude-sonnet-4-5","usage":{"input_tokens":40}}}`),
		event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"thinking","thinking":""}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"thinking_delta","thinking":"Need weather."}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"signature_delta","signature":"sig"}}`),
		event("content_block_stop", `{"type":"content_block_stop","index":0}`),
		event("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{}}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"{\"city\":"}}`),
		event("content_block_delta", `{"type":"content_block_delta","index":1,"delta":{"type":"input_json_delta","partial_json":"\"Paris\"}"}}`),
		event("content_block_stop", `{"type":"content_block_stop","index":1}`),
		event("message_delta", `{"type":"message_delta","delta":{"stop_reason":"tool_use"},"usage":{"output_tokens":30}}`),
		event("message_stop", `{"type":"message_stop"}`),
	)
	if err != nil {
		t.Fatal(err)
	}

	if _, reasoning := textOf(particles); reasoning != "Need weather." {
		t.Errorf("got reasoning %q", reasoning)
	}
	var start particle.FunctionCallStart
	var args string
	for _, p := range particles {
		switch v := p.(type) {
		case particle.FunctionCallStart:
			start = v
		case particle.FunctionCallArgs:
			args += v.Args
		}
	}
	if start.ID != "toolu_1" || start.Name != "get_weather" || start.Args != "" {
		t.Errorf("got start %+v", start)
	}
	if args != `{"city":"Paris"}` {
		t.Errorf("got args %q", args)
	}
	if end := endOf(t, particles); end.TokenStopReason != particle.StopOKToolInvocations {
		t.Errorf("got end %+v", end)
	}
}

func TestStreamParser_ProtocolViolations(t *testing.T) {
	start := event("message_start", `{"type":"message_start","message":{"type":"message","model":"m"}}`)
	textBlock := event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`)

	tests := []struct {
		name   string
		events []ai.StreamEvent
	}{
		{name: "block index skipped", events: []ai.StreamEvent{start,
			event("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"text"}}`)}},
		{name: "block started while open", events: []ai.StreamEvent{start, textBlock,
			event("content_block_start", `{"type":"content_block_start","index":1,"content_block":{"type":"text"}}`)}},
		{name: "delta for unknown block", events: []ai.StreamEvent{start,
			event("content_block_delta", `{"type":"content_block_delta","index":3,"delta":{"type":"text_delta","text":"x"}}`)}},
		{name: "delta kind mismatch", events: []ai.StreamEvent{start, textBlock,
			event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"input_json_delta","partial_json":"{"}}`)}},
		{name: "delta after stop", events: []ai.StreamEvent{start, textBlock,
			event("content_block_stop", `{"type":"content_block_stop","index":0}`),
			event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"x"}}`)}},
		{name: "tool use without id", events: []ai.StreamEvent{start,
			event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"tool_use","name":"f"}}`)}},
		{name: "message start without message", events: []ai.StreamEvent{event("message_start", `{"type":"message_start"}`)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, true, tt.events...)
			if !ai.IsProtocolViolation(err) {
				t.Fatalf("expected ProtocolViolation, got %v", err)
			}
		})
	}
}

func TestStreamParser_MalformedJSON(t *testing.T) {
	_, err := run(t, true, event("content_block_delta", `{"type":`))
	if err == nil || ai.IsProtocolViolation(err) {
		t.Fatalf("expected a decode error, got %v", err)
	}
}

func TestStreamParser_ErrorEvent(t *testing.T) {
	particles, err := run(t, true,
		event("message_start", `{"type":"message_start","message":{"type":"message","model":"m"}}`),
		event("error", `{"type":"error","error":{"type":"overloaded_error","message":"Overloaded"}}`),
	)
	if err != nil {
		t.Fatal(err)
	}
	var issue particle.Issue
	for _, p := range particles {
		if v, ok := p.(particle.Issue); ok {
			issue = v
		}
	}
	if issue.ID != particle.IssueDialect || issue.Text != "overloaded_error: Overloaded" {
		t.Errorf("got issue %+v", issue)
	}
	if end := endOf(t, particles); end.Reason != particle.EndIssueDialect {
		t.Errorf("got end %+v", end)
	}
}

func TestStreamParser_UnknownStopReasonAndEvent(t *testing.T) {
	particles, err := run(t, true,
		event("message_start", `{"type":"message_start","message":{"type":"message","model":"m"}}`),
		event("future_event", `{"type":"future_event"}`),
		event("message_delta", `{"type":"message_delta","delta":{"stop_reason":"model_context_window_exceeded"}}`),
	)
	if err != nil {
		t.Fatal(err)
	}
	// An unknown reason carries no information: the stream just closes.
	if end := endOf(t, particles); end.Reason != particle.EndDoneDispatchClosed || end.TokenStopReason != "" {
		t.Errorf("got end %+v", end)
	}
}

func TestStreamParser_CitationsDeduplicated(t *testing.T) {
	cite := `{"type":"content_block_delta","index":0,"delta":{"type":"citations_delta","citation":{"type":"web_search_result_location","url":"https://example.com/a","title":"A","cited_text":"x"}}}`
	particles, err := run(t, true,
		event("message_start", `{"type":"message_start","message":{"type":"message","model":"m"}}`),
		event("content_block_start", `{"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}`),
		event("content_block_delta", cite),
		event("content_block_delta", cite),
		event("content_block_delta", `{"type":"content_block_delta","index":0,"delta":{"type":"citations_delta","citation":{"type":"web_search_result_location","url":"https://example.com/b","title":"B"}}}`),
	)
	if err != nil {
		t.Fatal(err)
	}
	var citations []particle.URLCitation
	for _, p := range particles {
		if c, ok := p.(particle.URLCitation); ok {
			citations = append(citations, c)
		}
	}
	if len(citations) != 2 || citations[0].Num != 1 || citations[1].Num != 2 || citations[1].URL != "https://example.com/b" {
		t.Errorf("got citations %+v", citations)
	}
}

func TestWholeParser(t *testing.T) {
	body := `{"id":"msg_1","type":"message","role":"assistant","model":"claude-sonnet-4-5",
		"content":[
			{"type":"thinking","thinking":"hmm","signature":"s"},
			{"type":"text","text":"Let me check."},
			{"type":"tool_use","id":"toolu_1","name":"get_weather","input":{"city":"Paris"}}
		],
		"stop_reason":"tool_use",
		"usage":{"input_tokens":12,"output_tokens":20}}`
	particles, err := run(t, false, event("", body))
	if err != nil {
		t.Fatal(err)
	}
	text, reasoning := textOf(particles)
	if text != "Let me check." || reasoning != "hmm" {
		t.Errorf("got text %q reasoning %q", text, reasoning)
	}
	var start particle.FunctionCallStart
	for _, p := range particles {
		if v, ok := p.(particle.FunctionCallStart); ok {
			start = v
		}
	}
	if start.ID != "toolu_1" || start.Args != `{"city":"Paris"}` {
		t.Errorf("got start %+v", start)
	}
	if m, _ := metricsOf(particles); m.TIn != 12 || m.TOut != 20 {
		t.Errorf("got metrics %+v", m)
	}
	if end := endOf(t, particles); end.TokenStopReason != particle.StopOKToolInvocations {
		t.Errorf("got end %+v", end)
	}
}

func TestWholeParser_ErrorEnvelope(t *testing.T) {
	particles, err := run(t, false, event("", `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: too large"}}`))
	if err != nil {
		t.Fatal(err)
	}
	end := endOf(t, particles)
	if end.Reason != particle.EndIssueDialect || end.TokenStopReason != particle.StopIssue {
		t.Errorf("got end %+v", end)
	}
	found := false
	for _, p := range particles {
		if issue, ok := p.(particle.Issue); ok && strings.Contains(issue.Text, "max_tokens: too large") {
			found = true
		}
	}
	if !found {
		t.Error("issue text missing")
	}
}

func TestWholeParser_UnexpectedShape(t *testing.T) {
	_, err := run(t, false, event("", `{"type":"completion"}`))
	if !ai.IsProtocolViolation(err) {
		t.Fatalf("expected ProtocolViolation, got %v", err)
	}
}
