package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leofalp/aix/internal/utils"
	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/particle"
)

func writeSSE(w http.ResponseWriter, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

func run(t *testing.T, streaming bool, payloads ...string) ([]particle.Particle, error) {
	t.Helper()
	parse := New().NewParser(context.Background(), ai.DialectGemini, ai.ModelParams{ID: testModel}, streaming)
	emitter := particle.NewEmitter()
	for _, p := range payloads {
		if err := parse(emitter, ai.StreamEvent{Data: []byte(p)}); err != nil {
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
	require.NotEmpty(t, particles)
	end, ok := particles[len(particles)-1].(particle.End)
	require.Truef(t, ok, "last particle is %T, want End", particles[len(particles)-1])
	return end
}

func ofType[T particle.Particle](particles []particle.Particle) []T {
	var out []T
	for _, p := range particles {
		if v, ok := p.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

var textStream = []string{
	`{"candidates":[{"content":{"role":"model","parts":[{"text":"Let me think.","thought":true}]},"index":0}],"modelVersion":"gemini-2.5-flash"}`,
	`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hel"}]},"index":0}],"modelVersion":"gemini-2.5-flash"}`,
	`{"candidates":[{"content":{"role":"model","parts":[{"text":"lo"}]},"finishReason":"STOP","index":0}],` +
		`"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"thoughtsTokenCount":3,"cachedContentTokenCount":4,"totalTokenCount":18},"modelVersion":"gemini-2.5-flash"}`,
}

func TestParser_TextStream(t *testing.T) {
	particles, err := run(t, true, textStream...)
	require.NoError(t, err)

	text, reasoning := textOf(particles)
	assert.Equal(t, "Hello", text)
	assert.Equal(t, "Let me think.", reasoning)

	models := ofType[particle.SetModel](particles)
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-2.5-flash", models[0].Name)

	metrics := ofType[particle.SetMetrics](particles)
	require.Len(t, metrics, 1)
	m := metrics[0].Metrics
	assert.Equal(t, 6, m.TIn)
	assert.Equal(t, 4, m.TCacheRead)
	assert.Equal(t, 8, m.TOut)
	assert.Equal(t, 3, m.TOutR)

	assert.Equal(t, particle.End{Reason: particle.EndDoneDialect, TokenStopReason: particle.StopOK}, endOf(t, particles))
}

func TestParser_OverSSE(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, chunk := range textStream {
			writeSSE(w, chunk)
		}
	}))
	defer server.Close()

	res, err := utils.DoPostStream(context.Background(), server.Client(), server.URL, []byte(`{}`), nil)
	require.NoError(t, err)
	defer utils.CloseWithLog(res.Body)

	var payloads []string
	scanner := utils.NewSSEScanner(res.Body)
	for {
		ev, err := scanner.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		payloads = append(payloads, ev.Data)
	}
	require.Len(t, payloads, len(textStream))

	particles, err := run(t, true, payloads...)
	require.NoError(t, err)
	text, _ := textOf(particles)
	assert.Equal(t, "Hello", text)
}

func TestParser_FunctionCall(t *testing.T) {
	particles, err := run(t, true,
		`{"candidates":[{"content":{"role":"model","parts":[{"functionCall":{"name":"get_weather","args":{"city":"Paris"}}},{"functionCall":{"id":"fc_2","name":"get_time"}}]},"finishReason":"STOP","index":0}]}`,
	)
	require.NoError(t, err)

	calls := ofType[particle.FunctionCallStart](particles)
	require.Len(t, calls, 2)
	assert.NotEmpty(t, calls[0].ID, "missing ids are generated")
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"city":"Paris"}`, calls[0].Args)
	assert.Equal(t, particle.FunctionCallStart{ID: "fc_2", Name: "get_time", Args: "{}"}, calls[1])
	assert.Equal(t, particle.StopOKToolInvocations, endOf(t, particles).TokenStopReason)
}

func TestParser_CodeExecution(t *testing.T) {
	particles, err := run(t, true,
		`{"candidates":[{"content":{"role":"model","parts":[{"executableCode":{"language":"PYTHON","code":"print(1+1)"}}]},"index":0}]}`,
		`{"candidates":[{"content":{"role":"model","parts":[{"codeExecutionResult":{"outcome":"OUTCOME_OK","output":"2\n"}}]},"index":0}]}`,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"It is 2."}]},"finishReason":"STOP","index":0}]}`,
	)
	require.NoError(t, err)

	invocations := ofType[particle.CodeExecutionInvocation](particles)
	responses := ofType[particle.CodeExecutionResponse](particles)
	require.Len(t, invocations, 1)
	require.Len(t, responses, 1)
	assert.Equal(t, "python", invocations[0].Language)
	assert.Equal(t, "print(1+1)", invocations[0].Code)
	assert.Equal(t, invocations[0].ID, responses[0].ID)
	assert.False(t, responses[0].IsError)
	assert.Equal(t, "2\n", responses[0].Result)
	assert.Equal(t, particle.StopOK, endOf(t, particles).TokenStopReason)
}

func TestParser_CodeResultWithoutCode(t *testing.T) {
	_, err := run(t, true,
		`{"candidates":[{"content":{"role":"model","parts":[{"codeExecutionResult":{"outcome":"OUTCOME_FAILED"}}]},"index":0}]}`,
	)
	assert.True(t, ai.IsProtocolViolation(err), "got %v", err)
}

func TestParser_FinishReasons(t *testing.T) {
	tests := []struct {
		reason string
		want   particle.End
	}{
		{"MAX_TOKENS", particle.End{Reason: particle.EndDoneDialect, TokenStopReason: particle.StopOutOfTokens}},
		{"SAFETY", particle.End{Reason: particle.EndDoneDialect, TokenStopReason: particle.StopFilterContent}},
		{"RECITATION", particle.End{Reason: particle.EndDoneDialect, TokenStopReason: particle.StopFilterRecitation}},
		{"MALFORMED_FUNCTION_CALL", particle.End{Reason: particle.EndIssueDialect, TokenStopReason: particle.StopIssue}},
		{"SOMETHING_NEW", particle.End{Reason: particle.EndDoneDispatchClosed}},
	}
	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			particles, err := run(t, true,
				`{"candidates":[{"content":{"role":"model","parts":[{"text":"x"}]},"finishReason":"`+tt.reason+`","index":0}]}`,
			)
			require.NoError(t, err)
			assert.Equal(t, tt.want, endOf(t, particles))
		})
	}
}

func TestParser_ErrorEnvelope(t *testing.T) {
	particles, err := run(t, true,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"partial"}]},"index":0}]}`,
		`{"error":{"code":503,"message":"The model is overloaded.","status":"UNAVAILABLE"}}`,
	)
	require.NoError(t, err)

	issues := ofType[particle.Issue](particles)
	require.Len(t, issues, 1)
	assert.Equal(t, particle.IssueDialect, issues[0].ID)
	assert.Equal(t, "UNAVAILABLE: The model is overloaded.", issues[0].Text)
	assert.Equal(t, particle.EndIssueDialect, endOf(t, particles).Reason)
}

func TestParser_PromptBlocked(t *testing.T) {
	particles, err := run(t, false, `{"promptFeedback":{"blockReason":"SAFETY"},"usageMetadata":{"promptTokenCount":7}}`)
	require.NoError(t, err)

	text, _ := textOf(particles)
	assert.Contains(t, text, "SAFETY")
	assert.Equal(t, particle.StopFilterContent, endOf(t, particles).TokenStopReason)
}

func TestParser_MultipleCandidates(t *testing.T) {
	_, err := run(t, false, `{"candidates":[{"index":0},{"index":1}]}`)
	assert.True(t, ai.IsProtocolViolation(err), "got %v", err)
}

func TestParser_GroundingCitations(t *testing.T) {
	particles, err := run(t, true,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Paris is sunny."}]},"index":0,`+
			`"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://a.example","title":"A"}},{"web":{"uri":"https://b.example","title":"B"}}]}}]}`,
		`{"candidates":[{"finishReason":"STOP","index":0,`+
			`"groundingMetadata":{"groundingChunks":[{"web":{"uri":"https://a.example","title":"A"}}]}}]}`,
	)
	require.NoError(t, err)

	citations := ofType[particle.URLCitation](particles)
	require.Len(t, citations, 2)
	assert.Equal(t, "https://a.example", citations[0].URL)
	assert.Equal(t, 1, citations[0].Num)
	assert.Equal(t, 2, citations[1].Num)
}

func TestParser_WholeResponse(t *testing.T) {
	particles, err := run(t, false,
		`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"there"},{"inlineData":{"mimeType":"audio/wav","data":"UklGRg=="}}]},"finishReason":"STOP","index":0}],`+
			`"usageMetadata":{"promptTokenCount":3,"candidatesTokenCount":2},"modelVersion":"gemini-2.5-flash"}`,
	)
	require.NoError(t, err)

	text, _ := textOf(particles)
	assert.Equal(t, "Hello there", text)
	audio := ofType[particle.InlineAudio](particles)
	require.Len(t, audio, 1)
	assert.Equal(t, "audio/wav", audio[0].MimeType)
	metrics := ofType[particle.SetMetrics](particles)
	require.Len(t, metrics, 1)
	assert.Equal(t, 3, metrics[0].Metrics.TIn)
	assert.Equal(t, particle.End{Reason: particle.EndDoneDialect, TokenStopReason: particle.StopOK}, endOf(t, particles))
}

func TestParser_MalformedJSON(t *testing.T) {
	_, err := run(t, true, `{"candidates":`)
	assert.Error(t, err)
}
