package particle

import (
	"reflect"
	"testing"
)

func intPtr(v int) *int { return &v }

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   Particle
		want string
	}{
		{"text", TextDelta{Text: "Hi"}, `{"t":"Hi"}`},
		{"empty text keeps key", TextDelta{}, `{"t":""}`},
		{"reasoning", ReasoningDelta{Text: "hmm"}, `{"p":"tr_","_t":"hmm"}`},
		{"function start", FunctionCallStart{ID: "c1", Name: "get_weather"}, `{"p":"fci","id":"c1","name":"get_weather"}`},
		{"function start with args", FunctionCallStart{ID: "c1", Name: "f", Args: `{}`}, `{"p":"fci","id":"c1","name":"f","i_args":"{}"}`},
		{"function args", FunctionCallArgs{Args: `{"a"`}, `{"p":"_fci","_args":"{\"a\""}`},
		{"code invocation", CodeExecutionInvocation{ID: "x", Language: "python", Code: "1", Author: "gemini_auto_inline"}, `{"p":"cei","id":"x","language":"python","code":"1","author":"gemini_auto_inline"}`},
		{"code response", CodeExecutionResponse{ID: "x", IsError: true, Result: "boom", Executor: "gemini_auto_inline"}, `{"p":"cer","id":"x","error":true,"result":"boom","executor":"gemini_auto_inline"}`},
		{"citation", URLCitation{Title: "T", URL: "https://a", Num: 1, From: intPtr(0), To: intPtr(4)}, `{"p":"urlc","title":"T","url":"https://a","num":1,"from":0,"to":4}`},
		{"audio", InlineAudio{MimeType: "audio/wav", Base64: "UklG", DurationMs: 300}, `{"p":"ia","mimeType":"audio/wav","a_b64":"UklG","durationMs":300}`},
		{"end", End{Reason: EndDoneDialect, TokenStopReason: StopOK}, `{"cg":"end","reason":"done-dialect","tokenStopReason":"ok"}`},
		{"issue", Issue{ID: IssueDialect, Text: "overloaded"}, `{"cg":"issue","issueId":"dialect-issue","issueText":"overloaded"}`},
		{"metrics", SetMetrics{Metrics: Metrics{TIn: 10, TOut: 5}}, `{"cg":"set-metrics","metrics":{"TIn":10,"TOut":5}}`},
		{"model", SetModel{Name: "gpt-4o-2024"}, `{"cg":"set-model","name":"gpt-4o-2024"}`},
		{"dispatch", DebugDispatchRequest{URL: "u", Headers: "h", Body: "b"}, `{"cg":"_debugDispatchRequest","dispatchRequest":{"url":"u","headers":"h","body":"b"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("got  %s\nwant %s", got, tt.want)
			}
			decoded, err := Decode(got)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(decoded, tt.in) {
				t.Errorf("decoded %#v, want %#v", decoded, tt.in)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, input := range []string{
		`{}`,
		`{"p":"zz"}`,
		`{"cg":"zz"}`,
		`{"p":"tr_"}`,
		`{"p":"fci","id":"a"}`,
		`{"cg":"_debugDispatchRequest"}`,
		`not json`,
	} {
		if _, err := Decode([]byte(input)); err == nil {
			t.Errorf("Decode(%s): expected error", input)
		}
	}
}
