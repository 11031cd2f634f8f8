package particle

import (
	"errors"
	"reflect"
	"testing"
)

func TestEmitter_MergesConsecutiveText(t *testing.T) {
	e := NewEmitter()
	e.AppendAutoText("Hel")
	e.AppendAutoText("lo")
	e.AppendReasoningText("think")
	e.AppendReasoningText("ing")
	e.AppendText("!")
	e.AppendAutoText("")

	want := []Particle{TextDelta{Text: "Hello"}, ReasoningDelta{Text: "thinking"}, TextDelta{Text: "!"}}
	if got := e.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
	if got := e.Flush(); got != nil {
		t.Errorf("second flush returned %#v", got)
	}
}

func TestEmitter_NoMergeAcrossFlush(t *testing.T) {
	e := NewEmitter()
	e.AppendAutoText("a")
	e.Flush()
	e.AppendAutoText("b")
	if got := e.Flush(); !reflect.DeepEqual(got, []Particle{TextDelta{Text: "b"}}) {
		t.Errorf("got %#v", got)
	}
}

func TestEmitter_FunctionCallLifecycle(t *testing.T) {
	e := NewEmitter()
	e.AppendAutoText("Let me check.")
	e.StartFunctionCallInvocation("call_1", "get_weather", "")
	if err := e.AppendFunctionCallInvocationArgs("call_1", `{"city":`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := e.AppendFunctionCallInvocationArgs("", `"NYC"}`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e.AppendAutoText("Done")

	want := []Particle{
		TextDelta{Text: "Let me check."},
		FunctionCallStart{ID: "call_1", Name: "get_weather"},
		FunctionCallArgs{Args: `{"city":`},
		FunctionCallArgs{Args: `"NYC"}`},
		TextDelta{Text: "Done"},
	}
	if got := e.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
}

func TestEmitter_ArgsLifecycleErrors(t *testing.T) {
	e := NewEmitter()
	if err := e.AppendFunctionCallInvocationArgs("x", "{}"); !errors.Is(err, ErrPartLifecycle) {
		t.Fatalf("expected ErrPartLifecycle, got %v", err)
	}

	e.StartFunctionCallInvocation("a", "f", "")
	if err := e.AppendFunctionCallInvocationArgs("b", "{}"); !errors.Is(err, ErrPartLifecycle) {
		t.Fatalf("expected ErrPartLifecycle for id mismatch, got %v", err)
	}

	e.EndMessagePart()
	if err := e.AppendFunctionCallInvocationArgs("a", "{}"); !errors.Is(err, ErrPartLifecycle) {
		t.Fatalf("expected ErrPartLifecycle after the part closed, got %v", err)
	}
}

func TestEmitter_FinishReasons(t *testing.T) {
	e := NewEmitter()
	e.AppendAutoText("hi")
	e.UpdateMetrics(Metrics{TIn: 3})
	e.UpdateMetrics(Metrics{TOut: 2})
	e.SetTokenStopReason(StopOK)
	e.Finish()
	e.Finish()

	want := []Particle{
		TextDelta{Text: "hi"},
		SetMetrics{Metrics: Metrics{TIn: 3, TOut: 2}},
		End{Reason: EndDoneDialect, TokenStopReason: StopOK},
	}
	if got := e.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
	if !e.Terminated() {
		t.Error("expected terminated")
	}

	closed := NewEmitter()
	closed.Finish()
	if got := closed.Flush(); !reflect.DeepEqual(got, []Particle{End{Reason: EndDoneDispatchClosed}}) {
		t.Errorf("got %#v", got)
	}
}

func TestEmitter_DialectIssue(t *testing.T) {
	e := NewEmitter()
	e.AppendAutoText("partial")
	e.SetDialectTerminatingIssue("overloaded")
	e.AppendAutoText("ignored")
	e.SetTokenStopReason(StopOK)
	e.Finish()

	want := []Particle{
		TextDelta{Text: "partial"},
		Issue{ID: IssueDialect, Text: "overloaded"},
		End{Reason: EndIssueDialect, TokenStopReason: StopIssue},
	}
	if got := e.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
	if e.TokenStopReason() != StopIssue {
		t.Errorf("got stop reason %q", e.TokenStopReason())
	}
}

func TestEmitter_RPCIssueAndAbort(t *testing.T) {
	e := NewEmitter()
	e.SetRPCTerminatingIssue(IssueDispatchRead, "connection reset", EndIssueRPC)
	want := []Particle{
		Issue{ID: IssueDispatchRead, Text: "connection reset"},
		End{Reason: EndIssueRPC, TokenStopReason: StopIssue},
	}
	if got := e.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}

	aborted := NewEmitter()
	aborted.UpdateMetrics(Metrics{TIn: 1})
	aborted.SetClientAborted()
	aborted.SetClientAborted()
	want = []Particle{
		SetMetrics{Metrics: Metrics{TIn: 1}},
		End{Reason: EndAbortClient, TokenStopReason: StopClientAbort},
	}
	if got := aborted.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
}

func TestEmitter_ModelNameDeduplicated(t *testing.T) {
	e := NewEmitter()
	e.SetModelName("m1")
	e.SetModelName("m1")
	e.SetModelName("")
	e.SetModelName("m2")
	want := []Particle{SetModel{Name: "m1"}, SetModel{Name: "m2"}}
	if got := e.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
}

func TestEmitter_DiscreteParticlesClosePart(t *testing.T) {
	e := NewEmitter()
	e.AppendAutoText("a")
	e.AppendURLCitation(URLCitation{URL: "https://x"})
	e.AppendAutoText("b")
	want := []Particle{TextDelta{Text: "a"}, URLCitation{URL: "https://x"}, TextDelta{Text: "b"}}
	if got := e.Flush(); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v", got)
	}
}
