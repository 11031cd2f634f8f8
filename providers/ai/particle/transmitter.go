package particle

import (
	"errors"
	"fmt"
)

// Transmitter is the interface vendor parsers emit through.
type Transmitter interface {
	// AppendAutoText appends a streamed text delta.
	AppendAutoText(text string)
	// AppendText appends authoritative text from a whole (non-streaming) response.
	AppendText(text string)
	AppendReasoningText(text string)

	// StartFunctionCallInvocation opens a function call; args may be empty.
	StartFunctionCallInvocation(id, name, args string)
	// AppendFunctionCallInvocationArgs appends to the open function call,
	// which must have the given id.
	AppendFunctionCallInvocationArgs(id, args string) error
	AddCodeExecutionInvocation(id, language, code, author string)
	AddCodeExecutionResponse(id string, isError bool, result, executor, environment string)

	AppendURLCitation(citation URLCitation)
	AppendAudioInline(audio InlineAudio)

	SetModelName(name string)
	UpdateMetrics(metrics Metrics)
	SetTokenStopReason(reason TokenStopReason)
	// SetDialectTerminatingIssue ends the generation with an upstream-reported error.
	SetDialectTerminatingIssue(text string)
	// EndMessagePart closes the open part, if any.
	EndMessagePart()
}

// ErrPartLifecycle is wrapped by errors about parts appended out of order.
var ErrPartLifecycle = errors.New("particle: part lifecycle")

type openPart int

const (
	openNone openPart = iota
	openText
	openReasoning
	openFunctionCall
)

// Emitter is the Transmitter used by the generation loop. It queues
// particles between Flush calls, merges consecutive text deltas, and
// accepts nothing once a terminating particle has been queued.
//
// An Emitter has a single owner and is not safe for concurrent use.
type Emitter struct {
	queue []Particle

	open       openPart
	openCallID string

	modelName  string
	metrics    Metrics
	tokenStop  TokenStopReason
	terminated bool
}

// NewEmitter returns an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

var _ Transmitter = (*Emitter)(nil)

// Flush returns the queued particles and empties the queue.
func (e *Emitter) Flush() []Particle {
	out := e.queue
	e.queue = nil
	return out
}

// Terminated reports whether an end particle has been queued.
func (e *Emitter) Terminated() bool {
	return e.terminated
}

// TokenStopReason returns the last reason set by the parser.
func (e *Emitter) TokenStopReason() TokenStopReason {
	return e.tokenStop
}

func (e *Emitter) push(p Particle) {
	if e.terminated {
		return
	}
	e.queue = append(e.queue, p)
}

func (e *Emitter) AppendAutoText(text string) {
	e.appendText(text)
}

func (e *Emitter) AppendText(text string) {
	e.appendText(text)
}

func (e *Emitter) appendText(text string) {
	if e.terminated || text == "" {
		return
	}
	if e.open == openText && len(e.queue) > 0 {
		if last, ok := e.queue[len(e.queue)-1].(TextDelta); ok {
			e.queue[len(e.queue)-1] = TextDelta{Text: last.Text + text}
			return
		}
	}
	e.open, e.openCallID = openText, ""
	e.push(TextDelta{Text: text})
}

func (e *Emitter) AppendReasoningText(text string) {
	if e.terminated || text == "" {
		return
	}
	if e.open == openReasoning && len(e.queue) > 0 {
		if last, ok := e.queue[len(e.queue)-1].(ReasoningDelta); ok {
			e.queue[len(e.queue)-1] = ReasoningDelta{Text: last.Text + text}
			return
		}
	}
	e.open, e.openCallID = openReasoning, ""
	e.push(ReasoningDelta{Text: text})
}

func (e *Emitter) StartFunctionCallInvocation(id, name, args string) {
	e.open, e.openCallID = openFunctionCall, id
	e.push(FunctionCallStart{ID: id, Name: name, Args: args})
}

func (e *Emitter) AppendFunctionCallInvocationArgs(id, args string) error {
	if e.terminated {
		return nil
	}
	if e.open != openFunctionCall {
		return fmt.Errorf("%w: arguments for %q without an open function call", ErrPartLifecycle, id)
	}
	if id != "" && id != e.openCallID {
		return fmt.Errorf("%w: arguments for %q while %q is open", ErrPartLifecycle, id, e.openCallID)
	}
	if args == "" {
		return nil
	}
	e.push(FunctionCallArgs{Args: args})
	return nil
}

func (e *Emitter) AddCodeExecutionInvocation(id, language, code, author string) {
	e.EndMessagePart()
	e.push(CodeExecutionInvocation{ID: id, Language: language, Code: code, Author: author})
}

func (e *Emitter) AddCodeExecutionResponse(id string, isError bool, result, executor, environment string) {
	e.EndMessagePart()
	e.push(CodeExecutionResponse{ID: id, IsError: isError, Result: result, Executor: executor, Environment: environment})
}

func (e *Emitter) AppendURLCitation(citation URLCitation) {
	e.EndMessagePart()
	e.push(citation)
}

func (e *Emitter) AppendAudioInline(audio InlineAudio) {
	e.EndMessagePart()
	e.push(audio)
}

func (e *Emitter) SetModelName(name string) {
	if name == "" || name == e.modelName {
		return
	}
	e.modelName = name
	e.push(SetModel{Name: name})
}

func (e *Emitter) UpdateMetrics(metrics Metrics) {
	e.metrics.Merge(metrics)
}

func (e *Emitter) SetTokenStopReason(reason TokenStopReason) {
	if e.terminated {
		return
	}
	e.tokenStop = reason
}

func (e *Emitter) SetDialectTerminatingIssue(text string) {
	e.terminate(IssueDialect, text, EndIssueDialect)
}

func (e *Emitter) EndMessagePart() {
	e.open, e.openCallID = openNone, ""
}

// AddDebugDispatchRequest queues the request echo.
func (e *Emitter) AddDebugDispatchRequest(url, headers, body string) {
	e.push(DebugDispatchRequest{URL: url, Headers: headers, Body: body})
}

// SetRPCTerminatingIssue ends the generation because the transport or the
// parser failed (issue-rpc) or the upstream answered with an error
// (issue-dialect).
func (e *Emitter) SetRPCTerminatingIssue(id IssueID, text string, reason EndReason) {
	e.terminate(id, text, reason)
}

// SetClientAborted ends the generation after a client cancellation.
func (e *Emitter) SetClientAborted() {
	if e.terminated {
		return
	}
	e.EndMessagePart()
	e.pushMetrics()
	e.tokenStop = StopClientAbort
	e.push(End{Reason: EndAbortClient, TokenStopReason: StopClientAbort})
	e.terminated = true
}

// Finish ends a generation whose source completed normally. The end reason
// is done-dialect when the parser reported a stop reason, and
// done-dispatch-closed when the stream just closed. Finish is a no-op after
// any other termination.
func (e *Emitter) Finish() {
	if e.terminated {
		return
	}
	e.EndMessagePart()
	e.pushMetrics()
	reason := EndDoneDialect
	if e.tokenStop == "" {
		reason = EndDoneDispatchClosed
	}
	e.push(End{Reason: reason, TokenStopReason: e.tokenStop})
	e.terminated = true
}

func (e *Emitter) terminate(id IssueID, text string, reason EndReason) {
	if e.terminated {
		return
	}
	e.EndMessagePart()
	e.pushMetrics()
	e.push(Issue{ID: id, Text: text})
	e.tokenStop = StopIssue
	e.push(End{Reason: reason, TokenStopReason: StopIssue})
	e.terminated = true
}

func (e *Emitter) pushMetrics() {
	if !e.metrics.IsZero() {
		e.push(SetMetrics{Metrics: e.metrics})
	}
}
