// Package particle defines the output protocol every vendor parser emits: an
// ordered stream of small, strictly additive events (text deltas, tool-call
// lifecycle, and control events such as end, issue and metrics).
//
// Parsers never build particles directly. They drive a [Transmitter], which
// validates part lifecycle and queues particles for the generation loop.
package particle

// Particle is a closed union over the types declared in this file.
type Particle interface {
	isParticle()
}

// TextDelta appends visible text.
type TextDelta struct {
	Text string
}

// ReasoningDelta appends reasoning text, a channel separate from visible text.
type ReasoningDelta struct {
	Text string
}

// FunctionCallStart opens a function-call invocation. Args holds any
// arguments that arrived together with the name.
type FunctionCallStart struct {
	ID   string
	Name string
	Args string
}

// FunctionCallArgs appends to the arguments of the open function call.
type FunctionCallArgs struct {
	Args string
}

// CodeExecutionInvocation is a complete vendor-hosted code execution request.
type CodeExecutionInvocation struct {
	ID       string
	Language string
	Code     string
	Author   string
}

// CodeExecutionResponse is the result of a code execution.
type CodeExecutionResponse struct {
	ID          string
	IsError     bool
	Result      string
	Executor    string
	Environment string
}

// URLCitation references a source the model used.
type URLCitation struct {
	Title string
	URL   string
	// Num is the 1-based citation number, zero when the vendor gives none.
	Num int
	// From and To delimit the cited span in the visible text, when known.
	From *int
	To   *int
	Text string
	// PubTs is the publication time in Unix milliseconds, zero when unknown.
	PubTs int64
}

// InlineAudio carries one complete audio clip.
type InlineAudio struct {
	MimeType   string
	Base64     string
	Label      string
	DurationMs int
}

// End terminates the generation.
type End struct {
	Reason          EndReason
	TokenStopReason TokenStopReason
}

// Issue reports a problem that becomes visible in the output.
type Issue struct {
	ID   IssueID
	Text string
}

// SetMetrics carries the latest metrics snapshot.
type SetMetrics struct {
	Metrics Metrics
}

// SetModel announces the model name the vendor reported.
type SetModel struct {
	Name string
}

// DebugDispatchRequest echoes the request that was sent upstream.
type DebugDispatchRequest struct {
	URL     string
	Headers string
	Body    string
}

func (TextDelta) isParticle()               {}
func (ReasoningDelta) isParticle()          {}
func (FunctionCallStart) isParticle()       {}
func (FunctionCallArgs) isParticle()        {}
func (CodeExecutionInvocation) isParticle() {}
func (CodeExecutionResponse) isParticle()   {}
func (URLCitation) isParticle()             {}
func (InlineAudio) isParticle()             {}
func (End) isParticle()                     {}
func (Issue) isParticle()                   {}
func (SetMetrics) isParticle()              {}
func (SetModel) isParticle()                {}
func (DebugDispatchRequest) isParticle()    {}
