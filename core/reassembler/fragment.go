package reassembler

import (
	"strings"

	"github.com/leofalp/aix/providers/ai/particle"
)

// FragmentType tags a Fragment.
type FragmentType string

const (
	FragmentText           FragmentType = "text"
	FragmentReasoning      FragmentType = "reasoning"
	FragmentToolInvocation FragmentType = "tool_invocation"
	FragmentToolResponse   FragmentType = "tool_response"
	FragmentCitation       FragmentType = "citation"
	FragmentAudio          FragmentType = "audio"
	FragmentError          FragmentType = "error"
)

// Fragment is one unit of reassembled content. Type decides which of the
// optional fields is set.
type Fragment struct {
	Type FragmentType `json:"type"`
	// Text holds text, reasoning and error content.
	Text string `json:"text,omitempty"`
	// ID is the tool invocation or response id.
	ID string `json:"id,omitempty"`

	Function *FunctionCall  `json:"function,omitempty"`
	Code     *CodeExecution `json:"code,omitempty"`
	Result   *CodeResult    `json:"result,omitempty"`
	Citation *Citation      `json:"citation,omitempty"`
	Audio    *Audio         `json:"audio,omitempty"`

	// Issue classifies error fragments built from issue particles.
	Issue particle.IssueID `json:"issue,omitempty"`
}

// FunctionCall is a function invocation whose Args grow while it is open.
type FunctionCall struct {
	Name string `json:"name"`
	Args string `json:"args"`
}

// CodeExecution is a vendor-hosted code invocation.
type CodeExecution struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Author   string `json:"author,omitempty"`
}

// CodeResult is the outcome of a code execution.
type CodeResult struct {
	IsError     bool   `json:"isError,omitempty"`
	Result      string `json:"result"`
	Executor    string `json:"executor,omitempty"`
	Environment string `json:"environment,omitempty"`
}

// Citation is a url source quoted by the model.
type Citation struct {
	Title string `json:"title,omitempty"`
	URL   string `json:"url"`
	Num   int    `json:"num,omitempty"`
	From  *int   `json:"from,omitempty"`
	To    *int   `json:"to,omitempty"`
	Text  string `json:"text,omitempty"`
	PubTs int64  `json:"pubTs,omitempty"`
}

// Audio is an inline audio clip.
type Audio struct {
	MimeType   string `json:"mimeType"`
	Base64     string `json:"base64"`
	Label      string `json:"label,omitempty"`
	DurationMs int    `json:"durationMs,omitempty"`
}

// Generator is the metadata a generation reports about itself.
type Generator struct {
	Model           string                   `json:"model,omitempty"`
	EndReason       particle.EndReason       `json:"endReason,omitempty"`
	TokenStopReason particle.TokenStopReason `json:"tokenStopReason,omitempty"`
	Metrics         *particle.Metrics        `json:"metrics,omitempty"`
}

// DebugRequest is the echo of the request sent upstream.
type DebugRequest struct {
	URL     string `json:"url"`
	Headers string `json:"headers"`
	Body    string `json:"body"`
}

// Accumulator is the state of one generation call.
type Accumulator struct {
	Fragments []Fragment    `json:"fragments"`
	Generator Generator     `json:"generator"`
	Debug     *DebugRequest `json:"debug,omitempty"`
}

// Clone returns a deep copy of a.
func (a Accumulator) Clone() Accumulator {
	out := Accumulator{Fragments: make([]Fragment, len(a.Fragments)), Generator: a.Generator}
	for i, f := range a.Fragments {
		out.Fragments[i] = f.clone()
	}
	if a.Generator.Metrics != nil {
		m := *a.Generator.Metrics
		out.Generator.Metrics = &m
	}
	if a.Debug != nil {
		d := *a.Debug
		out.Debug = &d
	}
	return out
}

func (f Fragment) clone() Fragment {
	c := f
	c.Function = clonePtr(f.Function)
	c.Code = clonePtr(f.Code)
	c.Result = clonePtr(f.Result)
	c.Audio = clonePtr(f.Audio)
	if f.Citation != nil {
		citation := *f.Citation
		citation.From = clonePtr(f.Citation.From)
		citation.To = clonePtr(f.Citation.To)
		c.Citation = &citation
	}
	return c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Text concatenates the text fragments.
func (a Accumulator) Text() string {
	var sb strings.Builder
	for _, f := range a.Fragments {
		if f.Type == FragmentText {
			sb.WriteString(f.Text)
		}
	}
	return sb.String()
}
