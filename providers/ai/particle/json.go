package particle

import (
	"encoding/json"
	"fmt"
)

// wire is the union of every particle field. Absent fields are omitted,
// never encoded as null.
type wire struct {
	// discriminators
	T  *string `json:"t,omitempty"`
	P  string  `json:"p,omitempty"`
	CG string  `json:"cg,omitempty"`

	// reasoning
	RT *string `json:"_t,omitempty"`

	// parts
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	IArgs       string `json:"i_args,omitempty"`
	Args        string `json:"_args,omitempty"`
	Language    string `json:"language,omitempty"`
	Code        string `json:"code,omitempty"`
	Author      string `json:"author,omitempty"`
	Error       bool   `json:"error,omitempty"`
	Result      string `json:"result,omitempty"`
	Executor    string `json:"executor,omitempty"`
	Environment string `json:"environment,omitempty"`

	// citations
	Title string `json:"title,omitempty"`
	URL   string `json:"url,omitempty"`
	Num   int    `json:"num,omitempty"`
	From  *int   `json:"from,omitempty"`
	To    *int   `json:"to,omitempty"`
	Text  string `json:"text,omitempty"`
	PubTs int64  `json:"pubTs,omitempty"`

	// audio
	MimeType   string `json:"mimeType,omitempty"`
	AudioB64   string `json:"a_b64,omitempty"`
	Label      string `json:"label,omitempty"`
	DurationMs int    `json:"durationMs,omitempty"`

	// control
	Reason          EndReason       `json:"reason,omitempty"`
	TokenStopReason TokenStopReason `json:"tokenStopReason,omitempty"`
	IssueID         IssueID         `json:"issueId,omitempty"`
	IssueText       string          `json:"issueText,omitempty"`
	Metrics         *Metrics        `json:"metrics,omitempty"`
	Dispatch        *dispatchWire   `json:"dispatchRequest,omitempty"`
}

type dispatchWire struct {
	URL     string `json:"url"`
	Headers string `json:"headers"`
	Body    string `json:"body"`
}

const (
	pReasoning     = "tr_"
	pFunctionStart = "fci"
	pFunctionArgs  = "_fci"
	pCodeInvoke    = "cei"
	pCodeResponse  = "cer"
	pURLCitation   = "urlc"
	pInlineAudio   = "ia"

	cgEnd      = "end"
	cgIssue    = "issue"
	cgMetrics  = "set-metrics"
	cgModel    = "set-model"
	cgDispatch = "_debugDispatchRequest"
)

// Encode returns the compact wire form of p.
func Encode(p Particle) ([]byte, error) {
	var w wire
	switch v := p.(type) {
	case TextDelta:
		w.T = &v.Text
	case ReasoningDelta:
		w.P, w.RT = pReasoning, &v.Text
	case FunctionCallStart:
		w.P, w.ID, w.Name, w.IArgs = pFunctionStart, v.ID, v.Name, v.Args
	case FunctionCallArgs:
		w.P, w.Args = pFunctionArgs, v.Args
	case CodeExecutionInvocation:
		w.P, w.ID, w.Language, w.Code, w.Author = pCodeInvoke, v.ID, v.Language, v.Code, v.Author
	case CodeExecutionResponse:
		w.P, w.ID, w.Error, w.Result, w.Executor, w.Environment = pCodeResponse, v.ID, v.IsError, v.Result, v.Executor, v.Environment
	case URLCitation:
		w.P, w.Title, w.URL, w.Num, w.From, w.To, w.Text, w.PubTs = pURLCitation, v.Title, v.URL, v.Num, v.From, v.To, v.Text, v.PubTs
	case InlineAudio:
		w.P, w.MimeType, w.AudioB64, w.Label, w.DurationMs = pInlineAudio, v.MimeType, v.Base64, v.Label, v.DurationMs
	case End:
		w.CG, w.Reason, w.TokenStopReason = cgEnd, v.Reason, v.TokenStopReason
	case Issue:
		w.CG, w.IssueID, w.IssueText = cgIssue, v.ID, v.Text
	case SetMetrics:
		metrics := v.Metrics
		w.CG, w.Metrics = cgMetrics, &metrics
	case SetModel:
		w.CG, w.Name = cgModel, v.Name
	case DebugDispatchRequest:
		w.CG, w.Dispatch = cgDispatch, &dispatchWire{URL: v.URL, Headers: v.Headers, Body: v.Body}
	default:
		return nil, fmt.Errorf("particle: cannot encode %T", p)
	}
	return json.Marshal(w)
}

// Decode parses one wire particle.
func Decode(data []byte) (Particle, error) {
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("particle: %w", err)
	}
	switch {
	case w.T != nil:
		return TextDelta{Text: *w.T}, nil
	case w.P != "":
		return decodePart(w)
	case w.CG != "":
		return decodeControl(w)
	default:
		return nil, fmt.Errorf("particle: no discriminator in %s", truncate(data))
	}
}

func decodePart(w wire) (Particle, error) {
	switch w.P {
	case pReasoning:
		if w.RT == nil {
			return nil, fmt.Errorf("particle: %s without _t", pReasoning)
		}
		return ReasoningDelta{Text: *w.RT}, nil
	case pFunctionStart:
		if w.ID == "" || w.Name == "" {
			return nil, fmt.Errorf("particle: %s requires id and name", pFunctionStart)
		}
		return FunctionCallStart{ID: w.ID, Name: w.Name, Args: w.IArgs}, nil
	case pFunctionArgs:
		return FunctionCallArgs{Args: w.Args}, nil
	case pCodeInvoke:
		return CodeExecutionInvocation{ID: w.ID, Language: w.Language, Code: w.Code, Author: w.Author}, nil
	case pCodeResponse:
		return CodeExecutionResponse{ID: w.ID, IsError: w.Error, Result: w.Result, Executor: w.Executor, Environment: w.Environment}, nil
	case pURLCitation:
		return URLCitation{Title: w.Title, URL: w.URL, Num: w.Num, From: w.From, To: w.To, Text: w.Text, PubTs: w.PubTs}, nil
	case pInlineAudio:
		return InlineAudio{MimeType: w.MimeType, Base64: w.AudioB64, Label: w.Label, DurationMs: w.DurationMs}, nil
	default:
		return nil, fmt.Errorf("particle: unknown part particle %q", w.P)
	}
}

func decodeControl(w wire) (Particle, error) {
	switch w.CG {
	case cgEnd:
		return End{Reason: w.Reason, TokenStopReason: w.TokenStopReason}, nil
	case cgIssue:
		return Issue{ID: w.IssueID, Text: w.IssueText}, nil
	case cgMetrics:
		if w.Metrics == nil {
			return SetMetrics{}, nil
		}
		return SetMetrics{Metrics: *w.Metrics}, nil
	case cgModel:
		return SetModel{Name: w.Name}, nil
	case cgDispatch:
		if w.Dispatch == nil {
			return nil, fmt.Errorf("particle: %s without dispatchRequest", cgDispatch)
		}
		return DebugDispatchRequest{URL: w.Dispatch.URL, Headers: w.Dispatch.Headers, Body: w.Dispatch.Body}, nil
	default:
		return nil, fmt.Errorf("particle: unknown control particle %q", w.CG)
	}
}

func truncate(data []byte) string {
	const max = 80
	if len(data) <= max {
		return string(data)
	}
	return string(data[:max]) + "..."
}
