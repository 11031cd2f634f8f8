package reassembler

import (
	"context"
	"fmt"
	"sync"

	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

const none = -1

// Options configure a Reassembler.
type Options struct {
	// MergeIssuesIntoText appends issue text to the open text fragment
	// instead of pushing a separate error fragment.
	MergeIssuesIntoText bool
}

// Reassembler applies particles to an Accumulator in arrival order.
//
// Apply and Finalize must be called from one goroutine. Snapshot may be
// called from any goroutine.
type Reassembler struct {
	opts Options

	mu        sync.RWMutex
	acc       Accumulator
	openText  int
	openThink int
	ended     bool

	counts    map[string]int64
	finalized bool
}

// New returns an empty Reassembler.
func New(opts Options) *Reassembler {
	return &Reassembler{
		opts:      opts,
		acc:       Accumulator{Fragments: []Fragment{}},
		openText:  none,
		openThink: none,
		counts:    map[string]int64{},
	}
}

// Snapshot returns a deep copy of the current state.
func (r *Reassembler) Snapshot() Accumulator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.acc.Clone()
}

// Ended reports whether an end particle was applied.
func (r *Reassembler) Ended() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ended
}

// ApplyAll applies particles in order.
func (r *Reassembler) ApplyAll(particles []particle.Particle) {
	for _, p := range particles {
		r.Apply(p)
	}
}

// Apply folds one particle into the accumulator. Particles after the end
// particle are ignored. Apply never fails: a particle that breaks the part
// lifecycle becomes an error fragment.
func (r *Reassembler) Apply(p particle.Particle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ended {
		return
	}
	r.counts[kind(p)]++

	switch v := p.(type) {
	case particle.TextDelta:
		r.appendText(v.Text)

	case particle.ReasoningDelta:
		if r.openThink != none {
			r.acc.Fragments[r.openThink].Text += v.Text
			return
		}
		r.push(Fragment{Type: FragmentReasoning, Text: v.Text})
		r.openThink = len(r.acc.Fragments) - 1

	case particle.FunctionCallStart:
		r.push(Fragment{Type: FragmentToolInvocation, ID: v.ID, Function: &FunctionCall{Name: v.Name, Args: v.Args}})

	case particle.FunctionCallArgs:
		last := len(r.acc.Fragments) - 1
		if last < 0 || r.acc.Fragments[last].Type != FragmentToolInvocation || r.acc.Fragments[last].Function == nil {
			r.push(Fragment{Type: FragmentError, Text: "function call arguments without an open function call"})
			return
		}
		r.acc.Fragments[last].Function.Args += v.Args

	case particle.CodeExecutionInvocation:
		r.push(Fragment{Type: FragmentToolInvocation, ID: v.ID, Code: &CodeExecution{Language: v.Language, Code: v.Code, Author: v.Author}})

	case particle.CodeExecutionResponse:
		r.push(Fragment{Type: FragmentToolResponse, ID: v.ID, Result: &CodeResult{
			IsError:     v.IsError,
			Result:      v.Result,
			Executor:    v.Executor,
			Environment: v.Environment,
		}})

	case particle.URLCitation:
		r.push(Fragment{Type: FragmentCitation, Citation: &Citation{
			Title: v.Title,
			URL:   v.URL,
			Num:   v.Num,
			From:  clonePtr(v.From),
			To:    clonePtr(v.To),
			Text:  v.Text,
			PubTs: v.PubTs,
		}})

	case particle.InlineAudio:
		r.push(Fragment{Type: FragmentAudio, Audio: &Audio{MimeType: v.MimeType, Base64: v.Base64, Label: v.Label, DurationMs: v.DurationMs}})

	case particle.Issue:
		if r.opts.MergeIssuesIntoText && r.openText != none {
			r.acc.Fragments[r.openText].Text += "\n\n" + v.Text
			return
		}
		r.push(Fragment{Type: FragmentError, Text: v.Text, Issue: v.ID})

	case particle.End:
		r.acc.Generator.EndReason = v.Reason
		r.acc.Generator.TokenStopReason = v.TokenStopReason
		r.ended = true

	case particle.SetMetrics:
		m := v.Metrics
		r.acc.Generator.Metrics = &m

	case particle.SetModel:
		r.acc.Generator.Model = v.Name

	case particle.DebugDispatchRequest:
		r.acc.Debug = &DebugRequest{URL: v.URL, Headers: v.Headers, Body: v.Body}

	default:
		r.push(Fragment{Type: FragmentError, Text: fmt.Sprintf("unknown particle %T", p)})
	}
}

func (r *Reassembler) appendText(text string) {
	if r.openText != none {
		r.acc.Fragments[r.openText].Text += text
		return
	}
	r.push(Fragment{Type: FragmentText, Text: text})
	r.openText = len(r.acc.Fragments) - 1
}

// push appends a fragment and closes the open text and reasoning fragments.
func (r *Reassembler) push(f Fragment) {
	r.acc.Fragments = append(r.acc.Fragments, f)
	r.openText, r.openThink = none, none
}

// Finalize records the generation metrics on the observer and span found in
// ctx. Only the first call has an effect.
func (r *Reassembler) Finalize(ctx context.Context) {
	r.mu.Lock()
	if r.finalized {
		r.mu.Unlock()
		return
	}
	r.finalized = true
	acc := r.acc.Clone()
	counts := make(map[string]int64, len(r.counts))
	for k, v := range r.counts {
		counts[k] = v
	}
	r.mu.Unlock()

	observer := observability.ObserverFromContext(ctx)
	gen := acc.Generator
	reasonAttrs := []observability.Attribute{
		observability.String(observability.AttrLLMEndReason, string(gen.EndReason)),
		observability.String(observability.AttrLLMStopReason, string(gen.TokenStopReason)),
	}
	observer.Counter(observability.MetricGenerations).Add(ctx, 1, reasonAttrs...)
	for k, n := range counts {
		observer.Counter(observability.MetricParticles).Add(ctx, n, observability.String(observability.AttrParticleKind, k))
	}

	spanAttrs := append(reasonAttrs, observability.Int(observability.AttrFragmentsCount, len(acc.Fragments)))
	if m := gen.Metrics; m != nil {
		tokens := observer.Counter(observability.MetricTokens)
		for _, bucket := range []struct {
			attr  string
			count int
		}{
			{observability.AttrLLMTokensIn, m.TIn},
			{observability.AttrLLMTokensCacheRead, m.TCacheRead},
			{observability.AttrLLMTokensCacheWrite, m.TCacheWrite},
			{observability.AttrLLMTokensOut, m.TOut},
			{observability.AttrLLMTokensReasoning, m.TOutR},
		} {
			if bucket.count == 0 {
				continue
			}
			tokens.Add(ctx, int64(bucket.count), observability.String(observability.AttrLLMTokenKind, bucket.attr))
			spanAttrs = append(spanAttrs, observability.Int(bucket.attr, bucket.count))
		}
		if m.DtStart > 0 {
			observer.Histogram(observability.MetricTimeToFirstEvent).Record(ctx, float64(m.DtStart)/1000)
		}
		if m.DtAll > 0 {
			observer.Histogram(observability.MetricGenerationDuration).Record(ctx, float64(m.DtAll)/1000)
		}
	}

	if span := observability.SpanFromContext(ctx); span != nil {
		span.SetAttributes(spanAttrs...)
		span.AddEvent(observability.EventTerminated)
	}
}

func kind(p particle.Particle) string {
	switch p.(type) {
	case particle.TextDelta:
		return "text"
	case particle.ReasoningDelta:
		return "reasoning"
	case particle.FunctionCallStart:
		return "function_call_start"
	case particle.FunctionCallArgs:
		return "function_call_args"
	case particle.CodeExecutionInvocation:
		return "code_invocation"
	case particle.CodeExecutionResponse:
		return "code_response"
	case particle.URLCitation:
		return "citation"
	case particle.InlineAudio:
		return "audio"
	case particle.Issue:
		return "issue"
	case particle.End:
		return "end"
	case particle.SetMetrics:
		return "metrics"
	case particle.SetModel:
		return "model"
	case particle.DebugDispatchRequest:
		return "debug"
	}
	return "unknown"
}
