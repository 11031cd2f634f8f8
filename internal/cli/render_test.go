package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leofalp/aix/core/reassembler"
	"github.com/leofalp/aix/providers/ai/particle"
)

func TestRenderer_IncrementalOutput(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf)

	acc := reassembler.Accumulator{}
	r.Update(acc, false)
	assert.Empty(t, buf.String())

	acc.Fragments = []reassembler.Fragment{{Type: reassembler.FragmentText, Text: "Hel"}}
	r.Update(acc, false)
	acc.Fragments[0].Text = "Hello"
	call := reassembler.Fragment{Type: reassembler.FragmentToolInvocation, ID: "c1", Function: &reassembler.FunctionCall{Name: "get_weather", Args: `{"ci`}}
	acc.Fragments = append(acc.Fragments, call)
	r.Update(acc, false)
	assert.Equal(t, "Hello\n", buf.String(), "open calls are not printed yet")

	acc.Fragments[1].Function = &reassembler.FunctionCall{Name: "get_weather", Args: `{"city":"NYC"}`}
	acc.Generator = reassembler.Generator{EndReason: particle.EndDoneDialect, TokenStopReason: particle.StopOKToolInvocations}
	r.Update(acc, true)
	r.Update(acc, true)
	assert.Equal(t, "Hello\n[call c1] get_weather({\"city\":\"NYC\"})\n-- end=done-dialect stop=ok-tool_invocations\n", buf.String())
}

func TestSummarize_Metrics(t *testing.T) {
	acc := reassembler.Accumulator{Generator: reassembler.Generator{
		Model:     "gemini-2.5-pro",
		EndReason: particle.EndDoneDialect,
		Metrics:   &particle.Metrics{TIn: 10, TOut: 5, TOutR: 2, TCacheRead: 4, DtAll: 900},
	}}
	assert.Equal(t, "-- model=gemini-2.5-pro end=done-dialect in=10 out=5 cache_read=4 cache_write=0 reasoning=2 time=900ms", summarize(acc))
}

func TestDescribe_Fragments(t *testing.T) {
	assert.Equal(t, "[error dispatch-fetch] boom", describe(reassembler.Fragment{Type: reassembler.FragmentError, Issue: particle.IssueDispatchFetch, Text: "boom"}))
	assert.Equal(t, "[result x1, error]\ntrace", describe(reassembler.Fragment{Type: reassembler.FragmentToolResponse, ID: "x1", Result: &reassembler.CodeResult{IsError: true, Result: "trace"}}))
	assert.Equal(t, "[2] Doc https://d.example", describe(reassembler.Fragment{Type: reassembler.FragmentCitation, Citation: &reassembler.Citation{Num: 2, Title: "Doc", URL: "https://d.example"}}))
}
