package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/leofalp/aix/core/reassembler"
)

// renderer prints an accumulator incrementally. Text and reasoning are
// written as they grow; other fragments are printed once they are closed,
// which is when a later fragment exists or the generation is done.
type renderer struct {
	w       io.Writer
	written []int
	shown   []bool
	summary bool
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w}
}

func (r *renderer) Update(acc reassembler.Accumulator, done bool) {
	for i, f := range acc.Fragments {
		if i >= len(r.written) {
			r.written = append(r.written, 0)
			r.shown = append(r.shown, false)
			if i > 0 {
				fmt.Fprintln(r.w)
			}
			if f.Type == reassembler.FragmentReasoning {
				fmt.Fprint(r.w, "[reasoning] ")
			}
		}
		switch f.Type {
		case reassembler.FragmentText, reassembler.FragmentReasoning:
			fmt.Fprint(r.w, f.Text[r.written[i]:])
			r.written[i] = len(f.Text)
		default:
			closed := done || i < len(acc.Fragments)-1
			if closed && !r.shown[i] {
				fmt.Fprint(r.w, describe(f))
				r.shown[i] = true
			}
		}
	}
	if done && !r.summary {
		r.summary = true
		fmt.Fprintln(r.w)
		fmt.Fprintln(r.w, summarize(acc))
	}
}

func describe(f reassembler.Fragment) string {
	switch f.Type {
	case reassembler.FragmentToolInvocation:
		if f.Function != nil {
			return fmt.Sprintf("[call %s] %s(%s)", f.ID, f.Function.Name, f.Function.Args)
		}
		if f.Code != nil {
			return fmt.Sprintf("[code %s, %s]\n%s", f.ID, f.Code.Language, f.Code.Code)
		}
	case reassembler.FragmentToolResponse:
		if f.Result != nil {
			status := "ok"
			if f.Result.IsError {
				status = "error"
			}
			return fmt.Sprintf("[result %s, %s]\n%s", f.ID, status, f.Result.Result)
		}
	case reassembler.FragmentCitation:
		if f.Citation != nil {
			return fmt.Sprintf("[%d] %s %s", f.Citation.Num, f.Citation.Title, f.Citation.URL)
		}
	case reassembler.FragmentAudio:
		if f.Audio != nil {
			return fmt.Sprintf("[audio %s, %d bytes base64]", f.Audio.MimeType, len(f.Audio.Base64))
		}
	case reassembler.FragmentError:
		if f.Issue != "" {
			return fmt.Sprintf("[error %s] %s", f.Issue, f.Text)
		}
		return "[error] " + f.Text
	}
	return fmt.Sprintf("[%s]", f.Type)
}

func summarize(acc reassembler.Accumulator) string {
	gen := acc.Generator
	parts := []string{"--"}
	if gen.Model != "" {
		parts = append(parts, "model="+gen.Model)
	}
	parts = append(parts, "end="+string(gen.EndReason))
	if gen.TokenStopReason != "" {
		parts = append(parts, "stop="+string(gen.TokenStopReason))
	}
	if m := gen.Metrics; m != nil {
		parts = append(parts, fmt.Sprintf("in=%d out=%d", m.TIn, m.TOut))
		if m.TCacheRead > 0 || m.TCacheWrite > 0 {
			parts = append(parts, fmt.Sprintf("cache_read=%d cache_write=%d", m.TCacheRead, m.TCacheWrite))
		}
		if m.TOutR > 0 {
			parts = append(parts, fmt.Sprintf("reasoning=%d", m.TOutR))
		}
		if m.DtAll > 0 {
			parts = append(parts, fmt.Sprintf("time=%dms", m.DtAll))
		}
		if m.VTOutInner > 0 {
			parts = append(parts, fmt.Sprintf("rate=%.1ft/s", m.VTOutInner))
		}
	}
	return strings.Join(parts, " ")
}
