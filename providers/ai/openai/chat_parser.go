package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

var chatFinishReasons = map[string]particle.TokenStopReason{
	"stop":           particle.StopOK,
	"end_turn":       particle.StopOK,
	"length":         particle.StopOutOfTokens,
	"tool_calls":     particle.StopOKToolInvocations,
	"function_call":  particle.StopOKToolInvocations,
	"content_filter": particle.StopFilterContent,
}

// thinkTagDialects inline the reasoning of open models as <think> spans in
// content. The other dialects send reasoning in its own field.
var thinkTagDialects = []ai.Dialect{
	ai.DialectGroq,
	ai.DialectLMStudio,
	ai.DialectLocalAI,
	ai.DialectOllama,
	ai.DialectPerplexity,
	ai.DialectTogetherAI,
}

// chatShared is the state common to the stream and whole parsers.
type chatShared struct {
	ctx       context.Context
	timing    *particle.Timing
	citations map[string]bool
	think     *thinkSplitter // nil when content passes through as is
}

func newChatShared(ctx context.Context, splitThink bool) chatShared {
	s := chatShared{ctx: ctx, timing: particle.NewTiming(), citations: map[string]bool{}}
	if splitThink {
		s.think = &thinkSplitter{}
	}
	return s
}

func (s *chatShared) content(t particle.Transmitter, text string, emit func(string)) {
	if s.think == nil {
		emit(text)
		return
	}
	s.think.feed(t, text, emit)
}

func (s *chatShared) flushThink(t particle.Transmitter) {
	if s.think != nil {
		s.think.flush(t)
	}
}

// upstreamError returns the message of an error object relayed instead of
// a success payload, checked before the payload is decoded.
func upstreamError(data []byte) (string, bool, error) {
	var probe errorProbe
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", false, err
	}
	raw := bytes.TrimSpace(probe.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, true, nil
	}
	var obj apiError
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		if obj.Type != "" {
			return fmt.Sprintf("%s: %s", obj.Type, obj.Message), true, nil
		}
		return obj.Message, true, nil
	}
	return string(raw), true, nil
}

func (s *chatShared) finish(t particle.Transmitter, reason string) {
	if reason == "" {
		return
	}
	canonical, ok := chatFinishReasons[reason]
	if !ok {
		observability.ObserverFromContext(s.ctx).Warn(s.ctx, "unknown finish reason",
			observability.String(observability.AttrLLMVendor, chatVendorName),
			observability.String(observability.AttrLLMFinishReason, reason),
		)
		return
	}
	t.SetTokenStopReason(canonical)
}

func (s *chatShared) sendMetrics(t particle.Transmitter, u *chatUsage) {
	m := particle.Metrics{TOut: u.CompletionTokens}
	cached := 0
	if u.PromptTokensDetails != nil {
		cached = u.PromptTokensDetails.CachedTokens
	}
	m.TIn = max(u.PromptTokens-cached, 0)
	m.TCacheRead = cached
	if u.CompletionTokensDetails != nil {
		m.TOutR = u.CompletionTokensDetails.ReasoningTokens
	}
	s.timing.Fill(&m)
	t.UpdateMetrics(m)
}

// reasoning surfaces OpenRouter reasoning details when present, and the
// plain reasoning string otherwise, since OpenRouter sends both.
func (s *chatShared) reasoning(t particle.Transmitter, details []reasoningDetail, plain ...*string) {
	if len(details) > 0 {
		for _, d := range details {
			switch d.Type {
			case "reasoning.text":
				t.AppendReasoningText(d.Text)
			case "reasoning.summary":
				t.AppendReasoningText(d.Summary)
			}
		}
		return
	}
	for _, p := range plain {
		if p != nil {
			t.AppendReasoningText(*p)
		}
	}
}

func (s *chatShared) annotate(t particle.Transmitter, annotations []chatAnnotation) {
	for _, a := range annotations {
		if a.Type != "url_citation" || a.URLCitation == nil || a.URLCitation.URL == "" {
			continue
		}
		if s.citations[a.URLCitation.URL] {
			continue
		}
		s.citations[a.URLCitation.URL] = true
		t.AppendURLCitation(particle.URLCitation{
			Title: a.URLCitation.Title,
			URL:   a.URLCitation.URL,
			Num:   len(s.citations),
			From:  a.URLCitation.StartIndex,
			To:    a.URLCitation.EndIndex,
		})
	}
}

/*
	##### STREAM #####
*/

type chatCall struct {
	id   string
	name string
}

type chatStreamParser struct {
	chatShared
	calls map[int]chatCall
}

func newChatStreamParser(ctx context.Context, splitThink bool) *chatStreamParser {
	return &chatStreamParser{chatShared: newChatShared(ctx, splitThink), calls: map[int]chatCall{}}
}

func (p *chatStreamParser) parse(t particle.Transmitter, event ai.StreamEvent) error {
	if event.End {
		p.flushThink(t)
		return nil
	}
	p.timing.MarkEvent()

	if text, found, err := upstreamError(event.Data); err != nil {
		return fmt.Errorf("%s: decoding chunk: %w", chatVendorName, err)
	} else if found {
		t.SetDialectTerminatingIssue(text)
		return nil
	}

	var chunk chatChunk
	if err := json.Unmarshal(event.Data, &chunk); err != nil {
		return fmt.Errorf("%s: decoding chunk: %w", chatVendorName, err)
	}
	t.SetModelName(chunk.Model)

	if len(chunk.Choices) > 1 {
		return ai.NewProtocolViolation(chatVendorName, "chunk with %d choices", len(chunk.Choices))
	}
	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			return ai.NewProtocolViolation(chatVendorName, "chunk for choice %d", choice.Index)
		}
		if err := p.delta(t, choice.Delta); err != nil {
			return err
		}
		if choice.FinishReason != nil {
			p.flushThink(t)
			p.finish(t, *choice.FinishReason)
		}
	}

	if chunk.Usage != nil {
		p.sendMetrics(t, chunk.Usage)
	}
	return nil
}

func (p *chatStreamParser) delta(t particle.Transmitter, d chunkDelta) error {
	p.reasoning(t, d.ReasoningDetails, d.ReasoningContent, d.Reasoning)
	if d.Content != nil {
		p.content(t, *d.Content, t.AppendAutoText)
	}
	if d.Refusal != nil {
		t.AppendAutoText(*d.Refusal)
	}
	p.annotate(t, d.Annotations)

	for _, tc := range d.ToolCalls {
		index := 0
		if tc.Index != nil {
			index = *tc.Index
		}
		call, seen := p.calls[index]
		if !seen {
			if tc.ID == "" || tc.Function.Name == "" {
				return ai.NewProtocolViolation(chatVendorName, "tool call %d opened without id or name", index)
			}
			p.calls[index] = chatCall{id: tc.ID, name: tc.Function.Name}
			t.StartFunctionCallInvocation(tc.ID, tc.Function.Name, tc.Function.Arguments)
			continue
		}
		if tc.ID != "" && tc.ID != call.id {
			return ai.NewProtocolViolation(chatVendorName, "tool call %d changed id from %q to %q", index, call.id, tc.ID)
		}
		if tc.Function.Name != "" && tc.Function.Name != call.name {
			return ai.NewProtocolViolation(chatVendorName, "tool call %d changed name from %q to %q", index, call.name, tc.Function.Name)
		}
		if err := t.AppendFunctionCallInvocationArgs(call.id, tc.Function.Arguments); err != nil {
			return err
		}
	}
	return nil
}

/*
	##### WHOLE #####
*/

type chatWholeParser struct {
	chatShared
}

func newChatWholeParser(ctx context.Context, splitThink bool) *chatWholeParser {
	return &chatWholeParser{chatShared: newChatShared(ctx, splitThink)}
}

func (p *chatWholeParser) parse(t particle.Transmitter, event ai.StreamEvent) error {
	p.timing.MarkEvent()

	if text, found, err := upstreamError(event.Data); err != nil {
		return fmt.Errorf("%s: decoding response: %w", chatVendorName, err)
	} else if found {
		t.SetDialectTerminatingIssue(text)
		return nil
	}

	var res chatResponse
	if err := json.Unmarshal(event.Data, &res); err != nil {
		return fmt.Errorf("%s: decoding response: %w", chatVendorName, err)
	}
	if len(res.Choices) != 1 {
		return ai.NewProtocolViolation(chatVendorName, "response with %d choices", len(res.Choices))
	}
	t.SetModelName(res.Model)

	choice := res.Choices[0]
	msg := choice.Message
	if choice.FinishReason != "" && msg.Content == nil && msg.Refusal == "" && len(msg.ToolCalls) == 0 {
		return ai.NewProtocolViolation(chatVendorName, "finish reason %q without message content", choice.FinishReason)
	}

	var plain []*string
	if msg.ReasoningContent != "" {
		plain = append(plain, &msg.ReasoningContent)
	}
	if msg.Reasoning != "" {
		plain = append(plain, &msg.Reasoning)
	}
	p.reasoning(t, msg.ReasoningDetails, plain...)

	if msg.Content != nil {
		p.content(t, *msg.Content, t.AppendText)
		p.flushThink(t)
	}
	if msg.Refusal != "" {
		t.AppendText(msg.Refusal)
	}
	p.annotate(t, msg.Annotations)

	for i, tc := range msg.ToolCalls {
		if tc.ID == "" || tc.Function.Name == "" {
			return ai.NewProtocolViolation(chatVendorName, "tool call %d without id or name", i)
		}
		t.StartFunctionCallInvocation(tc.ID, tc.Function.Name, tc.Function.Arguments)
		t.EndMessagePart()
	}

	p.finish(t, choice.FinishReason)
	if res.Usage != nil {
		p.sendMetrics(t, res.Usage)
	}
	return nil
}

/*
	##### THINK TAGS #####
*/

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkSplitter moves <think>...</think> spans that some hosted reasoning
// models inline in content to the reasoning channel. A tag split across
// chunks is held back until the next chunk, the finish reason or the end
// of the stream.
type thinkSplitter struct {
	inside  bool
	pending string
	text    func(string)
}

func (s *thinkSplitter) feed(t particle.Transmitter, chunk string, text func(string)) {
	s.text = text
	data := s.pending + chunk
	s.pending = ""
	for data != "" {
		tag := thinkOpen
		if s.inside {
			tag = thinkClose
		}
		if i := strings.Index(data, tag); i >= 0 {
			s.emit(t, data[:i])
			data = data[i+len(tag):]
			s.inside = !s.inside
			continue
		}
		keep := partialSuffix(data, tag)
		s.emit(t, data[:len(data)-keep])
		s.pending = data[len(data)-keep:]
		return
	}
}

// flush emits a held-back partial tag as plain content.
func (s *thinkSplitter) flush(t particle.Transmitter) {
	if s.pending == "" {
		return
	}
	s.emit(t, s.pending)
	s.pending = ""
}

func (s *thinkSplitter) emit(t particle.Transmitter, text string) {
	if text == "" {
		return
	}
	if s.inside {
		t.AppendReasoningText(text)
	} else if s.text != nil {
		s.text(text)
	}
}

// partialSuffix returns the length of the longest proper prefix of tag that
// data ends with.
func partialSuffix(data, tag string) int {
	for k := min(len(tag)-1, len(data)); k > 0; k-- {
		if strings.HasSuffix(data, tag[:k]) {
			return k
		}
	}
	return 0
}
