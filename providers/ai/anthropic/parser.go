package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

// stopReasons maps Anthropic stop reasons to canonical token stop reasons.
var stopReasons = map[string]particle.TokenStopReason{
	"end_turn":      particle.StopOK,
	"stop_sequence": particle.StopOK,
	"pause_turn":    particle.StopOK,
	"tool_use":      particle.StopOKToolInvocations,
	"max_tokens":    particle.StopOutOfTokens,
	"refusal":       particle.StopFilterContent,
}

// blockKinds lists the delta types each content block kind accepts.
var blockKinds = map[string][]string{
	"text":     {"text_delta", "citations_delta"},
	"thinking": {"thinking_delta", "signature_delta"},
	"tool_use": {"input_json_delta"},
}

// shared holds the state common to the stream and whole parsers.
type shared struct {
	ctx       context.Context
	timing    *particle.Timing
	citations map[string]bool
}

func newShared(ctx context.Context) shared {
	return shared{ctx: ctx, timing: particle.NewTiming(), citations: map[string]bool{}}
}

func (s *shared) log() observability.Provider {
	return observability.ObserverFromContext(s.ctx)
}

func (s *shared) setStopReason(t particle.Transmitter, reason string) {
	canonical, ok := stopReasons[reason]
	if !ok {
		s.log().Warn(s.ctx, "unknown stop reason",
			observability.String(observability.AttrLLMVendor, vendorName),
			observability.String(observability.AttrLLMFinishReason, reason),
		)
		return
	}
	t.SetTokenStopReason(canonical)
}

func (s *shared) sendMetrics(t particle.Transmitter, u usage) {
	m := particle.Metrics{
		TIn:         u.InputTokens,
		TCacheRead:  u.CacheReadInputTokens,
		TCacheWrite: u.CacheCreationInputTokens,
		TOut:        u.OutputTokens,
	}
	s.timing.Fill(&m)
	t.UpdateMetrics(m)
}

// cite emits a url citation once per URL. Document citations carry no URL
// and are skipped.
func (s *shared) cite(t particle.Transmitter, c citation) {
	if c.URL == "" || s.citations[c.URL] {
		return
	}
	s.citations[c.URL] = true
	t.AppendURLCitation(particle.URLCitation{
		Title: c.Title,
		URL:   c.URL,
		Num:   len(s.citations),
		Text:  c.CitedText,
	})
}

func issueText(e *apiError) string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

/*
	##### STREAM #####
*/

type block struct {
	kind   string
	id     string
	closed bool
}

type streamParser struct {
	shared
	blocks      []block
	usage       usage
	haveUsage   bool
	metricsSent bool
}

func newStreamParser(ctx context.Context) *streamParser {
	return &streamParser{shared: newShared(ctx)}
}

func (p *streamParser) parse(t particle.Transmitter, event ai.StreamEvent) error {
	if event.End {
		return nil
	}
	p.timing.MarkEvent()

	var ev streamEvent
	if err := json.Unmarshal(event.Data, &ev); err != nil {
		return fmt.Errorf("%s: decoding %q event: %w", vendorName, event.Name, err)
	}
	name := event.Name
	if name == "" {
		name = ev.Type
	}

	if name == "error" || ev.Error != nil {
		if ev.Error == nil {
			ev.Error = &apiError{Message: string(event.Data)}
		}
		t.SetDialectTerminatingIssue(issueText(ev.Error))
		return nil
	}

	switch name {
	case "ping":
		return nil

	case "message_start":
		if ev.Message == nil {
			return ai.NewProtocolViolation(vendorName, "message_start without message")
		}
		t.SetModelName(ev.Message.Model)
		if ev.Message.Usage != nil {
			p.usage = *ev.Message.Usage
			p.haveUsage = true
		}
		return nil

	case "content_block_start":
		return p.startBlock(t, ev)

	case "content_block_delta":
		return p.delta(t, ev)

	case "content_block_stop":
		b, err := p.openBlock(ev.Index, name)
		if err != nil {
			return err
		}
		b.closed = true
		t.EndMessagePart()
		return nil

	case "message_delta":
		if ev.Delta != nil && ev.Delta.StopReason != nil {
			p.setStopReason(t, *ev.Delta.StopReason)
		}
		if ev.Usage != nil {
			p.mergeUsage(*ev.Usage)
			p.sendMetrics(t, p.usage)
			p.metricsSent = true
		}
		return nil

	case "message_stop":
		if !p.metricsSent && p.haveUsage {
			p.sendMetrics(t, p.usage)
			p.metricsSent = true
		}
		return nil

	default:
		p.log().Warn(p.ctx, "ignoring unknown stream event",
			observability.String(observability.AttrLLMVendor, vendorName),
			observability.String(observability.AttrLLMEventName, name),
		)
		return nil
	}
}

// mergeUsage folds message_delta usage, which carries cumulative output
// tokens and sometimes updated input counters, into the message_start usage.
func (p *streamParser) mergeUsage(u usage) {
	p.haveUsage = true
	p.usage.OutputTokens = u.OutputTokens
	if u.InputTokens != 0 {
		p.usage.InputTokens = u.InputTokens
	}
	if u.CacheReadInputTokens != 0 {
		p.usage.CacheReadInputTokens = u.CacheReadInputTokens
	}
	if u.CacheCreationInputTokens != 0 {
		p.usage.CacheCreationInputTokens = u.CacheCreationInputTokens
	}
}

func (p *streamParser) startBlock(t particle.Transmitter, ev streamEvent) error {
	if ev.Index == nil || ev.ContentBlock == nil {
		return ai.NewProtocolViolation(vendorName, "content_block_start without index or block")
	}
	if *ev.Index != len(p.blocks) {
		return ai.NewProtocolViolation(vendorName, "content block %d started, expected %d", *ev.Index, len(p.blocks))
	}
	if n := len(p.blocks); n > 0 && !p.blocks[n-1].closed {
		return ai.NewProtocolViolation(vendorName, "content block %d started while %d is open", *ev.Index, n-1)
	}

	cb := ev.ContentBlock
	b := block{kind: cb.Type, id: cb.ID}
	switch cb.Type {
	case "text":
		t.AppendAutoText(cb.Text)
		for _, c := range cb.Citations {
			p.cite(t, c)
		}
	case "thinking":
		t.AppendReasoningText(cb.Thinking)
	case "redacted_thinking":
	case "tool_use":
		if cb.ID == "" || cb.Name == "" {
			return ai.NewProtocolViolation(vendorName, "tool_use block %d without id or name", *ev.Index)
		}
		t.StartFunctionCallInvocation(cb.ID, cb.Name, initialArgs(cb.Input))
	default:
		p.log().Debug(p.ctx, "ignoring content block",
			observability.String(observability.AttrLLMVendor, vendorName),
			observability.String("block.type", cb.Type),
		)
	}
	p.blocks = append(p.blocks, b)
	return nil
}

// initialArgs drops the empty input object Anthropic sends on tool_use start.
func initialArgs(input json.RawMessage) string {
	trimmed := bytes.TrimSpace(input)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) {
		return ""
	}
	return string(trimmed)
}

func (p *streamParser) openBlock(index *int, event string) (*block, error) {
	if index == nil || *index < 0 || *index >= len(p.blocks) {
		return nil, ai.NewProtocolViolation(vendorName, "%s for unknown content block", event)
	}
	b := &p.blocks[*index]
	if b.closed {
		return nil, ai.NewProtocolViolation(vendorName, "%s for closed content block %d", event, *index)
	}
	return b, nil
}

func (p *streamParser) delta(t particle.Transmitter, ev streamEvent) error {
	b, err := p.openBlock(ev.Index, "content_block_delta")
	if err != nil {
		return err
	}
	if ev.Delta == nil {
		return ai.NewProtocolViolation(vendorName, "content_block_delta without delta")
	}
	d := ev.Delta

	accepted, known := blockKinds[b.kind]
	if !known {
		return nil
	}
	if !slices.Contains(accepted, d.Type) {
		return ai.NewProtocolViolation(vendorName, "%s on %s block %d", d.Type, b.kind, *ev.Index)
	}

	switch d.Type {
	case "text_delta":
		t.AppendAutoText(d.Text)
	case "citations_delta":
		if d.Citation != nil {
			p.cite(t, *d.Citation)
		}
	case "thinking_delta":
		t.AppendReasoningText(d.Thinking)
	case "signature_delta":
	case "input_json_delta":
		return t.AppendFunctionCallInvocationArgs(b.id, d.PartialJSON)
	}
	return nil
}

/*
	##### WHOLE #####
*/

type wholeParser struct {
	shared
}

func newWholeParser(ctx context.Context) *wholeParser {
	return &wholeParser{shared: newShared(ctx)}
}

func (p *wholeParser) parse(t particle.Transmitter, event ai.StreamEvent) error {
	p.timing.MarkEvent()

	var envelope errorEnvelope
	if err := json.Unmarshal(event.Data, &envelope); err == nil && envelope.Type == "error" && envelope.Error != nil {
		t.SetDialectTerminatingIssue(issueText(envelope.Error))
		return nil
	}

	var res messageResponse
	if err := json.Unmarshal(event.Data, &res); err != nil {
		return fmt.Errorf("%s: decoding response: %w", vendorName, err)
	}
	if res.Type != "message" {
		return ai.NewProtocolViolation(vendorName, "unexpected response type %q", res.Type)
	}

	t.SetModelName(res.Model)
	for i, cb := range res.Content {
		switch cb.Type {
		case "text":
			t.AppendText(cb.Text)
			for _, c := range cb.Citations {
				p.cite(t, c)
			}
		case "thinking":
			t.AppendReasoningText(cb.Thinking)
		case "redacted_thinking":
		case "tool_use":
			if cb.ID == "" || cb.Name == "" {
				return ai.NewProtocolViolation(vendorName, "tool_use block %d without id or name", i)
			}
			t.StartFunctionCallInvocation(cb.ID, cb.Name, string(bytes.TrimSpace(cb.Input)))
		default:
			p.log().Debug(p.ctx, "ignoring content block",
				observability.String(observability.AttrLLMVendor, vendorName),
				observability.String("block.type", cb.Type),
			)
			continue
		}
		t.EndMessagePart()
	}

	if res.StopReason != nil {
		p.setStopReason(t, *res.StopReason)
	}
	if res.Usage != nil {
		p.sendMetrics(t, *res.Usage)
	}
	return nil
}
