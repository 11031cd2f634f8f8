package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

const codeInterpreter = "code_interpreter"

// responsesIgnored are stream events whose content also arrives through
// another event.
var responsesIgnored = map[string]bool{
	"response.queued":                             true,
	"response.content_part.added":                 true,
	"response.content_part.done":                  true,
	"response.output_text.done":                   true,
	"response.refusal.done":                       true,
	"response.function_call_arguments.done":       true,
	"response.reasoning_summary_part.done":        true,
	"response.reasoning_summary_text.done":        true,
	"response.reasoning_text.done":                true,
	"response.code_interpreter_call.in_progress":  true,
	"response.code_interpreter_call.interpreting": true,
	"response.code_interpreter_call.completed":    true,
	"response.code_interpreter_call_code.delta":   true,
	"response.code_interpreter_call_code.done":    true,
	"response.web_search_call.in_progress":        true,
	"response.web_search_call.searching":          true,
	"response.web_search_call.completed":          true,
}

// NewResponsesParser returns the parser for Responses-shaped APIs. vendor
// names the caller in errors and logs.
func NewResponsesParser(ctx context.Context, vendor string, streaming bool) ai.Parser {
	p := &responsesParser{
		vendor:    vendor,
		ctx:       ctx,
		timing:    particle.NewTiming(),
		citations: map[string]bool{},
		calls:     map[string]*responsesCall{},
	}
	if streaming {
		return p.parseEvent
	}
	return p.parseWhole
}

type responsesCall struct {
	callID string
	args   strings.Builder
	done   bool
}

type responsesParser struct {
	vendor    string
	ctx       context.Context
	timing    *particle.Timing
	citations map[string]bool

	// calls is keyed by output item id.
	calls       map[string]*responsesCall
	sawToolCall bool
}

func (p *responsesParser) parseEvent(t particle.Transmitter, event ai.StreamEvent) error {
	if event.End {
		return nil
	}
	p.timing.MarkEvent()

	// Proxies relay upstream failures as a bare error envelope without a
	// type. Vendor error events carry code and message at the top level.
	if text, found, err := upstreamError(event.Data); err != nil {
		return fmt.Errorf("%s: decoding event: %w", p.vendor, err)
	} else if found {
		t.SetDialectTerminatingIssue(text)
		return nil
	}

	var ev responsesEvent
	if err := json.Unmarshal(event.Data, &ev); err != nil {
		return fmt.Errorf("%s: decoding event: %w", p.vendor, err)
	}
	kind := ev.Type
	if kind == "" {
		kind = event.Name
	}

	switch kind {
	case "error":
		t.SetDialectTerminatingIssue(joinIssue(ev.Code, ev.Message))

	case "response.created", "response.in_progress":
		if ev.Response != nil {
			t.SetModelName(ev.Response.Model)
		}

	case "response.output_item.added":
		if ev.Item == nil {
			return ai.NewProtocolViolation(p.vendor, "%s without item", kind)
		}
		if ev.Item.Type == "function_call" {
			return p.startCall(t, ev.Item)
		}

	case "response.output_item.done":
		if ev.Item == nil {
			return ai.NewProtocolViolation(p.vendor, "%s without item", kind)
		}
		return p.itemDone(t, ev.Item)

	case "response.output_text.delta", "response.refusal.delta":
		t.AppendAutoText(ev.Delta)

	case "response.output_text.annotation.added":
		if ev.Annotation != nil {
			p.cite(t, *ev.Annotation)
		}

	case "response.reasoning_summary_part.added":
		// Summary parts of one reasoning item are separate paragraphs.
		if ev.SummaryIndex > 0 {
			t.AppendReasoningText("\n\n")
		}

	case "response.reasoning_summary_text.delta", "response.reasoning_text.delta":
		t.AppendReasoningText(ev.Delta)

	case "response.function_call_arguments.delta":
		call, ok := p.calls[ev.ItemID]
		if !ok {
			return ai.NewProtocolViolation(p.vendor, "arguments for unknown item %q", ev.ItemID)
		}
		if call.done {
			return ai.NewProtocolViolation(p.vendor, "arguments for closed item %q", ev.ItemID)
		}
		call.args.WriteString(ev.Delta)
		return t.AppendFunctionCallInvocationArgs(call.callID, ev.Delta)

	case "response.completed", "response.incomplete", "response.failed":
		if ev.Response == nil {
			return ai.NewProtocolViolation(p.vendor, "%s without response", kind)
		}
		p.terminal(t, ev.Response)

	default:
		if !responsesIgnored[kind] {
			observability.ObserverFromContext(p.ctx).Warn(p.ctx, "unknown stream event",
				observability.String(observability.AttrLLMVendor, p.vendor),
				observability.String(observability.AttrLLMEventName, kind),
			)
		}
	}
	return nil
}

func (p *responsesParser) startCall(t particle.Transmitter, item *outputItem) error {
	if item.CallID == "" || item.Name == "" {
		return ai.NewProtocolViolation(p.vendor, "function call item %q without call_id or name", item.ID)
	}
	if _, seen := p.calls[item.ID]; seen {
		return ai.NewProtocolViolation(p.vendor, "function call item %q added twice", item.ID)
	}
	call := &responsesCall{callID: item.CallID}
	call.args.WriteString(item.Arguments)
	p.calls[item.ID] = call
	p.sawToolCall = true
	t.StartFunctionCallInvocation(item.CallID, item.Name, item.Arguments)
	return nil
}

// itemDone closes function calls and surfaces hosted tool items, which only
// arrive complete. Some hosts send function calls only as done items.
func (p *responsesParser) itemDone(t particle.Transmitter, item *outputItem) error {
	switch item.Type {
	case "function_call":
		call, ok := p.calls[item.ID]
		if !ok {
			if err := p.startCall(t, item); err != nil {
				return err
			}
			p.calls[item.ID].done = true
			t.EndMessagePart()
			return nil
		}
		if item.CallID != "" && item.CallID != call.callID {
			return ai.NewProtocolViolation(p.vendor, "function call item %q changed call_id from %q to %q", item.ID, call.callID, item.CallID)
		}
		if rest, ok := strings.CutPrefix(item.Arguments, call.args.String()); ok && rest != "" {
			if err := t.AppendFunctionCallInvocationArgs(call.callID, rest); err != nil {
				return err
			}
		}
		call.done = true
		t.EndMessagePart()
	case "code_interpreter_call":
		p.codeInterpreter(t, item)
	}
	return nil
}

func (p *responsesParser) codeInterpreter(t particle.Transmitter, item *outputItem) {
	if item.Code != nil {
		t.AddCodeExecutionInvocation(item.ID, "python", *item.Code, codeInterpreter)
	}
	var logs []string
	for _, out := range item.Outputs {
		if out.Type == "logs" {
			logs = append(logs, out.Logs)
		}
	}
	if len(logs) > 0 || item.Status == "failed" {
		t.AddCodeExecutionResponse(item.ID, item.Status == "failed", strings.Join(logs, "\n"), codeInterpreter, "container")
	}
}

func (p *responsesParser) terminal(t particle.Transmitter, res *responsesResponse) {
	t.SetModelName(res.Model)
	if res.Usage != nil {
		p.sendMetrics(t, res.Usage)
	}

	switch res.Status {
	case "failed":
		msg := "response failed"
		if res.Error != nil {
			msg = joinIssue(res.Error.Code, res.Error.Message)
		}
		t.SetDialectTerminatingIssue(msg)
	case "incomplete":
		reason := ""
		if res.IncompleteDetails != nil {
			reason = res.IncompleteDetails.Reason
		}
		switch reason {
		case "max_output_tokens":
			t.SetTokenStopReason(particle.StopOutOfTokens)
		case "content_filter":
			t.SetTokenStopReason(particle.StopFilterContent)
		default:
			observability.ObserverFromContext(p.ctx).Warn(p.ctx, "unknown incomplete reason",
				observability.String(observability.AttrLLMVendor, p.vendor),
				observability.String(observability.AttrLLMFinishReason, reason),
			)
		}
	default:
		if p.sawToolCall {
			t.SetTokenStopReason(particle.StopOKToolInvocations)
		} else {
			t.SetTokenStopReason(particle.StopOK)
		}
	}
}

func (p *responsesParser) parseWhole(t particle.Transmitter, event ai.StreamEvent) error {
	p.timing.MarkEvent()

	text, found, err := upstreamError(event.Data)
	if err != nil {
		return fmt.Errorf("%s: decoding response: %w", p.vendor, err)
	}
	var res responsesResponse
	if err := json.Unmarshal(event.Data, &res); err != nil {
		return fmt.Errorf("%s: decoding response: %w", p.vendor, err)
	}
	// A failed response object carries its error too; only a bare error
	// envelope ends the call here.
	if found && res.Object == "" {
		t.SetDialectTerminatingIssue(text)
		return nil
	}
	if res.Object != "" && res.Object != "response" {
		return ai.NewProtocolViolation(p.vendor, "unexpected object %q", res.Object)
	}
	t.SetModelName(res.Model)

	for _, item := range res.Output {
		switch item.Type {
		case "message":
			for _, c := range item.Content {
				switch c.Type {
				case "output_text":
					t.AppendText(c.Text)
					for _, a := range c.Annotations {
						p.cite(t, a)
					}
				case "refusal":
					t.AppendText(c.Refusal)
				}
			}
		case "reasoning":
			for i, s := range item.Summary {
				if i > 0 {
					t.AppendReasoningText("\n\n")
				}
				t.AppendReasoningText(s.Text)
			}
			for _, c := range item.Content {
				if c.Type == "reasoning_text" {
					t.AppendReasoningText(c.Text)
				}
			}
		case "function_call":
			if err := p.startCall(t, &item); err != nil {
				return err
			}
			t.EndMessagePart()
		case "code_interpreter_call":
			p.codeInterpreter(t, &item)
		}
	}

	p.terminal(t, &res)
	return nil
}

func (p *responsesParser) sendMetrics(t particle.Transmitter, u *usageDetails) {
	m := particle.Metrics{TOut: u.OutputTokens}
	cached := 0
	if u.InputTokensDetails != nil {
		cached = u.InputTokensDetails.CachedTokens
	}
	m.TIn = max(u.InputTokens-cached, 0)
	m.TCacheRead = cached
	if u.OutputTokensDetails != nil {
		m.TOutR = u.OutputTokensDetails.ReasoningTokens
	}
	p.timing.Fill(&m)
	t.UpdateMetrics(m)
}

func (p *responsesParser) cite(t particle.Transmitter, a annotation) {
	if a.Type != "url_citation" || a.URL == "" || p.citations[a.URL] {
		return
	}
	p.citations[a.URL] = true
	t.AppendURLCitation(particle.URLCitation{
		Title: a.Title,
		URL:   a.URL,
		Num:   len(p.citations),
		From:  a.StartIndex,
		To:    a.EndIndex,
	})
}

func joinIssue(code, message string) string {
	switch {
	case code == "":
		return message
	case message == "":
		return code
	}
	return code + ": " + message
}
