package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/particle"
	"github.com/leofalp/aix/providers/observability"
)

var finishReasons = map[string]particle.TokenStopReason{
	"STOP":               particle.StopOK,
	"MAX_TOKENS":         particle.StopOutOfTokens,
	"SAFETY":             particle.StopFilterContent,
	"BLOCKLIST":          particle.StopFilterContent,
	"PROHIBITED_CONTENT": particle.StopFilterContent,
	"SPII":               particle.StopFilterContent,
	"IMAGE_SAFETY":       particle.StopFilterContent,
	"RECITATION":         particle.StopFilterRecitation,
}

// parser handles both streamGenerateContent chunks and whole
// generateContent responses, which share one shape.
type parser struct {
	ctx         context.Context
	streaming   bool
	timing      *particle.Timing
	citations   map[string]bool
	lastExecID  string
	sawToolCall bool
}

func newParser(ctx context.Context, streaming bool) *parser {
	return &parser{ctx: ctx, streaming: streaming, timing: particle.NewTiming(), citations: map[string]bool{}}
}

func (p *parser) parse(t particle.Transmitter, event ai.StreamEvent) error {
	if event.End {
		return nil
	}
	p.timing.MarkEvent()

	var envelope errorEnvelope
	if err := json.Unmarshal(event.Data, &envelope); err != nil {
		return fmt.Errorf("%s: decoding response: %w", vendorName, err)
	}
	if envelope.Error != nil {
		t.SetDialectTerminatingIssue(fmt.Sprintf("%s: %s", envelope.Error.Status, envelope.Error.Message))
		return nil
	}

	var res generateContentResponse
	if err := json.Unmarshal(event.Data, &res); err != nil {
		return fmt.Errorf("%s: decoding response: %w", vendorName, err)
	}
	t.SetModelName(res.ModelVersion)

	if res.PromptFeedback != nil && res.PromptFeedback.BlockReason != "" {
		p.sendMetrics(t, res.UsageMetadata)
		t.AppendText(fmt.Sprintf("Prompt blocked: %s", res.PromptFeedback.BlockReason))
		t.SetTokenStopReason(particle.StopFilterContent)
		return nil
	}
	if len(res.Candidates) > 1 {
		return ai.NewProtocolViolation(vendorName, "response with %d candidates", len(res.Candidates))
	}

	for _, c := range res.Candidates {
		if c.Index != 0 {
			return ai.NewProtocolViolation(vendorName, "response for candidate %d", c.Index)
		}
		if c.Content != nil {
			for _, part := range c.Content.Parts {
				if err := p.part(t, part); err != nil {
					return err
				}
			}
		}
		p.ground(t, c.GroundingMetadata)
		if c.FinishReason != "" {
			p.sendMetrics(t, res.UsageMetadata)
			p.finish(t, c)
		}
	}
	if !p.streaming && len(res.Candidates) == 0 {
		p.sendMetrics(t, res.UsageMetadata)
	}
	return nil
}

func (p *parser) part(t particle.Transmitter, part part) error {
	switch {
	case part.Thought:
		t.AppendReasoningText(part.Text)
	case part.Text != "":
		if p.streaming {
			t.AppendAutoText(part.Text)
		} else {
			t.AppendText(part.Text)
		}
	case part.FunctionCall != nil:
		call := part.FunctionCall
		if call.Name == "" {
			return ai.NewProtocolViolation(vendorName, "function call without a name")
		}
		id := call.ID
		if id == "" {
			id = uuid.NewString()
		}
		args := strings.TrimSpace(string(call.Args))
		if args == "" || args == "null" {
			args = "{}"
		}
		t.StartFunctionCallInvocation(id, call.Name, args)
		t.EndMessagePart()
		p.sawToolCall = true
	case part.ExecutableCode != nil:
		p.lastExecID = uuid.NewString()
		t.AddCodeExecutionInvocation(p.lastExecID, strings.ToLower(part.ExecutableCode.Language), part.ExecutableCode.Code, vendorName)
	case part.CodeExecutionResult != nil:
		if p.lastExecID == "" {
			return ai.NewProtocolViolation(vendorName, "code execution result without executable code")
		}
		result := part.CodeExecutionResult
		t.AddCodeExecutionResponse(p.lastExecID, result.Outcome != "OUTCOME_OK", result.Output, vendorName, "sandbox")
		p.lastExecID = ""
	case part.InlineData != nil:
		if strings.HasPrefix(part.InlineData.MimeType, "audio/") {
			t.AppendAudioInline(particle.InlineAudio{MimeType: part.InlineData.MimeType, Base64: part.InlineData.Data})
			return nil
		}
		observability.ObserverFromContext(p.ctx).Warn(p.ctx, "inline data dropped",
			observability.String(observability.AttrLLMVendor, vendorName),
			observability.String("mime_type", part.InlineData.MimeType),
		)
	}
	return nil
}

func (p *parser) ground(t particle.Transmitter, meta *groundingMetadata) {
	if meta == nil {
		return
	}
	for _, chunk := range meta.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || p.citations[chunk.Web.URI] {
			continue
		}
		p.citations[chunk.Web.URI] = true
		t.AppendURLCitation(particle.URLCitation{Title: chunk.Web.Title, URL: chunk.Web.URI, Num: len(p.citations)})
	}
}

func (p *parser) finish(t particle.Transmitter, c candidate) {
	if c.FinishReason == "MALFORMED_FUNCTION_CALL" {
		text := "malformed function call"
		if c.FinishMessage != "" {
			text += ": " + c.FinishMessage
		}
		t.SetDialectTerminatingIssue(text)
		return
	}
	reason, ok := finishReasons[c.FinishReason]
	if !ok {
		observability.ObserverFromContext(p.ctx).Warn(p.ctx, "unknown finish reason",
			observability.String(observability.AttrLLMVendor, vendorName),
			observability.String(observability.AttrLLMFinishReason, c.FinishReason),
		)
		return
	}
	if reason == particle.StopOK && p.sawToolCall {
		reason = particle.StopOKToolInvocations
	}
	t.SetTokenStopReason(reason)
}

func (p *parser) sendMetrics(t particle.Transmitter, u *usageMetadata) {
	if u == nil {
		return
	}
	m := particle.Metrics{
		TIn:        max(u.PromptTokenCount-u.CachedContentTokenCount, 0),
		TCacheRead: u.CachedContentTokenCount,
		TOut:       u.CandidatesTokenCount + u.ThoughtsTokenCount,
		TOutR:      u.ThoughtsTokenCount,
	}
	p.timing.Fill(&m)
	t.UpdateMetrics(m)
}
