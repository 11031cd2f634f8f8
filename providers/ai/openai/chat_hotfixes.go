package openai

import (
	"errors"
	"slices"
	"strings"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/hotfix"
)

// Chat Completions hotfix names.
const (
	HotfixMaxCompletionTokens    = "max-completion-tokens"
	HotfixSystemAsDeveloper      = "system-as-developer"
	HotfixStripStreamOptions     = "strip-stream-options"
	HotfixStripParallelToolCalls = "strip-parallel-tool-calls"
	HotfixToolChoiceAutoOnly     = "tool-choice-auto-only"
	HotfixRejectTools            = "reject-tools"
	HotfixRejectImages           = "reject-images"
	HotfixMergeConsecutiveRoles  = "merge-consecutive-roles"
	HotfixSquashTextParts        = "squash-text-parts"
	HotfixRemoveEmptyMessages    = "remove-empty-messages"
)

var chatHotfixes hotfix.Registry[chatRequest]

func init() {
	reasoning := hotfix.Families(reasoningFamilies...)

	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixMaxCompletionTokens,
		Scope: hotfix.All(hotfix.Dialects(ai.DialectOpenAI, ai.DialectAzure, ai.DialectOpenRouter), reasoning),
		Apply: maxCompletionTokens,
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixSystemAsDeveloper,
		Scope: hotfix.All(hotfix.Dialects(ai.DialectOpenAI, ai.DialectAzure), reasoning),
		Apply: systemAsDeveloper,
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixStripStreamOptions,
		Scope: hotfix.Dialects(ai.DialectMistral, ai.DialectPerplexity, ai.DialectLMStudio, ai.DialectLocalAI),
		Apply: func(body *chatRequest) (bool, error) {
			if body.StreamOptions == nil {
				return false, nil
			}
			body.StreamOptions = nil
			return true, nil
		},
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixStripParallelToolCalls,
		Scope: hotfix.Dialects(ai.DialectMistral, ai.DialectGroq, ai.DialectOllama, ai.DialectLMStudio),
		Apply: func(body *chatRequest) (bool, error) {
			if body.ParallelToolCalls == nil {
				return false, nil
			}
			body.ParallelToolCalls = nil
			return true, nil
		},
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixToolChoiceAutoOnly,
		Scope: hotfix.Dialects(ai.DialectMistral),
		Apply: toolChoiceAutoOnly,
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixRejectTools,
		Scope: hotfix.Dialects(ai.DialectPerplexity),
		Apply: func(body *chatRequest) (bool, error) {
			if len(body.Tools) > 0 {
				return false, errors.New("tools are not supported by this dialect")
			}
			return false, nil
		},
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixRejectImages,
		Scope: hotfix.Dialects(ai.DialectDeepseek, ai.DialectPerplexity),
		Apply: rejectImages,
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixMergeConsecutiveRoles,
		Scope: hotfix.Dialects(ai.DialectDeepseek, ai.DialectPerplexity, ai.DialectMistral),
		Apply: mergeConsecutiveRoles,
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixSquashTextParts,
		Scope: hotfix.Dialects(ai.DialectDeepseek, ai.DialectPerplexity, ai.DialectGroq, ai.DialectMistral),
		Apply: squashTextParts,
	})
	chatHotfixes.Register(hotfix.Pass[chatRequest]{
		Name:  HotfixRemoveEmptyMessages,
		Scope: hotfix.Dialects(ai.DialectPerplexity, ai.DialectDeepseek),
		Apply: removeEmptyMessages,
	})
}

// ChatHotfixes lists the Chat Completions hotfix names.
func ChatHotfixes() []string { return chatHotfixes.Names() }

func maxCompletionTokens(body *chatRequest) (bool, error) {
	changed := body.Temperature != nil || body.TopP != nil
	body.Temperature, body.TopP = nil, nil
	if body.MaxTokens != nil {
		body.MaxCompletionTokens = body.MaxTokens
		body.MaxTokens = nil
		changed = true
	}
	return changed, nil
}

func systemAsDeveloper(body *chatRequest) (bool, error) {
	changed := false
	for i := range body.Messages {
		if body.Messages[i].Role == "system" {
			body.Messages[i].Role = "developer"
			changed = true
		}
	}
	return changed, nil
}

func toolChoiceAutoOnly(body *chatRequest) (bool, error) {
	if body.ToolChoice == nil || body.ToolChoice == "auto" {
		return false, nil
	}
	return false, errors.New("only the auto tools policy is supported by this dialect")
}

func rejectImages(body *chatRequest) (bool, error) {
	for _, msg := range body.Messages {
		for _, part := range contentParts(msg.Content) {
			if part.Type == "image_url" {
				return false, errors.New("images are not supported by this dialect")
			}
		}
	}
	return false, nil
}

// mergeConsecutiveRoles folds neighbouring user or assistant messages.
// Tool messages are kept apart since each answers its own call.
func mergeConsecutiveRoles(body *chatRequest) (bool, error) {
	if len(body.Messages) < 2 {
		return false, nil
	}
	merged := make([]chatMessage, 0, len(body.Messages))
	for _, msg := range body.Messages {
		if n := len(merged); n > 0 && mergeable(merged[n-1], msg) {
			merged[n-1] = mergeMessages(merged[n-1], msg)
			continue
		}
		merged = append(merged, msg)
	}
	if len(merged) == len(body.Messages) {
		return false, nil
	}
	body.Messages = merged
	return true, nil
}

func mergeable(a, b chatMessage) bool {
	return a.Role == b.Role && a.Role != "tool"
}

// mergeMessages folds b into a. Blank content gives way to the other side so
// that merging and removing empty messages agree on the result.
func mergeMessages(a, b chatMessage) chatMessage {
	out := a
	out.ToolCalls = append(slices.Clone(a.ToolCalls), b.ToolCalls...)
	aBlank, bBlank := blankContent(a.Content), blankContent(b.Content)
	switch {
	case aBlank && bBlank:
		if len(a.ToolCalls) == 0 && len(b.ToolCalls) > 0 {
			out.Content = b.Content
		}
	case bBlank:
	case aBlank:
		out.Content = b.Content
	default:
		out.Content = mergeContent(a.Content, b.Content)
	}
	return out
}

// mergeContent concatenates two contents. Text meeting at the seam is
// joined into one part.
func mergeContent(a, b any) any {
	as, aString := a.(string)
	bs, bString := b.(string)
	if aString && bString {
		return as + "\n\n" + bs
	}
	left, right := contentParts(a), contentParts(b)
	out := make([]chatContentPart, 0, len(left)+len(right))
	out = append(out, left...)
	for i, part := range right {
		if n := len(out); i == 0 && n > 0 && out[n-1].Type == "text" && part.Type == "text" {
			out[n-1].Text += "\n\n" + part.Text
			continue
		}
		out = append(out, part)
	}
	return out
}

// contentParts views string content as a single text part.
func contentParts(content any) []chatContentPart {
	switch c := content.(type) {
	case string:
		return []chatContentPart{{Type: "text", Text: c}}
	case []chatContentPart:
		return c
	}
	return nil
}

func blankContent(content any) bool {
	for _, part := range contentParts(content) {
		if part.Type != "text" || strings.TrimSpace(part.Text) != "" {
			return false
		}
	}
	return true
}

// squashTextParts turns all-text content into a plain string and joins
// adjacent text parts of mixed content.
func squashTextParts(body *chatRequest) (bool, error) {
	changed := false
	for i := range body.Messages {
		parts, ok := body.Messages[i].Content.([]chatContentPart)
		if !ok || len(parts) == 0 {
			continue
		}
		squashed := make([]chatContentPart, 0, len(parts))
		for _, part := range parts {
			if n := len(squashed); n > 0 && squashed[n-1].Type == "text" && part.Type == "text" {
				squashed[n-1].Text += "\n\n" + part.Text
				continue
			}
			squashed = append(squashed, part)
		}
		switch {
		case len(squashed) == 1 && squashed[0].Type == "text":
			body.Messages[i].Content = squashed[0].Text
		case len(squashed) < len(parts):
			body.Messages[i].Content = squashed
		default:
			continue
		}
		changed = true
	}
	return changed, nil
}

// removeEmptyMessages drops blank messages that carry no tool calls. Same
// role messages brought together by a removal are merged.
func removeEmptyMessages(body *chatRequest) (bool, error) {
	kept := make([]chatMessage, 0, len(body.Messages))
	dropped := false
	for _, msg := range body.Messages {
		if msg.Role != "tool" && len(msg.ToolCalls) == 0 && blankContent(msg.Content) {
			dropped = true
			continue
		}
		if n := len(kept); dropped && n > 0 && mergeable(kept[n-1], msg) {
			kept[n-1] = mergeMessages(kept[n-1], msg)
		} else {
			kept = append(kept, msg)
		}
		dropped = false
	}
	if len(kept) == len(body.Messages) {
		return false, nil
	}
	body.Messages = kept
	return true, nil
}
