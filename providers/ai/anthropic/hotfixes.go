package anthropic

import (
	"slices"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/hotfix"
)

const (
	HotfixImagesBeforeText      = "images-before-text"
	HotfixMergeConsecutiveRoles = "merge-consecutive-roles"
	HotfixThinkingNoSampling    = "anthropic-thinking-no-sampling"
)

var hotfixes hotfix.Registry[messagesRequest]

var anthropicOnly = hotfix.Dialects(ai.DialectAnthropic)

func init() {
	hotfixes.Register(hotfix.Pass[messagesRequest]{
		Name:  HotfixImagesBeforeText,
		Scope: anthropicOnly,
		Apply: imagesBeforeText,
	})
	hotfixes.Register(hotfix.Pass[messagesRequest]{
		Name:  HotfixMergeConsecutiveRoles,
		Scope: anthropicOnly,
		Apply: mergeConsecutiveRoles,
	})
	hotfixes.Register(hotfix.Pass[messagesRequest]{
		Name:  HotfixThinkingNoSampling,
		Scope: anthropicOnly,
		Apply: thinkingNoSampling,
	})
}

// Hotfixes lists the hotfix names of this vendor.
func Hotfixes() []string { return hotfixes.Names() }

// imagesBeforeText moves image blocks ahead of the other blocks of a user
// turn. A run of user messages is one turn, so a run that needs sorting is
// folded into a single message first. Turns carrying tool results keep
// their order since Anthropic wants tool_result blocks first.
func imagesBeforeText(body *messagesRequest) (bool, error) {
	changed := false
	out := make([]message, 0, len(body.Messages))
	for i := 0; i < len(body.Messages); {
		j := i + 1
		for j < len(body.Messages) && body.Messages[j].Role == body.Messages[i].Role {
			j++
		}
		run := body.Messages[i:j]
		i = j

		var blocks []contentBlock
		for _, msg := range run {
			blocks = append(blocks, msg.Content...)
		}
		if run[0].Role != "user" || hasBlock(blocks, "tool_result") || !imageAfterOther(blocks) {
			out = append(out, run...)
			continue
		}
		slices.SortStableFunc(blocks, func(a, b contentBlock) int {
			return imageRank(a) - imageRank(b)
		})
		out = append(out, message{Role: "user", Content: blocks})
		changed = true
	}
	if changed {
		body.Messages = out
	}
	return changed, nil
}

func imageRank(b contentBlock) int {
	if b.Type == "image" {
		return 0
	}
	return 1
}

func imageAfterOther(blocks []contentBlock) bool {
	seenOther := false
	for _, b := range blocks {
		if b.Type != "image" {
			seenOther = true
		} else if seenOther {
			return true
		}
	}
	return false
}

func hasBlock(blocks []contentBlock, blockType string) bool {
	return slices.ContainsFunc(blocks, func(b contentBlock) bool { return b.Type == blockType })
}

// mergeConsecutiveRoles joins neighbouring messages of the same role, which
// Anthropic rejects as non-alternating.
func mergeConsecutiveRoles(body *messagesRequest) (bool, error) {
	if len(body.Messages) < 2 {
		return false, nil
	}
	merged := make([]message, 0, len(body.Messages))
	for _, msg := range body.Messages {
		if n := len(merged); n > 0 && merged[n-1].Role == msg.Role {
			merged[n-1].Content = append(merged[n-1].Content, msg.Content...)
			continue
		}
		msg.Content = slices.Clone(msg.Content)
		merged = append(merged, msg)
	}
	if len(merged) == len(body.Messages) {
		return false, nil
	}
	body.Messages = merged
	return true, nil
}

// thinkingNoSampling drops temperature and top_p when extended thinking is on.
func thinkingNoSampling(body *messagesRequest) (bool, error) {
	if body.Thinking == nil || (body.Temperature == nil && body.TopP == nil) {
		return false, nil
	}
	body.Temperature = nil
	body.TopP = nil
	return true, nil
}
