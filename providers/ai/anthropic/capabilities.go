package anthropic

import (
	"slices"
	"strings"
)

// Known anthropic-beta header values. Any other beta string can be passed
// through Capabilities.BetaFeatures.
const (
	// BetaInterleavedThinking lets thinking blocks appear between tool calls.
	BetaInterleavedThinking = "interleaved-thinking-2025-05-14"

	// BetaFineGrainedToolStreaming streams tool input without buffering whole keys.
	BetaFineGrainedToolStreaming = "fine-grained-tool-streaming-2025-05-14"

	// BetaTokenEfficientTools reduces the output tokens spent on tool calls.
	BetaTokenEfficientTools = "token-efficient-tools-2025-02-19"
)

// Capabilities are per-deployment switches of the Anthropic vendor. The zero
// value sends no beta header except the automatic interleaved-thinking one.
type Capabilities struct {
	// BetaFeatures are always sent.
	BetaFeatures []string
	// NoInterleavedThinking suppresses the automatic interleaved-thinking
	// beta added when thinking and tools are both requested.
	NoInterleavedThinking bool
}

// betaHeaderValue returns the comma-joined anthropic-beta header value for
// body, or "" when no beta applies.
func (c Capabilities) betaHeaderValue(body *messagesRequest) string {
	features := slices.Clone(c.BetaFeatures)

	if !c.NoInterleavedThinking && body != nil && body.Thinking != nil && len(body.Tools) > 0 {
		if !slices.Contains(features, BetaInterleavedThinking) {
			features = append(features, BetaInterleavedThinking)
		}
	}

	if len(features) == 0 {
		return ""
	}
	return strings.Join(features, ",")
}
