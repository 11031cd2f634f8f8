package openai

import (
	"github.com/leofalp/aix/providers/ai/hotfix"
)

// Responses hotfix names.
const (
	HotfixResponsesReasoningNoSampling = "responses-reasoning-no-sampling"
)

var responsesHotfixes hotfix.Registry[ResponsesRequest]

func init() {
	responsesHotfixes.Register(hotfix.Pass[ResponsesRequest]{
		Name:  HotfixResponsesReasoningNoSampling,
		Scope: hotfix.Families(reasoningFamilies...),
		Apply: DropResponsesSampling,
	})
}

// ResponsesHotfixes lists the Responses hotfix names.
func ResponsesHotfixes() []string { return responsesHotfixes.Names() }

// DropResponsesSampling removes temperature and top_p, which reasoning
// models reject.
func DropResponsesSampling(body *ResponsesRequest) (bool, error) {
	if body.Temperature == nil && body.TopP == nil {
		return false, nil
	}
	body.Temperature, body.TopP = nil, nil
	return true, nil
}
