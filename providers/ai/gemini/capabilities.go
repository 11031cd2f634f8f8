package gemini

import "slices"

// harmCategories are the categories a safety threshold is applied to.
var harmCategories = []string{
	"HARM_CATEGORY_HARASSMENT",
	"HARM_CATEGORY_HATE_SPEECH",
	"HARM_CATEGORY_SEXUALLY_EXPLICIT",
	"HARM_CATEGORY_DANGEROUS_CONTENT",
}

// SafetyThresholds lists the accepted ai.ModelParams.SafetyThreshold values.
var SafetyThresholds = []string{
	"HARM_BLOCK_THRESHOLD_UNSPECIFIED",
	"BLOCK_LOW_AND_ABOVE",
	"BLOCK_MEDIUM_AND_ABOVE",
	"BLOCK_ONLY_HIGH",
	"BLOCK_NONE",
	"OFF",
}

// thinkingFamilies accept a thinkingConfig.
var thinkingFamilies = []string{"gemini-2.5", "gemini-3"}

func safetySettings(threshold string) []safetySetting {
	if threshold == "" {
		return nil
	}
	out := make([]safetySetting, 0, len(harmCategories))
	for _, category := range harmCategories {
		out = append(out, safetySetting{Category: category, Threshold: threshold})
	}
	return out
}

func validThreshold(threshold string) bool {
	return slices.Contains(SafetyThresholds, threshold)
}
