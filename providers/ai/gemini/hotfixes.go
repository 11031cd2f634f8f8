package gemini

import (
	"encoding/json"
	"slices"

	"github.com/leofalp/aix/providers/ai"
	"github.com/leofalp/aix/providers/ai/hotfix"
)

const (
	HotfixImagesBeforeText = "images-before-text"
	HotfixSchemaSubset     = "gemini-schema-subset"
)

// maxSchemaDepth bounds $ref inlining for recursive schemas.
const maxSchemaDepth = 6

var hotfixes hotfix.Registry[generateContentRequest]

func init() {
	geminiOnly := hotfix.Dialects(ai.DialectGemini)
	hotfixes.Register(hotfix.Pass[generateContentRequest]{
		Name:  HotfixImagesBeforeText,
		Scope: geminiOnly,
		Apply: imagesBeforeText,
	})
	hotfixes.Register(hotfix.Pass[generateContentRequest]{
		Name:  HotfixSchemaSubset,
		Scope: geminiOnly,
		Apply: schemaSubset,
	})
}

// Hotfixes lists the hotfix names of this vendor.
func Hotfixes() []string { return hotfixes.Names() }

// imagesBeforeText moves inline images ahead of the other parts of a user
// turn. Turns answering function calls keep their order.
func imagesBeforeText(body *generateContentRequest) (bool, error) {
	changed := false
	for i := range body.Contents {
		c := &body.Contents[i]
		if c.Role != "user" || slices.ContainsFunc(c.Parts, func(p part) bool { return p.FunctionResponse != nil }) {
			continue
		}
		if slices.IsSortedFunc(c.Parts, byImageFirst) {
			continue
		}
		slices.SortStableFunc(c.Parts, byImageFirst)
		changed = true
	}
	return changed, nil
}

func byImageFirst(a, b part) int {
	return imageRank(a) - imageRank(b)
}

func imageRank(p part) int {
	if p.InlineData != nil {
		return 0
	}
	return 1
}

// schemaSubset rewrites function parameters into the OpenAPI subset Gemini
// accepts: $ref inlined, no $defs, no additionalProperties, no defaults.
func schemaSubset(body *generateContentRequest) (bool, error) {
	changed := false
	for i := range body.Tools {
		for j := range body.Tools[i].FunctionDeclarations {
			decl := &body.Tools[i].FunctionDeclarations[j]
			if decl.Parameters == nil {
				continue
			}
			before, err := json.Marshal(decl.Parameters)
			if err != nil {
				return changed, err
			}
			subset := decl.Parameters.GeminiSubset(maxSchemaDepth)
			after, err := json.Marshal(subset)
			if err != nil {
				return changed, err
			}
			decl.Parameters = subset
			if string(before) != string(after) {
				changed = true
			}
		}
	}
	return changed, nil
}
