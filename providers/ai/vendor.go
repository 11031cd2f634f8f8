package ai

import (
	"encoding/json"
	"strings"
)

// VendorRequest is the output of an adapter: one vendor-native body plus the
// path and streaming mode it must be sent with.
type VendorRequest struct {
	Path      string
	Streaming bool
	// Body is the vendor payload struct, already schema-checked.
	Body any
	// SystemSplit is set when system parts spilled into a synthetic user message.
	SystemSplit bool
	// Hotfixes names the passes that changed the payload, in run order.
	Hotfixes []string
}

// JSON encodes the body.
func (r *VendorRequest) JSON() ([]byte, error) {
	return json.Marshal(r.Body)
}

// Approximation selects what an adapter does with a part the vendor cannot
// carry natively.
type Approximation string

const (
	// Approximate rewrites the part into something the vendor accepts.
	Approximate Approximation = "approximate"
	// Reject fails the request with a ValidationError.
	Reject Approximation = "reject"
)

// PartPolicy holds the per-category approximation choices.
type PartPolicy struct {
	// ModelImages covers images authored by the model, which most vendors
	// only accept from the user. Approximate moves them to a synthetic user message.
	ModelImages Approximation `json:"modelImages,omitempty" yaml:"model_images,omitempty"`
	// Documents covers doc parts. Approximate renders them as fenced text.
	Documents Approximation `json:"documents,omitempty" yaml:"documents,omitempty"`
	// References covers meta_in_reference_to. Approximate renders quoted text.
	References Approximation `json:"references,omitempty" yaml:"references,omitempty"`
}

// DefaultPartPolicy approximates everything.
var DefaultPartPolicy = PartPolicy{ModelImages: Approximate, Documents: Approximate, References: Approximate}

func (p PartPolicy) rejects(a Approximation) bool { return a == Reject }

// RejectsModelImages reports whether model-authored images must fail.
func (p PartPolicy) RejectsModelImages() bool { return p.rejects(p.ModelImages) }

// RejectsDocuments reports whether doc parts must fail.
func (p PartPolicy) RejectsDocuments() bool { return p.rejects(p.Documents) }

// RejectsReferences reports whether meta_in_reference_to parts must fail.
func (p PartPolicy) RejectsReferences() bool { return p.rejects(p.References) }

// AdapterOptions configure one adapter call.
type AdapterOptions struct {
	Dialect Dialect
	// JSONOutput asks for a JSON object response where the vendor supports it.
	JSONOutput       bool
	Policy           PartPolicy
	DisabledHotfixes []string
}

// SplitSystemMessage returns a copy of req where the system message keeps
// its leading text and cache-control parts, and every part from the first
// other part onwards moves into a synthetic user message at the head of the
// chat sequence. The second result reports whether anything moved.
func SplitSystemMessage(req *ChatGenerateRequest) (*ChatGenerateRequest, bool) {
	if req.SystemMessage == nil {
		return req, false
	}
	cut := -1
	for i, part := range req.SystemMessage.Parts {
		switch part.(type) {
		case TextPart, CacheControlPart:
			continue
		}
		cut = i
		break
	}
	if cut < 0 {
		return req, false
	}

	clone := req.Clone()
	spilled := clone.SystemMessage.Parts[cut:]
	clone.SystemMessage.Parts = clone.SystemMessage.Parts[:cut:cut]
	if len(clone.SystemMessage.Parts) == 0 {
		clone.SystemMessage = nil
	}
	synthetic := Message{Role: RoleUser, Parts: append([]Part(nil), spilled...)}
	clone.ChatSequence = append([]Message{synthetic}, clone.ChatSequence...)
	return clone, true
}

// DocAsText renders a doc part as a fenced block, the approximation used by
// vendors without a native document type.
func DocAsText(doc DocPart) string {
	var sb strings.Builder
	sb.WriteString("```")
	sb.WriteString(doc.Ref)
	if doc.Title != "" && doc.Title != doc.Ref {
		sb.WriteString(" (")
		sb.WriteString(doc.Title)
		sb.WriteString(")")
	}
	sb.WriteString("\n")
	sb.WriteString(doc.Text)
	if !strings.HasSuffix(doc.Text, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	return sb.String()
}

// ReferencesAsText renders quoted references as a context preamble.
func ReferencesAsText(ref InReferenceToPart) string {
	if len(ref.ReferTo) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("<context>The user is referring to this in particular:\n")
	for _, item := range ref.ReferTo {
		sb.WriteString("{{")
		sb.WriteString(item.Text)
		sb.WriteString("}}\n")
	}
	sb.WriteString("</context>")
	return sb.String()
}
