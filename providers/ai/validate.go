package ai

import (
	"fmt"
	"regexp"
)

var toolNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// legalParts lists the part types each role may carry.
var legalParts = map[Role]map[PartType]bool{
	RoleSystem: {PartText: true, PartDoc: true, PartInlineImage: true, PartCacheControl: true},
	RoleUser:   {PartText: true, PartInlineImage: true, PartDoc: true, PartCacheControl: true, PartInReferenceTo: true},
	RoleModel:  {PartText: true, PartInlineImage: true, PartToolInvocation: true, PartCacheControl: true},
	RoleTool:   {PartToolResponse: true, PartCacheControl: true},
}

// IsLegalPart reports whether role may carry a part of type pt.
func IsLegalPart(role Role, pt PartType) bool {
	return legalParts[role][pt]
}

// Validate checks the structural invariants of the request: role/part
// legality, a single leading system message, tool names and the tools policy.
func (r *ChatGenerateRequest) Validate() error {
	if r.SystemMessage != nil {
		if r.SystemMessage.Role != RoleSystem {
			return &ValidationError{Message: fmt.Sprintf("system message has role %q", r.SystemMessage.Role)}
		}
		if err := validateMessage(-1, *r.SystemMessage); err != nil {
			return err
		}
	}
	for i, msg := range r.ChatSequence {
		if msg.Role == RoleSystem {
			return &ValidationError{Message: fmt.Sprintf("message %d: system messages belong in systemMessage", i)}
		}
		if err := validateMessage(i, msg); err != nil {
			return err
		}
	}

	names := make(map[string]bool, len(r.Tools))
	for i, tool := range r.Tools {
		switch t := tool.(type) {
		case FunctionCallTool:
			if !toolNamePattern.MatchString(t.Name) {
				return &ValidationError{Message: fmt.Sprintf("tool %d: invalid function name %q", i, t.Name)}
			}
			if names[t.Name] {
				return &ValidationError{Message: fmt.Sprintf("tool %d: duplicate function name %q", i, t.Name)}
			}
			names[t.Name] = true
		case CodeExecutionTool:
			if t.Variant != CodeExecutionGeminiAutoInline {
				return &ValidationError{Message: fmt.Sprintf("tool %d: unknown code execution variant %q", i, t.Variant)}
			}
		default:
			return &ValidationError{Message: fmt.Sprintf("tool %d: unknown tool type %T", i, tool)}
		}
	}

	if p := r.ToolsPolicy; p != nil {
		switch p.Type {
		case ToolsPolicyAuto, ToolsPolicyAny:
		case ToolsPolicyFunctionCall:
			if !names[p.FunctionName] {
				return &ValidationError{Message: fmt.Sprintf("tools policy pins undeclared function %q", p.FunctionName)}
			}
		default:
			return &ValidationError{Message: fmt.Sprintf("unknown tools policy %q", p.Type)}
		}
	}
	return nil
}

func validateMessage(index int, msg Message) error {
	where := fmt.Sprintf("message %d", index)
	if index < 0 {
		where = "system message"
	}
	if _, ok := legalParts[msg.Role]; !ok {
		return &ValidationError{Message: fmt.Sprintf("%s: unknown role %q", where, msg.Role)}
	}
	for j, part := range msg.Parts {
		if part == nil {
			return &ValidationError{Message: fmt.Sprintf("%s part %d: nil part", where, j)}
		}
		if !IsLegalPart(msg.Role, part.PartType()) {
			return &ValidationError{Message: fmt.Sprintf("%s part %d: %s is not allowed in a %s message", where, j, part.PartType(), msg.Role)}
		}
		switch p := part.(type) {
		case InlineImagePart:
			if !SupportedImageMimeTypes[p.MimeType] {
				return &ValidationError{Message: fmt.Sprintf("%s part %d: unsupported image type %q", where, j, p.MimeType)}
			}
		case ToolInvocationPart:
			if p.ID == "" {
				return &ValidationError{Message: fmt.Sprintf("%s part %d: tool invocation without id", where, j)}
			}
		case ToolResponsePart:
			if p.ID == "" {
				return &ValidationError{Message: fmt.Sprintf("%s part %d: tool response without id", where, j)}
			}
		case CacheControlPart:
			if p.Control != CacheControlEphemeral {
				return &ValidationError{Message: fmt.Sprintf("%s part %d: unknown cache control %q", where, j, p.Control)}
			}
		}
	}
	return nil
}
