package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/leofalp/aix/providers/ai"
)

// requestSource says where the IR request comes from. A request file wins
// over prompt; system is only used with prompt.
type requestSource struct {
	path   string
	prompt string
	system string
}

func (s requestSource) load(stdin io.Reader) (*ai.ChatGenerateRequest, error) {
	switch {
	case s.path != "":
		var data []byte
		var err error
		if s.path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(s.path) //nolint:gosec // path is a CLI argument
		}
		if err != nil {
			return nil, fmt.Errorf("read request: %w", err)
		}
		var req ai.ChatGenerateRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("decode request %s: %w", s.path, err)
		}
		return &req, nil

	case s.prompt != "":
		req := &ai.ChatGenerateRequest{
			ChatSequence: []ai.Message{{Role: ai.RoleUser, Parts: []ai.Part{ai.TextPart{Text: s.prompt}}}},
		}
		if s.system != "" {
			req.SystemMessage = &ai.Message{Role: ai.RoleSystem, Parts: []ai.Part{ai.TextPart{Text: s.system}}}
		}
		return req, nil
	}
	return nil, errors.New("one of --request or --prompt is required")
}
