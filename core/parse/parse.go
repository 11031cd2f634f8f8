package parse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNotObject is returned when arguments decode to something other than an object.
var ErrNotObject = errors.New("arguments are not a JSON object")

// ArgsObject decodes a function-call arguments string into a JSON object.
// Blank arguments yield an empty object. Malformed JSON is repaired once
// with jsonrepair and decoded again.
func ArgsObject(args string) (map[string]any, error) {
	trimmed := strings.TrimSpace(args)
	if trimmed == "" {
		return map[string]any{}, nil
	}

	obj, err := decodeObject(trimmed)
	if err == nil || errors.Is(err, ErrNotObject) {
		return obj, err
	}

	repaired, repairErr := jsonrepair.JSONRepair(trimmed)
	if repairErr != nil {
		return nil, fmt.Errorf("invalid arguments %q: %w (repair failed: %v)", truncate(trimmed), err, repairErr)
	}
	obj, err = decodeObject(repaired)
	if err != nil {
		return nil, fmt.Errorf("invalid arguments %q after repair: %w", truncate(trimmed), err)
	}
	return obj, nil
}

// ArgsString encodes a JSON object returned by a vendor back into the
// canonical arguments string. A nil object encodes as "{}".
func ArgsString(obj map[string]any) (string, error) {
	if obj == nil {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(obj); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

func decodeObject(s string) (map[string]any, error) {
	var value any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after arguments object")
	}
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	return obj, nil
}

func truncate(s string) string {
	const max = 120
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
