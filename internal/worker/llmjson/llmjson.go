// Package llmjson decodes JSON objects out of model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// ErrNotObject is returned when the text holds no JSON object.
var ErrNotObject = errors.New("llmjson: text is not a JSON object")

// StripFences removes markdown code fences and surrounding whitespace.
func StripFences(text string) string {
	s := strings.ReplaceAll(text, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// Object decodes text into a JSON object. Fences are stripped first and
// malformed JSON is repaired before giving up.
func Object(text string) (map[string]any, error) {
	s := StripFences(text)
	if !strings.HasPrefix(s, "{") {
		return nil, ErrNotObject
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out, nil
	}

	fixed, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return nil, fmt.Errorf("repair json: %w", err)
	}
	if err := json.Unmarshal([]byte(fixed), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotObject, err)
	}
	return out, nil
}
