package evaluator

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/yosuke-furukawa/json5/encoding/json5"
)

// fencePattern captures the body of a markdown code fence.
var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9]*\\s*(.*?)\\s*```")

// StripFences returns the content of the first code fence in text, or text
// itself when it has none.
func StripFences(text string) string {
	text = strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1])
	}
	return text
}

// outermostObject trims anything before the first '{' and after the last '}'.
func outermostObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return text
	}
	return text[start : end+1]
}

// DecodeLenient decodes model output into v. Strict JSON is tried first, then
// the same text with code fences and surrounding prose removed, and finally a
// JSON5 parse that accepts trailing commas and unquoted keys. Single-quoted
// keys are still rejected.
func DecodeLenient(text string, v any) error {
	candidate := StripFences(text)
	if err := json.Unmarshal([]byte(candidate), v); err == nil {
		return nil
	}
	candidate = outermostObject(candidate)
	strictErr := json.Unmarshal([]byte(candidate), v)
	if strictErr == nil {
		return nil
	}
	// json5 fills a generic value, which is re-encoded so v keeps its json tags.
	var generic any
	if err := json5.Unmarshal([]byte(candidate), &generic); err != nil {
		return fmt.Errorf("decoding model output: %w (lenient: %v)", strictErr, err)
	}
	normalized, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("decoding model output: %w", err)
	}
	return json.Unmarshal(normalized, v)
}
