package schema

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	codeBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?([\\s\\S]*?)```")
	objectPattern    = regexp.MustCompile(`(?s)\{.*\}`)
	controlPattern   = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f-\x9f]`)
	escapePattern    = regexp.MustCompile(`\\(u[0-9a-fA-F]{0,4}|.)`)
)

// Parse extracts a JSON object from raw model output and validates it
// against the schema. Models wrap JSON in code fences, leak control
// characters and emit escape sequences that are not valid JSON; all three
// are repaired before decoding.
func (s *Schema) Parse(text string) (Record, error) {
	candidate := extractJSON(text)
	if candidate == "" {
		return nil, &ValidationError{Msg: "no JSON object found in response"}
	}

	candidate = controlPattern.ReplaceAllString(candidate, "")

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		// Second attempt with invalid escape sequences repaired.
		repaired := fixEscapes(candidate)
		if err2 := json.Unmarshal([]byte(repaired), &data); err2 != nil {
			return nil, &ValidationError{Msg: "response is not valid JSON: " + err.Error()}
		}
	}

	return s.Validate(data)
}

// extractJSON pulls the JSON payload out of the response text, preferring
// fenced code blocks over a bare object scan.
func extractJSON(text string) string {
	if m := codeBlockPattern.FindStringSubmatch(text); len(m) > 1 {
		text = m[1]
	}
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "{") && strings.HasSuffix(text, "}") {
		return text
	}
	return objectPattern.FindString(text)
}

// fixEscapes escapes the backslash of any escape sequence JSON does not
// define, e.g. \s in generated prose, while preserving the valid ones.
func fixEscapes(s string) string {
	return escapePattern.ReplaceAllStringFunc(s, func(m string) string {
		esc := m[1:]
		switch esc {
		case `"`, `\`, "/", "b", "f", "n", "r", "t":
			return m
		}
		if len(esc) == 5 && esc[0] == 'u' {
			return m
		}
		return `\\` + esc
	})
}
