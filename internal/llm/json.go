package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONArray is returned when a model response contains no array span.
var ErrNoJSONArray = errors.New("no JSON array in response")

// StripCodeFence removes a surrounding markdown code fence, if any.
func StripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	endIdx := len(lines)
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	if endIdx <= 1 {
		return ""
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}

// ExtractJSONArray returns the first balanced [...] span in text. Brackets
// inside JSON strings are ignored.
func ExtractJSONArray(text string) (string, bool) {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1], true
			}
		}
	}
	return "", false
}

// DecodeJSONArray locates the first JSON array in a model response and
// unmarshals it into out.
func DecodeJSONArray(text string, out any) error {
	span, ok := ExtractJSONArray(StripCodeFence(text))
	if !ok {
		return ErrNoJSONArray
	}
	if err := json.Unmarshal([]byte(span), out); err != nil {
		return fmt.Errorf("parse JSON array: %w", err)
	}
	return nil
}
