package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

// reasoningPrefix strips <think>...</think> blocks some local models
// emit before their answer.
var reasoningPrefix = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// ErrNoJSON indicates the model output contained no decodable JSON.
var ErrNoJSON = errors.New("no valid JSON found in response")

// ExtractJSON pulls the first valid JSON object out of a model
// response that may be wrapped in reasoning tags, markdown fences, or
// surrounding prose.
func ExtractJSON(response string) (string, error) {
	cleaned := reasoningPrefix.ReplaceAllString(response, "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if s, ok := balancedObject(cleaned); ok && json.Valid([]byte(s)) {
		return s, nil
	}
	trimmed := strings.TrimSpace(cleaned)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	return "", ErrNoJSON
}

// balancedObject returns the first brace-balanced object in s, tracking
// string literals and escapes so braces inside values don't miscount.
func balancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
