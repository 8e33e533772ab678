// Package llmjson recovers a JSON object from free-form model output.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON indicates that no JSON object could be recovered from the text.
var ErrNoJSON = errors.New("no JSON object found in response")

// Stage identifies which recovery step produced the decoded value.
type Stage int

const (
	StageNone Stage = iota
	StageDirect
	StageFenced
	StageEmbedded
)

func (s Stage) String() string {
	switch s {
	case StageDirect:
		return "direct"
	case StageFenced:
		return "fenced"
	case StageEmbedded:
		return "embedded"
	default:
		return "none"
	}
}

// DecodeObject decodes the first JSON object it can recover from raw into v.
// Steps, in order: strict parse of the whole text, parse after stripping a
// markdown code fence, parse of the first balanced {...} span. Each step runs
// only if the previous one failed.
func DecodeObject(raw string, v any) (Stage, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return StageNone, ErrNoJSON
	}

	var lastErr error
	if strings.HasPrefix(text, "{") {
		if lastErr = json.Unmarshal([]byte(text), v); lastErr == nil {
			return StageDirect, nil
		}
	}

	if unfenced := StripFences(text); unfenced != text && strings.HasPrefix(unfenced, "{") {
		if lastErr = json.Unmarshal([]byte(unfenced), v); lastErr == nil {
			return StageFenced, nil
		}
		text = unfenced
	}

	block, ok := FirstObject(text)
	if !ok {
		if lastErr != nil {
			return StageNone, fmt.Errorf("%w: %v", ErrNoJSON, lastErr)
		}
		return StageNone, ErrNoJSON
	}
	if err := json.Unmarshal([]byte(block), v); err != nil {
		return StageNone, fmt.Errorf("decode embedded object: %w", err)
	}
	return StageEmbedded, nil
}

// StripFences removes a leading ```json / ``` fence line and a trailing ```
// fence. Text without a leading fence is returned trimmed but otherwise as is.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	nl := strings.IndexByte(s, '\n')
	if nl == -1 {
		return strings.TrimSpace(strings.Trim(s, "`"))
	}
	s = s[nl+1:]
	if end := strings.LastIndex(s, "```"); end != -1 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// FirstObject returns the first balanced {...} span in s. Braces inside
// string literals are ignored.
func FirstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	for start != -1 {
		if end := matchBrace(s, start); end != -1 {
			return s[start : end+1], true
		}
		next := strings.IndexByte(s[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return "", false
}

func matchBrace(s string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
