// Package jsonblock extracts JSON payloads from model output that may wrap
// them in fenced code blocks or surrounding prose.
package jsonblock

import (
	"encoding/json"
	"strings"
)

// Extract returns the JSON payload contained in s. It strips a ```json or
// ``` fence when present; otherwise it falls back to the region between the
// first '{' and the last '}'. The result is trimmed but not validated.
func Extract(s string) string {
	if i := strings.Index(s, "```json"); i >= 0 {
		rest := s[i+len("```json"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+len("```"):]
		if j := strings.Index(rest, "```"); j >= 0 {
			return strings.TrimSpace(rest[:j])
		}
		return strings.TrimSpace(rest)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(s[start : end+1])
	}
	return strings.TrimSpace(s)
}

// Unmarshal extracts the JSON payload from s and decodes it into v.
func Unmarshal(s string, v any) error {
	return json.Unmarshal([]byte(Extract(s)), v)
}
