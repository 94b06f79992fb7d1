package agent

import (
	"encoding/json"
	"strings"
)

// Decision is the structured intent recovered from raw model output: either a
// tool invocation ({"tool": ..., "args": {...}}) or a plain reply
// ({"response": ...}).
type Decision struct {
	Tool     string         `json:"tool"`
	Args     map[string]any `json:"args"`
	Response string         `json:"response"`
}

// IsToolCall reports whether the decision names a tool.
func (d *Decision) IsToolCall() bool {
	return d != nil && d.Tool != ""
}

// ExtractDecision recovers a Decision from raw model text. It first tries a
// strict parse of the trimmed text, then falls back to the first balanced
// brace-delimited substring (models like to wrap JSON in commentary). A nil
// result means no structured decision; the caller treats the raw text as a
// plain reply.
func ExtractDecision(raw string) *Decision {
	trimmed := strings.TrimSpace(raw)
	if d := parseDecision(trimmed); d != nil {
		return d
	}
	if candidate, ok := firstObject(trimmed); ok {
		return parseDecision(candidate)
	}
	return nil
}

func parseDecision(s string) *Decision {
	if !strings.HasPrefix(s, "{") {
		return nil
	}
	var d Decision
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil
	}
	// An object carrying neither field is not a decision.
	if d.Tool == "" && d.Response == "" {
		return nil
	}
	return &d
}

// StripObjects removes every balanced JSON object embedded in mixed text,
// leaving the surrounding prose. If nothing but objects was present, the
// trimmed input is returned unchanged so the caller never ends up with an
// empty reply.
func StripObjects(raw string) string {
	var b strings.Builder
	i := 0
	for i < len(raw) {
		if raw[i] == '{' {
			if end, ok := scanObject(raw, i); ok {
				i = end
				continue
			}
		}
		b.WriteByte(raw[i])
		i++
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return strings.TrimSpace(raw)
	}
	return out
}

// firstObject returns the first balanced brace-delimited substring. A proper
// depth scan, not a non-greedy regex: nested structures are not truncated.
func firstObject(s string) (string, bool) {
	for start := 0; start < len(s); start++ {
		if s[start] != '{' {
			continue
		}
		if end, ok := scanObject(s, start); ok {
			return s[start:end], true
		}
	}
	return "", false
}

// scanObject scans a balanced object starting at s[start] (which must be
// '{') and returns the exclusive end offset. Braces inside JSON strings,
// including escaped quotes, do not count toward the depth.
func scanObject(s string, start int) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
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
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}
