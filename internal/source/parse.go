package source

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError means the provider's reply could not be read as a JSON array of
// trend objects.
type ParseError struct {
	Reason  string
	Snippet string
	Err     error
}

func (e *ParseError) Error() string {
	msg := "unparseable upstream reply: " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Snippet != "" {
		msg += fmt.Sprintf(" (snippet=%q)", e.Snippet)
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeTrendArray extracts the JSON array from a model reply and splits it
// into its elements.
//
// Markdown fences and any prose around the outermost brackets are dropped
// first. If the result is not valid JSON, trailing commas are removed and
// bare object keys quoted before a second and final attempt.
func DecodeTrendArray(content string) ([]json.RawMessage, error) {
	payload := stripCodeFence(strings.TrimSpace(content))
	start := strings.IndexByte(payload, '[')
	end := strings.LastIndexByte(payload, ']')
	if start < 0 || end < start {
		return nil, &ParseError{Reason: "no JSON array found", Snippet: summarize(content)}
	}
	payload = payload[start : end+1]

	var records []json.RawMessage
	err := json.Unmarshal([]byte(payload), &records)
	if err == nil {
		return records, nil
	}

	if rerr := json.Unmarshal([]byte(repairJSON(payload)), &records); rerr != nil {
		return nil, &ParseError{Reason: "invalid JSON array", Snippet: summarize(payload), Err: err}
	}
	return records, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// Drop the info string, e.g. ```json
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}

// repairJSON fixes the two mistakes models make most often: a comma before a
// closing bracket and unquoted object keys. String literals pass through
// untouched.
func repairJSON(s string) string {
	var (
		b         strings.Builder
		stack     []byte
		inString  bool
		escaped   bool
		expectKey bool
	)
	b.Grow(len(s) + 16)

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			b.WriteByte(c)
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

		switch {
		case c == '"':
			inString = true
			expectKey = false
			b.WriteByte(c)
		case c == '{' || c == '[':
			stack = append(stack, c)
			expectKey = c == '{'
			b.WriteByte(c)
		case c == '}' || c == ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			expectKey = false
			b.WriteByte(c)
		case c == ',':
			if next := skipSpace(s, i+1); next < len(s) && (s[next] == ']' || s[next] == '}') {
				continue
			}
			expectKey = len(stack) > 0 && stack[len(stack)-1] == '{'
			b.WriteByte(c)
		case isSpace(c):
			b.WriteByte(c)
		case expectKey && isIdentStart(c):
			end := i
			for end < len(s) && isIdentPart(s[end]) {
				end++
			}
			if colon := skipSpace(s, end); colon < len(s) && s[colon] == ':' {
				b.WriteByte('"')
				b.WriteString(s[i:end])
				b.WriteByte('"')
				i = end - 1
			} else {
				b.WriteByte(c)
			}
			expectKey = false
		default:
			expectKey = false
			b.WriteByte(c)
		}
	}

	return b.String()
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}
