package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/menta2k/frame-selector/pkg/types"
)

// ParseDetectionResult decodes a model reply into a detection result.
// Replies that carry no JSON object at all yield an empty result with the
// raw text kept as the description; a JSON object that cannot be decoded
// is an error.
func ParseDetectionResult(raw string) (*types.DetectionResult, error) {
	cleaned := SanitizeModelJSON(raw)
	if !strings.HasPrefix(cleaned, "{") {
		return &types.DetectionResult{
			Items:       []types.Item{},
			Description: strings.TrimSpace(raw),
		}, nil
	}

	var result types.DetectionResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	if result.Items == nil {
		result.Items = []types.Item{}
	}
	return &result, nil
}

// SanitizeModelJSON strips code fences and keeps only the outermost {...}
// of a model reply. Comments and trailing commas are removed only when the
// object is not already valid JSON; string literals are never touched.
func SanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = outermostObject(strings.Trim(strings.TrimSpace(raw), "`"))
	if json.Valid([]byte(raw)) {
		return raw
	}
	return outermostObject(stripJSONNoise(raw))
}

func outermostObject(s string) string {
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}

// stripJSONNoise drops // and /* */ comments and commas that directly
// precede a closing bracket, leaving quoted strings intact
func stripJSONNoise(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	inString, escaped := false, false
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
			b.WriteByte(c)
		case c == '/' && i+1 < len(s) && s[i+1] == '/':
			for i+1 < len(s) && s[i+1] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 3
			}
		case c == ',' && closesNext(s[i+1:]):
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// closesNext reports whether the next significant byte is } or ]
func closesNext(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', '\t', '\n', '\r':
			continue
		case '}', ']':
			return true
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				nl := strings.IndexByte(s[i:], '\n')
				if nl < 0 {
					return false
				}
				i += nl
				continue
			}
			if i+1 < len(s) && s[i+1] == '*' {
				end := strings.Index(s[i+2:], "*/")
				if end < 0 {
					return false
				}
				i += end + 3
				continue
			}
			return false
		default:
			return false
		}
	}
	return false
}
