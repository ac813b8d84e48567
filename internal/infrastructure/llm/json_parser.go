package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedBlockRegex   = regexp.MustCompile("(?s)```(?:json)?\\s*(.+?)\\s*```")
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRegex   = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)(\s*:)`)
	controlCharsRegex  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseModelJSON decodes a model reply into target. Models sometimes wrap
// the object in a markdown fence, surround it with prose or leave trailing
// commas and bare keys, so each of those is tried in turn.
func ParseModelJSON(input string, target interface{}) error {
	input = strings.TrimSpace(strings.TrimPrefix(input, "\ufeff"))
	if input == "" {
		return fmt.Errorf("empty model reply")
	}

	candidates := []string{input}
	if m := fencedBlockRegex.FindStringSubmatch(input); len(m) > 1 {
		candidates = append(candidates, m[1])
	}
	if obj := balancedObject(input); obj != "" {
		candidates = append(candidates, obj)
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), target); err == nil {
			return nil
		}
	}
	for _, c := range candidates {
		if err := json.Unmarshal([]byte(repairJSON(c)), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("no JSON object in model reply: %s", truncate(input, 100))
}

// balancedObject returns the first {...} span with balanced braces, ignoring braces in strings
func balancedObject(input string) string {
	start := strings.IndexByte(input, '{')
	if start < 0 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(input); i++ {
		ch := input[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == '{':
			depth++
		case ch == '}':
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

func repairJSON(s string) string {
	s = controlCharsRegex.ReplaceAllString(s, "")
	s = trailingCommaRegex.ReplaceAllString(s, "$1")
	return unquotedKeyRegex.ReplaceAllString(s, `$1"$2"$3`)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
