package utils

import "strings"

// TruncateForLog renders s as a single-line preview of at most limit runes,
// appending an ellipsis when truncated. Runs of whitespace, newlines included,
// collapse into one space so prompts and responses stay on one log line.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
