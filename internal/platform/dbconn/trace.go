package dbconn

import (
	"regexp"
	"strings"
)

const maxTracedQueryLength = 512

var (
	whitespaceRegex    = regexp.MustCompile(`\s+`)
	stringLiteralRegex = regexp.MustCompile(`'(?:[^']|'')*'`)
)

// FormatQueryForTrace collapses whitespace, masks inline string literals and
// caps the statement length before it is attached to a span.
func FormatQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := whitespaceRegex.ReplaceAllString(query, " ")
	normalized = stringLiteralRegex.ReplaceAllString(normalized, "'?'")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}
	return normalized[:maxTracedQueryLength] + "..."
}
