package keywords

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// Normalize prepares a word, theme tag or user ID for storage and comparison:
// NFC, trimmed, lowercased, internal whitespace collapsed to single spaces.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	return whitespaceRegex.ReplaceAllString(s, " ")
}
