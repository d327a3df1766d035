package common

import (
	"strings"
	"unicode/utf8"
)

// TruncationMarker is appended to text cut at a length limit
const TruncationMarker = "\n... [truncated]"

// Truncate cuts s to at most max runes and appends TruncationMarker when it did.
// A non-positive max disables truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	return Prefix(s, max) + TruncationMarker
}

// Prefix returns the first n runes of s
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// CleanText collapses runs of whitespace into single spaces and trims the ends
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
