package textutil

import (
	"strings"
	"unicode/utf8"
)

var placeholders = []string{"", "nan", "none", "null"}

// IsPresent reports whether a tabular cell carries a real value. Empty cells and the
// placeholders written by dataframe tooling ("nan", "None", "null") are absent.
func IsPresent(value string) bool {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, p := range placeholders {
		if normalized == p {
			return false
		}
	}
	return true
}

// StripNBSP removes non-breaking spaces and trims the result.
func StripNBSP(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "\u00a0", "")
}

// Chunk splits s into consecutive pieces of at most size runes, keeping at most
// max pieces. truncated is true when content was dropped because of max.
func Chunk(s string, size, max int) (chunks []string, truncated bool) {
	if s == "" || size <= 0 {
		return nil, false
	}
	for len(s) > 0 {
		if max > 0 && len(chunks) == max {
			return chunks, true
		}
		if utf8.RuneCountInString(s) <= size {
			chunks = append(chunks, s)
			break
		}
		end, n := 0, 0
		for end < len(s) && n < size {
			_, w := utf8.DecodeRuneInString(s[end:])
			end += w
			n++
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks, false
}
