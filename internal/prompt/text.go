package prompt

import (
	"strings"
	"unicode/utf8"
)

// Preview truncates p to max runes, appending "..." when cut.
func Preview(p string, max int) string {
	if max <= 0 {
		max = 200
	}
	if utf8.RuneCountInString(p) <= max {
		return p
	}
	return string([]rune(p)[:max]) + "..."
}

// WordCount counts whitespace-separated words.
func WordCount(p string) int { return len(strings.Fields(p)) }

// EstimateTokens approximates the token count as one token per four
// characters, rounded up. Korean text runs close to that ratio.
func EstimateTokens(p string) int {
	n := utf8.RuneCountInString(p)
	return (n + 3) / 4
}
