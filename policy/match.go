package policy

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Match reports whether value matches pattern. "*" matches any substring;
// every other character is literal and the match is anchored at both ends.
func Match(pattern, value string) bool {
	// doublestar stops "*" at "/", keys are flat so fold it to a plain byte.
	pattern = strings.ReplaceAll(escapeGlob(pattern), "/", "\x00")
	value = strings.ReplaceAll(value, "/", "\x00")
	ok, err := doublestar.Match(pattern, value)
	return err == nil && ok
}

// MatchAny reports whether value matches at least one pattern.
func MatchAny(value string, patterns []string) bool {
	for _, p := range patterns {
		if Match(p, value) {
			return true
		}
	}
	return false
}

// escapeGlob neutralizes every doublestar metacharacter except "*".
func escapeGlob(pattern string) string {
	if !strings.ContainsAny(pattern, `\?[]{}`) {
		return pattern
	}
	var b strings.Builder
	b.Grow(len(pattern) * 2)
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\', '?', '[', ']', '{', '}':
			b.WriteByte('\\')
		}
		b.WriteByte(pattern[i])
	}
	return b.String()
}
