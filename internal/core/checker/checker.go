// Package checker normalizes program output and compares it line by line.
package checker

import (
	"strings"
	"unicode"
)

// Normalize unifies CRLF to LF, strips trailing whitespace from every line
// and drops trailing empty lines. Interior blank lines are kept.
func Normalize(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return lines[:end]
}

// NormalizeText is Normalize joined back with "\n".
func NormalizeText(s string) string {
	return strings.Join(Normalize(s), "\n")
}

// Equal reports whether two normalized outputs match exactly, line by line.
func Equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Match normalizes both sides and compares them.
func Match(expected, actual string) bool {
	return Equal(Normalize(expected), Normalize(actual))
}
