package textutil

import (
	"strings"
	"unicode"
)

// SanitizeTerminal replaces control characters (including ESC, which would
// otherwise start a terminal escape sequence) with visible placeholders so a
// payload prints on one line and cannot drive the terminal.
func SanitizeTerminal(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch {
		case r == '\n' || r == '\r':
			b.WriteRune('⏎')
		case r == '\t':
			b.WriteRune(' ')
		case r == unicode.ReplacementChar:
			b.WriteRune('�')
		case unicode.IsControl(r):
			b.WriteRune('·')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SanitizeToken lowercases value into a tag-safe token built from ASCII
// letters, digits, '-' and '_'. Other runes become '_'. Empty results yield
// "unknown".
func SanitizeToken(value string) string {
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	if out = strings.Trim(out, "_-"); out == "" {
		return "unknown"
	}
	return out
}
