package normalize

import (
	"strings"
	"unicode/utf8"
)

// Sanitize removes runes that Postgres text columns reject or that only add
// noise to keyword matching: NUL, ASCII controls other than '\n' '\r' '\t',
// DEL and the C1 block U+0080..U+009F. Invalid UTF-8 bytes are dropped.
// Clean input is returned unchanged
func Sanitize(s string) string {
	if isClean(s) {
		return s
	}
	return strings.Map(func(r rune) rune {
		if unwanted(r) {
			return -1
		}
		return r
	}, strings.ToValidUTF8(s, ""))
}

func isClean(s string) bool {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return false
		}
		if unwanted(r) {
			return false
		}
		i += size
	}
	return true
}

func unwanted(r rune) bool {
	switch {
	case r == '\n' || r == '\r' || r == '\t':
		return false
	case r < 0x20, r == 0x7F:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	}
	return false
}
