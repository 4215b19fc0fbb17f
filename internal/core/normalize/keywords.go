package normalize

import (
	"slices"
	"strings"
)

// Keywords is an ordered phrase list matched against normalized text
type Keywords struct {
	raw    []string
	folded []string
}

// NewKeywords normalizes each phrase once. Empty and duplicate phrases are dropped
func NewKeywords(phrases ...string) Keywords {
	var k Keywords
	for _, p := range phrases {
		f := Normalize(p)
		if f == "" || slices.Contains(k.folded, f) {
			continue
		}
		k.raw = append(k.raw, p)
		k.folded = append(k.folded, f)
	}
	return k
}

// Len is the number of distinct phrases
func (k Keywords) Len() int { return len(k.raw) }

// Find returns the phrases contained in norm, in list order. norm must
// already be the output of Normalize
func (k Keywords) Find(norm string) []string {
	if norm == "" {
		return nil
	}
	var out []string
	for i, f := range k.folded {
		if strings.Contains(norm, f) {
			out = append(out, k.raw[i])
		}
	}
	return out
}

// Any reports whether norm contains at least one phrase
func (k Keywords) Any(norm string) bool {
	for _, f := range k.folded {
		if strings.Contains(norm, f) {
			return true
		}
	}
	return false
}
