// Package normalize folds free text such as bios and profile READMEs into a
// canonical form for keyword matching
// Pipeline order
// 1 Drop control bytes and invalid UTF-8
// 2 Unicode NFKC normalization
// 3 Case folding
// 4 Remove zero-width and combining marks
// 5 Width fold fullwidth to ASCII
// 6 Collapse whitespace to single spaces and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Normalizer is concurrency safe when used with the pool below
type Normalizer struct{}

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		// order matters and mirrors the documented pipeline
		return transform.Chain(
			norm.NFKC,
			cases.Fold(),                       // unicode case folding
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			width.Fold,                         // map fullwidth forms to ASCII
		)
	},
}

var std = New()

// New constructs a Normalizer
func New() *Normalizer { return &Normalizer{} }

// Normalize runs the package level Normalizer
func Normalize(s string) string { return std.Normalize(s) }

// Normalize returns the normalized form of s following the pipeline described above
func (n *Normalizer) Normalize(s string) string {
	if s == "" {
		return ""
	}

	// 1 controls and invalid bytes
	s = Sanitize(s)

	// 2-5 transform via pooled chain then reset and return it
	tr := chainPool.Get().(transform.Transformer)
	ns, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		ns = strings.ToLower(s)
	}

	// 6 collapse whitespace and trim
	return collapseSpaces(ns)
}

// Compact drops every space from an already normalized string so that
// hashtag style tokens ("#open to work") match their joined form
func Compact(norm string) string {
	if !strings.ContainsRune(norm, ' ') {
		return norm
	}
	return strings.ReplaceAll(norm, " ", "")
}

// collapseSpaces converts whitespace runs, line breaks included, to a single
// ASCII space and trims the edges
func collapseSpaces(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}
