// Package shapehash provides a best-effort structural fingerprint for query
// text, turning queries that differ only in literal values into the same
// ShapeHash. The real fingerprinter runs against a parsed query AST and is
// an external collaborator out of scope here (spec.md §1); this gives
// callers that only have raw query text a working default.
package shapehash

import (
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
	"github.com/mixaill76/adaptive-load-manager/internal/effort"
)

// ShapeHash identifies a query's structure, independent of literal values.
type ShapeHash = effort.ShapeHash

const literalPlaceholder = "?"

// Fingerprint normalizes queryText (collapsing whitespace and replacing
// quoted strings and numeric literals with a single placeholder token)
// before hashing it with xxhash, so structurally identical queries that
// differ only in their literal values hash equal.
func Fingerprint(queryText string) ShapeHash {
	normalized := normalize(queryText)
	return xxhash.Sum64String(normalized)
}

func normalize(queryText string) string {
	stripped := stripLiterals(queryText)

	var b strings.Builder
	b.Grow(len(stripped))
	prevSpace := false
	for _, r := range stripped {
		if unicode.IsSpace(r) {
			if !prevSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			prevSpace = true
			continue
		}
		prevSpace = false
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(b.String())
}

// stripLiterals replaces single- and double-quoted string literals and bare
// numeric literals with a single placeholder token, leaving identifiers,
// keywords, and punctuation untouched.
func stripLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\'' || r == '"' {
			quote := r
			j := i + 1
			for j < len(runes) {
				if runes[j] == '\\' && j+1 < len(runes) {
					j += 2
					continue
				}
				if runes[j] == quote {
					j++
					break
				}
				j++
			}
			b.WriteString(literalPlaceholder)
			i = j - 1
			continue
		}

		if unicode.IsDigit(r) && (i == 0 || !isIdentRune(runes[i-1])) {
			j := i
			for j < len(runes) && (unicode.IsDigit(runes[j]) || runes[j] == '.') {
				j++
			}
			b.WriteString(literalPlaceholder)
			i = j - 1
			continue
		}

		b.WriteRune(r)
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
