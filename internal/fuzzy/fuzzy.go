// Package fuzzy reduces free-text answers to a canonical form so that
// "The Café!" and "cafe" compare equal.
package fuzzy

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stopwords = map[string]struct{}{}

func init() {
	words := []string{
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
		"of", "with", "by", "from", "is", "are", "was", "were", "be", "been",
		"being", "have", "has", "had", "do", "does", "did", "will", "would",
		"should", "could", "may", "might", "can", "this", "that", "these",
		"those", "i", "you", "he", "she", "it", "we", "they", "what", "which",
		"who", "when", "where", "why", "how",
	}
	for _, w := range words {
		stopwords[w] = struct{}{}
	}
}

// Normalize lowercases, strips diacritics and punctuation, and drops
// common English stopwords. Words are rejoined with single spaces.
func Normalize(text string) string {
	// Transformers carry state, so build a fresh chain per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, text)
	if err != nil {
		folded = text
	}
	folded = strings.ToLower(strings.TrimSpace(folded))

	var b strings.Builder
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			b.WriteRune(r)
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, ok := stopwords[w]; !ok {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// Match reports whether a submitted answer and the expected answer
// reduce to the same canonical form.
func Match(submitted, expected string) bool {
	return Normalize(submitted) == Normalize(expected)
}
