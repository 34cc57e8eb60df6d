// Package queryutil provides shared query interpretation helpers for
// knowledge sources.
package queryutil

import (
	"strings"
	"unicode"
)

// stopwords are common English words that carry no search signal.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "can": true, "do": true, "does": true,
	"for": true, "from": true, "has": true, "have": true, "how": true,
	"i": true, "in": true, "is": true, "it": true, "me": true, "my": true,
	"of": true, "on": true, "or": true, "our": true, "show": true, "tell": true,
	"that": true, "the": true, "their": true, "there": true, "this": true,
	"to": true, "us": true, "was": true, "we": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "why": true,
	"will": true, "with": true, "you": true, "your": true,
}

// Keywords extracts lowercase search terms from a free-text query,
// dropping stopwords, punctuation, and single characters. Order follows
// first appearance; duplicates are removed.
func Keywords(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})

	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len(f) < 2 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// TermCounts tokenizes text the same way Keywords does but returns the
// occurrence count of every term. Used for building document indexes.
func TermCounts(text string) map[string]int {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '-'
	})

	counts := make(map[string]int, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len(f) < 2 || stopwords[f] {
			continue
		}
		counts[f]++
	}
	return counts
}

// Truncate shortens s to at most max runes, appending an ellipsis marker
// when text was cut.
func Truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
