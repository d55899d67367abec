package similarity

import (
	"regexp"
	"strings"

	"github.com/spiritlens/backend/internal/normalize"
)

// Package-level compiled regex patterns for performance
var (
	punctuationRegex = regexp.MustCompile(`[^\w\s]`)
	whitespaceRegex  = regexp.MustCompile(`\s+`)
)

// stopWords are articles, conjunctions and spirit-industry filler words that
// carry no identity signal
var stopWords = map[string]bool{
	// Basic English stop words
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "by": true,

	// Industry filler
	"single": true, "double": true, "triple": true,
	"malt": true, "grain": true, "blend": true, "blended": true,
	"aged": true, "year": true, "years": true, "old": true,
	"reserve": true, "special": true, "limited": true, "edition": true,
	"barrel": true, "cask": true, "proof": true, "strength": true,
}

// Normalize lowercases (unless configured case-sensitive), strips accents
// and punctuation, collapses whitespace and optionally drops stop words.
// Normalizing an already normalized string returns it unchanged.
func Normalize(s string, cfg Config) string {
	s = normalize.StripAccents(s)
	if !cfg.CaseSensitive {
		s = strings.ToLower(s)
	}
	s = punctuationRegex.ReplaceAllString(s, " ")
	s = strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))

	if !cfg.RemoveStopWords || s == "" {
		return s
	}

	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if !stopWords[strings.ToLower(w)] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		// a name made only of filler words keeps them
		return s
	}
	return strings.Join(kept, " ")
}

// IsStopWord reports whether w is dropped during normalization
func IsStopWord(w string) bool {
	return stopWords[strings.ToLower(w)]
}
