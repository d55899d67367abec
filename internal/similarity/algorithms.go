package similarity

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/agnivade/levenshtein"
)

// Token pairs below this Jaro-Winkler score do not count as matched
const tokenMatchFloor = 0.5

var jaroWinkler = &metrics.JaroWinkler{CaseSensitive: true}

// EditSimilarity is 1 - levenshtein(a, b) / max(len(a), len(b))
func EditSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	if maxLen == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
}

// JaroWinkler returns the prefix-weighted Jaro similarity of a and b
func JaroWinkler(a, b string) float64 {
	switch {
	case a == b:
		return 1
	case a == "" || b == "":
		return 0
	}
	return clamp(strutil.Similarity(a, b, jaroWinkler))
}

// NgramSimilarity is the Jaccard index of character n-grams of a and b,
// each padded with n-1 '#' characters on both sides.
func NgramSimilarity(a, b string, n int) float64 {
	if n <= 0 {
		n = DefaultNgramSize
	}
	switch {
	case a == b:
		return 1
	case a == "" || b == "":
		return 0
	}
	pad := strings.Repeat("#", n-1)
	jaccard := &metrics.Jaccard{CaseSensitive: true, NgramSize: n}
	return clamp(jaccard.Compare(pad+a+pad, pad+b+pad))
}

// Soundex encodes the letters of s as first letter plus three digits.
// Adjacent letters with the same code collapse; vowels separate codes,
// h and w do not. Returns "" when s has no letters.
func Soundex(s string) string {
	letters := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if r >= 'a' && r <= 'z' {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return ""
	}

	code := []rune{unicode.ToUpper(letters[0])}
	prev := soundexCode(letters[0])
	for _, r := range letters[1:] {
		if len(code) == 4 {
			break
		}
		c := soundexCode(r)
		switch {
		case c == '0':
			// vowels reset the previous code, h and w are transparent
			if r != 'h' && r != 'w' {
				prev = '0'
			}
		case c != prev:
			code = append(code, c)
			prev = c
		}
	}
	for len(code) < 4 {
		code = append(code, '0')
	}
	return string(code)
}

func soundexCode(r rune) rune {
	switch r {
	case 'b', 'f', 'p', 'v':
		return '1'
	case 'c', 'g', 'j', 'k', 'q', 's', 'x', 'z':
		return '2'
	case 'd', 't':
		return '3'
	case 'l':
		return '4'
	case 'm', 'n':
		return '5'
	case 'r':
		return '6'
	}
	return '0'
}

// PhoneticSimilarity compares the Soundex codes of a and b: 1 when equal,
// otherwise the share of code positions that agree.
func PhoneticSimilarity(a, b string) float64 {
	ca, cb := Soundex(a), Soundex(b)
	if ca == "" || cb == "" {
		return 0
	}
	if ca == cb {
		return 1
	}
	matches := 0
	for i := 0; i < len(ca) && i < len(cb); i++ {
		if ca[i] == cb[i] {
			matches++
		}
	}
	maxLen := len(ca)
	if len(cb) > maxLen {
		maxLen = len(cb)
	}
	return float64(matches) / float64(maxLen)
}

// TokenSimilarity pairs whitespace tokens greedily by Jaro-Winkler: each
// token of a takes its best unused token of b, then every unused token of b
// takes its best token of a. Pairs under 0.5 contribute nothing. The sum is
// averaged over the tokens of a plus the unused tokens of b.
func TokenSimilarity(a, b string) float64 {
	tokensA, tokensB := strings.Fields(a), strings.Fields(b)
	switch {
	case len(tokensA) == 0 && len(tokensB) == 0:
		return 1
	case len(tokensA) == 0 || len(tokensB) == 0:
		return 0
	}

	used := make([]bool, len(tokensB))
	total := 0.0
	count := 0

	for _, ta := range tokensA {
		best, bestIdx := 0.0, -1
		for j, tb := range tokensB {
			if used[j] {
				continue
			}
			if sim := JaroWinkler(ta, tb); sim > best {
				best, bestIdx = sim, j
			}
		}
		if best > tokenMatchFloor {
			total += best
			used[bestIdx] = true
		}
		count++
	}

	for j, tb := range tokensB {
		if used[j] {
			continue
		}
		best := 0.0
		for _, ta := range tokensA {
			if sim := JaroWinkler(ta, tb); sim > best {
				best = sim
			}
		}
		if best > tokenMatchFloor {
			total += best
		}
		count++
	}

	return clamp(total / float64(count))
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
