// Package normalize derives comparison keys from spirit names and brands.
// Every function here is pure and safe for concurrent use.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Compiled regex patterns for key construction
var (
	apostropheRegex = regexp.MustCompile("['’‘`\"“”]")
	nonAlnumSpace   = regexp.MustCompile(`[^a-z0-9\s]`)
	nonAlnum        = regexp.MustCompile(`[^a-z0-9]`)
	multiSpace      = regexp.MustCompile(`\s+`)

	// Matches bottle volumes like "750ml", "1.75 L", "70cl", "50 milliliters", "12 oz"
	volumePattern = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:m\s*l|ml|milliliters?|millilitres?|cl|liters?|litres?|l|oz|ounces?)\b`)

	// Matches size descriptors and pack counts
	sizeDescriptorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:samples?|miniatures?|minis?|magnums?)\b`),
		regexp.MustCompile(`\b(?:traveler|travelers|travel)\s*(?:size|bottle)?\b`),
		regexp.MustCompile(`\b(?:half|quarter)\s*bottle\b`),
		regexp.MustCompile(`\b(?:double|triple)\s*size\b`),
		regexp.MustCompile(`\b(?:large|small|medium)\s*(?:bottle|format|size)\b`),
		regexp.MustCompile(`\b(?:pint|quart|half\s*gallon|gallon)\b`),
		regexp.MustCompile(`\b\d+\s*pack\b`),
		regexp.MustCompile(`\bpack\s*of\s*\d+\b`),
	}

	marketingPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\bgift\s*(?:box|set|pack|package|edition)\b`),
		regexp.MustCompile(`\b(?:holiday|christmas|fathers?\s*day|mothers?\s*day)\s*(?:gift|edition|special)\b`),
		regexp.MustCompile(`\bwith\s*(?:glass|glasses|tumbler|rocks\s*glass)\b`),
		regexp.MustCompile(`\b(?:order|buy|shop)\s*online\b`),
		regexp.MustCompile(`\b(?:ratings?\s*and\s*reviews?|reviews?\s*and\s*ratings?)\b`),
		regexp.MustCompile(`\b(?:online|web)\s*exclusive\b`),
		regexp.MustCompile(`\b(?:in\s*stock|out\s*of\s*stock|availability)\b`),
		regexp.MustCompile(`\b(?:free\s*shipping|ships?\s*free)\b`),
		regexp.MustCompile(`\b(?:limited|special)\s*(?:time|offer|deal|price)\b`),
		regexp.MustCompile(`\b(?:store\s*pick|exclusive\s*selection|private\s*selection)\b`),
	}

	// Age statements survive year stripping
	ageStatementPattern = regexp.MustCompile(`\b\d{1,3}\s*(?:years?|yrs?|y\.o\.|yo)\b`)
	agePlaceholder      = regexp.MustCompile(`agekeep(\d+)x`)

	yearPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\(\s*(?:19|20)\d{2}\s*\)`),
		regexp.MustCompile(`\b(?:vintage|release|released|bottled|distilled)\s*(?:in\s*)?(?:19|20)\d{2}\b`),
		regexp.MustCompile(`\b(?:19|20)\d{2}\s*(?:vintage|release|edition|bottled|distilled)\b`),
		regexp.MustCompile(`\b(?:19|20)\d{2}\s*-\s*(?:19|20)\d{2}\b`),
		regexp.MustCompile(`\b(?:19|20)\d{2}\b`),
	}

	proofWordPattern = regexp.MustCompile(`\b(?:proof\b\.?|pf\b\.?|p\.f\.)`)

	// Ordered: longer phrases first so "kentucky straight bourbon" is not half-rewritten
	abbreviations = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`\bwhiskey\b`), "whisky"},
		{regexp.MustCompile(`\bbottled[\s-]*in[\s-]*bond\b`), "bib"},
		{regexp.MustCompile(`\bsingle[\s-]*barrel\b`), "sb"},
		{regexp.MustCompile(`\bsmall[\s-]*batch\b`), "smb"},
		{regexp.MustCompile(`\bcask[\s-]*strength\b`), "cs"},
		{regexp.MustCompile(`\bbarrel[\s-]*proof\b`), "bp"},
		{regexp.MustCompile(`\bkentucky\s*straight\s*bourbon\b`), "ky bourbon"},
		{regexp.MustCompile(`\bstraight\s*bourbon\s*whisky\b`), "bourbon"},
		{regexp.MustCompile(`\bstraight\s*bourbon\b`), "bourbon"},
		{regexp.MustCompile(`\bkentucky\s*straight\b`), "ky"},
	}

	// Synonyms applied to the compacted aggressive key, in order
	compactSynonyms = []struct{ from, to string }{
		{"whiskey", "whisky"},
		{"bottledinbond", "bib"},
		{"singlebarrel", "sb"},
		{"smallbatch", "smb"},
		{"kentuckystraightbourbon", "kybourbon"},
		{"straightbourbon", "bourbon"},
		{"kentuckystraight", "ky"},
		{"caskstrength", "cs"},
		{"barrelproof", "bp"},
	}

	corporateWords = map[string]bool{
		"distillery": true, "distilleries": true, "distilling": true, "distillers": true,
		"brewing": true, "brewery": true, "spirits": true,
		"company": true, "co": true, "inc": true, "llc": true, "ltd": true,
	}
)

// Keys holds the normalization levels of one name, from least to most aggressive
type Keys struct {
	Standard   string `json:"standard"`
	Compact    string `json:"compact"`
	Aggressive string `json:"aggressive"`
}

// KeysFor builds every key level for a name
func KeysFor(name string) Keys {
	std := Standard(name)
	return Keys{
		Standard:   std,
		Compact:    strings.ReplaceAll(std, " ", ""),
		Aggressive: Aggressive(name),
	}
}

// MatchLevel returns the first non-empty key level on which two key sets agree,
// or "" when none do.
func (k Keys) MatchLevel(other Keys) string {
	switch {
	case k.Standard != "" && k.Standard == other.Standard:
		return "standard"
	case k.Compact != "" && k.Compact == other.Compact:
		return "compact"
	case k.Aggressive != "" && k.Aggressive == other.Aggressive:
		return "aggressive"
	}
	return ""
}

// StripAccents removes diacritics without changing case ("Añejo" -> "Anejo")
func StripAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return stripped
}

// Fold lowercases s and strips diacritics ("Añejo" -> "anejo")
func Fold(s string) string {
	return strings.ToLower(StripAccents(s))
}

// clean folds, drops quote marks and trims
func clean(s string) string {
	return strings.TrimSpace(apostropheRegex.ReplaceAllString(Fold(s), ""))
}

// squash replaces punctuation with spaces and collapses whitespace
func squash(s string) string {
	s = nonAlnumSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// Standard strips size, marketing and release-year text, standardizes proof
// notation and expands known abbreviations. Age statements are preserved.
func Standard(name string) string {
	s := clean(name)
	if s == "" {
		return ""
	}
	s = StripSizes(s)
	s = stripMarketingPhrases(s)
	s = stripYears(s)
	s = proofWordPattern.ReplaceAllString(s, " pf ")
	for _, abbr := range abbreviations {
		s = abbr.pattern.ReplaceAllString(s, abbr.replacement)
	}
	return squash(s)
}

// Aggressive removes bottle volumes, every non-alphanumeric character and
// collapses synonym pairs ("whiskey"/"whisky", "bottled in bond"/"bib").
func Aggressive(name string) string {
	s := clean(name)
	s = volumePattern.ReplaceAllString(s, "")
	s = nonAlnum.ReplaceAllString(s, "")
	for _, syn := range compactSynonyms {
		s = strings.ReplaceAll(s, syn.from, syn.to)
	}
	return s
}

// Brand normalizes a brand for equality checks: alphanumerics only with
// corporate suffixes ("Distillery", "Co.") dropped.
func Brand(brand string) string {
	words := strings.Fields(nonAlnumSpace.ReplaceAllString(clean(brand), " "))
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if !corporateWords[w] {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return strings.Join(words, "")
	}
	return strings.Join(kept, "")
}

// Alnum folds the name and keeps only its alphanumeric characters
func Alnum(name string) string {
	return nonAlnum.ReplaceAllString(clean(name), "")
}

// Prefix returns the first n alphanumeric characters of the folded name
func Prefix(name string, n int) string {
	s := Alnum(name)
	if len(s) > n {
		return s[:n]
	}
	return s
}

// StripSizes removes bottle volumes, size descriptors and pack counts
func StripSizes(s string) string {
	s = volumePattern.ReplaceAllString(s, " ")
	for _, p := range sizeDescriptorPatterns {
		s = p.ReplaceAllString(s, " ")
	}
	return s
}

func stripMarketingPhrases(s string) string {
	for _, p := range marketingPatterns {
		s = p.ReplaceAllString(s, " ")
	}
	return s
}

// stripYears removes release years while protecting age statements
func stripYears(s string) string {
	var ages []string
	s = ageStatementPattern.ReplaceAllStringFunc(s, func(m string) string {
		ages = append(ages, m)
		return " agekeep" + strconv.Itoa(len(ages)-1) + "x "
	})
	for _, p := range yearPatterns {
		s = p.ReplaceAllString(s, " ")
	}
	return agePlaceholder.ReplaceAllStringFunc(s, func(m string) string {
		idx, err := strconv.Atoi(agePlaceholder.FindStringSubmatch(m)[1])
		if err != nil || idx >= len(ages) {
			return ""
		}
		return ages[idx]
	})
}
