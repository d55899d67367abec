package normalize

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// Bare bottle sizes that appear without a unit ("Buffalo Trace 750")
	bareSizePattern = regexp.MustCompile(`\b(?:1\.75|0\.75|0\.375|375|750|1000|1750)\s*(?:ml|l)?\b`)

	hyphenatedMarketing = []struct {
		pattern     *regexp.Regexp
		replacement string
	}{
		{regexp.MustCompile(`\bsmall[\s-]*batch\b`), "smallbatch"},
		{regexp.MustCompile(`\bsingle[\s-]*barrel\b`), "singlebarrel"},
		{regexp.MustCompile(`\bcask[\s-]*strength\b`), "caskstrength"},
		{regexp.MustCompile(`\bbottled[\s-]*in[\s-]*bond\b`), "bottledinbond"},
		{regexp.MustCompile(`\blimited[\s-]*edition\b`), "limitededition"},
		{regexp.MustCompile(`\bprivate[\s-]*selection\b`), "privateselection"},
		{regexp.MustCompile(`\bmaster[\s-]*distiller\b`), "masterdistiller"},
		{regexp.MustCompile(`\bdistillery[\s-]*exclusive\b`), "distilleryexclusive"},
	}
	genericAdjectives = regexp.MustCompile(`\b(?:premium|reserve|select|special|finest|quality|craft|artisan)\b`)

	proofToABVPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*proof\b`)
	abvNotation       = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*%?\s*abv\b`)
	percentNotation   = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*%`)
	alcoholContent    = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:abv|proof|pf)\b`)

	typeWords        = regexp.MustCompile(`\b(?:bourbon|whiskey|whisky|scotch|irish|american|tennessee|rye|single|malt|blended)\b`)
	descriptorWords  = regexp.MustCompile(`\b(?:straight|bottled|distilled)\b`)
	ageWords         = regexp.MustCompile(`\b\d+\s*(?:years?|yrs?)\s*(?:old)?\b`)
	proofOrABVTokens = regexp.MustCompile(`\b\d+(?:\.\d+)?\s*(?:proof|abv|pf)\b|\b\d+(?:\.\d+)?\s*%`)

	variantSizePattern  = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(ml|m\s*l|liter|litre|l|cl)\b`)
	variantYearPattern  = regexp.MustCompile(`\((\d{4})\)|\b(\d{4})\s*(?:release|edition)\b`)
	variantGiftPattern  = regexp.MustCompile(`\bgift\s*(?:box|set|pack)\b`)
	variantProofPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(?:proof|pf|p\.f\.)`)
)

// SizeVariant is the name with bottle sizes removed
func SizeVariant(name string) string {
	s := StripSizes(clean(name))
	s = bareSizePattern.ReplaceAllString(s, " ")
	return squash(s)
}

// MarketingVariant canonicalizes hyphenated marketing phrases and drops
// marketing text and generic adjectives.
func MarketingVariant(name string) string {
	s := clean(name)
	for _, h := range hyphenatedMarketing {
		s = h.pattern.ReplaceAllString(s, h.replacement)
	}
	s = stripMarketingPhrases(s)
	s = genericAdjectives.ReplaceAllString(s, " ")
	return squash(s)
}

// YearVariant removes bare four-digit years and vintage/release phrasing.
// Age statements such as "12 year" are not four-digit years and survive.
func YearVariant(name string) string {
	return squash(stripYears(clean(name)))
}

// ProofVariant rewrites "N proof" as "N/2abv" and then strips every
// alcohol-content token so proof and ABV spellings key identically.
func ProofVariant(name string) string {
	s := clean(name)
	s = proofToABVPattern.ReplaceAllStringFunc(s, func(m string) string {
		sub := proofToABVPattern.FindStringSubmatch(m)
		v, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return m
		}
		return strconv.FormatFloat(v/2, 'f', -1, 64) + "abv"
	})
	s = abvNotation.ReplaceAllString(s, "${1}abv")
	s = percentNotation.ReplaceAllString(s, "${1}abv")
	s = alcoholContent.ReplaceAllString(s, " ")
	return squash(s)
}

// BasicName drops type words, descriptors, age statements and alcohol content
func BasicName(name string) string {
	s := clean(name)
	s = typeWords.ReplaceAllString(s, " ")
	s = descriptorWords.ReplaceAllString(s, " ")
	s = ageWords.ReplaceAllString(s, " ")
	s = proofOrABVTokens.ReplaceAllString(s, " ")
	return squash(s)
}

// CompatibleType maps near-synonym category labels onto one bucket
func CompatibleType(spiritType string) string {
	t := strings.TrimSpace(Fold(spiritType))
	switch {
	case t == "":
		return "unknown"
	case strings.Contains(t, "bourbon"), strings.Contains(t, "american whisk"), strings.Contains(t, "tennessee whisk"):
		return "american-whiskey"
	case strings.Contains(t, "scotch"), strings.Contains(t, "single malt"):
		return "scotch-whisky"
	case strings.Contains(t, "irish"):
		return "irish-whiskey"
	case strings.Contains(t, "japanese"):
		return "japanese-whisky"
	case strings.Contains(t, "canadian"):
		return "canadian-whisky"
	case strings.Contains(t, "rye"):
		return "rye-whiskey"
	case strings.Contains(t, "whisk"):
		return "whiskey"
	case strings.Contains(t, "gin"):
		return "gin"
	case strings.Contains(t, "vodka"):
		return "vodka"
	case strings.Contains(t, "rum"):
		return "rum"
	case strings.Contains(t, "tequila"), strings.Contains(t, "mezcal"):
		return "tequila"
	case strings.Contains(t, "brandy"), strings.Contains(t, "cognac"), strings.Contains(t, "armagnac"):
		return "brandy"
	}
	return squash(t)
}

// VariantInfo is the variant detail that normalization strips away
type VariantInfo struct {
	Size    string `json:"size,omitempty"`
	Year    string `json:"year,omitempty"`
	GiftSet bool   `json:"gift_set,omitempty"`
	Proof   string `json:"proof,omitempty"`
}

// Variant extracts size, release year, gift-set and proof details from a name
func Variant(name string) VariantInfo {
	s := clean(name)
	var info VariantInfo
	if m := variantSizePattern.FindString(s); m != "" {
		info.Size = strings.ReplaceAll(m, " ", "")
	}
	if m := variantYearPattern.FindStringSubmatch(s); m != nil {
		info.Year = m[1]
		if info.Year == "" {
			info.Year = m[2]
		}
	}
	info.GiftSet = variantGiftPattern.MatchString(s)
	if m := variantProofPattern.FindStringSubmatch(s); m != nil {
		info.Proof = m[1]
	}
	return info
}

// Differences lists the variant dimensions on which two names disagree
func (v VariantInfo) Differences(other VariantInfo) []string {
	var diffs []string
	if v.Size != other.Size && (v.Size != "" || other.Size != "") {
		diffs = append(diffs, "size")
	}
	if v.Year != other.Year && (v.Year != "" || other.Year != "") {
		diffs = append(diffs, "year")
	}
	if v.GiftSet != other.GiftSet {
		diffs = append(diffs, "gift_set")
	}
	if v.Proof != other.Proof && (v.Proof != "" || other.Proof != "") {
		diffs = append(diffs, "proof")
	}
	return diffs
}

// PriceKey groups records that are one product for pricing purposes.
// Size, year and marketing text are stripped; proof is kept because it
// legitimately changes price.
func PriceKey(brand, name string) string {
	return Brand(brand) + ":" + Standard(name)
}
