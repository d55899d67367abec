package blocking

import (
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/strutil"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
	"github.com/spiritlens/backend/internal/similarity"
)

// Strategy names one way of grouping records into blocks
type Strategy string

const (
	StrategyBrand          Strategy = "brand"
	StrategyType           Strategy = "type"
	StrategyPrefix         Strategy = "prefix"
	StrategyPhonetic       Strategy = "phonetic"
	StrategyNgram          Strategy = "ngram"
	StrategySizeVariant    Strategy = "size_variant"
	StrategyMarketingText  Strategy = "marketing_text"
	StrategyYearVariant    Strategy = "year_variant"
	StrategyProofNotation  Strategy = "proof_notation"
	StrategyTypeCompatible Strategy = "type_compatible"
)

const (
	prefixLength      = 4
	fingerprintNgrams = 5
	unknownType       = "unknown"
)

// AllStrategies lists every strategy in execution order
func AllStrategies() []Strategy {
	return []Strategy{
		StrategyBrand,
		StrategyType,
		StrategyPrefix,
		StrategyPhonetic,
		StrategyNgram,
		StrategySizeVariant,
		StrategyMarketingText,
		StrategyYearVariant,
		StrategyProofNotation,
		StrategyTypeCompatible,
	}
}

// ParseStrategy resolves a configured strategy name
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllStrategies() {
		if s == known {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: unknown blocking strategy %q", domain.ErrConfiguration, name)
}

// Confidence is the informational weight reported for blocks of this strategy.
// It is not a similarity score.
func (s Strategy) Confidence() float64 {
	switch s {
	case StrategyBrand:
		return 0.95
	case StrategySizeVariant:
		return 0.92
	case StrategyProofNotation:
		return 0.90
	case StrategyMarketingText:
		return 0.88
	case StrategyYearVariant, StrategyType:
		return 0.85
	case StrategyTypeCompatible:
		return 0.80
	case StrategyPrefix:
		return 0.75
	case StrategyPhonetic:
		return 0.70
	case StrategyNgram:
		return 0.65
	}
	return 0
}

// Keyer derives the blocking key of one record. An empty key keeps the
// record out of this strategy's blocks.
type Keyer interface {
	Strategy() Strategy
	Key(r *domain.Record) string
}

type keyFunc struct {
	strategy Strategy
	fn       func(r *domain.Record) string
}

func (k keyFunc) Strategy() Strategy { return k.strategy }

func (k keyFunc) Key(r *domain.Record) string {
	v := k.fn(r)
	if v == "" {
		return ""
	}
	return string(k.strategy) + ":" + v
}

// newKeyer returns the keyer of a strategy. The strategy set is closed.
func newKeyer(s Strategy, ngramSize int) Keyer {
	var fn func(r *domain.Record) string
	switch s {
	case StrategyBrand:
		fn = brandKey
	case StrategyType:
		fn = typeKey
	case StrategyPrefix:
		fn = func(r *domain.Record) string { return normalize.Prefix(r.Name, prefixLength) }
	case StrategyPhonetic:
		fn = phoneticKey
	case StrategyNgram:
		fn = func(r *domain.Record) string { return Fingerprint(r.Name, ngramSize) }
	case StrategySizeVariant:
		fn = variantKey(normalize.SizeVariant)
	case StrategyMarketingText:
		fn = variantKey(normalize.MarketingVariant)
	case StrategyYearVariant:
		fn = yearKey
	case StrategyProofNotation:
		fn = variantKey(normalize.ProofVariant)
	case StrategyTypeCompatible:
		fn = typeCompatibleKey
	default:
		return nil
	}
	return keyFunc{strategy: s, fn: fn}
}

func brandKey(r *domain.Record) string {
	return normalize.Brand(r.Brand)
}

// typeKey sub-blocks each type by brand so high-volume types stay small
func typeKey(r *domain.Record) string {
	brand := normalize.Brand(r.Brand)
	if brand == "" {
		brand = unknownType
	}
	return recordType(r) + ":" + brand
}

func phoneticKey(r *domain.Record) string {
	code := similarity.Soundex(r.Name)
	if code == "" {
		return ""
	}
	if brand := normalize.Brand(r.Brand); brand != "" {
		return code + ":" + brand
	}
	return code
}

func variantKey(variant func(string) string) func(r *domain.Record) string {
	return func(r *domain.Record) string {
		name := variant(r.Name)
		if name == "" {
			return ""
		}
		return normalize.Brand(r.Brand) + ":" + name
	}
}

func yearKey(r *domain.Record) string {
	name := normalize.YearVariant(r.Name)
	if name == "" {
		return ""
	}
	return normalize.Brand(r.Brand) + ":" + recordType(r) + ":" + name
}

func typeCompatibleKey(r *domain.Record) string {
	name := normalize.BasicName(r.Name)
	if name == "" {
		return ""
	}
	return normalize.CompatibleType(r.Type) + ":" + normalize.Brand(r.Brand) + ":" + name
}

func recordType(r *domain.Record) string {
	t := strings.TrimSpace(normalize.Fold(r.Type))
	if t == "" {
		return unknownType
	}
	return t
}

// Fingerprint concatenates the first five distinct character n-grams of the
// alphanumeric name in sorted order.
func Fingerprint(name string, n int) string {
	if n <= 0 {
		n = similarity.DefaultNgramSize
	}
	s := normalize.Alnum(name)
	if s == "" {
		return ""
	}
	grams := strutil.UniqueSlice(strutil.Ngrams(s, n))
	sort.Strings(grams)
	if len(grams) > fingerprintNgrams {
		grams = grams[:fingerprintNgrams]
	}
	return strings.Join(grams, "")
}
