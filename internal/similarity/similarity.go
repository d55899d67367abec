// Package similarity scores how alike two strings are using five
// complementary algorithms blended into one value in [0, 1].
package similarity

import (
	"fmt"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/normalize"
)

const (
	// DefaultNgramSize is the character n-gram length
	DefaultNgramSize = 3

	// KeyMatchScore is returned when aggressive keys agree. It stays below
	// 1.0 so exact matches can still rank above it.
	KeyMatchScore = 0.98

	highConfidence   = 0.9
	mediumConfidence = 0.7
)

// Weights are the per-algorithm weights of the combined score
type Weights struct {
	Edit        float64 `mapstructure:"edit" json:"edit"`
	JaroWinkler float64 `mapstructure:"jaro_winkler" json:"jaro_winkler"`
	Ngram       float64 `mapstructure:"ngram" json:"ngram"`
	Phonetic    float64 `mapstructure:"phonetic" json:"phonetic"`
	Token       float64 `mapstructure:"token" json:"token"`
}

func (w Weights) sum() float64 {
	return w.Edit + w.JaroWinkler + w.Ngram + w.Phonetic + w.Token
}

// DefaultWeights favours Jaro-Winkler and token matching
func DefaultWeights() Weights {
	return Weights{Edit: 0.15, JaroWinkler: 0.25, Ngram: 0.20, Phonetic: 0.15, Token: 0.25}
}

// Config controls normalization and weighting
type Config struct {
	CaseSensitive   bool
	RemoveStopWords bool
	NgramSize       int
	Weights         Weights
}

// DefaultConfig returns the baseline configuration
func DefaultConfig() Config {
	return Config{
		RemoveStopWords: true,
		NgramSize:       DefaultNgramSize,
		Weights:         DefaultWeights(),
	}
}

// Validate rejects negative or all-zero weights and a negative n-gram size
func (c Config) Validate() error {
	w := c.Weights
	for name, v := range map[string]float64{
		"edit": w.Edit, "jaro_winkler": w.JaroWinkler, "ngram": w.Ngram,
		"phonetic": w.Phonetic, "token": w.Token,
	} {
		if v < 0 {
			return fmt.Errorf("%w: fuzzy weight %s must not be negative (got %v)", domain.ErrConfiguration, name, v)
		}
	}
	if w.sum() == 0 {
		return fmt.Errorf("%w: fuzzy algorithm weights must not all be zero", domain.ErrConfiguration)
	}
	if c.NgramSize < 0 {
		return fmt.Errorf("%w: ngram size must not be negative (got %d)", domain.ErrConfiguration, c.NgramSize)
	}
	return nil
}

// Breakdown holds the component scores
type Breakdown struct {
	Edit        float64 `json:"edit"`
	JaroWinkler float64 `json:"jaro_winkler"`
	Ngram       float64 `json:"ngram"`
	Phonetic    float64 `json:"phonetic"`
	Token       float64 `json:"token"`
	KeyMatch    bool    `json:"key_match"`
}

// Result is the outcome of one comparison
type Result struct {
	Value       float64           `json:"value"`
	Confidence  domain.Confidence `json:"confidence"`
	Normalized1 string            `json:"normalized_1"`
	Normalized2 string            `json:"normalized_2"`
	Breakdown   Breakdown         `json:"breakdown"`
}

// Similarity compares s1 and s2. The pair is put in canonical order before
// any order-sensitive step, so Similarity(a, b) == Similarity(b, a).
func Similarity(s1, s2 string, cfg Config) Result {
	if cfg.NgramSize <= 0 {
		cfg.NgramSize = DefaultNgramSize
	}
	if cfg.Weights.sum() <= 0 {
		cfg.Weights = DefaultWeights()
	}

	if s2 < s1 {
		s1, s2 = s2, s1
	}
	n1, n2 := Normalize(s1, cfg), Normalize(s2, cfg)
	if n2 < n1 {
		n1, n2 = n2, n1
	}
	res := Result{Normalized1: n1, Normalized2: n2}

	k1, k2 := normalize.Aggressive(s1), normalize.Aggressive(s2)
	if k1 != "" && k1 == k2 {
		res.Value = KeyMatchScore
		res.Confidence = ConfidenceFor(KeyMatchScore)
		res.Breakdown = Breakdown{
			Edit: KeyMatchScore, JaroWinkler: KeyMatchScore, Ngram: KeyMatchScore,
			Phonetic: KeyMatchScore, Token: KeyMatchScore, KeyMatch: true,
		}
		return res
	}

	if n1 == "" || n2 == "" {
		res.Confidence = domain.ConfidenceLow
		return res
	}

	b := Breakdown{
		Edit:        EditSimilarity(n1, n2),
		JaroWinkler: JaroWinkler(n1, n2),
		Ngram:       NgramSimilarity(n1, n2, cfg.NgramSize),
		Phonetic:    PhoneticSimilarity(n1, n2),
		Token:       TokenSimilarity(n1, n2),
	}
	w := cfg.Weights
	value := (b.Edit*w.Edit + b.JaroWinkler*w.JaroWinkler + b.Ngram*w.Ngram +
		b.Phonetic*w.Phonetic + b.Token*w.Token) / w.sum()

	res.Value = clamp(value)
	res.Confidence = ConfidenceFor(res.Value)
	res.Breakdown = b
	return res
}

// Score is shorthand for Similarity(...).Value with the default configuration
func Score(s1, s2 string) float64 {
	return Similarity(s1, s2, DefaultConfig()).Value
}

// ConfidenceFor buckets a similarity value
func ConfidenceFor(v float64) domain.Confidence {
	switch {
	case v >= highConfidence:
		return domain.ConfidenceHigh
	case v >= mediumConfidence:
		return domain.ConfidenceMedium
	}
	return domain.ConfidenceLow
}
