package similarity

import (
	"errors"
	"math"
	"testing"

	"github.com/spiritlens/backend/internal/domain"
)

var namePairs = [][2]string{
	{"Buffalo Trace Bourbon", "Buffalo Trace Bourbon 750ml"},
	{"Wild Turkey 101", "Wyld Turkey 101 Bourbon"},
	{"Eagle Rare 10 Year", "Eagle Rare 17 Year"},
	{"Jameson Irish Whiskey", "Patron Silver Tequila"},
	{"Baileys Original Irish Cream", "Jameson Irish Whiskey"},
	{"", "Maker's Mark"},
	{"The Glenlivet 12", "Glenlivet Founder's Reserve"},
	{"Don Julio Añejo", "don julio anejo"},
	{"Single Malt", "single-malt"},
}

func TestSimilaritySymmetric(t *testing.T) {
	cfg := DefaultConfig()
	for _, p := range namePairs {
		ab := Similarity(p[0], p[1], cfg)
		ba := Similarity(p[1], p[0], cfg)
		if ab.Value != ba.Value {
			t.Errorf("Similarity(%q, %q) = %v but reversed = %v", p[0], p[1], ab.Value, ba.Value)
		}
		if ab.Confidence != ba.Confidence {
			t.Errorf("confidence differs for %q / %q: %s vs %s", p[0], p[1], ab.Confidence, ba.Confidence)
		}
	}
}

func TestSimilarityRange(t *testing.T) {
	configs := []Config{
		DefaultConfig(),
		{CaseSensitive: true, NgramSize: 2, Weights: Weights{Edit: 1}},
		{RemoveStopWords: false, NgramSize: 4, Weights: Weights{Token: 3, Phonetic: 1}},
	}
	for _, cfg := range configs {
		for _, p := range namePairs {
			res := Similarity(p[0], p[1], cfg)
			if res.Value < 0 || res.Value > 1 || math.IsNaN(res.Value) {
				t.Errorf("Similarity(%q, %q) = %v, out of [0,1]", p[0], p[1], res.Value)
			}
		}
	}
}

func TestSimilarityKeyShortcut(t *testing.T) {
	t.Run("size variant short-circuits", func(t *testing.T) {
		res := Similarity("Buffalo Trace Bourbon", "Buffalo Trace Bourbon 750ml", DefaultConfig())
		if res.Value != KeyMatchScore {
			t.Errorf("Value = %v, want %v", res.Value, KeyMatchScore)
		}
		if !res.Breakdown.KeyMatch {
			t.Error("Breakdown.KeyMatch = false, want true")
		}
		if res.Confidence != domain.ConfidenceHigh {
			t.Errorf("Confidence = %s, want high", res.Confidence)
		}
	})

	t.Run("identical strings stay below one", func(t *testing.T) {
		res := Similarity("Blanton's Original", "Blanton's Original", DefaultConfig())
		if res.Value != KeyMatchScore {
			t.Errorf("Value = %v, want %v", res.Value, KeyMatchScore)
		}
	})

	t.Run("different ages do not short-circuit", func(t *testing.T) {
		res := Similarity("Eagle Rare 10 Year", "Eagle Rare 17 Year", DefaultConfig())
		if res.Breakdown.KeyMatch {
			t.Error("Breakdown.KeyMatch = true, want false")
		}
		if res.Value >= KeyMatchScore {
			t.Errorf("Value = %v, want below %v", res.Value, KeyMatchScore)
		}
	})
}

func TestSimilarityEmptyInput(t *testing.T) {
	res := Similarity("", "Maker's Mark", DefaultConfig())
	if res.Value != 0 {
		t.Errorf("Value = %v, want 0", res.Value)
	}
	if res.Confidence != domain.ConfidenceLow {
		t.Errorf("Confidence = %s, want low", res.Confidence)
	}
}

func TestSimilarityUnrelatedNamesScoreLow(t *testing.T) {
	if v := Score("Jameson", "Patron Silver"); v >= 0.5 {
		t.Errorf("Score = %v, want < 0.5", v)
	}
}

func TestSimilarityTypoScoresHigherThanUnrelated(t *testing.T) {
	typo := Score("Wild Turkey 101", "Wyld Turkey 101 Bourbon")
	unrelated := Score("Wild Turkey 101", "Four Roses Small Batch")
	if typo <= unrelated {
		t.Errorf("typo score %v should exceed unrelated score %v", typo, unrelated)
	}
	if typo < 0.6 {
		t.Errorf("typo score = %v, want >= 0.6", typo)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	inputs := []string{
		"The Glenlivet 12 Year Old Single Malt",
		"Maker's Mark  Kentucky   Bourbon!",
		"Don Julio Añejo",
		"Single Malt",
		"  ",
		"Four_Roses (Small Batch)",
	}
	for _, in := range inputs {
		once := Normalize(in, cfg)
		twice := Normalize(once, cfg)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestNormalize(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		cfg   Config
		want  string
	}{
		{"drops stop words", "The Glenlivet 12 Year Old", DefaultConfig(), "glenlivet 12"},
		{"keeps all-stopword names", "Single Malt", DefaultConfig(), "single malt"},
		{"stop words kept when disabled", "The Glenlivet", Config{}, "the glenlivet"},
		{"case sensitive keeps case", "Don Julio Añejo", Config{CaseSensitive: true}, "Don Julio Anejo"},
		{"punctuation becomes space", "Blanton's", Config{}, "blanton s"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input, tc.cfg); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		if err := DefaultConfig().Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})

	t.Run("negative weight", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Weights.Phonetic = -0.1
		if err := cfg.Validate(); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("Validate() = %v, want ErrConfiguration", err)
		}
	})

	t.Run("all zero weights", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Weights = Weights{}
		if err := cfg.Validate(); !errors.Is(err, domain.ErrConfiguration) {
			t.Errorf("Validate() = %v, want ErrConfiguration", err)
		}
	})
}

func TestConfidenceFor(t *testing.T) {
	testCases := []struct {
		value float64
		want  domain.Confidence
	}{
		{1, domain.ConfidenceHigh},
		{0.9, domain.ConfidenceHigh},
		{0.89, domain.ConfidenceMedium},
		{0.7, domain.ConfidenceMedium},
		{0.69, domain.ConfidenceLow},
		{0, domain.ConfidenceLow},
	}
	for _, tc := range testCases {
		if got := ConfidenceFor(tc.value); got != tc.want {
			t.Errorf("ConfidenceFor(%v) = %s, want %s", tc.value, got, tc.want)
		}
	}
}
