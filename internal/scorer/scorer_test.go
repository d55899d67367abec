package scorer

import (
	"errors"
	"math"
	"testing"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/tfidf"
)

func newTestScorer(t *testing.T, cfg Config) *Scorer {
	t.Helper()
	s, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestNew(t *testing.T) {
	t.Run("default config is valid", func(t *testing.T) {
		if _, err := New(DefaultConfig(), nil); err != nil {
			t.Errorf("New() error = %v", err)
		}
	})

	testCases := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative threshold", func(c *Config) { c.CombinedThreshold = -0.1 }},
		{"threshold above one", func(c *Config) { c.AutoMergeThreshold = 1.2 }},
		{"negative penalty weight", func(c *Config) { c.PenaltyWeights.Age = -1 }},
		{"negative fuzzy algorithm weight", func(c *Config) { c.Similarity.Weights.Edit = -0.5 }},
		{"no name signal", func(c *Config) { c.FuzzyWeight, c.TFIDFWeight = 0, 0 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(&cfg)
			if _, err := New(cfg, nil); !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("New() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestCompareSizeVariant(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())
	a := domain.Record{ID: "1", Name: "Buffalo Trace Bourbon", Brand: "Buffalo Trace"}
	b := domain.Record{ID: "2", Name: "Buffalo Trace Bourbon 750ml", Brand: "Buffalo Trace"}

	c := s.Compare(&a, &b)
	if c == nil {
		t.Fatal("Compare() = nil, want a candidate")
	}
	if c.Similarity < s.Config().SameBrandThreshold {
		t.Errorf("Similarity = %v, want >= %v", c.Similarity, s.Config().SameBrandThreshold)
	}
	if c.Confidence != domain.ConfidenceHigh {
		t.Errorf("Confidence = %s, want high", c.Confidence)
	}
	if c.RecommendedAction != domain.ActionMerge {
		t.Errorf("RecommendedAction = %s, want merge", c.RecommendedAction)
	}
	if c.MatchType != domain.MatchTypeExact {
		t.Errorf("MatchType = %s, want exact", c.MatchType)
	}
	if c.Breakdown.KeyMatch == "" {
		t.Error("Breakdown.KeyMatch is empty, want a key level")
	}
}

func TestComparePhoneticTypo(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())
	a := domain.Record{ID: "1", Name: "Wild Turkey 101", Brand: "Wild Turkey", ABV: 50.5}
	b := domain.Record{ID: "2", Name: "Wyld Turkey 101 Bourbon", Brand: "Wild Turkey"}

	c := s.Compare(&a, &b)
	if c == nil {
		t.Fatal("Compare() = nil, want a candidate")
	}
	if c.RecommendedAction.Rank() < domain.ActionFlagForReview.Rank() {
		t.Errorf("RecommendedAction = %s, want at least flag_for_review", c.RecommendedAction)
	}
}

func TestCompareAgeMismatch(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())
	a := domain.Record{ID: "1", Name: "Eagle Rare 10 Year", Brand: "Eagle Rare", Age: 10}
	b := domain.Record{ID: "2", Name: "Eagle Rare 17 Year", Brand: "Eagle Rare", Age: 17}

	if c := s.Compare(&a, &b); c != nil && c.RecommendedAction != domain.ActionIgnore {
		t.Errorf("RecommendedAction = %s (score %v), want ignore", c.RecommendedAction, c.Similarity)
	}
}

func TestCompareLiqueurNeverMerges(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())
	pairs := [][2]domain.Record{
		{
			{ID: "1", Name: "Bailey's Original", Brand: "Baileys", IsLiqueur: true},
			{ID: "2", Name: "Baileys Original", Brand: "Baileys"},
		},
		{
			{ID: "3", Name: "Jameson Irish Whiskey", Brand: "Jameson"},
			{ID: "4", Name: "Jameson Irish Whiskey", Brand: "Jameson", Category: "Cream Liqueur"},
		},
	}
	for _, p := range pairs {
		c := s.Compare(&p[0], &p[1])
		if c != nil && c.RecommendedAction == domain.ActionMerge {
			t.Errorf("%q / %q recommended merge", p[0].Name, p[1].Name)
		}
	}
}

func TestCompareSymmetric(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())
	records := scoringFixture()
	ix := tfidf.Build(records, tfidf.Options{})

	for i := range records {
		for j := range records {
			if i == j {
				continue
			}
			ab := s.CompareFuzzyWithTFIDF(&records[i], &records[j], ix)
			ba := s.CompareFuzzyWithTFIDF(&records[j], &records[i], ix)
			if (ab == nil) != (ba == nil) {
				t.Fatalf("%s/%s: nil mismatch", records[i].ID, records[j].ID)
			}
			if ab == nil {
				continue
			}
			if ab.Similarity != ba.Similarity || ab.RecommendedAction != ba.RecommendedAction {
				t.Errorf("%s/%s: (%v, %s) vs (%v, %s)", records[i].ID, records[j].ID,
					ab.Similarity, ab.RecommendedAction, ba.Similarity, ba.RecommendedAction)
			}
			if ab.ID != ba.ID {
				t.Errorf("match id differs by argument order")
			}
			if ab.Similarity < 0 || ab.Similarity > 1 {
				t.Errorf("Similarity out of range: %v", ab.Similarity)
			}
		}
	}
}

func TestCombinedThresholdMonotonic(t *testing.T) {
	records := scoringFixture()
	count := func(threshold float64) int {
		cfg := DefaultConfig()
		cfg.CombinedThreshold = threshold
		s := newTestScorer(t, cfg)
		n := 0
		for i := range records {
			for j := i + 1; j < len(records); j++ {
				c := s.Compare(&records[i], &records[j])
				if c != nil && c.RecommendedAction != domain.ActionIgnore {
					n++
				}
			}
		}
		return n
	}

	prev := count(0)
	for _, threshold := range []float64{0.6, 0.7, 0.8, 0.9, 1} {
		got := count(threshold)
		if got > prev {
			t.Errorf("threshold %v produced %d actionable candidates, more than %d at a lower threshold", threshold, got, prev)
		}
		prev = got
	}
}

func TestCompareWithTFIDF(t *testing.T) {
	s := newTestScorer(t, DefaultConfig())
	records := scoringFixture()
	ix := tfidf.Build(records, tfidf.Options{})

	c := s.CompareFuzzyWithTFIDF(&records[0], &records[1], ix)
	if c == nil {
		t.Fatal("CompareFuzzyWithTFIDF() = nil")
	}
	if !c.Breakdown.TFIDFApplied {
		t.Error("TFIDFApplied = false, want true")
	}
	if c.Breakdown.NameSimilarity < 0.95 {
		t.Errorf("key match should floor name similarity, got %v", c.Breakdown.NameSimilarity)
	}
}

func TestMatchIDOrderIndependent(t *testing.T) {
	if MatchID("a", "b") != MatchID("b", "a") {
		t.Error("MatchID depends on argument order")
	}
	if MatchID("a", "b") == MatchID("a", "c") {
		t.Error("MatchID collides for different pairs")
	}
}

func TestExtractAttributes(t *testing.T) {
	testCases := []struct {
		name   string
		record domain.Record
		check  func(domain.Attributes) bool
	}{
		{"proof from name", domain.Record{Name: "Wild Turkey 101 Proof", ABV: 40}, func(a domain.Attributes) bool { return a.Proof == 101 }},
		{"proof from abv", domain.Record{Name: "Wild Turkey", ABV: 45}, func(a domain.Attributes) bool { return a.Proof == 90 }},
		{"age statement", domain.Record{Name: "Eagle Rare 10 Year"}, func(a domain.Attributes) bool { return a.Age == 10 }},
		{"explicit age wins", domain.Record{Name: "Eagle Rare 10 Year", Age: 12}, func(a domain.Attributes) bool { return a.Age == 12 }},
		{"grain", domain.Record{Name: "Old Overholt Rye"}, func(a domain.Attributes) bool { return a.Grain == "rye" }},
		{"cask", domain.Record{Name: "Redbreast Lustau Sherry Finish"}, func(a domain.Attributes) bool { return a.Cask == "sherry" }},
		{"release year", domain.Record{Name: "Stagg Jr 2022 Release"}, func(a domain.Attributes) bool { return a.ReleaseYear == 2022 && a.Vintage == 0 }},
		{"vintage", domain.Record{Name: "Evan Williams Single Barrel 2014"}, func(a domain.Attributes) bool { return a.Vintage == 2014 && a.SingleBarrel }},
		{"limited edition", domain.Record{Name: "Four Roses Limited Edition Small Batch"}, func(a domain.Attributes) bool { return a.LimitedEdition }},
		{"liqueur by category", domain.Record{Name: "Carolans", Category: "Cream Liqueur"}, func(a domain.Attributes) bool { return a.Liqueur }},
		{"cask strength", domain.Record{Name: "Booker's Barrel Proof"}, func(a domain.Attributes) bool { return a.CaskStrength }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := ExtractAttributes(&tc.record)
			if !tc.check(got) {
				t.Errorf("ExtractAttributes(%q) = %+v", tc.record.Name, got)
			}
		})
	}
}

func TestPenalty(t *testing.T) {
	w := DefaultConfig().PenaltyWeights

	t.Run("age difference scales", func(t *testing.T) {
		p := Penalty(domain.Attributes{Age: 10}, domain.Attributes{Age: 17}, w)
		if math.Abs(p.Total-0.28) > 1e-9 {
			t.Errorf("Total = %v, want 0.28", p.Total)
		}
	})

	t.Run("proof within tolerance", func(t *testing.T) {
		p := Penalty(domain.Attributes{Proof: 100}, domain.Attributes{Proof: 101.5}, w)
		if p.Total != 0 {
			t.Errorf("Total = %v, want 0", p.Total)
		}
	})

	t.Run("missing attributes are not mismatches", func(t *testing.T) {
		p := Penalty(domain.Attributes{Age: 12, Grain: "rye"}, domain.Attributes{}, w)
		if p.Total != 0 {
			t.Errorf("Total = %v, want 0", p.Total)
		}
	})

	t.Run("capped at one", func(t *testing.T) {
		a := domain.Attributes{Age: 5, Proof: 80, Grain: "rye", Cask: "port", Vintage: 2001, Liqueur: true, CaskStrength: true}
		b := domain.Attributes{Age: 25, Proof: 140, Grain: "corn", Cask: "sherry", Vintage: 2010, SingleBarrel: true, LimitedEdition: true}
		if p := Penalty(a, b, w); p.Total != 1 {
			t.Errorf("Total = %v, want 1", p.Total)
		}
	})
}

func scoringFixture() []domain.Record {
	return []domain.Record{
		{ID: "a1", Name: "Buffalo Trace Bourbon", Brand: "Buffalo Trace", Type: "Bourbon", Description: "Sweet aromas of vanilla, mint and molasses with brown sugar and spice on the palate."},
		{ID: "a2", Name: "Buffalo Trace Bourbon 750ml", Brand: "Buffalo Trace", Type: "Bourbon"},
		{ID: "b1", Name: "Wild Turkey 101", Brand: "Wild Turkey", ABV: 50.5, Type: "Bourbon"},
		{ID: "b2", Name: "Wyld Turkey 101 Bourbon", Brand: "Wild Turkey", Type: "Bourbon"},
		{ID: "c1", Name: "Eagle Rare 10 Year", Brand: "Eagle Rare", Age: 10},
		{ID: "c2", Name: "Eagle Rare 17 Year", Brand: "Eagle Rare", Age: 17},
		{ID: "d1", Name: "Bailey's Original", Brand: "Baileys", IsLiqueur: true},
		{ID: "d2", Name: "Baileys Original", Brand: "Baileys"},
		{ID: "e1", Name: "Jameson Irish Whiskey", Brand: "Jameson", Type: "Irish Whiskey"},
		{ID: "e2", Name: "Jameson Irish Whisky", Brand: "Jameson Distillery", Type: "Irish Whiskey"},
		{ID: "f1", Name: "Maker's Mark", Brand: "Maker's Mark"},
		{ID: "f2", Name: "Makers Mark 46", Brand: "Beam Suntory"},
	}
}
