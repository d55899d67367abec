package blocking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/spiritlens/backend/internal/domain"
)

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e
}

func blocksContaining(blocks []Block, i, j int) []Block {
	var out []Block
	for _, b := range blocks {
		hasI, hasJ := false, false
		for _, m := range b.Members {
			hasI = hasI || m == i
			hasJ = hasJ || m == j
		}
		if hasI && hasJ {
			out = append(out, b)
		}
	}
	return out
}

func TestNewEngineValidation(t *testing.T) {
	testCases := []struct {
		name string
		cfg  Config
	}{
		{"min block size below two", Config{MinBlockSize: 1}},
		{"max below min", Config{MinBlockSize: 5, MaxBlockSize: 3}},
		{"unknown strategy", Config{Strategies: []Strategy{"zodiac"}}},
		{"negative memory limit", Config{MemoryLimitMB: -1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewEngine(tc.cfg, nil)
			if !errors.Is(err, domain.ErrConfiguration) {
				t.Errorf("NewEngine() error = %v, want ErrConfiguration", err)
			}
		})
	}

	t.Run("defaults fill zero values", func(t *testing.T) {
		e := newTestEngine(t, Config{MemoryLimitMB: 256})
		cfg := e.Config()
		if cfg.MinBlockSize != 2 || cfg.MaxBlockSize != 1000 || len(cfg.Strategies) != 10 {
			t.Errorf("Config() = %+v, want defaults", cfg)
		}
	})
}

func TestSizeVariantBlock(t *testing.T) {
	records := []domain.Record{
		{ID: "1", Name: "Buffalo Trace Bourbon", Brand: "Buffalo Trace"},
		{ID: "2", Name: "Buffalo Trace Bourbon 750ml", Brand: "Buffalo Trace"},
	}
	e := newTestEngine(t, DefaultConfig())

	res, err := e.CreateBlocks(context.Background(), records)
	if err != nil {
		t.Fatalf("CreateBlocks() error = %v", err)
	}

	found := false
	for _, b := range blocksContaining(res.Blocks, 0, 1) {
		if b.Strategy == StrategySizeVariant {
			found = true
			if b.Confidence != 0.92 {
				t.Errorf("size variant confidence = %v, want 0.92", b.Confidence)
			}
			if b.Key != "size_variant:buffalotrace:buffalo trace bourbon" {
				t.Errorf("size variant key = %q", b.Key)
			}
		}
	}
	if !found {
		t.Error("records should share a size variant block")
	}
}

func TestPhoneticBlock(t *testing.T) {
	records := []domain.Record{
		{ID: "1", Name: "Wild Turkey 101", Brand: "Wild Turkey", ABV: 50.5},
		{ID: "2", Name: "Wyld Turkey 101 Bourbon", Brand: "Wild Turkey"},
	}
	e := newTestEngine(t, Config{Strategies: []Strategy{StrategyPhonetic}, MemoryLimitMB: 512})

	res, err := e.CreateBlocks(context.Background(), records)
	if err != nil {
		t.Fatalf("CreateBlocks() error = %v", err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(res.Blocks))
	}
	if got := res.Blocks[0].Key; got != "phonetic:W436:wildturkey" {
		t.Errorf("key = %q, want phonetic:W436:wildturkey", got)
	}
}

func TestCreateBlocksDropsSingletons(t *testing.T) {
	records := []domain.Record{
		{ID: "1", Name: "Hendrick's Gin", Brand: "Hendrick's"},
		{ID: "2", Name: "Patron Silver", Brand: "Patron"},
	}
	e := newTestEngine(t, Config{Strategies: []Strategy{StrategyBrand, StrategyPrefix}, MemoryLimitMB: 512})

	res, err := e.CreateBlocks(context.Background(), records)
	if err != nil {
		t.Fatalf("CreateBlocks() error = %v", err)
	}
	if len(res.Blocks) != 0 {
		t.Errorf("got %d blocks, want 0: %+v", len(res.Blocks), res.Blocks)
	}
	if res.Stats.ReductionPercent != 100 {
		t.Errorf("ReductionPercent = %v, want 100", res.Stats.ReductionPercent)
	}
}

func TestOversizeBlockIsSplit(t *testing.T) {
	records := make([]domain.Record, 25)
	for i := range records {
		records[i] = domain.Record{ID: fmt.Sprintf("id-%02d", i), Name: fmt.Sprintf("Bottle %02d", 24-i), Brand: "Heaven Hill"}
	}
	e := newTestEngine(t, Config{Strategies: []Strategy{StrategyBrand}, MaxBlockSize: 10, MemoryLimitMB: 512})

	res, err := e.CreateBlocks(context.Background(), records)
	if err != nil {
		t.Fatalf("CreateBlocks() error = %v", err)
	}

	// chunks of ceil(10*0.8) = 8: 8, 8, 8 and a dropped single
	if len(res.Blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(res.Blocks))
	}
	for i, b := range res.Blocks {
		wantKey := fmt.Sprintf("brand:heavenhill:chunk%d", i)
		if b.Key != wantKey {
			t.Errorf("block %d key = %q, want %q", i, b.Key, wantKey)
		}
		if b.Size() != 8 {
			t.Errorf("block %d size = %d, want 8", i, b.Size())
		}
		if b.Size() > 10 {
			t.Errorf("block %d exceeds max size", i)
		}
	}
	// sorted by name: "Bottle 00" is record 24
	if first := res.Blocks[0].Members[0]; first != 24 {
		t.Errorf("first member = %d, want 24", first)
	}
}

func TestCreateBlocksDeterministic(t *testing.T) {
	records := fixtureRecords()
	e := newTestEngine(t, DefaultConfig())

	first, err := e.CreateBlocks(context.Background(), records)
	if err != nil {
		t.Fatalf("CreateBlocks() error = %v", err)
	}
	for run := 0; run < 5; run++ {
		again, err := e.CreateBlocks(context.Background(), records)
		if err != nil {
			t.Fatalf("CreateBlocks() error = %v", err)
		}
		if !reflect.DeepEqual(first.Blocks, again.Blocks) {
			t.Fatal("blocks differ between runs")
		}
	}
}

func TestProgressiveBlocking(t *testing.T) {
	records := []domain.Record{
		{ID: "0", Name: "A one", Brand: "Alpha"},
		{ID: "1", Name: "A two", Brand: "Alpha"},
		{ID: "2", Name: "B one", Brand: "Beta"},
		{ID: "3", Name: "B two", Brand: "Beta"},
		{ID: "4", Name: "A three", Brand: "Alpha"},
		{ID: "5", Name: "A four", Brand: "Alpha"},
	}
	e := newTestEngine(t, Config{
		Strategies:           []Strategy{StrategyBrand},
		ProgressiveChunkSize: 3,
		MemoryLimitMB:        512,
	})

	res, err := e.CreateBlocks(context.Background(), records)
	if err != nil {
		t.Fatalf("CreateBlocks() error = %v", err)
	}
	if !res.Progressive || res.Chunks != 2 {
		t.Errorf("Progressive = %v, Chunks = %d, want true, 2", res.Progressive, res.Chunks)
	}

	// Alpha blocks from both chunks merge; Beta straddles the boundary and is lost
	want := []Block{{Key: "brand:alpha", Strategy: StrategyBrand, Confidence: 0.95, Members: []int{0, 1, 4, 5}}}
	if !reflect.DeepEqual(res.Blocks, want) {
		t.Errorf("Blocks = %+v, want %+v", res.Blocks, want)
	}
}

func TestCreateBlocksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, DefaultConfig())
	_, err := e.CreateBlocks(ctx, fixtureRecords())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("CreateBlocks() error = %v, want context.Canceled", err)
	}
}

func TestBlockingRecall(t *testing.T) {
	records := fixtureRecords()
	e := newTestEngine(t, DefaultConfig())

	res, err := e.CreateBlocks(context.Background(), records)
	if err != nil {
		t.Fatalf("CreateBlocks() error = %v", err)
	}

	knownDuplicates := [][2]int{{0, 1}, {2, 3}, {4, 5}, {6, 7}, {8, 9}, {10, 11}, {12, 13}}
	for _, d := range knownDuplicates {
		if len(blocksContaining(res.Blocks, d[0], d[1])) == 0 {
			t.Errorf("%q and %q share no block", records[d[0]].Name, records[d[1]].Name)
		}
	}
}

func TestEstimateReduction(t *testing.T) {
	blocks := []Block{
		{Key: "a", Strategy: StrategyBrand, Members: []int{0, 1, 2}},
		{Key: "b", Strategy: StrategyPrefix, Members: []int{3, 4, 5, 6}},
	}
	stats := EstimateReduction(10, blocks)

	if stats.ComparisonsWithoutBlocking != 45 {
		t.Errorf("without = %d, want 45", stats.ComparisonsWithoutBlocking)
	}
	if stats.ComparisonsWithBlocking != 9 {
		t.Errorf("with = %d, want 9", stats.ComparisonsWithBlocking)
	}
	if stats.ReductionPercent != 80 {
		t.Errorf("reduction = %v, want 80", stats.ReductionPercent)
	}
	if stats.LargestBlock != 4 || stats.AverageBlockSize != 3.5 {
		t.Errorf("largest = %d, average = %v", stats.LargestBlock, stats.AverageBlockSize)
	}

	t.Run("overlap never goes negative", func(t *testing.T) {
		overlap := []Block{
			{Key: "a", Members: []int{0, 1, 2}},
			{Key: "b", Members: []int{0, 1, 2}},
		}
		if got := EstimateReduction(3, overlap).ReductionPercent; got != 0 {
			t.Errorf("reduction = %v, want 0", got)
		}
	})
}

func TestCandidatePairs(t *testing.T) {
	blocks := []Block{
		{Key: "a", Members: []int{0, 1, 2}},
		{Key: "b", Members: []int{1, 2, 3}},
	}
	want := []Pair{
		{I: 0, J: 1, BlockKey: "a"},
		{I: 0, J: 2, BlockKey: "a"},
		{I: 1, J: 2, BlockKey: "a"},
		{I: 1, J: 3, BlockKey: "b"},
		{I: 2, J: 3, BlockKey: "b"},
	}
	if got := CandidatePairs(blocks); !reflect.DeepEqual(got, want) {
		t.Errorf("CandidatePairs() = %+v, want %+v", got, want)
	}
}

func TestFingerprint(t *testing.T) {
	if got := Fingerprint("ABC-def", 3); got != "abcbcdcdedef" {
		t.Errorf("Fingerprint = %q, want abcbcdcdedef", got)
	}
	if got := Fingerprint("!!!", 3); got != "" {
		t.Errorf("Fingerprint = %q, want empty", got)
	}
	long := Fingerprint("zyxwvutsrq", 3)
	if len(long) != 15 {
		t.Errorf("Fingerprint keeps five trigrams, got %q", long)
	}
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy(" Size_Variant ")
	if err != nil || s != StrategySizeVariant {
		t.Errorf("ParseStrategy = %q, %v", s, err)
	}
	if _, err := ParseStrategy("nope"); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("ParseStrategy(nope) error = %v, want ErrConfiguration", err)
	}
}

// fixtureRecords holds known duplicate pairs at (0,1), (2,3), ... plus noise
func fixtureRecords() []domain.Record {
	return []domain.Record{
		{ID: "a1", Name: "Buffalo Trace Bourbon", Brand: "Buffalo Trace", Type: "Bourbon"},
		{ID: "a2", Name: "Buffalo Trace Bourbon 750ml", Brand: "Buffalo Trace", Type: "Bourbon"},
		{ID: "b1", Name: "Wild Turkey 101", Brand: "Wild Turkey", Type: "Bourbon"},
		{ID: "b2", Name: "Wyld Turkey 101 Bourbon", Brand: "Wild Turkey", Type: "Bourbon"},
		{ID: "c1", Name: "Blanton's Single Barrel", Type: "Bourbon"},
		{ID: "c2", Name: "Blantons Single-Barrel", Type: "Bourbon"},
		{ID: "d1", Name: "Elijah Craig Small Batch", Brand: "Heaven Hill Distillery", Type: "Bourbon"},
		{ID: "d2", Name: "Elijah Craig Small-Batch Gift Set", Brand: "Heaven Hill", Type: "American Whiskey"},
		{ID: "e1", Name: "Wild Turkey Rare Breed 116.8 Proof", Brand: "Wild Turkey", Type: "Bourbon"},
		{ID: "e2", Name: "Wild Turkey Rare Breed 58.4% ABV", Brand: "Wild Turkey", Type: "Bourbon"},
		{ID: "f1", Name: "Stagg Jr 2022 Release", Brand: "Buffalo Trace", Type: "Bourbon"},
		{ID: "f2", Name: "Stagg Jr", Brand: "Buffalo Trace", Type: "Bourbon"},
		{ID: "g1", Name: "Jameson Irish Whiskey", Brand: "Jameson", Type: "Irish Whiskey"},
		{ID: "g2", Name: "Jameson Irish Whisky", Brand: "Jameson", Type: "Irish Whiskey"},
		{ID: "n1", Name: "Hendrick's Gin", Brand: "Hendrick's", Type: "Gin"},
		{ID: "n2", Name: "Patron Silver", Brand: "Patron", Type: "Tequila"},
		{ID: "n3", Name: "Grey Goose", Brand: "Grey Goose", Type: "Vodka"},
	}
}
