package blocking

import (
	"sort"
	"time"
)

// Stats reports how much work blocking saved
type Stats struct {
	Records                    int              `json:"records"`
	Blocks                     int              `json:"blocks"`
	ComparisonsWithoutBlocking int64            `json:"comparisons_without_blocking"`
	ComparisonsWithBlocking    int64            `json:"comparisons_with_blocking"`
	ReductionPercent           float64          `json:"reduction_percent"`
	AverageBlockSize           float64          `json:"average_block_size"`
	LargestBlock               int              `json:"largest_block"`
	BlocksByStrategy           map[Strategy]int `json:"blocks_by_strategy"`
	Duration                   time.Duration    `json:"duration"`
}

// EstimateReduction compares the n(n-1)/2 exhaustive comparisons against the
// sum of in-block comparisons. Overlapping blocks are counted separately, so
// the reduction is a lower bound and is floored at zero.
func EstimateReduction(n int, blocks []Block) Stats {
	total := int64(n)
	stats := Stats{
		Records:                    n,
		Blocks:                     len(blocks),
		ComparisonsWithoutBlocking: total * (total - 1) / 2,
		BlocksByStrategy:           make(map[Strategy]int),
	}
	if n < 2 {
		stats.ComparisonsWithoutBlocking = 0
	}

	members := 0
	for _, b := range blocks {
		stats.ComparisonsWithBlocking += b.Comparisons()
		stats.BlocksByStrategy[b.Strategy]++
		members += b.Size()
		if b.Size() > stats.LargestBlock {
			stats.LargestBlock = b.Size()
		}
	}
	if len(blocks) > 0 {
		stats.AverageBlockSize = float64(members) / float64(len(blocks))
	}

	if stats.ComparisonsWithoutBlocking > 0 {
		saved := stats.ComparisonsWithoutBlocking - stats.ComparisonsWithBlocking
		stats.ReductionPercent = float64(saved) * 100 / float64(stats.ComparisonsWithoutBlocking)
		if stats.ReductionPercent < 0 {
			stats.ReductionPercent = 0
		}
	}
	return stats
}

// StrategyCounts returns the per-strategy block counts in strategy order
func (s Stats) StrategyCounts() []StrategyCount {
	out := make([]StrategyCount, 0, len(s.BlocksByStrategy))
	for strategy, count := range s.BlocksByStrategy {
		out = append(out, StrategyCount{Strategy: strategy, Blocks: count})
	}
	order := make(map[Strategy]int)
	for i, st := range AllStrategies() {
		order[st] = i
	}
	sort.Slice(out, func(i, j int) bool { return order[out[i].Strategy] < order[out[j].Strategy] })
	return out
}

// StrategyCount is one row of StrategyCounts
type StrategyCount struct {
	Strategy Strategy `json:"strategy"`
	Blocks   int      `json:"blocks"`
}
