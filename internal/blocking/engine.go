// Package blocking groups records into overlapping candidate blocks so the
// scorer only compares records that share at least one cheap signature.
package blocking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/similarity"
)

const (
	DefaultMinBlockSize         = 2
	DefaultMaxBlockSize         = 1000
	DefaultProgressiveChunkSize = 10000

	// splitFill leaves slack below the max when an oversize block is chunked
	splitFill = 0.8

	// rough per-record footprint used to decide on progressive blocking
	estimatedKBPerRecord = 2
)

// Config holds blocking options
type Config struct {
	MinBlockSize         int
	MaxBlockSize         int
	Strategies           []Strategy
	NgramSize            int
	ProgressiveChunkSize int
	MemoryLimitMB        int
}

// DefaultConfig enables every strategy with the standard bounds
func DefaultConfig() Config {
	return Config{
		MinBlockSize:         DefaultMinBlockSize,
		MaxBlockSize:         DefaultMaxBlockSize,
		Strategies:           AllStrategies(),
		NgramSize:            similarity.DefaultNgramSize,
		ProgressiveChunkSize: DefaultProgressiveChunkSize,
		MemoryLimitMB:        DefaultMemoryLimitMB,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.MinBlockSize < 2 {
		return fmt.Errorf("%w: min block size must be at least 2 (got %d)", domain.ErrConfiguration, c.MinBlockSize)
	}
	if c.MaxBlockSize < c.MinBlockSize {
		return fmt.Errorf("%w: max block size %d is below min block size %d", domain.ErrConfiguration, c.MaxBlockSize, c.MinBlockSize)
	}
	if c.NgramSize < 0 {
		return fmt.Errorf("%w: ngram size must not be negative", domain.ErrConfiguration)
	}
	if c.ProgressiveChunkSize < 0 {
		return fmt.Errorf("%w: progressive chunk size must not be negative", domain.ErrConfiguration)
	}
	if c.MemoryLimitMB < 0 {
		return fmt.Errorf("%w: memory limit must not be negative", domain.ErrConfiguration)
	}
	for _, s := range c.Strategies {
		if _, err := ParseStrategy(string(s)); err != nil {
			return err
		}
	}
	return nil
}

// Block is one group of records to compare pairwise. Members are indexes
// into the slice passed to CreateBlocks.
type Block struct {
	Key        string   `json:"key"`
	Strategy   Strategy `json:"strategy"`
	Confidence float64  `json:"confidence"`
	Members    []int    `json:"members"`
}

// Size is the number of members
func (b Block) Size() int { return len(b.Members) }

// Comparisons is the number of pairs inside the block
func (b Block) Comparisons() int64 {
	n := int64(len(b.Members))
	return n * (n - 1) / 2
}

// Result is the outcome of one blocking run
type Result struct {
	Blocks      []Block `json:"blocks"`
	Stats       Stats   `json:"stats"`
	Progressive bool    `json:"progressive"`
	Chunks      int     `json:"chunks"`
}

// Engine runs the configured strategies
type Engine struct {
	config Config
	keyers []Keyer
	logger *zap.Logger
}

// NewEngine validates cfg and prepares the strategy set
func NewEngine(cfg Config, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MinBlockSize == 0 {
		cfg.MinBlockSize = DefaultMinBlockSize
	}
	if cfg.MaxBlockSize == 0 {
		cfg.MaxBlockSize = DefaultMaxBlockSize
	}
	if cfg.NgramSize == 0 {
		cfg.NgramSize = similarity.DefaultNgramSize
	}
	if cfg.ProgressiveChunkSize == 0 {
		cfg.ProgressiveChunkSize = DefaultProgressiveChunkSize
	}
	if cfg.MemoryLimitMB == 0 {
		cfg.MemoryLimitMB = MemoryLimitFromHost(context.Background())
	}
	if len(cfg.Strategies) == 0 {
		cfg.Strategies = AllStrategies()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{config: cfg, logger: logger}
	seen := make(map[Strategy]bool, len(cfg.Strategies))
	for _, s := range cfg.Strategies {
		s, _ = ParseStrategy(string(s))
		if seen[s] {
			continue
		}
		seen[s] = true
		e.keyers = append(e.keyers, newKeyer(s, cfg.NgramSize))
	}
	return e, nil
}

// Config returns the effective configuration
func (e *Engine) Config() Config { return e.config }

// CreateBlocks groups records into blocks. Blocks come back sorted by key;
// members are record indexes.
func (e *Engine) CreateBlocks(ctx context.Context, records []domain.Record) (*Result, error) {
	start := time.Now()
	n := len(records)
	progressive := e.useProgressive(n)

	chunkSize := n
	if progressive {
		chunkSize = e.config.ProgressiveChunkSize
		e.logger.Info("using progressive blocking",
			zap.Int("records", n),
			zap.Int("chunk_size", chunkSize),
			zap.Int("memory_limit_mb", e.config.MemoryLimitMB),
		)
	}

	raw := make(map[string]*rawBlock)
	chunks := 0
	for lo := 0; lo < n; lo += chunkSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		chunks++
		e.blockChunk(records, lo, hi, raw)
	}

	blocks := e.finalize(records, raw)
	stats := EstimateReduction(n, blocks)
	stats.Duration = time.Since(start)

	e.logger.Info("blocking complete",
		zap.Int("records", n),
		zap.Int("blocks", len(blocks)),
		zap.Int64("comparisons", stats.ComparisonsWithBlocking),
		zap.Float64("reduction_pct", stats.ReductionPercent),
		zap.Bool("progressive", progressive),
		zap.Duration("took", stats.Duration),
	)

	return &Result{
		Blocks:      blocks,
		Stats:       stats,
		Progressive: progressive,
		Chunks:      chunks,
	}, nil
}

func (e *Engine) useProgressive(n int) bool {
	estimatedMB := float64(n*estimatedKBPerRecord) / 1024
	return n > e.config.ProgressiveChunkSize || estimatedMB > float64(e.config.MemoryLimitMB)
}

type rawBlock struct {
	strategy Strategy
	members  []int
}

// blockChunk keys records[lo:hi] with every strategy and merges the chunk's
// blocks into raw. Keys with fewer than MinBlockSize members inside a
// progressive chunk are dropped before merging, which bounds memory at the
// cost of missing some cross-chunk pairs.
func (e *Engine) blockChunk(records []domain.Record, lo, hi int, raw map[string]*rawBlock) {
	chunk := make(map[string]*rawBlock)
	for i := lo; i < hi; i++ {
		for _, k := range e.keyers {
			key := k.Key(&records[i])
			if key == "" {
				continue
			}
			rb, ok := chunk[key]
			if !ok {
				rb = &rawBlock{strategy: k.Strategy()}
				chunk[key] = rb
			}
			rb.members = append(rb.members, i)
		}
	}

	whole := lo == 0 && hi == len(records)
	for key, rb := range chunk {
		if !whole && len(rb.members) < e.config.MinBlockSize {
			continue
		}
		if existing, ok := raw[key]; ok {
			existing.members = append(existing.members, rb.members...)
			continue
		}
		raw[key] = rb
	}
}

// finalize drops undersized blocks, splits oversize ones and orders the result
func (e *Engine) finalize(records []domain.Record, raw map[string]*rawBlock) []Block {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var blocks []Block
	for _, key := range keys {
		members, s := raw[key].members, raw[key].strategy
		if len(members) < e.config.MinBlockSize {
			continue
		}
		if len(members) > e.config.MaxBlockSize {
			split := e.split(records, key, s, members)
			e.logger.Debug("split oversize block",
				zap.String("key", key),
				zap.Int("size", len(members)),
				zap.Int("chunks", len(split)),
			)
			blocks = append(blocks, split...)
			continue
		}
		sort.Ints(members)
		blocks = append(blocks, Block{Key: key, Strategy: s, Confidence: s.Confidence(), Members: members})
	}
	return blocks
}

// split sorts members by name (then id, then index) and chunks them at 80%
// of the max block size. Trailing chunks below the minimum are dropped.
func (e *Engine) split(records []domain.Record, key string, s Strategy, members []int) []Block {
	sorted := append([]int(nil), members...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := &records[sorted[i]], &records[sorted[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.ID != b.ID {
			return a.ID < b.ID
		}
		return sorted[i] < sorted[j]
	})

	size := int(math.Ceil(float64(e.config.MaxBlockSize) * splitFill))
	if size < e.config.MinBlockSize {
		size = e.config.MinBlockSize
	}

	var out []Block
	for i, chunkIndex := 0, 0; i < len(sorted); i, chunkIndex = i+size, chunkIndex+1 {
		end := i + size
		if end > len(sorted) {
			end = len(sorted)
		}
		part := sorted[i:end]
		if len(part) < e.config.MinBlockSize {
			continue
		}
		out = append(out, Block{
			Key:        fmt.Sprintf("%s:chunk%d", key, chunkIndex),
			Strategy:   s,
			Confidence: s.Confidence(),
			Members:    part,
		})
	}
	return out
}
