package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spiritlens/backend/internal/blocking"
	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/pricing"
	"github.com/spiritlens/backend/internal/scorer"
	"github.com/spiritlens/backend/internal/similarity"
	"github.com/spiritlens/backend/internal/usecase"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Blocking  BlockingConfig  `mapstructure:"blocking"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Price     pricing.Config  `mapstructure:"price"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// CatalogConfig holds upstream catalog API configuration
type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	PageSize          int           `mapstructure:"page_size"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig holds the SQLite location
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// BlockingConfig holds blocking engine configuration
type BlockingConfig struct {
	MinBlockSize         int      `mapstructure:"min_block_size"`
	MaxBlockSize         int      `mapstructure:"max_block_size"`
	EnabledStrategies    []string `mapstructure:"enabled_strategies"`
	NgramSize            int      `mapstructure:"ngram_size"`
	ProgressiveChunkSize int      `mapstructure:"progressive_chunk_size"`
	MemoryLimitMB        int      `mapstructure:"memory_limit_mb"` // 0 derives the limit from host memory
	Workers              int      `mapstructure:"workers"`         // 0 uses GOMAXPROCS
}

// ScoringConfig holds match scorer thresholds and weights
type ScoringConfig struct {
	NameThreshold           float64               `mapstructure:"name_threshold"`
	SameBrandThreshold      float64               `mapstructure:"same_brand_threshold"`
	DifferentBrandThreshold float64               `mapstructure:"different_brand_threshold"`
	CombinedThreshold       float64               `mapstructure:"combined_threshold"`
	AutoMergeThreshold      float64               `mapstructure:"auto_merge_threshold"`
	SameBrandWeight         float64               `mapstructure:"same_brand_weight"`
	DifferentBrandWeight    float64               `mapstructure:"different_brand_weight"`
	FuzzyWeight             float64               `mapstructure:"fuzzy_weight"`
	TFIDFWeight             float64               `mapstructure:"tfidf_weight"`
	PenaltyWeights          scorer.PenaltyWeights `mapstructure:"attribute_penalty_weights"`
	AlgorithmWeights        similarity.Weights    `mapstructure:"fuzzy_algorithm_weights"`
}

// PipelineConfig holds report export settings
type PipelineConfig struct {
	ExportDir string `mapstructure:"export_dir"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/spiritlens/")

	// Environment variable settings: SPIRITLENS_SCORING_NAME_THRESHOLD etc.
	v.SetEnvPrefix("SPIRITLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// loadEnvFile exports KEY=VALUE lines from ./.env. Variables already set
// in the environment win.
func loadEnvFile() error {
	f, err := os.Open(".env")
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Catalog defaults
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.page_size", 100)
	v.SetDefault("catalog.requests_per_second", 5)
	v.SetDefault("catalog.timeout", "30s")

	// Database defaults
	v.SetDefault("database.path", "data/spirits.db")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "24h") // 1 day

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)

	// Blocking defaults
	b := blocking.DefaultConfig()
	v.SetDefault("blocking.min_block_size", b.MinBlockSize)
	v.SetDefault("blocking.max_block_size", b.MaxBlockSize)
	v.SetDefault("blocking.enabled_strategies", []string{"all"})
	v.SetDefault("blocking.ngram_size", b.NgramSize)
	v.SetDefault("blocking.progressive_chunk_size", b.ProgressiveChunkSize)
	v.SetDefault("blocking.memory_limit_mb", b.MemoryLimitMB)
	v.SetDefault("blocking.workers", 0)

	// Scoring defaults
	s := scorer.DefaultConfig()
	v.SetDefault("scoring.name_threshold", s.NameThreshold)
	v.SetDefault("scoring.same_brand_threshold", s.SameBrandThreshold)
	v.SetDefault("scoring.different_brand_threshold", s.DifferentBrandThreshold)
	v.SetDefault("scoring.combined_threshold", s.CombinedThreshold)
	v.SetDefault("scoring.auto_merge_threshold", s.AutoMergeThreshold)
	v.SetDefault("scoring.same_brand_weight", s.SameBrandWeight)
	v.SetDefault("scoring.different_brand_weight", s.DifferentBrandWeight)
	v.SetDefault("scoring.fuzzy_weight", s.FuzzyWeight)
	v.SetDefault("scoring.tfidf_weight", s.TFIDFWeight)
	v.SetDefault("scoring.attribute_penalty_weights.age", s.PenaltyWeights.Age)
	v.SetDefault("scoring.attribute_penalty_weights.proof", s.PenaltyWeights.Proof)
	v.SetDefault("scoring.attribute_penalty_weights.grain_type", s.PenaltyWeights.GrainType)
	w := s.Similarity.Weights
	v.SetDefault("scoring.fuzzy_algorithm_weights.edit", w.Edit)
	v.SetDefault("scoring.fuzzy_algorithm_weights.jaro_winkler", w.JaroWinkler)
	v.SetDefault("scoring.fuzzy_algorithm_weights.ngram", w.Ngram)
	v.SetDefault("scoring.fuzzy_algorithm_weights.phonetic", w.Phonetic)
	v.SetDefault("scoring.fuzzy_algorithm_weights.token", w.Token)

	// Price defaults
	p := pricing.DefaultConfig()
	v.SetDefault("price.max_coefficient_of_variation", p.MaxCoefficientOfVariation)
	v.SetDefault("price.outlier_threshold", p.OutlierThreshold)
	v.SetDefault("price.min_prices_for_stats", p.MinPricesForStats)

	// Pipeline defaults
	v.SetDefault("pipeline.export_dir", "reports")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("%w: cache type must be 'memory' or 'redis', got: %s", domain.ErrConfiguration, config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("%w: redis URL is required when cache type is 'redis'", domain.ErrConfiguration)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("%w: ratelimit.per_ip must not be negative", domain.ErrConfiguration)
	}

	if _, err := zapcore.ParseLevel(config.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging level: %v", domain.ErrConfiguration, err)
	}

	dedup, err := config.DedupService()
	if err != nil {
		return err
	}
	if err := dedup.Blocking.Validate(); err != nil {
		return err
	}
	if err := dedup.Scoring.Validate(); err != nil {
		return err
	}
	return dedup.Price.Validate()
}

// Strategies resolves enabled_strategies; "all" expands to every strategy
func (b BlockingConfig) Strategies() ([]blocking.Strategy, error) {
	var out []blocking.Strategy
	for _, name := range b.EnabledStrategies {
		if strings.EqualFold(name, "all") {
			return blocking.AllStrategies(), nil
		}
		s, err := blocking.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no blocking strategies enabled", domain.ErrConfiguration)
	}
	return out, nil
}

// DedupService maps the engine sections onto the dedup service configuration
func (c *Config) DedupService() (usecase.DedupServiceConfig, error) {
	strategies, err := c.Blocking.Strategies()
	if err != nil {
		return usecase.DedupServiceConfig{}, err
	}

	sim := similarity.DefaultConfig()
	sim.NgramSize = c.Blocking.NgramSize
	sim.Weights = c.Scoring.AlgorithmWeights

	return usecase.DedupServiceConfig{
		Blocking: blocking.Config{
			MinBlockSize:         c.Blocking.MinBlockSize,
			MaxBlockSize:         c.Blocking.MaxBlockSize,
			Strategies:           strategies,
			NgramSize:            c.Blocking.NgramSize,
			ProgressiveChunkSize: c.Blocking.ProgressiveChunkSize,
			MemoryLimitMB:        c.Blocking.MemoryLimitMB,
		},
		Scoring: scorer.Config{
			NameThreshold:           c.Scoring.NameThreshold,
			SameBrandThreshold:      c.Scoring.SameBrandThreshold,
			DifferentBrandThreshold: c.Scoring.DifferentBrandThreshold,
			CombinedThreshold:       c.Scoring.CombinedThreshold,
			AutoMergeThreshold:      c.Scoring.AutoMergeThreshold,
			SameBrandWeight:         c.Scoring.SameBrandWeight,
			DifferentBrandWeight:    c.Scoring.DifferentBrandWeight,
			FuzzyWeight:             c.Scoring.FuzzyWeight,
			TFIDFWeight:             c.Scoring.TFIDFWeight,
			PenaltyWeights:          c.Scoring.PenaltyWeights,
			Similarity:              sim,
		},
		Price:    c.Price,
		Workers:  c.Blocking.Workers,
		CacheTTL: c.Cache.TTL,
	}, nil
}

// NewLogger builds the process logger: development or production encoding
// at the configured level
func (l LoggingConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: logging level: %v", domain.ErrConfiguration, err)
	}
	zc := zap.NewProductionConfig()
	if l.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
