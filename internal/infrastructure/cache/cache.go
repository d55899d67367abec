// Package cache holds the report cache backends.
package cache

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
)

// Backend names accepted by New
const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// KeyPrefix namespaces every key written to a shared Redis
const KeyPrefix = "spiritlens:"

// Store is a cache repository that owns a background resource
type Store interface {
	domain.CacheRepository
	Close() error
}

// New builds the backend named by kind
func New(ctx context.Context, kind, redisURL string, logger *zap.Logger) (Store, error) {
	switch kind {
	case TypeMemory, "":
		return NewMemoryCache(0), nil
	case TypeRedis:
		return NewRedisCache(ctx, redisURL, KeyPrefix, logger)
	}
	return nil, fmt.Errorf("%w: unknown cache type %q", domain.ErrConfiguration, kind)
}
