package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching serialized values
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecordSource supplies the records considered in one run
type RecordSource interface {
	FetchRecords(ctx context.Context) ([]Record, error)
}

// RecordStore is the durable record store that applies merge plans.
// ApplyMerge returns ErrMergeConflict when either side no longer exists.
type RecordStore interface {
	RecordSource
	ApplyMerge(ctx context.Context, plan MergePlan) error
}

// ReviewQueue accepts flagged pairs. Enqueue returns ErrReviewQueueDuplicate
// for a pair that is already queued.
type ReviewQueue interface {
	Enqueue(ctx context.Context, item ReviewItem) error
}
