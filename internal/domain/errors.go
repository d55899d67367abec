package domain

import "errors"

var (
	// ErrInvalidRecord is returned when a record fails the boundary contract (e.g. missing name)
	ErrInvalidRecord = errors.New("invalid record")

	// ErrConfiguration is returned when engine configuration is out of range
	ErrConfiguration = errors.New("invalid configuration")

	// ErrMergeConflict is returned when the survivor or loser no longer exists at apply time
	ErrMergeConflict = errors.New("merge conflict")

	// ErrReviewQueueDuplicate is returned when a pair is already in the review queue
	ErrReviewQueueDuplicate = errors.New("pair already queued for review")

	// ErrRecordNotFound is returned when a record id is unknown to the store
	ErrRecordNotFound = errors.New("record not found")

	// ErrComparisonFailed is returned when a single pair comparison fails
	ErrComparisonFailed = errors.New("comparison failed")

	// ErrReportNotFound is returned when a cached report has expired or never existed
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrCatalogAPIFailure is returned when the upstream catalog request fails
	ErrCatalogAPIFailure = errors.New("catalog API request failed")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)
