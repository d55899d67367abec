package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spiritlens/backend/internal/domain"
	"github.com/spiritlens/backend/internal/infrastructure/cache"
	"github.com/spiritlens/backend/internal/infrastructure/catalog"
	"github.com/spiritlens/backend/internal/infrastructure/metrics"
	"github.com/spiritlens/backend/internal/infrastructure/sqlite"
	"github.com/spiritlens/backend/internal/usecase"
)

const (
	sourceFile    = "file"
	sourceStore   = "store"
	sourceCatalog = "catalog"
)

// fileSource serves records read from a JSON file
type fileSource struct {
	path string
}

func (f fileSource) FetchRecords(ctx context.Context) ([]domain.Record, error) {
	return loadRecordsFile(f.path)
}

// loadRecordsFile reads either a JSON array of records or an object with a
// "records" array
func loadRecordsFile(path string) ([]domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrInvalidRequest, path)
	}

	if data[0] == '[' {
		var records []domain.Record
		if err := json.Unmarshal(data, &records); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return records, nil
	}
	var wrapped struct {
		Records []domain.Record `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return wrapped.Records, nil
}

// resolveSource picks the record source for a run. The returned DB is
// non-nil whenever the local store was opened and must be closed.
func resolveSource(kind, input string) (domain.RecordSource, *sqlite.DB, error) {
	if kind == "" {
		kind = sourceStore
		if input != "" {
			kind = sourceFile
		}
	}

	switch kind {
	case sourceFile:
		if input == "" {
			return nil, nil, fmt.Errorf("%w: --input is required for the file source", domain.ErrInvalidRequest)
		}
		return fileSource{path: input}, nil, nil
	case sourceStore:
		db, err := sqlite.Open(cfg.Database.Path, logger.Named("sqlite"))
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	case sourceCatalog:
		client, err := newCatalogClient()
		if err != nil {
			return nil, nil, err
		}
		return client, nil, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown source %q (want file, store or catalog)", domain.ErrInvalidRequest, kind)
}

func newCatalogClient() (*catalog.Client, error) {
	if cfg.Catalog.BaseURL == "" {
		return nil, fmt.Errorf("%w: catalog.base_url is not set", domain.ErrConfiguration)
	}
	client := catalog.NewClient(catalog.Config{
		BaseURL:           cfg.Catalog.BaseURL,
		APIKey:            cfg.Catalog.APIKey,
		PageSize:          cfg.Catalog.PageSize,
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
		Timeout:           cfg.Catalog.Timeout,
	}, logger.Named("catalog"))
	return client, nil
}

// newService builds the dedup service. A nil db gives a dry-run only service.
func newService(ctx context.Context, db *sqlite.DB) (*usecase.DedupService, func(), error) {
	store, err := cache.New(ctx, cfg.Cache.Type, cfg.Cache.RedisURL, logger.Named("cache"))
	if err != nil {
		return nil, nil, err
	}
	dedupCfg, err := cfg.DedupService()
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	var (
		records domain.RecordStore
		queue   domain.ReviewQueue
	)
	if db != nil {
		records, queue = db, db
	}
	service, err := usecase.NewDedupService(dedupCfg, records, queue, store, logger.Named("dedup"),
		usecase.WithRecorder(metrics.NewRecorder()),
	)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	return service, func() { store.Close() }, nil
}
