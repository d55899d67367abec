package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/spiritlens/backend/internal/domain"
)

// Review statuses
const (
	ReviewPending  = "pending"
	ReviewResolved = "resolved"
)

// Enqueue adds a flagged pair to the review queue. The pair is stored in id
// order so (a, b) and (b, a) are the same entry; a second insert returns
// ErrReviewQueueDuplicate.
func (d *DB) Enqueue(ctx context.Context, item domain.ReviewItem) error {
	a, b := item.IDA, item.IDB
	if b < a {
		a, b = b, a
	}
	created := item.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	_, err := d.db.ExecContext(ctx,
		`INSERT INTO review_queue (id_a, id_b, score, confidence, details, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a, b, item.Score, string(item.Confidence), item.Details, ReviewPending, created.UTC().Format(timeLayout),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrReviewQueueDuplicate, domain.PairKey(a, b))
	}
	if err != nil {
		return fmt.Errorf("enqueue review: %w", err)
	}
	return nil
}

// PendingReviews lists queued pairs still awaiting a decision, oldest first
func (d *DB) PendingReviews(ctx context.Context, limit int) ([]domain.ReviewItem, error) {
	if limit <= 0 {
		limit = 100 // Default page size
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id_a, id_b, score, confidence, details, created_at
		FROM review_queue WHERE status = ? ORDER BY created_at, id LIMIT ?`,
		ReviewPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	var items []domain.ReviewItem
	for rows.Next() {
		var item domain.ReviewItem
		var confidence, created string
		if err := rows.Scan(&item.IDA, &item.IDB, &item.Score, &confidence, &item.Details, &created); err != nil {
			return nil, err
		}
		item.Confidence = domain.Confidence(confidence)
		if item.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("decode review created_at: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ResolveReview marks a pending pair as decided. A pair that is not queued
// or was already resolved is ErrRecordNotFound.
func (d *DB) ResolveReview(ctx context.Context, idA, idB string) error {
	if idB < idA {
		idA, idB = idB, idA
	}
	res, err := d.db.ExecContext(ctx,
		`UPDATE review_queue SET status = ? WHERE id_a = ? AND id_b = ? AND status = ?`,
		ReviewResolved, idA, idB, ReviewPending,
	)
	if err != nil {
		return fmt.Errorf("resolve review: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: review %s", domain.ErrRecordNotFound, domain.PairKey(idA, idB))
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
