package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spiritlens/backend/internal/domain"
)

const recordColumns = `id, name, brand, type, category, abv, price, volume, description,
	image_url, source_url, origin_country, region, flavor_profile, age, is_liqueur, created_at`

// mergeColumns are the record columns a merge plan may update
var mergeColumns = map[string]bool{
	"brand": true, "type": true, "category": true, "description": true,
	"image_url": true, "source_url": true, "origin_country": true, "region": true,
	"volume": true, "abv": true, "price": true, "age": true, "flavor_profile": true,
}

// UpsertRecords inserts records or replaces existing active ones with the
// same id. Records merged away by an earlier run are left alone and not
// counted. Returns the number written.
func (d *DB) UpsertRecords(ctx context.Context, records []domain.Record) (int, error) {
	written := 0
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO records (`+recordColumns+`, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, brand = excluded.brand, type = excluded.type,
				category = excluded.category, abv = excluded.abv, price = excluded.price,
				volume = excluded.volume, description = excluded.description,
				image_url = excluded.image_url, source_url = excluded.source_url,
				origin_country = excluded.origin_country, region = excluded.region,
				flavor_profile = excluded.flavor_profile, age = excluded.age,
				is_liqueur = excluded.is_liqueur, updated_at = excluded.updated_at
			WHERE records.merged_into IS NULL`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		ts := now()
		for i := range records {
			r := &records[i]
			if err := domain.ValidateRecord(r); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
			flavors, err := json.Marshal(nonNil(r.FlavorProfile))
			if err != nil {
				return err
			}
			created := r.CreatedAt
			if created.IsZero() {
				created = time.Now()
			}
			res, err := stmt.ExecContext(ctx,
				r.ID, r.Name, r.Brand, r.Type, r.Category, r.ABV, r.Price, r.Volume, r.Description,
				r.ImageURL, r.SourceURL, r.OriginCountry, r.Region, string(flavors), r.Age, r.IsLiqueur,
				created.UTC().Format(timeLayout), ts,
			)
			if err != nil {
				return fmt.Errorf("upsert record %s: %w", r.ID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			written += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	d.logger.Info("records upserted", zap.Int("count", written))
	return written, nil
}

// FetchRecords returns every record that has not been merged away, ordered by id
func (d *DB) FetchRecords(ctx context.Context) ([]domain.Record, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM records WHERE merged_into IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetRecord returns one active record
func (d *DB) GetRecord(ctx context.Context, id string) (domain.Record, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ? AND merged_into IS NULL`, id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	return r, err
}

// ApplyMerge updates the survivor with the plan's field updates and marks
// the loser as merged into it, in one transaction. If either record is
// missing or already merged the plan is a conflict and nothing changes.
func (d *DB) ApplyMerge(ctx context.Context, plan domain.MergePlan) error {
	if plan.SurvivorID == plan.LoserID {
		return fmt.Errorf("%w: survivor and loser are both %s", domain.ErrMergeConflict, plan.SurvivorID)
	}

	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range []string{plan.SurvivorID, plan.LoserID} {
			var active bool
			err := tx.QueryRowContext(ctx, `SELECT merged_into IS NULL FROM records WHERE id = ?`, id).Scan(&active)
			if errors.Is(err, sql.ErrNoRows) || (err == nil && !active) {
				return fmt.Errorf("%w: record %s is missing or already merged", domain.ErrMergeConflict, id)
			}
			if err != nil {
				return err
			}
		}

		sets, args, err := updateClause(plan.FieldUpdates)
		if err != nil {
			return err
		}
		ts := now()
		sets = append(sets, "updated_at = ?")
		args = append(args, ts, plan.SurvivorID)
		if _, err := tx.ExecContext(ctx, `UPDATE records SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
			return fmt.Errorf("update survivor: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE records SET merged_into = ?, updated_at = ? WHERE id = ?`,
			plan.SurvivorID, ts, plan.LoserID,
		); err != nil {
			return fmt.Errorf("retire loser: %w", err)
		}

		updates, err := json.Marshal(plan.FieldUpdates)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO merge_log (match_id, survivor_id, loser_id, score, field_updates, applied_at) VALUES (?, ?, ?, ?, ?, ?)`,
			plan.MatchID, plan.SurvivorID, plan.LoserID, plan.Score, string(updates), ts,
		)
		return err
	})
}

// MergedInto reports which record absorbed id, or "" if it is still active
func (d *DB) MergedInto(ctx context.Context, id string) (string, error) {
	var into sql.NullString
	err := d.db.QueryRowContext(ctx, `SELECT merged_into FROM records WHERE id = ?`, id).Scan(&into)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", domain.ErrRecordNotFound, id)
	}
	return into.String, err
}

// updateClause turns field updates into "col = ?" fragments in a stable
// column order. Unknown columns are rejected.
func updateClause(updates map[string]interface{}) ([]string, []interface{}, error) {
	var sets []string
	var args []interface{}
	for _, col := range []string{
		"brand", "type", "category", "description", "image_url", "source_url",
		"origin_country", "region", "volume", "abv", "price", "age", "flavor_profile",
	} {
		v, ok := updates[col]
		if !ok {
			continue
		}
		if col == "flavor_profile" {
			data, err := json.Marshal(v)
			if err != nil {
				return nil, nil, err
			}
			v = string(data)
		}
		sets = append(sets, col+" = ?")
		args = append(args, v)
	}
	for col := range updates {
		if !mergeColumns[col] {
			return nil, nil, fmt.Errorf("%w: unknown column %q", domain.ErrInvalidRequest, col)
		}
	}
	return sets, args, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (domain.Record, error) {
	var r domain.Record
	var flavors, created string
	if err := s.Scan(
		&r.ID, &r.Name, &r.Brand, &r.Type, &r.Category, &r.ABV, &r.Price, &r.Volume, &r.Description,
		&r.ImageURL, &r.SourceURL, &r.OriginCountry, &r.Region, &flavors, &r.Age, &r.IsLiqueur, &created,
	); err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(flavors), &r.FlavorProfile); err != nil {
		return r, fmt.Errorf("decode flavor profile of %s: %w", r.ID, err)
	}
	if len(r.FlavorProfile) == 0 {
		r.FlavorProfile = nil
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return r, fmt.Errorf("decode created_at of %s: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
