package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"learning-diary/internal/models"
)

// DailyLogRepo stores one JSONB document per (app, user, date).
type DailyLogRepo struct {
	pool *pgxpool.Pool
}

func NewDailyLogRepo(pool *pgxpool.Pool) *DailyLogRepo {
	return &DailyLogRepo{pool: pool}
}

// Get returns pgx.ErrNoRows when the document has never been written.
func (r *DailyLogRepo) Get(ctx context.Context, key models.DocKey) (*models.DailyRecord, error) {
	var raw []byte
	var updated time.Time
	var revision int64
	query := `SELECT data, last_updated, revision FROM daily_logs
		WHERE app_id = $1 AND user_id = $2 AND log_date = $3::date`

	err := r.pool.QueryRow(ctx, query, key.AppID, key.UserID, key.Date).Scan(&raw, &updated, &revision)
	if err != nil {
		return nil, err
	}

	return decodeDocument(raw, updated, revision)
}

// Merge applies a partial write and returns the full document after the merge.
// The row lock serialises concurrent merges on the same document, so every
// field ends up with the value of the last merge that touched it. Each merge
// bumps the revision and moves last_updated strictly forward in lock order.
func (r *DailyLogRepo) Merge(ctx context.Context, key models.DocKey, fields models.Fields) (*models.DailyRecord, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `INSERT INTO daily_logs (app_id, user_id, log_date)
		VALUES ($1, $2, $3::date)
		ON CONFLICT (app_id, user_id, log_date) DO NOTHING`,
		key.AppID, key.UserID, key.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT data FROM daily_logs
		WHERE app_id = $1 AND user_id = $2 AND log_date = $3::date
		FOR UPDATE`,
		key.AppID, key.UserID, key.Date,
	).Scan(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to lock document: %w", err)
	}

	doc := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("stored document is corrupt: %w", err)
		}
	}

	merged, err := models.MergeFields(doc, fields)
	if err != nil {
		return nil, err
	}
	delete(merged, models.FieldLastUpdated)
	delete(merged, models.FieldRevision)

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	var updated time.Time
	var revision int64
	err = tx.QueryRow(ctx, `UPDATE daily_logs SET data = $4,
			revision = revision + 1,
			last_updated = GREATEST(clock_timestamp(), last_updated + interval '1 microsecond')
		WHERE app_id = $1 AND user_id = $2 AND log_date = $3::date
		RETURNING last_updated, revision`,
		key.AppID, key.UserID, key.Date, data,
	).Scan(&updated, &revision)
	if err != nil {
		return nil, fmt.Errorf("failed to write document: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit merge: %w", err)
	}

	return decodeDocument(data, updated, revision)
}

func decodeDocument(raw []byte, updated time.Time, revision int64) (*models.DailyRecord, error) {
	rec := &models.DailyRecord{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, rec); err != nil {
			return nil, fmt.Errorf("stored document is corrupt: %w", err)
		}
	}
	rec.LastUpdated = &updated
	rec.Revision = revision
	return rec, nil
}
