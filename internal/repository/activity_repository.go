package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/geolife-loader/internal/database"
	"github.com/jengzang/geolife-loader/internal/models"
)

// ActivityRepository handles database operations for activities
type ActivityRepository struct {
	db *sql.DB
}

// NewActivityRepository creates a new activity repository
func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// InsertBatch inserts activities in one transaction.
// The owning user is not stored; user.activity_id is the only link.
func (r *ActivityRepository) InsertBatch(ctx context.Context, activities []models.Activity) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO activity
			(id, start_date_time, end_date_time, transportation_mode)
			VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare activity insert: %w", err)
		}
		defer stmt.Close()

		for _, a := range activities {
			var mode sql.NullString
			if a.TransportationMode != nil {
				mode = sql.NullString{String: *a.TransportationMode, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, a.ID, a.StartDateTime.Unix(), a.EndDateTime.Unix(), mode); err != nil {
				return fmt.Errorf("failed to insert activity %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// GetByID retrieves a single activity, nil when it does not exist
func (r *ActivityRepository) GetByID(ctx context.Context, id int64) (*models.Activity, error) {
	var (
		a          models.Activity
		start, end int64
		mode       sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, start_date_time, end_date_time, transportation_mode
		FROM activity WHERE id = ?`, id).Scan(&a.ID, &start, &end, &mode)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get activity: %w", err)
	}

	a.StartDateTime = fromUnix(start)
	a.EndDateTime = fromUnix(end)
	if mode.Valid {
		a.TransportationMode = &mode.String
	}
	return &a, nil
}

func fromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
