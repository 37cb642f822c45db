package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/geolife-loader/internal/database"
	"github.com/jengzang/geolife-loader/internal/models"
)

// TrackpointRepository handles database operations for trackpoints
type TrackpointRepository struct {
	db *sql.DB
}

// NewTrackpointRepository creates a new trackpoint repository
func NewTrackpointRepository(db *sql.DB) *TrackpointRepository {
	return &TrackpointRepository{db: db}
}

// InsertBatch inserts trackpoints in one transaction
func (r *TrackpointRepository) InsertBatch(ctx context.Context, trackpoints []models.Trackpoint) error {
	return database.Transaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO trackpoint
			(id, activity_id, lat, lon, altitude, date_days, date_time)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare trackpoint insert: %w", err)
		}
		defer stmt.Close()

		for _, tp := range trackpoints {
			var alt sql.NullFloat64
			if tp.Altitude != nil {
				alt = sql.NullFloat64{Float64: *tp.Altitude, Valid: true}
			}
			_, err := stmt.ExecContext(ctx,
				tp.ID, tp.ActivityID, tp.Latitude, tp.Longitude, alt, tp.DateDays, tp.DateTime.Unix(),
			)
			if err != nil {
				return fmt.Errorf("failed to insert trackpoint %d: %w", tp.ID, err)
			}
		}
		return nil
	})
}

// ListByActivity returns the trackpoints of one activity in id order
func (r *TrackpointRepository) ListByActivity(ctx context.Context, activityID int64) ([]models.Trackpoint, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, activity_id, lat, lon, altitude, date_days, date_time
		FROM trackpoint WHERE activity_id = ? ORDER BY id`, activityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query trackpoints: %w", err)
	}
	defer rows.Close()

	var points []models.Trackpoint
	for rows.Next() {
		var (
			tp  models.Trackpoint
			alt sql.NullFloat64
			ts  int64
		)
		if err := rows.Scan(&tp.ID, &tp.ActivityID, &tp.Latitude, &tp.Longitude, &alt, &tp.DateDays, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan trackpoint: %w", err)
		}
		if alt.Valid {
			v := alt.Float64
			tp.Altitude = &v
		}
		tp.DateTime = fromUnix(ts)
		points = append(points, tp)
	}
	return points, rows.Err()
}
