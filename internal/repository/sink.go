package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jengzang/geolife-loader/internal/database"
	"github.com/jengzang/geolife-loader/internal/models"
)

// Sink loads collections into SQLite through the three repositories
type Sink struct {
	db          *sql.DB
	users       *UserRepository
	activities  *ActivityRepository
	trackpoints *TrackpointRepository
}

// NewSink wraps an open database. Close closes it.
func NewSink(db *sql.DB) *Sink {
	return &Sink{
		db:          db,
		users:       NewUserRepository(db),
		activities:  NewActivityRepository(db),
		trackpoints: NewTrackpointRepository(db),
	}
}

// OpenSink opens the database file and makes sure the schema exists
func OpenSink(cfg database.Config) (*Sink, error) {
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.NewMigrationManager(db).RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s: %w", cfg.Path, err)
	}
	return NewSink(db), nil
}

// DB exposes the underlying handle, e.g. for a ReportRepository over the same file
func (s *Sink) DB() *sql.DB {
	return s.db
}

// Reset drops the tables and recreates the schema
func (s *Sink) Reset(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := database.DropSchema(s.db); err != nil {
		return err
	}
	return database.NewMigrationManager(s.db).RunMigrations()
}

// InsertUsers inserts one batch of users
func (s *Sink) InsertUsers(ctx context.Context, users []models.User) error {
	return s.users.InsertBatch(ctx, users)
}

// InsertActivities inserts one batch of activities
func (s *Sink) InsertActivities(ctx context.Context, activities []models.Activity) error {
	return s.activities.InsertBatch(ctx, activities)
}

// InsertTrackpoints inserts one batch of trackpoints
func (s *Sink) InsertTrackpoints(ctx context.Context, trackpoints []models.Trackpoint) error {
	return s.trackpoints.InsertBatch(ctx, trackpoints)
}

// Close closes the database
func (s *Sink) Close() error {
	return s.db.Close()
}
