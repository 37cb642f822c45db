// Package loader writes a finished dataset into a store, collection by
// collection, after dropping whatever the previous run left behind.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/logging"
	"github.com/jengzang/geolife-loader/internal/models"
)

// Collection names shared by every backend
const (
	CollectionUser       = "user"
	CollectionActivity   = "activity"
	CollectionTrackpoint = "trackpoint"
)

// Sink is a store the three collections can be written to.
// Insert calls receive one batch at a time and may be called repeatedly.
type Sink interface {
	// Reset drops the three collections and recreates them empty
	Reset(ctx context.Context) error
	InsertUsers(ctx context.Context, users []models.User) error
	InsertActivities(ctx context.Context, activities []models.Activity) error
	InsertTrackpoints(ctx context.Context, trackpoints []models.Trackpoint) error
	Close() error
}

// Flusher is implemented by sinks that buffer writes per collection
type Flusher interface {
	Flush(ctx context.Context, collection string) error
}

// Options configures a load
type Options struct {
	BatchSize int
}

// StageStats holds the outcome of writing one collection
type StageStats struct {
	Collection string
	Count      int
	Batches    int
	Elapsed    time.Duration
}

// Report summarizes one load
type Report struct {
	RunID   string
	Stages  []StageStats
	Elapsed time.Duration
}

// Loader writes datasets into a Sink
type Loader struct {
	sink Sink
	opts Options
	log  zerolog.Logger
}

// New creates a loader for the given sink
func New(sink Sink, opts Options) *Loader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5000
	}
	return &Loader{
		sink: sink,
		opts: opts,
		log:  logging.With().Str("component", "loader").Logger(),
	}
}

// Load drops the collections and inserts users, activities and trackpoints in
// that order. There is no transaction across collections: on error the store
// is left partially loaded and the whole load has to be repeated.
func (l *Loader) Load(ctx context.Context, ds *ingest.Dataset) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	log := l.log.With().Str("run_id", report.RunID).Logger()
	started := time.Now()

	if err := l.sink.Reset(ctx); err != nil {
		return report, fmt.Errorf("failed to reset store: %w", err)
	}
	log.Info().Msg("Collections dropped")

	stages := []struct {
		name  string
		count int
		write func(lo, hi int) error
	}{
		{CollectionUser, len(ds.Users), func(lo, hi int) error {
			return l.sink.InsertUsers(ctx, ds.Users[lo:hi])
		}},
		{CollectionActivity, len(ds.Activities), func(lo, hi int) error {
			return l.sink.InsertActivities(ctx, ds.Activities[lo:hi])
		}},
		{CollectionTrackpoint, len(ds.Trackpoints), func(lo, hi int) error {
			return l.sink.InsertTrackpoints(ctx, ds.Trackpoints[lo:hi])
		}},
	}

	for _, stage := range stages {
		stats, err := l.writeStage(ctx, stage.name, stage.count, stage.write)
		report.Stages = append(report.Stages, stats)
		if err != nil {
			return report, err
		}
		log.Info().
			Str("collection", stats.Collection).
			Int("count", stats.Count).
			Int("batches", stats.Batches).
			Dur("elapsed", stats.Elapsed).
			Msg("Collection loaded")
	}

	report.Elapsed = time.Since(started)
	log.Info().Dur("elapsed", report.Elapsed).Msg("Load finished")
	return report, nil
}

func (l *Loader) writeStage(ctx context.Context, name string, count int, write func(lo, hi int) error) (stats StageStats, err error) {
	stats.Collection = name
	started := time.Now()
	defer func() { stats.Elapsed = time.Since(started) }()

	for lo := 0; lo < count; lo += l.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("failed to insert %s: %w", name, err)
		}
		hi := min(lo+l.opts.BatchSize, count)
		if err := write(lo, hi); err != nil {
			return stats, fmt.Errorf("failed to insert %s batch %d..%d: %w", name, lo, hi, err)
		}
		stats.Count = hi
		stats.Batches++
	}

	if f, ok := l.sink.(Flusher); ok {
		if err := f.Flush(ctx, name); err != nil {
			return stats, fmt.Errorf("failed to flush %s: %w", name, err)
		}
	}

	return stats, nil
}
