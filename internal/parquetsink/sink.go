// Package parquetsink writes the three collections as parquet files, one file
// per collection, in a single directory.
package parquetsink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/jengzang/geolife-loader/internal/loader"
	"github.com/jengzang/geolife-loader/internal/logging"
	"github.com/jengzang/geolife-loader/internal/models"
)

// FileExt is appended to the collection name
const FileExt = ".parquet"

type userRow struct {
	ID          string  `parquet:"name=_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	HasLabels   bool    `parquet:"name=has_labels, type=BOOLEAN"`
	ActivityIDs []int64 `parquet:"name=activity_id, type=INT64, repetitiontype=REPEATED"`
}

type activityRow struct {
	ID                 int64   `parquet:"name=_id, type=INT64"`
	StartDateTime      int64   `parquet:"name=start_date_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	EndDateTime        int64   `parquet:"name=end_date_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	TransportationMode *string `parquet:"name=transportation_mode, type=BYTE_ARRAY, convertedtype=UTF8, repetitiontype=OPTIONAL"`
}

type trackpointRow struct {
	ID         int64    `parquet:"name=_id, type=INT64"`
	ActivityID int64    `parquet:"name=activity_id, type=INT64"`
	Latitude   float64  `parquet:"name=lat, type=DOUBLE"`
	Longitude  float64  `parquet:"name=lon, type=DOUBLE"`
	Altitude   *float64 `parquet:"name=altitude, type=DOUBLE, repetitiontype=OPTIONAL"`
	DateDays   float64  `parquet:"name=date_days, type=DOUBLE"`
	DateTime   int64    `parquet:"name=date_time, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
}

// collectionWriter is an open parquet file and its writer
type collectionWriter struct {
	file source.ParquetFile
	pw   *writer.ParquetWriter
	rows int
}

func (w *collectionWriter) stop() error {
	err := w.pw.WriteStop()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// Sink writes collections to Dir. Rows are buffered by the parquet writer and
// a collection's file is only complete after Flush or Close.
type Sink struct {
	dir         string
	parallelism int64
	writers     map[string]*collectionWriter
	log         zerolog.Logger
}

// Config holds sink settings
type Config struct {
	Dir         string
	Parallelism int64
}

// New creates a sink writing into cfg.Dir
func New(cfg Config) (*Sink, error) {
	if cfg.Dir == "" {
		return nil, errors.New("parquet dir is required")
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create parquet dir: %w", err)
	}
	return &Sink{
		dir:         cfg.Dir,
		parallelism: cfg.Parallelism,
		writers:     make(map[string]*collectionWriter),
		log:         logging.With().Str("component", "parquetsink").Str("dir", cfg.Dir).Logger(),
	}, nil
}

// Path returns the file a collection is written to
func (s *Sink) Path(collection string) string {
	return filepath.Join(s.dir, collection+FileExt)
}

// Reset removes the previous files and opens a fresh writer per collection
func (s *Sink) Reset(_ context.Context) error {
	if err := s.Close(); err != nil {
		return err
	}

	schemas := []struct {
		name string
		obj  interface{}
	}{
		{loader.CollectionUser, new(userRow)},
		{loader.CollectionActivity, new(activityRow)},
		{loader.CollectionTrackpoint, new(trackpointRow)},
	}
	for _, sc := range schemas {
		path := s.Path(sc.name)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		fw, err := local.NewLocalFileWriter(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		pw, err := writer.NewParquetWriter(fw, sc.obj, s.parallelism)
		if err != nil {
			_ = fw.Close()
			return fmt.Errorf("failed to create writer for %s: %w", sc.name, err)
		}
		pw.CompressionType = parquet.CompressionCodec_SNAPPY
		s.writers[sc.name] = &collectionWriter{file: fw, pw: pw}
	}
	return nil
}

// InsertUsers appends users to user.parquet
func (s *Sink) InsertUsers(_ context.Context, users []models.User) error {
	w, err := s.writer(loader.CollectionUser)
	if err != nil {
		return err
	}
	for _, u := range users {
		ids := u.ActivityIDs
		if ids == nil {
			ids = []int64{}
		}
		if err := w.pw.Write(userRow{ID: u.ID, HasLabels: u.HasLabels, ActivityIDs: ids}); err != nil {
			return fmt.Errorf("failed to write user %s: %w", u.ID, err)
		}
		w.rows++
	}
	return nil
}

// InsertActivities appends activities to activity.parquet
func (s *Sink) InsertActivities(_ context.Context, activities []models.Activity) error {
	w, err := s.writer(loader.CollectionActivity)
	if err != nil {
		return err
	}
	for _, a := range activities {
		row := activityRow{
			ID:                 a.ID,
			StartDateTime:      a.StartDateTime.UnixMilli(),
			EndDateTime:        a.EndDateTime.UnixMilli(),
			TransportationMode: a.TransportationMode,
		}
		if err := w.pw.Write(row); err != nil {
			return fmt.Errorf("failed to write activity %d: %w", a.ID, err)
		}
		w.rows++
	}
	return nil
}

// InsertTrackpoints appends trackpoints to trackpoint.parquet
func (s *Sink) InsertTrackpoints(_ context.Context, trackpoints []models.Trackpoint) error {
	w, err := s.writer(loader.CollectionTrackpoint)
	if err != nil {
		return err
	}
	for _, tp := range trackpoints {
		row := trackpointRow{
			ID:         tp.ID,
			ActivityID: tp.ActivityID,
			Latitude:   tp.Latitude,
			Longitude:  tp.Longitude,
			Altitude:   tp.Altitude,
			DateDays:   tp.DateDays,
			DateTime:   tp.DateTime.UnixMilli(),
		}
		if err := w.pw.Write(row); err != nil {
			return fmt.Errorf("failed to write trackpoint %d: %w", tp.ID, err)
		}
		w.rows++
	}
	return nil
}

// Flush finishes one collection's file. Further inserts into it fail until
// the next Reset.
func (s *Sink) Flush(_ context.Context, collection string) error {
	w, ok := s.writers[collection]
	if !ok {
		return nil
	}
	delete(s.writers, collection)
	if err := w.stop(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", s.Path(collection), err)
	}
	s.log.Debug().Str("collection", collection).Int("rows", w.rows).Msg("Parquet file written")
	return nil
}

// Close finishes every file still open
func (s *Sink) Close() error {
	var errs []error
	for _, name := range []string{loader.CollectionUser, loader.CollectionActivity, loader.CollectionTrackpoint} {
		if err := s.Flush(context.Background(), name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Sink) writer(collection string) (*collectionWriter, error) {
	w, ok := s.writers[collection]
	if !ok {
		return nil, fmt.Errorf("%s is not open for writing, call Reset first", collection)
	}
	return w, nil
}
