package parquetsink

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/loader"
	"github.com/jengzang/geolife-loader/internal/models"
)

// Read loads a dataset previously written to dir. Activity owners are
// restored from user.activity_id.
func Read(dir string, parallelism int64) (*ingest.Dataset, error) {
	if parallelism <= 0 {
		parallelism = 4
	}

	var users []userRow
	if err := readAll(filepath.Join(dir, loader.CollectionUser+FileExt), new(userRow), parallelism, &users); err != nil {
		return nil, err
	}
	var activities []activityRow
	if err := readAll(filepath.Join(dir, loader.CollectionActivity+FileExt), new(activityRow), parallelism, &activities); err != nil {
		return nil, err
	}
	var trackpoints []trackpointRow
	if err := readAll(filepath.Join(dir, loader.CollectionTrackpoint+FileExt), new(trackpointRow), parallelism, &trackpoints); err != nil {
		return nil, err
	}

	ds := &ingest.Dataset{
		Users:       make([]models.User, 0, len(users)),
		Activities:  make([]models.Activity, 0, len(activities)),
		Trackpoints: make([]models.Trackpoint, 0, len(trackpoints)),
	}

	owner := make(map[int64]string)
	for _, u := range users {
		ids := u.ActivityIDs
		if ids == nil {
			ids = []int64{}
		}
		for _, id := range ids {
			owner[id] = u.ID
		}
		ds.Users = append(ds.Users, models.User{ID: u.ID, HasLabels: u.HasLabels, ActivityIDs: ids})
	}

	for _, a := range activities {
		ds.Activities = append(ds.Activities, models.Activity{
			ID:                 a.ID,
			UserID:             owner[a.ID],
			StartDateTime:      fromMillis(a.StartDateTime),
			EndDateTime:        fromMillis(a.EndDateTime),
			TransportationMode: a.TransportationMode,
		})
	}

	for _, tp := range trackpoints {
		ds.Trackpoints = append(ds.Trackpoints, models.Trackpoint{
			ID:         tp.ID,
			ActivityID: tp.ActivityID,
			Latitude:   tp.Latitude,
			Longitude:  tp.Longitude,
			Altitude:   tp.Altitude,
			DateDays:   tp.DateDays,
			DateTime:   fromMillis(tp.DateTime),
		})
	}

	return ds, nil
}

func readAll[T any](path string, schema *T, parallelism int64, out *[]T) error {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, schema, parallelism)
	if err != nil {
		return fmt.Errorf("failed to read schema of %s: %w", path, err)
	}
	defer pr.ReadStop()

	rows := make([]T, int(pr.GetNumRows()))
	if len(rows) > 0 {
		if err := pr.Read(&rows); err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	*out = rows
	return nil
}

// fromMillis converts a stored timestamp back to UTC
func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
