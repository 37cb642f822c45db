// Package export renders activities as GeoJSON features
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/models"
	"github.com/jengzang/geolife-loader/internal/spatial"
)

// FeatureCollection builds one feature per activity, in dataset order.
// Activities with a single trackpoint become Points, the rest LineStrings.
// A non-empty userID restricts the output to that user.
func FeatureCollection(ds *ingest.Dataset, userID string) (*geojson.FeatureCollection, error) {
	if userID != "" {
		ds = ds.FilterUser(userID)
	}
	points := ds.PointsByActivity()

	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(ds.Activities))}
	for _, a := range ds.Activities {
		tps := points[a.ID]
		if len(tps) == 0 {
			continue
		}
		f, err := feature(a, tps)
		if err != nil {
			return nil, fmt.Errorf("activity %d: %w", a.ID, err)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

func feature(a models.Activity, tps []models.Trackpoint) (*geojson.Feature, error) {
	coords := make([]geom.Coord, len(tps))
	path := make([]spatial.Point, len(tps))
	for i, tp := range tps {
		coords[i] = geom.Coord{tp.Longitude, tp.Latitude}
		path[i] = spatial.Point{Lat: tp.Latitude, Lon: tp.Longitude}
	}

	var g geom.T
	if len(coords) == 1 {
		p, err := geom.NewPoint(geom.XY).SetCoords(coords[0])
		if err != nil {
			return nil, err
		}
		g = p
	} else {
		ls, err := geom.NewLineString(geom.XY).SetCoords(coords)
		if err != nil {
			return nil, err
		}
		g = ls
	}

	props := map[string]interface{}{
		"user_id":         a.UserID,
		"activity_id":     a.ID,
		"start_date_time": a.StartDateTime.UTC().Format(time.RFC3339),
		"end_date_time":   a.EndDateTime.UTC().Format(time.RFC3339),
		"trackpoints":     len(tps),
		"length_km":       spatial.PathLengthKm(path),
	}
	if a.TransportationMode != nil {
		props["transportation_mode"] = *a.TransportationMode
	} else {
		props["transportation_mode"] = nil
	}

	return &geojson.Feature{
		ID:         strconv.FormatInt(a.ID, 10),
		Geometry:   g,
		Properties: props,
	}, nil
}

// Write encodes fc to w
func Write(w io.Writer, fc *geojson.FeatureCollection) error {
	b, err := fc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to encode geojson: %w", err)
	}
	if _, err := w.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("failed to write geojson: %w", err)
	}
	return nil
}
