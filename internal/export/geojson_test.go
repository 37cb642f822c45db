package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/models"
)

func dataset() *ingest.Dataset {
	b := ingest.NewBuilder()
	var ds ingest.Dataset
	add := func(uid string, n int, modes ...string) {
		pts := make([]models.Point, n)
		for i := range pts {
			pts[i] = models.Point{
				Latitude:  39.9 + float64(i)*0.01,
				Longitude: 116.3,
				DateDays:  39570,
				Timestamp: time.Date(2008, 5, 1, 10, 0, i, 0, time.UTC),
			}
		}
		acts, tps := b.Build(uid, pts, modes)
		ds.Activities = append(ds.Activities, acts...)
		ds.Trackpoints = append(ds.Trackpoints, tps...)
	}
	add("001", 3, "walk")
	add("002", 1)
	ds.AssignTrackpointIDs()
	ds.Users = ingest.AggregateUsers([]string{"001", "002"}, map[string]bool{"001": true}, ds.Activities)
	return &ds
}

func TestFeatureCollection(t *testing.T) {
	fc, err := FeatureCollection(dataset(), "")
	if err != nil {
		t.Fatalf("FeatureCollection() error: %v", err)
	}
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}

	line, ok := fc.Features[0].Geometry.(*geom.LineString)
	if !ok || line.NumCoords() != 3 {
		t.Fatalf("feature 0 geometry = %T", fc.Features[0].Geometry)
	}
	if c := line.Coord(0); c.X() != 116.3 || c.Y() != 39.9 {
		t.Errorf("first coord = %v, want lon/lat order", c)
	}
	props := fc.Features[0].Properties
	if props["user_id"] != "001" || props["transportation_mode"] != "walk" || props["trackpoints"] != 3 {
		t.Errorf("feature 0 properties = %v", props)
	}
	if km, _ := props["length_km"].(float64); km < 2.2 || km > 2.3 {
		t.Errorf("length_km = %v, want about 2.22", props["length_km"])
	}

	if _, ok := fc.Features[1].Geometry.(*geom.Point); !ok {
		t.Errorf("single point activity geometry = %T", fc.Features[1].Geometry)
	}
	if fc.Features[1].Properties["transportation_mode"] != nil {
		t.Errorf("unlabeled activity mode = %v", fc.Features[1].Properties["transportation_mode"])
	}
}

func TestFeatureCollectionFilterUser(t *testing.T) {
	fc, err := FeatureCollection(dataset(), "002")
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) != 1 || fc.Features[0].Properties["user_id"] != "002" {
		t.Errorf("features = %+v", fc.Features)
	}

	none, err := FeatureCollection(dataset(), "999")
	if err != nil || len(none.Features) != 0 {
		t.Errorf("unknown user: %d features, %v", len(none.Features), err)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	fc, err := FeatureCollection(dataset(), "")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := Write(&buf, fc); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	var decoded geojson.FeatureCollection
	if err := decoded.UnmarshalJSON(buf.Bytes()); err != nil {
		t.Fatalf("output is not a feature collection: %v", err)
	}
	if len(decoded.Features) != 2 || decoded.Features[0].ID != "0" || decoded.Features[1].ID != "1" {
		t.Errorf("decoded = %+v", decoded.Features)
	}
}
