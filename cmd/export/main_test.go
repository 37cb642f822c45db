package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jengzang/geolife-loader/internal/config"
)

const plt = `Geolife trajectory
WGS 84
Altitude is in Feet
Reserved 3
0,2,255,My Track,0,0,2,8421376
0
39.984702,116.318417,0,492,39744.1201851852,2008-10-23,02:53:04
39.984683,116.31845,0,492,39744.1202546296,2008-10-23,02:53:10
`

func TestRunWritesFeatureCollection(t *testing.T) {
	root := t.TempDir()
	for _, uid := range []string{"000", "001"} {
		path := filepath.Join(root, "Data", uid, "Trajectory", "20081023025304.plt")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(plt), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	cfg := &config.Config{
		Data:   config.DataConfig{Dir: root},
		Ingest: config.IngestConfig{MaxPoints: 2500, HeaderLines: 6},
	}

	tests := []struct {
		user string
		want int
	}{
		{"", 2},
		{"001", 1},
	}
	for _, tt := range tests {
		out := filepath.Join(t.TempDir(), "activities.geojson")
		if err := run(context.Background(), cfg, "", tt.user, out); err != nil {
			t.Fatalf("run(user=%q) error: %v", tt.user, err)
		}
		b, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		var fc geojson.FeatureCollection
		if err := fc.UnmarshalJSON(b); err != nil {
			t.Fatalf("output is not GeoJSON: %v", err)
		}
		if len(fc.Features) != tt.want {
			t.Errorf("run(user=%q) wrote %d features, want %d", tt.user, len(fc.Features), tt.want)
		}
	}
}
