package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jengzang/geolife-loader/internal/app"
	"github.com/jengzang/geolife-loader/internal/config"
	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/loader"
	"github.com/jengzang/geolife-loader/internal/models"
	"github.com/jengzang/geolife-loader/internal/report"
)

func loadedConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Store:   config.StoreConfig{Backend: config.BackendSQLite, BatchSize: 10},
		SQLite:  config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "geolife.db")},
		Reports: config.ReportsConfig{TopUsers: 10, ExcludedMode: "taxi", GapThreshold: 5 * time.Minute},
	}

	b := ingest.NewBuilder()
	pts := []models.Point{
		{Latitude: 39.9, Longitude: 116.3, DateDays: 39570, Timestamp: time.Date(2008, 5, 1, 10, 0, 0, 0, time.UTC)},
		{Latitude: 39.9, Longitude: 116.31, DateDays: 39570.01, Timestamp: time.Date(2008, 5, 1, 10, 14, 24, 0, time.UTC)},
	}
	acts, tps := b.Build("007", pts, []string{"bus"})
	ds := &ingest.Dataset{Activities: acts, Trackpoints: tps}
	ds.AssignTrackpointIDs()
	ds.Users = ingest.AggregateUsers([]string{"007", "008"}, map[string]bool{"007": true}, ds.Activities)

	ctx := context.Background()
	sink, err := app.OpenSink(ctx, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()
	if _, err := loader.New(sink, loader.Options{}).Load(ctx, ds); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestRunSelectedReports(t *testing.T) {
	cfg := loadedConfig(t)
	selected, err := report.Select("counts,never-mode,invalid-activities")
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	if err := run(context.Background(), cfg, selected, &out); err != nil {
		t.Fatalf("run() error: %v", err)
	}
	for _, want := range []string{"== 1. counts", "trackpoint  2", "users without taxi: 2", "007   1"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output is missing %q\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), "top-users") {
		t.Error("unselected report was run")
	}
}

func TestRunRejectsParquet(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendParquet}}
	if err := run(context.Background(), cfg, report.All(), &bytes.Buffer{}); err == nil {
		t.Error("run() should refuse the parquet backend")
	}
}

func TestListReports(t *testing.T) {
	var out bytes.Buffer
	listReports(&out)
	if lines := strings.Count(out.String(), "\n"); lines != 12 {
		t.Errorf("listReports() printed %d lines, want 12", lines)
	}
}
