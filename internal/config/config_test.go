package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Ingest.MaxPoints != 2500 {
		t.Errorf("MaxPoints = %d, want 2500", cfg.Ingest.MaxPoints)
	}
	if cfg.Ingest.HeaderLines != 6 {
		t.Errorf("HeaderLines = %d, want 6", cfg.Ingest.HeaderLines)
	}
	if cfg.Ingest.LabelMatchTolerance != 0 {
		t.Errorf("LabelMatchTolerance = %s, want 0", cfg.Ingest.LabelMatchTolerance)
	}
	if cfg.Store.Backend != BackendMongo {
		t.Errorf("Backend = %q, want %q", cfg.Store.Backend, BackendMongo)
	}
	if cfg.Reports.GapThreshold != 5*time.Minute {
		t.Errorf("GapThreshold = %s, want 5m", cfg.Reports.GapThreshold)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfigFile(t, `
data:
  dir: /srv/geolife
ingest:
  max_points: 100
  strict: true
store:
  backend: sqlite
sqlite:
  path: /tmp/geo.db
reports:
  gap_threshold: 2m
`)
	t.Setenv("MAX_POINTS", "42")
	t.Setenv("MONGO_HOST", "mongo.internal:27017")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Data.Dir != "/srv/geolife" {
		t.Errorf("Data.Dir = %q", cfg.Data.Dir)
	}
	if cfg.Ingest.MaxPoints != 42 {
		t.Errorf("MaxPoints = %d, env should override file", cfg.Ingest.MaxPoints)
	}
	if !cfg.Ingest.Strict {
		t.Error("Strict should be true from file")
	}
	if cfg.Store.Backend != BackendSQLite || cfg.SQLite.Path != "/tmp/geo.db" {
		t.Errorf("store = %+v, sqlite = %+v", cfg.Store, cfg.SQLite)
	}
	if cfg.Mongo.Host != "mongo.internal:27017" {
		t.Errorf("Mongo.Host = %q", cfg.Mongo.Host)
	}
	if cfg.Reports.GapThreshold != 2*time.Minute {
		t.Errorf("GapThreshold = %s, want 2m", cfg.Reports.GapThreshold)
	}
}

func TestLoadLeavesValidationToCaller(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfigFile(t, `
store:
  backend: postgres
reports:
  top_users: 0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() should reject the file values")
	}

	cfg.Store.Backend = BackendSQLite
	cfg.Reports.TopUsers = 5
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after overrides: %v", err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero cap", func(c *Config) { c.Ingest.MaxPoints = 0 }, "max_points"},
		{"negative tolerance", func(c *Config) { c.Ingest.LabelMatchTolerance = -time.Second }, "label_match_tolerance"},
		{"zero batch", func(c *Config) { c.Store.BatchSize = 0 }, "batch_size"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "postgres" }, "unsupported store.backend"},
		{"sqlite without path", func(c *Config) {
			c.Store.Backend = BackendSQLite
			c.SQLite.Path = ""
		}, "sqlite.path"},
		{"parquet ok", func(c *Config) { c.Store.Backend = BackendParquet }, ""},
		{"no data dir", func(c *Config) { c.Data.Dir = "" }, "data.dir"},
		{"zero top users", func(c *Config) { c.Reports.TopUsers = 0 }, "reports.top_users"},
		{"zero altitude top users", func(c *Config) { c.Reports.AltitudeTopUsers = 0 }, "reports.altitude_top_users"},
		{"zero gap threshold", func(c *Config) { c.Reports.GapThreshold = 0 }, "reports.gap_threshold"},
		{"negative time window", func(c *Config) { c.Reports.CloseTimeWindow = -time.Second }, "reports.close_time_window"},
		{"zero distance", func(c *Config) { c.Reports.CloseDistanceMeters = 0 }, "reports.close_distance_meters"},
		{"zero min samples", func(c *Config) { c.Reports.CloseMinSamples = 0 }, "reports.close_min_samples"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestMongoURI(t *testing.T) {
	tests := []struct {
		name string
		cfg  MongoConfig
		want string
	}{
		{"anonymous", MongoConfig{Host: "localhost:27017", Database: "geolife"}, "mongodb://localhost:27017/geolife"},
		{"credentials", MongoConfig{Host: "db:27017", User: "geo", Password: "p@ss", Database: "geolife"}, "mongodb://geo:p%40ss@db:27017/geolife"},
		{"auth source", MongoConfig{Host: "db:27017", User: "geo", Password: "x", Database: "geolife", AuthSource: "admin"}, "mongodb://geo:x@db:27017/geolife?authSource=admin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.MongoURI(); got != tt.want {
				t.Errorf("MongoURI() = %q, want %q", got, tt.want)
			}
		})
	}
}
