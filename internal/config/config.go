package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config 应用配置
type Config struct {
	Data    DataConfig    `koanf:"data"`
	Ingest  IngestConfig  `koanf:"ingest"`
	Store   StoreConfig   `koanf:"store"`
	Mongo   MongoConfig   `koanf:"mongo"`
	SQLite  SQLiteConfig  `koanf:"sqlite"`
	Parquet ParquetConfig `koanf:"parquet"`
	Logging LoggingConfig `koanf:"logging"`
	Reports ReportsConfig `koanf:"reports"`
}

// DataConfig locates the source tree
type DataConfig struct {
	Dir            string `koanf:"dir"`              // contains Data/<uid>/ and the labeled ids manifest
	LabeledIDsFile string `koanf:"labeled_ids_file"` // relative to Dir unless absolute
}

// IngestConfig holds the ingestion policy values
type IngestConfig struct {
	MaxPoints           int           `koanf:"max_points"`
	HeaderLines         int           `koanf:"header_lines"`
	LabelMatchTolerance time.Duration `koanf:"label_match_tolerance"`
	Strict              bool          `koanf:"strict"`
}

// StoreConfig selects the load target
type StoreConfig struct {
	Backend   string `koanf:"backend"` // mongo, sqlite or parquet
	BatchSize int    `koanf:"batch_size"`
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	Host           string        `koanf:"host"`
	User           string        `koanf:"user"`
	Password       string        `koanf:"password"`
	Database       string        `koanf:"database"`
	AuthSource     string        `koanf:"auth_source"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
}

// SQLiteConfig holds the embedded store settings
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// ParquetConfig holds the parquet export settings
type ParquetConfig struct {
	Dir string `koanf:"dir"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level      string `koanf:"level"`
	Format     string `koanf:"format"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// ReportsConfig holds the parameters of the analytical reports
type ReportsConfig struct {
	UserID              string        `koanf:"user_id"`
	Mode                string        `koanf:"mode"`
	Year                int           `koanf:"year"`
	ExcludedMode        string        `koanf:"excluded_mode"`
	TopUsers            int           `koanf:"top_users"`
	AltitudeTopUsers    int           `koanf:"altitude_top_users"`
	GapThreshold        time.Duration `koanf:"gap_threshold"`
	CloseTimeWindow     time.Duration `koanf:"close_time_window"`
	CloseDistanceMeters float64       `koanf:"close_distance_meters"`
	CloseMinSamples     int           `koanf:"close_min_samples"`
}

// Backend names
const (
	BackendMongo   = "mongo"
	BackendSQLite  = "sqlite"
	BackendParquet = "parquet"
)

// MongoURI builds the connection string from the configured credentials
func (c MongoConfig) MongoURI() string {
	u := url.URL{
		Scheme: "mongodb",
		Host:   c.Host,
		Path:   "/" + c.Database,
	}
	if c.User != "" {
		u.User = url.UserPassword(c.User, c.Password)
	}
	if c.AuthSource != "" {
		u.RawQuery = url.Values{"authSource": []string{c.AuthSource}}.Encode()
	}
	return u.String()
}

// Validate checks the configuration for values the pipeline cannot work with
func (c *Config) Validate() error {
	if c.Data.Dir == "" {
		return fmt.Errorf("data.dir is required")
	}
	if c.Ingest.MaxPoints <= 0 {
		return fmt.Errorf("ingest.max_points must be positive, got %d", c.Ingest.MaxPoints)
	}
	if c.Ingest.HeaderLines < 0 {
		return fmt.Errorf("ingest.header_lines must not be negative, got %d", c.Ingest.HeaderLines)
	}
	if c.Ingest.LabelMatchTolerance < 0 {
		return fmt.Errorf("ingest.label_match_tolerance must not be negative, got %s", c.Ingest.LabelMatchTolerance)
	}
	if c.Store.BatchSize <= 0 {
		return fmt.Errorf("store.batch_size must be positive, got %d", c.Store.BatchSize)
	}

	switch c.Store.Backend {
	case BackendMongo:
		if c.Mongo.Host == "" || c.Mongo.Database == "" {
			return fmt.Errorf("mongo.host and mongo.database are required for the mongo backend")
		}
	case BackendSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path is required for the sqlite backend")
		}
	case BackendParquet:
		if c.Parquet.Dir == "" {
			return fmt.Errorf("parquet.dir is required for the parquet backend")
		}
	default:
		return fmt.Errorf("unsupported store.backend %q (expected mongo|sqlite|parquet)", c.Store.Backend)
	}

	if c.Reports.TopUsers <= 0 {
		return fmt.Errorf("reports.top_users must be positive, got %d", c.Reports.TopUsers)
	}
	if c.Reports.AltitudeTopUsers <= 0 {
		return fmt.Errorf("reports.altitude_top_users must be positive, got %d", c.Reports.AltitudeTopUsers)
	}
	if c.Reports.GapThreshold <= 0 {
		return fmt.Errorf("reports.gap_threshold must be positive, got %s", c.Reports.GapThreshold)
	}
	if c.Reports.CloseTimeWindow <= 0 {
		return fmt.Errorf("reports.close_time_window must be positive, got %s", c.Reports.CloseTimeWindow)
	}
	if !(c.Reports.CloseDistanceMeters > 0) {
		return fmt.Errorf("reports.close_distance_meters must be positive, got %g", c.Reports.CloseDistanceMeters)
	}
	if c.Reports.CloseMinSamples < 1 {
		return fmt.Errorf("reports.close_min_samples must be at least 1, got %d", c.Reports.CloseMinSamples)
	}
	return nil
}
