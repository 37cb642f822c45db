package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jengzang/geolife-loader/internal/logging"
)

// DefaultConfigPaths are searched in order when no path is given
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

// ConfigPathEnvVar overrides the config file location
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Data: DataConfig{
			Dir:            "./dataset",
			LabeledIDsFile: "labeled_ids.txt",
		},
		Ingest: IngestConfig{
			MaxPoints:           2500,
			HeaderLines:         6,
			LabelMatchTolerance: 0, // exact equality
			Strict:              false,
		},
		Store: StoreConfig{
			Backend:   BackendMongo,
			BatchSize: 5000,
		},
		Mongo: MongoConfig{
			Host:           "localhost:27017",
			Database:       "geolife",
			ConnectTimeout: 10 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "./data/geolife.db",
		},
		Parquet: ParquetConfig{
			Dir: "./data/parquet",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 7,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Reports: ReportsConfig{
			UserID:              "112",
			Mode:                "walk",
			Year:                2008,
			ExcludedMode:        "taxi",
			TopUsers:            10,
			AltitudeTopUsers:    20,
			GapThreshold:        5 * time.Minute,
			CloseTimeWindow:     60 * time.Second,
			CloseDistanceMeters: 100,
			CloseMinSamples:     2,
		},
	}
}

// Load 加载配置
//
// Sources, lowest priority first: built-in defaults, the YAML file (path, or
// CONFIG_PATH, or the first of DefaultConfigPaths that exists), then
// environment variables. A .env file in the working directory is read into
// the environment before anything else. The result is not validated; callers
// apply their own overrides first and then call Validate.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.Warn().Err(err).Msg("Failed to read .env file")
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(path); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if path != "" {
		return nil, fmt.Errorf("config file %s not found", path)
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile(path string) string {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
		return ""
	}
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envMappings maps environment variable names (lowercased) to config paths
var envMappings = map[string]string{
	"data_dir":              "data.dir",
	"labeled_ids_file":      "data.labeled_ids_file",
	"max_points":            "ingest.max_points",
	"header_lines":          "ingest.header_lines",
	"label_match_tolerance": "ingest.label_match_tolerance",
	"ingest_strict":         "ingest.strict",
	"store_backend":         "store.backend",
	"store_batch_size":      "store.batch_size",
	"mongo_host":            "mongo.host",
	"mongo_user":            "mongo.user",
	"mongo_password":        "mongo.password",
	"mongo_database":        "mongo.database",
	"mongo_auth_source":     "mongo.auth_source",
	"mongo_connect_timeout": "mongo.connect_timeout",
	"sqlite_path":           "sqlite.path",
	"parquet_dir":           "parquet.dir",
	"log_level":             "logging.level",
	"log_format":            "logging.format",
	"log_file":              "logging.file",
	"report_user_id":        "reports.user_id",
	"report_mode":           "reports.mode",
	"report_year":           "reports.year",
}

// envTransformFunc maps known variables and drops everything else
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
