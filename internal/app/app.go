// Package app wires configuration into the components shared by the command
// line tools.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/jengzang/geolife-loader/internal/cluster"
	"github.com/jengzang/geolife-loader/internal/config"
	"github.com/jengzang/geolife-loader/internal/database"
	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/loader"
	"github.com/jengzang/geolife-loader/internal/logging"
	"github.com/jengzang/geolife-loader/internal/mongostore"
	"github.com/jengzang/geolife-loader/internal/parquetsink"
	"github.com/jengzang/geolife-loader/internal/report"
	"github.com/jengzang/geolife-loader/internal/repository"
	"github.com/jengzang/geolife-loader/internal/trajectory"
)

// InitLogging configures the global logger from cfg
func InitLogging(cfg *config.Config) {
	logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
}

// IngestOptions maps the data and ingest sections to pipeline options
func IngestOptions(cfg *config.Config) ingest.Options {
	return ingest.Options{
		DataDir:        cfg.Data.Dir,
		LabeledIDsFile: cfg.Data.LabeledIDsFile,
		Trajectory: trajectory.Options{
			MaxPoints:   cfg.Ingest.MaxPoints,
			HeaderLines: cfg.Ingest.HeaderLines,
		},
		LabelTolerance: cfg.Ingest.LabelMatchTolerance,
		Strict:         cfg.Ingest.Strict,
	}
}

// ReportParams maps the reports section to report parameters
func ReportParams(cfg *config.Config) report.Params {
	return report.Params{
		UserID:           cfg.Reports.UserID,
		Mode:             cfg.Reports.Mode,
		Year:             cfg.Reports.Year,
		ExcludedMode:     cfg.Reports.ExcludedMode,
		TopUsers:         cfg.Reports.TopUsers,
		AltitudeTopUsers: cfg.Reports.AltitudeTopUsers,
		GapThreshold:     cfg.Reports.GapThreshold,
		Close: cluster.Options{
			TimeWindow: cfg.Reports.CloseTimeWindow,
			Distance:   cfg.Reports.CloseDistanceMeters,
			MinSamples: cfg.Reports.CloseMinSamples,
		},
	}
}

// MongoConfig maps the mongo section to store settings
func MongoConfig(cfg *config.Config) mongostore.Config {
	return mongostore.Config{
		URI:            cfg.Mongo.MongoURI(),
		Database:       cfg.Mongo.Database,
		ConnectTimeout: cfg.Mongo.ConnectTimeout,
	}
}

// OpenSink opens the configured load target
func OpenSink(ctx context.Context, cfg *config.Config) (loader.Sink, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		return mongostore.Connect(ctx, MongoConfig(cfg))
	case config.BackendSQLite:
		return repository.OpenSink(database.Config{Path: cfg.SQLite.Path})
	case config.BackendParquet:
		return parquetsink.New(parquetsink.Config{Dir: cfg.Parquet.Dir})
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// OpenSource opens the configured store for reporting. Parquet files are
// an export format and cannot be queried.
func OpenSource(ctx context.Context, cfg *config.Config) (report.Source, io.Closer, error) {
	switch cfg.Store.Backend {
	case config.BackendMongo:
		store, err := mongostore.Connect(ctx, MongoConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	case config.BackendSQLite:
		sink, err := repository.OpenSink(database.Config{Path: cfg.SQLite.Path})
		if err != nil {
			return nil, nil, err
		}
		return repository.NewReportRepository(sink.DB()), sink, nil
	default:
		return nil, nil, fmt.Errorf("backend %q does not support reports, use %s or %s",
			cfg.Store.Backend, config.BackendMongo, config.BackendSQLite)
	}
}
