package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jengzang/geolife-loader/internal/app"
	"github.com/jengzang/geolife-loader/internal/config"
	"github.com/jengzang/geolife-loader/internal/export"
	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/logging"
	"github.com/jengzang/geolife-loader/internal/parquetsink"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to config.yaml")
		dataDir     = flag.String("data", "", "dataset directory, overrides data.dir")
		fromParquet = flag.String("parquet", "", "read a parquet snapshot from this directory instead of the dataset")
		userID      = flag.String("user", "", "only export this user's activities")
		outPath     = flag.String("out", "-", "output file, - for stdout")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}
	if *dataDir != "" {
		cfg.Data.Dir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	app.InitLogging(cfg)
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *fromParquet, *userID, *outPath); err != nil {
		logging.Error().Err(err).Msg("Export failed")
		logging.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, parquetDir, userID, outPath string) error {
	var ds *ingest.Dataset
	var err error
	if parquetDir != "" {
		ds, err = parquetsink.Read(parquetDir, 0)
	} else {
		ds, _, err = ingest.NewPipeline(app.IngestOptions(cfg)).Run(ctx)
	}
	if err != nil {
		return err
	}

	fc, err := export.FeatureCollection(ds, userID)
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if outPath != "-" && outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", outPath, err)
		}
		defer f.Close()
		out = f
	}

	if err := export.Write(out, fc); err != nil {
		return err
	}
	logging.Info().Int("features", len(fc.Features)).Str("out", outPath).Msg("GeoJSON written")
	return nil
}
