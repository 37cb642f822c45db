package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/jengzang/geolife-loader/internal/app"
	"github.com/jengzang/geolife-loader/internal/config"
	"github.com/jengzang/geolife-loader/internal/ingest"
	"github.com/jengzang/geolife-loader/internal/loader"
	"github.com/jengzang/geolife-loader/internal/logging"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml")
		dataDir    = flag.String("data", "", "dataset directory, overrides data.dir")
		backend    = flag.String("backend", "", "mongo, sqlite or parquet, overrides store.backend")
		strict     = flag.Bool("strict", false, "abort on the first rejected file")
		dryRun     = flag.Bool("dry-run", false, "parse and validate only, do not load")
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
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if *strict {
		cfg.Ingest.Strict = true
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	app.InitLogging(cfg)
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *dryRun, os.Stdout); err != nil {
		logging.Error().Err(err).Msg("Load failed")
		logging.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, dryRun bool, out io.Writer) error {
	ds, summary, err := ingest.NewPipeline(app.IngestOptions(cfg)).Run(ctx)
	if err != nil {
		return err
	}
	if err := ds.Validate(); err != nil {
		return err
	}

	var loadReport *loader.Report
	if !dryRun {
		sink, err := app.OpenSink(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", cfg.Store.Backend, err)
		}
		defer sink.Close()

		loadReport, err = loader.New(sink, loader.Options{BatchSize: cfg.Store.BatchSize}).Load(ctx, ds)
		if err != nil {
			return err
		}
	}

	printSummary(out, cfg.Store.Backend, summary, loadReport)
	return nil
}

func printSummary(out io.Writer, backend string, s *ingest.Summary, r *loader.Report) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "users\t%d\n", s.Users)
	fmt.Fprintf(tw, "activities\t%d\n", s.Activities)
	fmt.Fprintf(tw, "trackpoints\t%d\n", s.Trackpoints)
	fmt.Fprintf(tw, "files included\t%d\n", s.Included)
	fmt.Fprintf(tw, "files skipped\t%d\n", s.Skipped)
	fmt.Fprintf(tw, "files rejected\t%d\n", s.Rejected)
	fmt.Fprintf(tw, "ingest time\t%s\n", s.Duration)
	if r != nil {
		fmt.Fprintf(tw, "run id\t%s\n", r.RunID)
		for _, st := range r.Stages {
			fmt.Fprintf(tw, "%s load (%s)\t%d in %d batches, %s\n", st.Collection, backend, st.Count, st.Batches, st.Elapsed)
		}
		fmt.Fprintf(tw, "load time\t%s\n", r.Elapsed)
	} else {
		fmt.Fprintln(tw, "load\tskipped (dry run)")
	}
	tw.Flush()

	for _, f := range s.Failures() {
		fmt.Fprintf(out, "rejected: %s: %v\n", f.Path, f.Err)
	}
}
