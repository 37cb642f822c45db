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
	"github.com/jengzang/geolife-loader/internal/logging"
	"github.com/jengzang/geolife-loader/internal/report"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to config.yaml")
		backend    = flag.String("backend", "", "mongo or sqlite, overrides store.backend")
		reports    = flag.String("run", "all", "comma separated report names, or all")
		list       = flag.Bool("list", false, "list the available reports and exit")
	)
	flag.Parse()

	if *list {
		listReports(os.Stdout)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}
	if *backend != "" {
		cfg.Store.Backend = *backend
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(2)
	}

	selected, err := report.Select(*reports)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	app.InitLogging(cfg)
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, selected, os.Stdout); err != nil {
		logging.Error().Err(err).Msg("Reports failed")
		logging.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, selected []report.Report, out io.Writer) error {
	src, closer, err := app.OpenSource(ctx, cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	return report.RunAll(ctx, src, selected, app.ReportParams(cfg), out)
}

func listReports(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, r := range report.All() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", r.GetIndex(), r.GetName(), r.GetDescription())
	}
	tw.Flush()
}
