// Command pcol converts a product CSV file or SQL table into the columnar
// .pcol format served by the dashboard.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"amazon-dashboard/internal/config"
	"amazon-dashboard/internal/dataset"
	"amazon-dashboard/internal/observability"
)

type options struct {
	in         string
	out        string
	table      string
	categories []string
	sample     int
	seed       uint64
	logLevel   string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("pcol", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "", "input CSV file, SQLite file or postgres:// DSN")
	fs.StringVar(&opts.out, "out", "", "output .pcol file (default: input name with .pcol extension)")
	fs.StringVar(&opts.table, "table", dataset.DefaultTable, "table to read from SQL inputs")
	fs.Func("categories", "'|' separated main categories to keep (default: all)", func(v string) error {
		for _, c := range strings.Split(v, "|") {
			if c = strings.TrimSpace(c); c != "" {
				opts.categories = append(opts.categories, c)
			}
		}
		return nil
	})
	fs.IntVar(&opts.sample, "sample", 100, "percentage of rows to keep")
	fs.Uint64Var(&opts.seed, "seed", dataset.DefaultSeed, "random seed used with -sample")
	fs.StringVar(&opts.logLevel, "log-level", "info", "log level")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.in == "" {
		return opts, errors.New("-in is required")
	}
	if opts.out == "" {
		if strings.Contains(opts.in, "://") {
			return opts, errors.New("-out is required for DSN inputs")
		}
		opts.out = strings.TrimSuffix(opts.in, filepath.Ext(opts.in)) + dataset.FileExt
	}
	if filepath.Ext(opts.out) != dataset.FileExt {
		return opts, fmt.Errorf("-out must end in %s", dataset.FileExt)
	}
	if opts.sample < 1 || opts.sample > 100 {
		return opts, fmt.Errorf("-sample must be between 1 and 100, got %d", opts.sample)
	}
	return opts, nil
}

func run(ctx context.Context, opts options, logger *slog.Logger) error {
	src, closeSource, err := dataset.OpenSource(opts.in, opts.table, opts.categories)
	if err != nil {
		return err
	}
	defer closeSource()

	start := time.Now()
	ds, err := src.Read(ctx)
	if err != nil {
		return fmt.Errorf("read %s: %w", src.Name(), err)
	}
	logger.Info("input read", "source", src.Name(), "rows", ds.Len(), "categories", opts.categories, "duration", time.Since(start))

	if opts.sample < 100 {
		fraction, err := dataset.FractionFromPercent(opts.sample)
		if err != nil {
			return err
		}
		if ds, err = dataset.Sample(ds, fraction, opts.seed); err != nil {
			return err
		}
		logger.Info("input sampled", "percent", opts.sample, "rows", ds.Len())
	}

	if err := dataset.WriteFile(opts.out, ds); err != nil {
		return fmt.Errorf("write %s: %w", opts.out, err)
	}

	info, err := os.Stat(opts.out)
	if err != nil {
		return err
	}
	stats := ds.Stats()
	logger.Info("columnar file written",
		"path", opts.out,
		"rows", stats.Rows,
		"main_categories", stats.MainCategories,
		"sub_categories", stats.SubCategories,
		"price_anomalies", stats.PriceAnomalies,
		"bytes", info.Size(),
		"duration", time.Since(start),
	)
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, "pcol:", err)
		os.Exit(2)
	}

	logger := observability.NewLoggerTo(os.Stderr, config.LoggerConfig{Level: opts.logLevel, Format: "text"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, logger); err != nil {
		logger.Error("conversion failed", "error", err)
		os.Exit(1)
	}
}
