package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"amazon-dashboard/internal/dataset"
)

const csvHeader = "name,main_category,sub_category,ratings,no_of_ratings,actual_price,discount_price\n"

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantOut string
		wantErr string
	}{
		{name: "default output", args: []string{"-in", "data/products.csv"}, wantOut: "data/products.pcol"},
		{name: "explicit output", args: []string{"-in", "a.db", "-out", "b.pcol"}, wantOut: "b.pcol"},
		{name: "missing input", args: nil, wantErr: "-in is required"},
		{name: "dsn needs output", args: []string{"-in", "postgres://localhost/shop"}, wantErr: "-out is required"},
		{name: "wrong extension", args: []string{"-in", "a.csv", "-out", "a.parquet"}, wantErr: "must end in .pcol"},
		{name: "bad sample", args: []string{"-in", "a.csv", "-sample", "0"}, wantErr: "-sample"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := parseFlags(tt.args, io.Discard)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("parseFlags() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseFlags() error = %v", err)
			}
			if opts.out != tt.wantOut {
				t.Errorf("out = %q, want %q", opts.out, tt.wantOut)
			}
			if opts.table != dataset.DefaultTable || opts.sample != 100 {
				t.Errorf("defaults = %+v", opts)
			}
		})
	}

	opts, err := parseFlags([]string{"-in", "a.db", "-categories", "home & kitchen| toys, games |"}, io.Discard)
	if err != nil {
		t.Fatalf("parseFlags(-categories) error = %v", err)
	}
	if !slices.Equal(opts.categories, []string{"home & kitchen", "toys, games"}) {
		t.Errorf("categories = %q", opts.categories)
	}

	if _, err := parseFlags([]string{"-h"}, io.Discard); !errors.Is(err, flag.ErrHelp) {
		t.Errorf("parseFlags(-h) error = %v, want flag.ErrHelp", err)
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "products.csv")
	content := csvHeader
	for _, row := range []string{
		`Mug,home & kitchen,Kitchen,4.1,"1,024","₹499",₹299`,
		`Ball,sports & fitness,Football,3.8,87,"₹1,299",₹999`,
		`Car,toys & baby products,Toys,,,₹899,₹649`,
		`Jar,home & kitchen,Storage,4.6,5,₹199,₹99`,
	} {
		content += row + "\n"
	}
	if err := os.WriteFile(in, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	full := options{in: in, out: filepath.Join(dir, "full.pcol"), table: dataset.DefaultTable, sample: 100, seed: dataset.DefaultSeed}
	if err := run(context.Background(), full, logger); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	ds, err := dataset.ReadFile(context.Background(), full.out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if ds.Len() != 4 || ds.Name(0) != "Mug" || ds.ActualPrice(1) != 1299 {
		t.Errorf("converted rows = %d, first = %+v", ds.Len(), ds.Record(0))
	}

	half := full
	half.out = filepath.Join(dir, "half.pcol")
	half.sample = 50
	if err := run(context.Background(), half, logger); err != nil {
		t.Fatalf("run(sample) error = %v", err)
	}
	sampled, err := dataset.ReadFile(context.Background(), half.out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if sampled.Len() != 2 {
		t.Errorf("sampled rows = %d, want 2", sampled.Len())
	}
}

func TestRun_SQLiteCategories(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "catalog.sqlite")
	db, err := sql.Open("sqlite", in)
	if err != nil {
		t.Fatal(err)
	}
	for _, stmt := range []string{
		`CREATE TABLE catalog (name TEXT, main_category TEXT, sub_category TEXT,
			ratings REAL, no_of_ratings INTEGER, actual_price REAL, discount_price REAL)`,
		`INSERT INTO catalog VALUES ('Mug', 'home & kitchen', 'Kitchen', 4.1, 1024, 499, 299)`,
		`INSERT INTO catalog VALUES ('Ball', 'sports & fitness', 'Football', 3.8, 87, 1299, 999)`,
		`INSERT INTO catalog VALUES ('Jar', 'home & kitchen', 'Storage', 4.6, 5, 199, 99)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	db.Close()

	opts := options{
		in:         in,
		out:        filepath.Join(dir, "home.pcol"),
		table:      "catalog",
		categories: []string{"home & kitchen"},
		sample:     100,
	}
	if err := run(context.Background(), opts, slog.New(slog.NewTextHandler(io.Discard, nil))); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	ds, err := dataset.ReadFile(context.Background(), opts.out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if ds.Len() != 2 || !slices.Equal(ds.MainCategories().Levels(), []string{"home & kitchen"}) {
		t.Errorf("converted rows = %d, categories = %v", ds.Len(), ds.MainCategories().Levels())
	}
}

func TestRun_MissingInput(t *testing.T) {
	dir := t.TempDir()
	opts := options{in: filepath.Join(dir, "missing.csv"), out: filepath.Join(dir, "out.pcol"), sample: 100}
	err := run(context.Background(), opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("run() error = %v, want ErrNotFound", err)
	}
	if _, statErr := os.Stat(opts.out); !os.IsNotExist(statErr) {
		t.Error("no output should be written for a failed conversion")
	}
}
