package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"amazon-dashboard/internal/models"
)

const snapshotVersion = "v1"

// Source produces a fully materialized dataset.
type Source interface {
	Name() string
	Read(ctx context.Context) (*Dataset, error)
}

// ColumnarSource reads a .pcol file, keeping only rows of Categories when set.
type ColumnarSource struct {
	Path       string
	Categories []string
}

func (s *ColumnarSource) Name() string { return s.Path }

func (s *ColumnarSource) Read(ctx context.Context) (*Dataset, error) {
	ds, err := ReadFile(ctx, s.Path)
	if err != nil {
		return nil, err
	}
	return ds.WithMainCategories(s.Categories), nil
}

// OpenSource picks the source for a dataset location by scheme or file
// extension. Table names the SQL table; categories, when non-empty, limit
// the rows to those main categories. The returned close function releases
// any database handle.
func OpenSource(location, table string, categories []string) (Source, func() error, error) {
	noop := func() error { return nil }

	ext := strings.ToLower(filepath.Ext(location))
	switch {
	case isPostgresDSN(location), strings.HasPrefix(location, "sqlite://"),
		ext == ".db", ext == ".sqlite", ext == ".sqlite3":
		db, dialect, err := OpenSQL(location)
		if err != nil {
			return nil, nil, err
		}
		label := location
		if dialect == DialectPostgres {
			label = "postgres:" + table
		}
		return &SQLSource{DB: db, Dialect: dialect, Table: table, Categories: categories, Label: label}, db.Close, nil
	case ext == ".csv":
		return &CSVSource{Path: location, Categories: categories}, noop, nil
	case ext == FileExt:
		return &ColumnarSource{Path: location, Categories: categories}, noop, nil
	default:
		return nil, nil, fmt.Errorf("unsupported dataset location %q", location)
	}
}

// LoadResult is what Handle.Load returns. Latency is the duration of the call
// that produced it; InitialLatency is the duration of the read from the source.
type LoadResult struct {
	Dataset        *Dataset
	Latency        time.Duration
	InitialLatency time.Duration
	MemoryBytes    int64
	CacheHit       bool
	Source         string
	LoadedAt       time.Time
	Stats          models.DatasetStats
}

func (r *LoadResult) MemoryMB() float64 {
	return float64(r.MemoryBytes) / (1024 * 1024)
}

// Handle owns the process-wide dataset. The first Load reads the source;
// later calls return the same dataset until Clear is called.
type Handle struct {
	source      Source
	snapshotDir string
	logger      *slog.Logger

	mu     sync.Mutex
	cached *LoadResult
}

type HandleOption func(*Handle)

func WithLogger(logger *slog.Logger) HandleOption {
	return func(h *Handle) { h.logger = logger }
}

// WithSnapshotDir enables columnar snapshots of CSV sources in dir.
func WithSnapshotDir(dir string) HandleOption {
	return func(h *Handle) { h.snapshotDir = dir }
}

func NewHandle(source Source, opts ...HandleOption) *Handle {
	h := &Handle{
		source: source,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Preloaded wraps an already built dataset, mostly for tests.
func Preloaded(ds *Dataset) *Handle {
	h := NewHandle(nil)
	stats := ds.Stats()
	stats.Source = "memory"
	h.cached = &LoadResult{
		Dataset:     ds,
		MemoryBytes: ds.MemoryBytes(),
		Source:      "memory",
		LoadedAt:    time.Now(),
		Stats:       stats,
	}
	return h
}

func (h *Handle) Load(ctx context.Context) (*LoadResult, error) {
	start := time.Now()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cached != nil {
		res := *h.cached
		res.Latency = time.Since(start)
		res.CacheHit = true
		return &res, nil
	}
	if h.source == nil {
		return nil, fmt.Errorf("no dataset source configured")
	}

	ds, err := h.read(ctx)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	res := &LoadResult{
		Dataset:        ds,
		Latency:        elapsed,
		InitialLatency: elapsed,
		MemoryBytes:    ds.MemoryBytes(),
		Source:         h.source.Name(),
		LoadedAt:       time.Now(),
	}
	res.Stats = ds.Stats()
	res.Stats.Source = res.Source
	res.Stats.LoadSeconds = elapsed.Seconds()
	res.Stats.MemoryMB = res.MemoryMB()
	h.cached = res

	h.logger.Info("dataset loaded",
		"source", res.Source,
		"records", ds.Len(),
		"duration", elapsed,
		"memory_mb", fmt.Sprintf("%.2f", res.MemoryMB()),
		"price_anomalies", res.Stats.PriceAnomalies,
	)

	out := *res
	return &out, nil
}

// Clear drops the cached dataset; the next Load reads the source again.
func (h *Handle) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cached = nil
}

func (h *Handle) Loaded() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cached != nil
}

func (h *Handle) read(ctx context.Context) (*Dataset, error) {
	csvSource, ok := h.source.(*CSVSource)
	if !ok || h.snapshotDir == "" || len(csvSource.Categories) > 0 {
		return h.source.Read(ctx)
	}

	snapshot := h.snapshotPath(csvSource.Path)
	if ds, ok := h.loadSnapshot(ctx, csvSource.Path, snapshot); ok {
		return ds, nil
	}

	ds, err := h.source.Read(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.saveSnapshot(snapshot, ds); err != nil {
		h.logger.Warn("failed to save snapshot", "path", snapshot, "error", err)
	}
	return ds, nil
}

func (h *Handle) snapshotPath(csvPath string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(csvPath)
	return filepath.Join(h.snapshotDir, fmt.Sprintf("%s_%s%s", name, snapshotVersion, FileExt))
}

func (h *Handle) loadSnapshot(ctx context.Context, csvPath, snapshot string) (*Dataset, bool) {
	snapInfo, err := os.Stat(snapshot)
	if err != nil {
		return nil, false
	}
	csvInfo, err := os.Stat(csvPath)
	if err != nil || !csvInfo.ModTime().Before(snapInfo.ModTime()) {
		return nil, false
	}

	ds, err := ReadFile(ctx, snapshot)
	if err != nil {
		h.logger.Warn("ignoring unreadable snapshot", "path", snapshot, "error", err)
		return nil, false
	}
	h.logger.Info("loaded from snapshot", "path", snapshot, "records", ds.Len())
	return ds, true
}

func (h *Handle) saveSnapshot(snapshot string, ds *Dataset) error {
	if err := os.MkdirAll(h.snapshotDir, 0o755); err != nil {
		return err
	}
	return WriteFile(snapshot, ds)
}
