package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"amazon-dashboard/internal/config"
	"amazon-dashboard/internal/dataset"
	"amazon-dashboard/internal/middleware"
	"amazon-dashboard/internal/models"
	"amazon-dashboard/internal/observability"
	"amazon-dashboard/internal/server"
	"amazon-dashboard/internal/services"
	"amazon-dashboard/internal/ui/templates"
)

const cacheMaxAge = "public, max-age=300"

func dashboardHandler(pages []models.PageInfo, defaultPercent int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", cacheMaxAge)
		if err := templates.Dashboard(pages, defaultPercent).Render(r.Context(), w); err != nil {
			http.Error(w, "render error", http.StatusInternalServerError)
		}
	}
}

func newHandler(cfg *config.Config, analytics *services.Analytics, logger *slog.Logger) http.Handler {
	srv := server.NewServer(analytics, cfg.Sample.DefaultPercent, logger, &server.TemplateHandlers{
		Dashboard: dashboardHandler(analytics.Pages(), cfg.Sample.DefaultPercent),
	})

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.Security), logger),
	)
	return middlewareChain(srv)
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", "1.0.0",
		"dataset", cfg.Dataset.Path,
		"categories", cfg.Dataset.Categories,
		"sample_seed", cfg.Sample.Seed,
		"default_percent", cfg.Sample.DefaultPercent,
	)

	source, closeSource, err := dataset.OpenSource(cfg.Dataset.Path, cfg.Dataset.Table, cfg.Dataset.Categories)
	if err != nil {
		logger.Error("failed to open dataset source", "path", cfg.Dataset.Path, "error", err)
		os.Exit(1)
	}
	handle := dataset.NewHandle(source,
		dataset.WithLogger(logger),
		dataset.WithSnapshotDir(cfg.Dataset.CacheDir),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Dataset.LoadTimeout)
	res, err := handle.Load(ctx)
	cancel()
	if err != nil {
		logger.Error("failed to load dataset", "source", source.Name(), "error", err)
		closeSource()
		os.Exit(1)
	}
	logger.Info("dataset ready",
		"rows", res.Dataset.Len(),
		"duration", res.InitialLatency,
		"memory_mb", res.MemoryMB(),
	)

	analytics := services.NewAnalytics(handle, cfg.Sample.Seed, logger)

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      newHandler(cfg, analytics, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("releasing dataset")
		analytics.Release()
		return nil
	})
	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		return closeSource()
	})

	if err := gracefulServer.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
