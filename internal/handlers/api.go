package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"amazon-dashboard/internal/dataset"
	"amazon-dashboard/internal/errors"
	"amazon-dashboard/internal/models"
	"amazon-dashboard/internal/observability"
	"amazon-dashboard/internal/services"
)

const (
	cacheMaxAge   = "public, max-age=300"
	renderTimeout = 10 * time.Second
	version       = "1.0.0"
)

type APIHandlers struct {
	analytics      *services.Analytics
	defaultPercent int
	logger         *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, defaultPercent int, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics:      analytics,
		defaultPercent: defaultPercent,
		logger:         logger,
	}
}

func (h *APIHandlers) HandlePages(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Pages(), map[string]string{
		"Cache-Control": cacheMaxAge,
	})
}

// HandlePage renders one page as JSON: GET /api/pages/{page}?fraction=&category=
func (h *APIHandlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	percent, err := parsePercent(r.URL.Query().Get("fraction"), h.defaultPercent)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	view, err := h.analytics.Render(ctx, services.RenderRequest{
		Page:            models.Page(mux.Vars(r)["page"]),
		FractionPercent: percent,
		Category:        r.URL.Query().Get("category"),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	errors.WriteSuccess(w, view)
}

func (h *APIHandlers) HandleDataset(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	errors.WriteSuccess(w, stats)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !h.analytics.Ready() {
		status = "loading"
	}

	w.Header().Set("Cache-Control", "no-store")
	errors.WriteSuccess(w, map[string]string{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
	})
}

type runtimeStats struct {
	Goroutines int     `json:"goroutines"`
	HeapMB     float64 `json:"heap_mb"`
	NumGC      uint32  `json:"num_gc"`
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.Stats(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	errors.WriteSuccess(w, map[string]any{
		"dataset": stats,
		"runtime": runtimeStats{
			Goroutines: runtime.NumGoroutine(),
			HeapMB:     float64(mem.HeapAlloc) / (1 << 20),
			NumGC:      mem.NumGC,
		},
	})
}

func (h *APIHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(r.Context(), w, h.logger, toAppError(err), observability.GetRequestID(r.Context()))
}

// parsePercent reads the fraction query value, an integer percentage.
func parsePercent(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationWrap(err, "fraction must be an integer percentage between 1 and 100")
	}
	return n, nil
}

// toAppError maps domain errors onto API error codes.
func toAppError(err error) error {
	if appErr := errors.As(err); appErr != nil {
		return appErr
	}
	switch {
	case stderrors.Is(err, services.ErrUnknownPage):
		return errors.NotFoundWrap(err, "Page not found")
	case stderrors.Is(err, dataset.ErrInvalidFraction):
		return errors.ValidationWrap(err, "fraction must be an integer percentage between 1 and 100")
	case stderrors.Is(err, dataset.ErrNotFound), isParseError(err):
		return errors.ServiceUnavailableWrap(err, "Dataset is unavailable")
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return errors.ServiceUnavailableWrap(err, "Request timed out")
	default:
		return errors.InternalWrap(err, "An unexpected error occurred")
	}
}

func isParseError(err error) bool {
	var pe *dataset.ParseError
	return stderrors.As(err, &pe)
}
