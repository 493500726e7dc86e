package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"amazon-dashboard/internal/errors"
	"amazon-dashboard/internal/models"
	"amazon-dashboard/internal/observability"
	"amazon-dashboard/internal/services"
	"amazon-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics      *services.Analytics
	defaultPercent int
	logger         *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, defaultPercent int, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics:      analytics,
		defaultPercent: defaultPercent,
		logger:         logger,
	}
}

// pageSignals are the dashboard signals sent with every request.
type pageSignals struct {
	Page     string
	Fraction int
	Category string
}

// rawSignals keeps fraction as a pointer so an explicit 0 stays distinct from
// a missing signal.
type rawSignals struct {
	Page     string `json:"page"`
	Fraction *int   `json:"fraction"`
	Category string `json:"category"`
}

func (h *SSEHandlers) readSignals(r *http.Request) (pageSignals, error) {
	var raw rawSignals
	if err := datastar.ReadSignals(r, &raw); err != nil {
		return pageSignals{}, errors.BadRequestWrap(err, "Invalid signals")
	}
	s := pageSignals{Page: raw.Page, Fraction: h.defaultPercent, Category: raw.Category}
	if s.Page == "" {
		s.Page = string(models.Pages[0].ID)
	}
	if raw.Fraction != nil {
		s.Fraction = *raw.Fraction
	}
	return s, nil
}

// HandlePage renders the requested page into the panels element and pushes
// the plotted chart specs into the _charts signal.
func (h *SSEHandlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	log := observability.RequestLogger(r.Context(), h.logger)

	signals, err := h.readSignals(r)
	if err != nil {
		errors.WriteError(r.Context(), w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
	defer cancel()

	view, renderErr := h.analytics.Render(ctx, services.RenderRequest{
		Page:            models.Page(signals.Page),
		FractionPercent: signals.Fraction,
		Category:        signals.Category,
	})

	sse := datastar.NewSSE(w, r)

	if renderErr != nil {
		appErr := errors.As(toAppError(renderErr))
		log.Warn("page render failed", "page", signals.Page, "code", appErr.Code, "error", renderErr)
		html, err := renderComponent(context.WithoutCancel(ctx), templates.ErrorPanel(appErr.Message))
		if err != nil {
			log.Error("render error panel", "error", err)
			return
		}
		if err := sse.PatchElements(html); err != nil {
			log.Debug("patch elements", "error", err)
		}
		return
	}

	html, err := renderComponent(ctx, templates.Panels(view))
	if err != nil {
		log.Error("render panels", "page", signals.Page, "error", err)
		return
	}
	if err := sse.PatchElements(html); err != nil {
		log.Debug("patch elements", "error", err)
		return
	}

	patch, err := json.Marshal(map[string]any{
		"page":     view.Page,
		"category": view.Category,
		"_charts":  templates.ClientCharts(view),
	})
	if err != nil {
		log.Error("marshal chart signals", "page", signals.Page, "error", err)
		return
	}
	if err := sse.PatchSignals(patch); err != nil {
		log.Debug("patch signals", "error", err)
	}
}

func renderComponent(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	err := c.Render(ctx, &sb)
	return sb.String(), err
}
