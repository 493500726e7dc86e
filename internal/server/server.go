package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"amazon-dashboard/internal/errors"
	"amazon-dashboard/internal/handlers"
	"amazon-dashboard/internal/observability"
	"amazon-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	router      *mux.Router
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, defaultPercent int, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		router:      mux.NewRouter(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, defaultPercent, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, defaultPercent, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	r := s.router

	// Dashboard routes
	r.HandleFunc("/", templateHandlers.Dashboard).Methods(http.MethodGet)
	r.HandleFunc("/health", s.apiHandlers.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/admin/stats", s.apiHandlers.HandleStats).Methods(http.MethodGet)

	// REST API endpoints
	r.HandleFunc("/api/pages", s.apiHandlers.HandlePages).Methods(http.MethodGet)
	r.HandleFunc("/api/pages/{page}", s.apiHandlers.HandlePage).Methods(http.MethodGet)
	r.HandleFunc("/api/dataset", s.apiHandlers.HandleDataset).Methods(http.MethodGet)

	// Datastar SSE endpoints
	r.HandleFunc("/sse/page", s.sseHandlers.HandlePage).Methods(http.MethodGet)

	r.NotFoundHandler = s.errorHandler(errors.CodeNotFound, "Route not found")
	r.MethodNotAllowedHandler = s.errorHandler(errors.CodeMethodNotAllowed, "Method not allowed")
}

func (s *Server) errorHandler(code errors.ErrorCode, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(r.Context(), w, s.logger, errors.New(code, message), observability.GetRequestID(r.Context()))
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
