package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"protscope/internal/metrics"
)

// RouterConfig collects what the router mounts besides the API handlers
type RouterConfig struct {
	Events      http.Handler // SSE stream, optional
	Metrics     *metrics.Collector
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter wires middleware and routes around h
func NewRouter(h *PipelineHandler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(Logger(logger))
	if cfg.Metrics != nil {
		router.Use(Metrics(cfg.Metrics))
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:         300,
	}))

	router.Get("/health", h.Health)
	if cfg.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	if cfg.Events != nil {
		router.Method(http.MethodGet, "/events", cfg.Events)
	}

	router.Route("/api", func(r chi.Router) {
		r.Post("/normalize", h.NormalizeDocument)
		r.Post("/align", h.AlignSequences)
		r.Post("/interactions/graph", h.BuildGraph)

		r.Route("/records/{id}", func(r chi.Router) {
			r.Get("/", h.GetRecord)
			r.Get("/export", h.ExportRecord)
			r.Post("/align", h.AlignToRecord)
			r.Get("/interactions", h.GetInteractions)
			r.Post("/report", h.Report)
		})
	})

	return router
}
