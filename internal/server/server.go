// Package server exposes the bowtie catalog, tenant mappings, contacts, and
// interactive journey sessions over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sells-group/journey-mapper/internal/journey"
	"github.com/sells-group/journey-mapper/internal/mapping"
	"github.com/sells-group/journey-mapper/internal/model"
	"github.com/sells-group/journey-mapper/internal/source"
)

// Engine is the mapping engine surface the API needs.
type Engine interface {
	journey.Resolver
	Lookup(ctx context.Context, tenantID string, stages []model.SourceStage) (*mapping.Resolution, error)
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Default: none.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) { s.origins = origins }
}

// WithMetricsHandler overrides the /metrics handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithSessionTTL closes sessions idle for longer than d. Zero or negative
// keeps them until deleted or the server closes. Default: 30 minutes.
func WithSessionTTL(d time.Duration) Option {
	return func(s *Server) { s.sessions.ttl = d }
}

// Server routes API requests to the engine, the CRM source, and sessions.
type Server struct {
	engine   Engine
	source   source.Adapter
	sessions *sessions
	origins  []string
	metrics  http.Handler
	router   chi.Router
}

// New builds a Server and its routes.
func New(engine Engine, src source.Adapter, opts ...Option) *Server {
	s := &Server{
		engine:   engine,
		source:   src,
		sessions: newSessions(),
		metrics:  promhttp.Handler(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Close closes every open session.
func (s *Server) Close() {
	s.sessions.closeAll()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics)

	r.Route("/bowtie/stages", func(r chi.Router) {
		r.Get("/", s.listBowtieStages)
		r.Get("/{stageID}", s.getBowtieStage)
	})

	r.Route("/tenants/{tenantID}", func(r chi.Router) {
		r.Get("/stages", s.listTenantStages)
		r.Get("/mapping", s.getMapping)
		r.Post("/mapping/regenerate", s.regenerateMapping)
		r.Get("/contacts", s.searchContacts)
		r.Get("/contacts/{contactID}", s.getContact)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.createSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.getSession)
			r.Delete("/", s.closeSession)
			r.Post("/toggle/{stageID}", s.toggleStage)
			r.Put("/contact", s.selectContact)
			r.Delete("/contact", s.clearContact)
			r.Post("/regenerate", s.regenerateSession)
			r.Delete("/notice", s.dismissNotice)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
