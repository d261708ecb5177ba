// Package server exposes the conversion pipeline over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/osbtools/form31-converter/internal/config"
	"github.com/osbtools/form31-converter/internal/convert"
	"github.com/osbtools/form31-converter/internal/jobs"
)

// Server is the HTTP front end of the conversion service.
type Server struct {
	cfg     *config.Config
	service *convert.Service
	store   *jobs.Store
	logger  zerolog.Logger
	http    *http.Server
}

func New(cfg *config.Config, service *convert.Service, store *jobs.Store, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		service: service,
		store:   store,
		logger:  logger.With().Str("component", "http").Logger(),
	}
	s.http = &http.Server{
		Addr:              cfg.Address(),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Router builds the route tree. It is exported so tests can drive the
// handlers through httptest without a listening socket.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
		r.Get("/download/{filename}", s.handleDownload)
		r.Get("/status/{jobID}", s.handleStatus)
	})

	return r
}

// Start begins serving and blocks until the listener closes.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.http.Addr).Msg("HTTP server listening")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// requestLogger logs one line per request with method, path, status and
// duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("requestId", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
