// Package server exposes the pipeline over HTTP.
//
// Every endpoint except /healthz takes the trace file as the request body,
// gzip-compressed or plain, and options as query parameters:
//
//	GET  /healthz
//	POST /v1/layout          layout model as JSON
//	POST /v1/render/{format} svg, png, pdf, json, dot or scopes
//	POST /v1/stats           summary as JSON
//
// Responses carry X-Cache: hit or miss. Errors are JSON objects with a
// machine-readable code.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/memtower/internal/config"
	"github.com/matzehuels/memtower/pkg/observability"
	"github.com/matzehuels/memtower/pkg/pipeline"
	"github.com/matzehuels/memtower/pkg/roles"
)

// Server serves the HTTP API.
type Server struct {
	cfg    config.Server
	runner *pipeline.Runner
	logger *log.Logger

	rules       []byte
	rulesFormat roles.Format
}

// New creates a server. The rules file named by cfg.Rules is read and
// validated once here and applied to every request.
func New(cfg config.Server, runner *pipeline.Runner, logger *log.Logger) (*Server, error) {
	s := &Server{cfg: cfg, runner: runner, logger: logger}
	if cfg.Rules != "" {
		data, err := os.ReadFile(cfg.Rules)
		if err != nil {
			return nil, fmt.Errorf("read rules: %w", err)
		}
		format := roles.FormatForPath(cfg.Rules)
		if _, err := roles.ParseFormat(data, format); err != nil {
			return nil, err
		}
		s.rules, s.rulesFormat = data, format
	}
	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(observe)
	r.Use(middleware.Recoverer)

	r.NotFound(s.handleNotFound)
	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/layout", s.handleLayout)
		r.Post("/render/{format}", s.handleRender)
		r.Post("/stats", s.handleStats)
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestID tags each request with the caller's X-Request-Id or a fresh
// UUID, echoes it in the response and stores it for middleware.GetReqID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// observe reports every request to the HTTP hooks.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}
