// Package server exposes the tracer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"pytrace/internal/driver"
	"pytrace/internal/record"
	"pytrace/internal/version"
)

// scriptName is the frame identity of submitted code.
const scriptName = "main.py"

type Config struct {
	Addr string
	// MaxConcurrent bounds simultaneously executing runs; further requests
	// wait for a slot until their context ends.
	MaxConcurrent int
	// RequestTimeout bounds the wait for a slot plus the run. Zero means
	// no bound beyond the run timeout.
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	Run            driver.Options
	Logger         *slog.Logger
	Metrics        *Metrics
}

type Server struct {
	cfg     Config
	log     *slog.Logger
	metrics *Metrics
	slots   *semaphore.Weighted
	router  chi.Router
}

// RunRequest is the body of POST /run and POST /trace.
type RunRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type RunResponse struct {
	Trace []record.Step `json:"trace"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func New(cfg Config) *Server {
	if cfg.MaxConcurrent < 1 {
		cfg.MaxConcurrent = 1
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NewMetrics()
	}
	s := &Server{
		cfg:     cfg,
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		slots:   semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	r.Post("/run", s.handleRun)
	r.Post("/trace", s.handleRun)
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on cfg.Addr until ctx ends, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("serving", "addr", ln.Addr().String(), "max_concurrent", s.cfg.MaxConcurrent)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		s.log.Warn("invalid request body", "err", err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "No code provided")
		return
	}
	if req.Language != "python" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Language '%s' is not supported yet", req.Language))
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}
	if err := s.slots.Acquire(ctx, 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, "Server busy")
		return
	}
	s.metrics.inflight.Inc()
	start := time.Now()
	tr := driver.RunSource(ctx, scriptName, []byte(req.Code), s.cfg.Run)
	elapsed := time.Since(start)
	s.metrics.inflight.Dec()
	s.slots.Release(1)

	s.metrics.observe(tr, elapsed)
	s.log.Debug("run finished",
		"request_id", middleware.GetReqID(ctx),
		"steps", tr.Len(),
		"outcome", tr.Outcome.String(),
		"duration", elapsed,
	)
	writeJSON(w, http.StatusOK, RunResponse{Trace: tr.Steps})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, version.Get())
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		slog.Error("response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
