// Package server exposes the ingestion pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leonardotrapani/sttbridge/internal/metrics"
	"github.com/leonardotrapani/sttbridge/internal/pipeline"
)

type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxBodyBytes   int64
	MetricsEnabled bool
	MetricsPath    string
}

type Server struct {
	server     *http.Server
	controller *pipeline.Controller
	metrics    *metrics.Metrics
	logger     *slog.Logger
	maxBody    int64
}

// New builds the HTTP API. gatherer may be nil when metrics are disabled.
func New(cfg Config, c *pipeline.Controller, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		controller: c,
		metrics:    m,
		logger:     logger.With(slog.String("component", "http")),
		maxBody:    cfg.MaxBodyBytes,
	}

	mux := http.NewServeMux()
	s.setupRoutes(mux, cfg, gatherer)

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes(mux *http.ServeMux, cfg Config, gatherer prometheus.Gatherer) {
	mux.HandleFunc("POST /audio", s.withMetrics("/audio", s.handleAudio))
	mux.HandleFunc("GET /transcription", s.withMetrics("/transcription", s.handleTranscription))
	mux.HandleFunc("POST /mode", s.withMetrics("/mode", s.handleMode))
	mux.HandleFunc("GET /status", s.withMetrics("/status", s.handleStatus))
	mux.HandleFunc("GET /{$}", s.withMetrics("/", s.handleRoot))

	if cfg.MetricsEnabled && gatherer != nil {
		mux.Handle("GET "+cfg.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// withMetrics wraps an HTTP handler with metrics collection
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		handler(ww, r)

		s.metrics.RecordHTTPRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), time.Since(start).Seconds())
		if ww.statusCode >= 500 {
			s.logger.Warn("request failed", slog.String("endpoint", endpoint), slog.Int("status", ww.statusCode))
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("HTTP API listening", slog.String("address", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.logger.Info("stopping HTTP API")
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}
