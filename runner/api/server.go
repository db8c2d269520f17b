package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
)

// Server exposes the exporter's textfile and its own metrics over HTTP
type Server interface {
	Start(ctx context.Context) error
	Stop() error
	Handler() http.Handler
}

// server implements the HTTP server
type server struct {
	addr         string
	textfilePath string
	gatherer     prometheus.Gatherer
	log          logrus.FieldLogger
	httpServer   *http.Server
}

// NewServer creates a server serving textfilePath on /metrics and gatherer on /-/metrics
func NewServer(addr, textfilePath string, gatherer prometheus.Gatherer, log logrus.FieldLogger) Server {
	return &server{
		addr:         addr,
		textfilePath: textfilePath,
		gatherer:     gatherer,
		log:          log.WithField("component", "api-server"),
	}
}

// Start binds the listen address and begins serving in the background.
// A bind failure is returned to the caller.
func (s *server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		s.log.WithField("addr", listener.Addr().String()).Info("HTTP server listening")
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.WithError(err).Error("Failed to shutdown HTTP server gracefully")
		return err
	}

	s.log.Info("HTTP server stopped")
	return nil
}

// Handler returns the router with all routes and middleware
func (s *server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.loggingMiddleware)
	router.Use(s.recoverMiddleware)

	router.HandleFunc("/metrics", s.handleTextfile).Methods(http.MethodGet, http.MethodHead)
	router.Handle("/-/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/-/healthy", s.handleHealthy).Methods(http.MethodGet)
	router.HandleFunc("/-/ready", s.handleReady).Methods(http.MethodGet)

	return router
}

// handleTextfile serves the last committed textfile
func (s *server) handleTextfile(w http.ResponseWriter, r *http.Request) {
	data, err := os.ReadFile(s.textfilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.writeErrorResponse(w, http.StatusServiceUnavailable, "no metrics collected yet")
			return
		}
		s.log.WithError(err).Error("Failed to read textfile")
		s.writeErrorResponse(w, http.StatusInternalServerError, "failed to read metrics")
		return
	}

	w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(data); err != nil {
		s.log.WithError(err).Debug("Failed to write textfile response")
	}
}

func (s *server) handleHealthy(w http.ResponseWriter, r *http.Request) {
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// handleReady reports ready once a textfile has been committed
func (s *server) handleReady(w http.ResponseWriter, r *http.Request) {
	info, err := os.Stat(s.textfilePath)
	if err != nil {
		s.writeErrorResponse(w, http.StatusServiceUnavailable, "no metrics collected yet")
		return
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status":   "ready",
		"modified": info.ModTime().UTC().Format(time.RFC3339),
	})
}

// loggingMiddleware logs each request
func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		s.log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapper.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Debug("HTTP request processed")
	})
}

// recoverMiddleware turns handler panics into 500 responses
func (s *server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.log.WithField("error", err).Error("Panic in HTTP handler")
				s.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriterWrapper captures the status code written by a handler
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.WithError(err).Error("Failed to encode JSON response")
	}
}

func (s *server) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":   true,
		"message": message,
		"status":  statusCode,
	})
}
