// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"proofread/internal/analyzer"
	"proofread/internal/config"
	"proofread/internal/logging"
	"proofread/internal/types"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

const shutdownGrace = 5 * time.Second

// Analyzer is the proofreading backend behind POST /analyze.
type Analyzer interface {
	Analyze(ctx context.Context, text string) analyzer.Result
}

// Settings configures the listener and request limits.
type Settings struct {
	Addr         string
	MaxBodyBytes int64
	ReadTimeout  time.Duration
}

// SettingsFromConfig reads the server section of cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Addr:         cfg.Server.Addr,
		MaxBodyBytes: cfg.GetMaxBodyBytes(),
		ReadTimeout:  cfg.GetReadTimeout(),
	}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Issues []types.Issue `json:"issues"`
}

// Server serves the proofreading API.
type Server struct {
	settings Settings
	analyzer Analyzer

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

// New returns a server backed by a.
func New(settings Settings, a Analyzer) *Server {
	if settings.MaxBodyBytes <= 0 {
		settings.MaxBodyBytes = config.DefaultMaxBodyBytes
	}
	if settings.ReadTimeout <= 0 {
		settings.ReadTimeout = config.DefaultReadTimeout
	}
	if settings.Addr == "" {
		settings.Addr = config.DefaultAddr
	}
	return &Server{settings: settings, analyzer: a}
}

// Handler returns the routed handler with request ids applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/healthz", s.handleHealth)
	return withRequestID(mux)
}

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("server already started")
	}

	listener, err := net.Listen("tcp", s.settings.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.settings.Addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.settings.ReadTimeout,
		ReadHeaderTimeout: s.settings.ReadTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.listener = listener
	s.server = srv
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ServerError("serve error: %v", err)
		}
	}(s.done)

	logging.Server("listening on %s", listener.Addr().String())
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	<-s.done
	s.server = nil
	s.listener = nil
	logging.Server("stopped")
	return err
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := logging.WithRequestID(logging.CategoryServer, w.Header().Get(RequestIDHeader))

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			log.Warn("request body exceeds %d bytes", maxErr.Limit)
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "payload exceeds limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unable to read body"})
		return
	}

	var req analyzeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		log.Debug("invalid request JSON: %v", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	res := s.analyzer.Analyze(r.Context(), req.Text)
	if !res.OK() {
		log.Error("analysis failed: %v", res.Err)
	} else {
		log.Info("analyzed: status=%s method=%s issues=%d", res.Status, res.Method, len(res.Issues))
	}
	writeJSON(w, http.StatusOK, analyzeResponse{Issues: res.IssuesOrEmpty()})
}

// withRequestID echoes a caller's X-Request-ID or assigns a fresh one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		logging.ServerError("write response: %v", err)
	}
}
