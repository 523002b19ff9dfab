// Package server wires the document, ot, store, and session packages up
// to an HTTP/WebSocket transport.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/shiv248/kolabpad/pkg/logger"
	"github.com/shiv248/kolabpad/pkg/session"
	"github.com/shiv248/kolabpad/pkg/store"
)

// Config holds the tunables that vary between a production deployment
// and a test harness.
type Config struct {
	MaxDocumentSize int // bytes; 0 disables the limit
	WSReadTimeout   time.Duration
	WSWriteTimeout  time.Duration
}

// Stats represents server statistics.
type Stats struct {
	StartTime      int64 `json:"start_time"` // Unix timestamp
	ActiveSessions int   `json:"active_sessions"`
}

// Server is the main HTTP server.
type Server struct {
	manager   *session.Manager
	store     store.Store
	config    Config
	startTime time.Time
	mux       *http.ServeMux
}

// NewServer creates a new HTTP server backed by s.
func NewServer(s store.Store, config Config) *Server {
	srv := &Server{
		manager:   session.NewManager(s),
		store:     s,
		config:    config,
		startTime: time.Now(),
		mux:       http.NewServeMux(),
	}

	srv.mux.HandleFunc("/api/socket/", srv.handleSocket)
	srv.mux.HandleFunc("/api/text/", srv.handleText)
	srv.mux.HandleFunc("/api/stats", srv.handleStats)

	return srv
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleSocket handles WebSocket connections for collaborative editing.
// Route: /api/socket/{path}
func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/socket/")
	if path == "" {
		http.Error(w, "document path required", http.StatusBadRequest)
		return
	}

	stream, err := session.Join(s.manager, path)
	if err != nil {
		logger.Error("joining session %s: %v", path, err)
		http.Error(w, "failed to join document", http.StatusInternalServerError)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		logger.Error("WebSocket upgrade failed: %v", err)
		stream.Close()
		return
	}

	connHandler := NewConnection(stream, conn, s.config.WSReadTimeout, s.config.WSWriteTimeout, s.config.MaxDocumentSize)
	if err := connHandler.Handle(r.Context()); err != nil {
		logger.Error("connection error for %s: %v", path, err)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}

// handleText returns the current document text.
// Route: /api/text/{path}
func (s *Server) handleText(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/text/")
	if path == "" {
		http.Error(w, "document path required", http.StatusBadRequest)
		return
	}

	_, doc, err := s.store.Content(path)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err != nil {
		if se, ok := err.(*store.Error); ok && se.Kind == store.NotFound {
			w.Write([]byte(""))
			return
		}
		logger.Error("loading document %s: %v", path, err)
		http.Error(w, "failed to load document", http.StatusInternalServerError)
		return
	}
	w.Write([]byte(doc.Content))
}

// handleStats returns server statistics.
// Route: /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := Stats{
		StartTime:      s.startTime.Unix(),
		ActiveSessions: s.manager.ActiveSessions(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe(addr string) error {
	logger.Info("server listening on %s", addr)
	return http.ListenAndServe(addr, s)
}

// Shutdown returns nil without doing anything: it does not stop the
// listener or close open connections. Sessions are reclaimed only as
// their connections close.
func (s *Server) Shutdown(ctx context.Context) error {
	return nil
}
