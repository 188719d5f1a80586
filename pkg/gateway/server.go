package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dotsetgreg/dotchat/pkg/agent"
	"github.com/dotsetgreg/dotchat/pkg/config"
	"github.com/dotsetgreg/dotchat/pkg/convo"
	"github.com/dotsetgreg/dotchat/pkg/logger"
	"github.com/dotsetgreg/dotchat/pkg/metrics"
	"github.com/dotsetgreg/dotchat/pkg/providers"
)

// Server is the HTTP/WebSocket front door: chat streaming, the
// conversation and project REST surface, health, and metrics.
type Server struct {
	cfg      *config.Config
	orch     *agent.Orchestrator
	store    *convo.Store
	registry *providers.Registry
	upgrader websocket.Upgrader
}

func NewServer(cfg *config.Config, orch *agent.Orchestrator, store *convo.Store, registry *providers.Registry) *Server {
	return &Server{
		cfg:      cfg,
		orch:     orch,
		store:    store,
		registry: registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler builds the route table. Split out from Run for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/stream", s.handleChatStream)
	mux.HandleFunc("GET /ws", s.handleWS)

	mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	mux.HandleFunc("DELETE /api/conversations", s.handleClearConversations)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("POST /api/conversations/{id}/rename", s.handleRenameConversation)

	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("POST /api/projects", s.handleCreateProject)
	mux.HandleFunc("GET /api/projects/{id}", s.handleGetProject)
	mux.HandleFunc("DELETE /api/projects/{id}", s.handleDeleteProject)

	return s.instrument(mux)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.InfoCF("gateway", "Gateway listening",
			map[string]interface{}{"addr": addr})
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			// The upgrader needs the raw ResponseWriter.
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		metrics.RequestCount.WithLabelValues(r.Method, endpoint, fmt.Sprintf("%d", rec.status)).Inc()
		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		logger.DebugCF("gateway", "Request handled",
			map[string]interface{}{
				"method":      r.Method,
				"path":        endpoint,
				"status":      rec.status,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"providers": s.registry.Names(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WarnCF("gateway", "Response encode failed",
			map[string]interface{}{"error": err.Error()})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
