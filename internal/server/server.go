package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/attune-oss/attune/internal/chat"
	"github.com/attune-oss/attune/internal/config"
	"github.com/attune-oss/attune/internal/memory"
	"github.com/attune-oss/attune/internal/store"
	"github.com/attune-oss/attune/internal/telemetry"
)

// Server is the attune HTTP API server.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	memory  *memory.Manager
	orch    *chat.Orchestrator
	auth    Authenticator
	logger  *telemetry.Logger
	metrics *telemetry.Metrics
}

// New creates a new server instance. A nil auth falls back to the
// header-based authenticator.
func New(cfg *config.Config, st *store.Store, mem *memory.Manager, orch *chat.Orchestrator, auth Authenticator, logger *telemetry.Logger, metrics *telemetry.Metrics) *Server {
	if auth == nil {
		auth = NewHeaderAuthenticator("")
	}
	return &Server{
		cfg:     cfg,
		store:   st,
		memory:  mem,
		orch:    orch,
		auth:    auth,
		logger:  logger,
		metrics: metrics,
	}
}

// Handler returns the full route tree, wrapped in middleware. Exposed so
// embedders and tests can mount the API without a listening socket.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.setupRoutes())
}

// Start starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting attune server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Health and metrics
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/metrics", s.handleMetrics)

	// Chat (SSE streaming turn)
	mux.HandleFunc("POST /api/chat", s.handleChat)

	// Agents
	mux.HandleFunc("GET /api/agents", s.handleListAgents)
	mux.HandleFunc("GET /api/agents/{id}", s.handleGetAgent)
	mux.HandleFunc("POST /api/agents", s.handleCreateAgent)
	mux.HandleFunc("DELETE /api/agents/{id}", s.handleDeleteAgent)

	// Models
	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("POST /api/models", s.handleCreateModel)
	mux.HandleFunc("DELETE /api/models/{id}", s.handleDeleteModel)

	// Conversations
	mux.HandleFunc("GET /api/conversations", s.handleListConversations)
	mux.HandleFunc("GET /api/conversations/{id}", s.handleGetConversation)
	mux.HandleFunc("POST /api/conversations", s.handleCreateConversation)
	mux.HandleFunc("DELETE /api/conversations/{id}", s.handleDeleteConversation)
	mux.HandleFunc("GET /api/conversations/{id}/messages", s.handleListMessages)

	// Memories
	mux.HandleFunc("GET /api/memories", s.handleListMemories)
	mux.HandleFunc("GET /api/memories/search", s.handleSearchMemories)
	mux.HandleFunc("POST /api/memories", s.handleCreateMemory)
	mux.HandleFunc("DELETE /api/memories/{id}", s.handleDeleteMemory)

	return mux
}

// corsMiddleware adds CORS headers for development mode.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Attune-User")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
