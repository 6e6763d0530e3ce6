// Package api provides the HTTP and WebSocket surface over the run
// registry. It is thin glue: request decoding, error mapping and response
// encoding; all simulation logic lives behind the registry boundary.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"
	"github.com/vibetrading/sim-backend/internal/runs"
	"github.com/vibetrading/sim-backend/pkg/types"
	"go.uber.org/zap"
)

// Server is the HTTP/WebSocket API server
type Server struct {
	logger     *zap.Logger
	config     *types.ServerConfig
	router     *mux.Router
	httpServer *http.Server
	upgrader   websocket.Upgrader
	registry   *runs.Registry
	hub        *Hub
	metrics    *Metrics

	mu           sync.Mutex
	finishedSeen map[string]bool
}

// NewServer creates a new API server wired to the given registry.
func NewServer(logger *zap.Logger, config *types.ServerConfig, registry *runs.Registry) *Server {
	s := &Server{
		logger:       logger,
		config:       config,
		router:       mux.NewRouter(),
		registry:     registry,
		hub:          NewHub(logger),
		metrics:      NewMetrics(),
		finishedSeen: make(map[string]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // origin policy is enforced by the cors layer
			},
		},
	}

	registry.OnUpdate(s.onRunUpdate)
	s.setupRoutes()
	return s
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.router.HandleFunc("/api/runs", s.handleCreateRun).Methods("POST")
	s.router.HandleFunc("/api/runs/{id}", s.handleGetRunStatus).Methods("GET")
	s.router.HandleFunc("/api/runs/{id}/report", s.handleGetRunReport).Methods("GET")
	s.router.HandleFunc("/api/runs/{id}/deploy", s.handleDeployRun).Methods("POST")
	s.router.HandleFunc("/api/history", s.handleGetHistory).Methods("GET")

	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	handler := cors.New(cors.Options{
		AllowedOrigins:   s.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	go s.hub.Run()

	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.httpServer.ListenAndServe()
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.hub.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// onRunUpdate fans a status snapshot out to WebSocket subscribers and
// records terminal transitions in the metrics, once per run.
func (s *Server) onRunUpdate(status types.RunStatus) {
	s.hub.Publish(status)

	if !status.State.Terminal() {
		return
	}
	s.mu.Lock()
	seen := s.finishedSeen[status.RunID]
	if !seen {
		s.finishedSeen[status.RunID] = true
	}
	s.mu.Unlock()
	if !seen {
		var total time.Duration
		for _, step := range status.Steps {
			total += step.Duration
		}
		s.metrics.RunFinished(status.State, total)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
