package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/cors"

	"followscope/pkg/config"
	"followscope/pkg/logger"
	"followscope/pkg/metrics"
)

// Server is the relay HTTP surface: /ws, /metrics and /health
type Server struct {
	hub     *Hub
	cfg     config.RelayConfig
	logger  logger.Logger
	started time.Time
	srv     *http.Server
	addr    string
}

// NewServer creates a server for hub
func NewServer(cfg config.RelayConfig, hub *Hub, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Server{hub: hub, cfg: cfg, logger: log, started: time.Now()}
}

// Handler returns the CORS-wrapped mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.ServeWS)
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /health", s.health)

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(mux)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"clients": s.hub.Clients(),
		"uptime":  time.Since(s.started).Round(time.Second).String(),
	})
}

// Start listens on the configured address and serves in the background
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.InfoWithFields("relay listening", map[string]interface{}{"address": s.addr})
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("relay server stopped")
		}
	}()
	return nil
}

// Addr returns the bound address once started
func (s *Server) Addr() string {
	return s.addr
}

// Shutdown disconnects clients and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
