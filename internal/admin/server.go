// Package admin serves the operational HTTP surface: liveness, channel
// status, and Prometheus metrics.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/convobridge/convobridge/internal/channel"
	"github.com/convobridge/convobridge/pkg/message"
)

// Server is the admin HTTP server.
type Server struct {
	addr      string
	channels  *channel.Registry
	metrics   *Metrics
	logger    *slog.Logger
	startedAt time.Time

	srv *http.Server
}

// NewServer creates an admin server listening on addr once started.
func NewServer(addr string, channels *channel.Registry, metrics *Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		channels:  channels,
		metrics:   metrics,
		logger:    logger.With("component", "admin"),
		startedAt: time.Now(),
	}
}

// Handler constructs the chi mux with all routes wired.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth())
	r.Get("/status", s.handleStatus())
	r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	return r
}

// Start begins serving in the background.
func (s *Server) Start() {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		s.logger.Info("admin server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("admin server failed", "error", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"` // "ok" or "degraded"
	Channels int    `json:"channels"`
}

// handleHealth returns 200 when every enabled channel is connected, 503
// otherwise.
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := HealthResponse{Status: "ok", Channels: s.channels.Len()}
		for _, ch := range s.channels.List() {
			if ch.Config().Enabled && ch.Status().State != channel.StateConnected {
				resp.Status = "degraded"
				break
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// ChannelStatus is one channel's entry in the status response.
type ChannelStatus struct {
	ID        string           `json:"id"`
	Platform  message.Platform `json:"platform"`
	Enabled   bool             `json:"enabled"`
	State     channel.State    `json:"state"`
	LastError string           `json:"last_error,omitempty"`
	UptimeMs  int64            `json:"uptime_ms"`
}

// StatusResponse is the JSON response for GET /status.
type StatusResponse struct {
	UptimeSeconds int64           `json:"uptime_seconds"`
	Channels      []ChannelStatus `json:"channels"`
}

func (s *Server) handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := StatusResponse{
			UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		}
		for _, ch := range s.channels.List() {
			cfg := ch.Config()
			st := ch.Status()
			resp.Channels = append(resp.Channels, ChannelStatus{
				ID:        cfg.ID,
				Platform:  cfg.Platform,
				Enabled:   cfg.Enabled,
				State:     st.State,
				LastError: st.LastError,
				UptimeMs:  st.UptimeMs,
			})
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
