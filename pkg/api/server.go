package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cuemby/drbridge/pkg/log"
	"github.com/cuemby/drbridge/pkg/metrics"
	"github.com/cuemby/drbridge/pkg/types"
	"github.com/rs/zerolog"
)

// RequestReader is the read side of the local store
type RequestReader interface {
	GetRequest(id uint64) (*types.DataRequest, error)
	ListRequests(state types.DrState) ([]*types.DataRequest, error)
}

// Server exposes health, metrics and the stored data requests over HTTP
type Server struct {
	store  RequestReader
	mux    *http.ServeMux
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new HTTP API server listening on addr once started
func NewServer(addr string, store RequestReader) *Server {
	s := &Server{
		store:  store,
		mux:    http.NewServeMux(),
		logger: log.WithComponent("api"),
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.handle("/health", metrics.HealthHandler())
	s.handle("/ready", metrics.ReadyHandler())
	s.handle("/live", metrics.LivenessHandler())
	s.handle("/metrics", metrics.Handler())
	s.handle("/v1/requests", http.HandlerFunc(s.listRequests))
	s.handle("/v1/requests/{id}", http.HandlerFunc(s.getRequest))

	return s
}

func (s *Server) handle(pattern string, h http.Handler) {
	s.mux.Handle(pattern, readOnly(instrument(pattern, h)))
}

// Start listens and serves until Shutdown. It returns nil after a clean
// shutdown, including a Shutdown that ran before Start.
func (s *Server) Start() error {
	metrics.RegisterComponent(metrics.ComponentAPI, true, "")
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		metrics.UpdateComponent(metrics.ComponentAPI, false, err.Error())
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for embedding in other servers
func (s *Server) Handler() http.Handler {
	return s.mux
}
