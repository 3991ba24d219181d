// Package server exposes search space normalization and asynchronous
// optimization runs over HTTP and JSON-RPC 2.0.
package server

import (
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/config"
	"github.com/copyleftdev/hypertune/internal/metrics"
	"github.com/copyleftdev/hypertune/internal/searchspace"
	"github.com/copyleftdev/hypertune/internal/solver"
)

// Server implements the HTTP and JSON-RPC server for the optimization service.
// It manages optimization runs and provides endpoints to start, monitor, and cancel them.
type Server struct {
	cfg        *config.Config
	registry   *solver.Registry
	normalizer *searchspace.Normalizer
	logger     *zap.Logger
	metrics    *metrics.Metrics

	// Limits concurrently executing runs
	workers chan struct{}
	wg      sync.WaitGroup

	runs   map[string]*RunState
	runsMu sync.RWMutex // Protects the runs map and every RunState in it
}

// NewServer creates a new server. A nil logger disables logging and nil
// metrics record nothing.
func NewServer(cfg *config.Config, registry *solver.Registry, logger *zap.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Solver.Workers
	if workers < 1 {
		workers = 1
	}
	return &Server{
		cfg:        cfg,
		registry:   registry,
		normalizer: searchspace.NewNormalizer(logger),
		logger:     logger.Named("server"),
		metrics:    m,
		workers:    make(chan struct{}, workers),
		runs:       make(map[string]*RunState),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/searchspace", s.handleNormalize)
		r.Post("/optimize", s.handleOptimize)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/optimization/{id}", s.handleCancel)
		r.Get("/solvers", s.handleSolvers)
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// Close cancels all runs and waits for them to stop.
func (s *Server) Close() error {
	s.runsMu.Lock()
	for _, run := range s.runs {
		if run.cancel != nil {
			run.cancel()
		}
	}
	s.runsMu.Unlock()

	s.wg.Wait()
	return nil
}
