package server

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/losses"
	"github.com/copyleftdev/hypertune/internal/solver"
)

// Run lifecycle states.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// StartRequest describes a run: a project plus the builtin loss to minimize.
type StartRequest struct {
	hyperparam.Project
	Loss string `json:"loss"`
	Seed int64  `json:"seed,omitempty"`
}

// RunState tracks one optimization run. Fields are guarded by Server.runsMu
// except evaluations, which the loss updates atomically.
type RunState struct {
	ID          string
	Status      string
	Solver      string
	Loss        string
	Budget      int
	StartTime   time.Time
	EndTime     *time.Time
	Solution    *solver.Solution
	Err         error
	cancel      context.CancelFunc
	evaluations atomic.Int64
}

// RunView is the externally visible snapshot of a run.
type RunView struct {
	ID          string           `json:"run_id"`
	Status      string           `json:"status"`
	Solver      string           `json:"solver"`
	Loss        string           `json:"loss"`
	Budget      int              `json:"max_iterations"`
	Evaluations int64            `json:"evaluations"`
	Progress    float64          `json:"progress"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     *time.Time       `json:"end_time,omitempty"`
	Solution    *solver.Solution `json:"solution,omitempty"`
	Error       string           `json:"error,omitempty"`
}

func terminal(status string) bool {
	switch status {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// startRun validates req, creates a fresh solver instance and launches the run.
func (s *Server) startRun(req *StartRequest) (RunView, error) {
	if err := req.Validate(); err != nil {
		return RunView{}, err
	}
	if req.Loss == "" {
		req.Loss = losses.Sphere
	}
	loss, err := losses.Lookup(req.Loss)
	if err != nil {
		return RunView{}, err
	}

	name := req.Solver
	if name == "" {
		name = s.cfg.Solver.Default
	}
	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Solver.Seed
	}

	id := uuid.NewString()
	runLogger := s.logger.With(zap.String("run_id", id))
	sv, err := s.registry.New(name, solver.Options{
		MaxIterations:  s.cfg.Solver.MaxIterations,
		Seed:           seed,
		PopulationSize: s.cfg.Mayfly.Population,
		Kernel:         s.cfg.Bayesian.Kernel,
		InitialPoints:  s.cfg.Bayesian.InitialPoints,
		Logger:         runLogger,
		Metrics:        s.metrics,
	})
	if err != nil {
		return RunView{}, err
	}

	budget := req.MaxIterations
	if budget == 0 {
		budget = s.cfg.Solver.MaxIterations
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &RunState{
		ID:        id,
		Status:    StatusPending,
		Solver:    name,
		Loss:      req.Loss,
		Budget:    budget,
		StartTime: time.Now(),
		cancel:    cancel,
	}

	s.runsMu.Lock()
	s.runs[id] = state
	view := state.view()
	s.runsMu.Unlock()

	project := req.Project
	counted := func(data interface{}, p solver.Params) (float64, error) {
		state.evaluations.Add(1)
		return loss(data, p)
	}

	s.wg.Add(1)
	go s.runOptimization(ctx, state, sv, &project, counted, runLogger)

	runLogger.Info("Run accepted", zap.String("solver", name), zap.String("loss", req.Loss), zap.Int("max_iterations", budget))
	return view, nil
}

// runOptimization executes one run once a worker slot is free.
func (s *Server) runOptimization(ctx context.Context, state *RunState, sv solver.Solver, project *hyperparam.Project, loss solver.LossFunc, logger *zap.Logger) {
	defer s.wg.Done()
	defer state.cancel()

	select {
	case s.workers <- struct{}{}:
		defer func() { <-s.workers }()
	case <-ctx.Done():
		s.finish(state, nil, ctx.Err(), logger)
		return
	}

	s.runsMu.Lock()
	if state.Status == StatusPending {
		state.Status = StatusRunning
	}
	s.runsMu.Unlock()

	s.metrics.RunStarted()
	sol, err := solver.Solve(ctx, sv, project, nil, loss)
	s.metrics.RunFinished()

	s.finish(state, sol, err, logger)
}

func (s *Server) finish(state *RunState, sol *solver.Solution, err error, logger *zap.Logger) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	now := time.Now()
	if state.EndTime == nil {
		state.EndTime = &now
	}
	if state.Status == StatusCancelled {
		logger.Info("Run stopped after cancellation")
		return
	}

	if err != nil {
		state.Status = StatusFailed
		state.Err = err
		logger.Error("Run failed", zap.Error(err))
		return
	}
	state.Status = StatusCompleted
	state.Solution = sol
	logger.Info("Run completed", zap.Float64("loss", sol.Loss), zap.Int("trials", sol.Trials))
}

// runStatus returns a snapshot of run id.
func (s *Server) runStatus(id string) (RunView, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()

	state, ok := s.runs[id]
	if !ok {
		return RunView{}, errors.Errorf(errors.KindNotFound, "run %q not found", id)
	}
	return state.view(), nil
}

// cancelRun stops a pending or running run.
func (s *Server) cancelRun(id string) (RunView, error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	state, ok := s.runs[id]
	if !ok {
		return RunView{}, errors.Errorf(errors.KindNotFound, "run %q not found", id)
	}
	if terminal(state.Status) {
		return RunView{}, errors.Errorf(errors.KindPrecondition, "cannot cancel run with status %s", state.Status)
	}

	state.cancel()
	state.Status = StatusCancelled
	now := time.Now()
	state.EndTime = &now

	s.logger.Info("Run cancelled", zap.String("run_id", id))
	return state.view(), nil
}

// view must be called with the runs lock held.
func (r *RunState) view() RunView {
	v := RunView{
		ID:          r.ID,
		Status:      r.Status,
		Solver:      r.Solver,
		Loss:        r.Loss,
		Budget:      r.Budget,
		Evaluations: r.evaluations.Load(),
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Solution:    r.Solution,
	}
	if r.Budget > 0 {
		v.Progress = float64(v.Evaluations) / float64(r.Budget)
		if v.Progress > 1 {
			v.Progress = 1
		}
	}
	if r.Err != nil {
		v.Error = r.Err.Error()
	}
	return v
}
