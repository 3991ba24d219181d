package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/hypertune/internal/errors"
	"github.com/copyleftdev/hypertune/internal/hyperparam"
	"github.com/copyleftdev/hypertune/internal/logging"
	"github.com/copyleftdev/hypertune/internal/searchspace"
)

// NormalizeRequest carries the hyperparameter specification to normalize.
type NormalizeRequest struct {
	Hyperparameter *hyperparam.Spec `json:"hyperparameter"`
}

// normalize converts req into its search space.
func (s *Server) normalize(req *NormalizeRequest) (*searchspace.Space, error) {
	if req.Hyperparameter.Len() == 0 {
		return nil, errors.New(errors.KindInvalidInput, "hyperparameter specification is required")
	}
	return s.normalizer.Normalize(req.Hyperparameter)
}

// SolverList is the response of the solver listing endpoints.
type SolverList struct {
	Solvers []string `json:"solvers"`
	Default string   `json:"default"`
}

func (s *Server) solverList() SolverList {
	return SolverList{Solvers: s.registry.List(), Default: s.cfg.Solver.Default}
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.KindOf(err) != "" {
			return err
		}
		return errors.Wrap(err, errors.KindInvalidInput, "invalid request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logging.FromContext(r.Context()).Warn("Request failed",
		zap.String("kind", string(errors.KindOf(err))),
		zap.Error(err),
	)
	errors.WriteJSON(w, err)
}

// handleNormalize handles POST /searchspace.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	var req NormalizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	space, err := s.normalize(&req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"search_space": space})
}

// handleOptimize handles POST /optimize for starting a new run.
func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	view, err := s.startRun(&req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

// handleStatus handles GET /status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	view, err := s.runStatus(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleCancel handles DELETE /optimization/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	view, err := s.cancelRun(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleSolvers handles GET /solvers.
func (s *Server) handleSolvers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.solverList())
}
