// Package server exposes annealing runs as cancellable jobs over HTTP
// and JSON-RPC 2.0.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/copyleftdev/KILN/internal/config"
	"github.com/copyleftdev/KILN/internal/objective"
	"github.com/copyleftdev/KILN/internal/optimization"
	"github.com/copyleftdev/KILN/internal/optimization/annealing"
	"github.com/copyleftdev/KILN/internal/optimization/neighbor"
	"github.com/copyleftdev/KILN/internal/optimization/schedule"
	"github.com/copyleftdev/KILN/internal/optimization/space"
)

// JobState tracks one annealing job. It is guarded by the server's
// mutex and safe for concurrent access.
type JobState struct {
	ID          string
	Status      string // "pending", "running", "completed", "failed", "cancelled"
	StartTime   time.Time
	EndTime     *time.Time
	Progress    float64
	Best        *optimization.Candidate
	Iteration   int
	Temperature float64
	Error       string
	CancelFunc  context.CancelFunc
	LastUpdated time.Time
}

// Server manages annealing jobs and serves their lifecycle endpoints.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	jobs   map[string]*JobState
	jobsMu sync.RWMutex
}

// NewServer creates a server with the given config and logger.
func NewServer(cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		jobs:   make(map[string]*JobState),
	}
}

// RegisterRoutes mounts the REST and JSON-RPC endpoints.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/anneal", s.handleAnneal)
		r.Get("/status/{id}", s.handleStatus)
		r.Delete("/anneal/{id}", s.handleCancel)
		r.Get("/objectives", s.handleObjectives)
	})

	r.Post("/rpc", s.handleJSONRPC)
}

// annealRequest is the job submission payload. Omitted tuning fields
// fall back to the configured defaults.
type annealRequest struct {
	Objective     string      `json:"objective"`
	Bounds        [][]float64 `json:"bounds"`
	Schedule      string      `json:"schedule"`
	Rate          float64     `json:"rate,omitempty"`
	Quench        float64     `json:"quench,omitempty"`
	Neighborhood  string      `json:"neighborhood"`
	InitialTemp   float64     `json:"initial_temp,omitempty"`
	MinTemp       float64     `json:"min_temp,omitempty"`
	MaxIterations int         `json:"max_iterations,omitempty"`
	Equilibration int         `json:"equilibration,omitempty"`
	Seed          int64       `json:"seed,omitempty"`
	Initial       []float64   `json:"initial,omitempty"`
}

// buildSchedule maps a request onto a cooling schedule.
func buildSchedule(req annealRequest, dims int) (schedule.Schedule, error) {
	switch req.Schedule {
	case "", "boltzmann":
		return schedule.Boltzmann{}, nil
	case "fast":
		return schedule.Fast{}, nil
	case "exponential":
		return schedule.NewExponential(req.Rate)
	case "geometric":
		return schedule.NewGeometric(req.Rate)
	case "asa":
		c, quench := 1.0, 1.0
		if req.Rate != 0 {
			c = req.Rate
		}
		if req.Quench != 0 {
			quench = req.Quench
		}
		return schedule.NewASA(c, quench, dims)
	default:
		return nil, fmt.Errorf("unknown schedule %q", req.Schedule)
	}
}

// buildGenerator maps a request onto a neighborhood generator.
func buildGenerator(req annealRequest, dims int) (neighbor.Generator, error) {
	switch req.Neighborhood {
	case "", "uniform":
		return neighbor.NewUniform(dims)
	case "cauchy":
		return neighbor.NewCauchy(dims)
	case "asa":
		return neighbor.NewASA(dims)
	default:
		return nil, fmt.Errorf("unknown neighborhood %q", req.Neighborhood)
	}
}

// buildSolver assembles a solver from a request, applying configured
// defaults for the tuning fields the request omits.
func (s *Server) buildSolver(req annealRequest) (*annealing.Solver, space.Bounds, []float64, error) {
	if req.Objective == "" {
		return nil, nil, nil, fmt.Errorf("objective is required")
	}
	cost, err := objective.Lookup(req.Objective)
	if err != nil {
		return nil, nil, nil, err
	}

	if len(req.Bounds) == 0 {
		return nil, nil, nil, fmt.Errorf("bounds are required")
	}
	bounds := make(space.Bounds, len(req.Bounds))
	for i, pair := range req.Bounds {
		if len(pair) != 2 {
			return nil, nil, nil, fmt.Errorf("invalid bounds format, expected [[min1, max1], [min2, max2], ...]")
		}
		bounds[i] = [2]float64{pair[0], pair[1]}
	}

	dims := bounds.Dims()
	sched, err := buildSchedule(req, dims)
	if err != nil {
		return nil, nil, nil, err
	}
	gen, err := buildGenerator(req, dims)
	if err != nil {
		return nil, nil, nil, err
	}

	t0 := req.InitialTemp
	if t0 == 0 {
		t0 = s.cfg.Annealing.InitialTemp
	}
	tmin := req.MinTemp
	if tmin == 0 {
		tmin = s.cfg.Annealing.MinTemp
	}
	maxIter := req.MaxIterations
	if maxIter == 0 {
		maxIter = s.cfg.Annealing.MaxIterations
	}
	equil := req.Equilibration
	if equil == 0 {
		equil = s.cfg.Annealing.Equilibration
	}

	params, err := annealing.NewParams(sched, t0, tmin, maxIter, equil, nil)
	if err != nil {
		return nil, nil, nil, err
	}

	initial := req.Initial
	if initial == nil {
		// Start from the midpoint of each bound.
		initial = make([]float64, dims)
		for i, pair := range bounds {
			initial[i] = (pair[0] + pair[1]) / 2
		}
	}

	opts := []annealing.Option{annealing.WithLogger(s.logger)}
	if req.Seed != 0 {
		opts = append(opts, annealing.WithSeed(req.Seed))
	}
	solver, err := annealing.New(bounds, cost, gen, params, opts...)
	if err != nil {
		return nil, nil, nil, err
	}
	return solver, bounds, initial, nil
}

// startJob validates a request, registers the job and launches it.
func (s *Server) startJob(req annealRequest) (string, error) {
	solver, _, initial, err := s.buildSolver(req)
	if err != nil {
		return "", err
	}

	maxIter := req.MaxIterations
	if maxIter == 0 {
		maxIter = s.cfg.Annealing.MaxIterations
	}

	id := fmt.Sprintf("job_%d", time.Now().UnixNano())
	ctx, cancel := context.WithCancel(context.Background())
	state := &JobState{
		ID:          id,
		Status:      "pending",
		StartTime:   time.Now(),
		CancelFunc:  cancel,
		LastUpdated: time.Now(),
	}

	s.jobsMu.Lock()
	s.jobs[id] = state
	s.jobsMu.Unlock()

	jobsStarted.Inc()
	go s.runJob(ctx, state, solver, initial, maxIter)
	return id, nil
}

// runJob consumes the lazy run one iteration at a time so progress and
// cancellation stay observable without touching solver internals.
func (s *Server) runJob(ctx context.Context, state *JobState, solver *annealing.Solver, initial []float64, maxIter int) {
	logger := s.logger.With(zap.String("job_id", state.ID))

	s.jobsMu.Lock()
	state.Status = "running"
	state.LastUpdated = time.Now()
	s.jobsMu.Unlock()

	run, err := solver.Start(initial)
	if err != nil {
		s.finishJob(state, "failed", nil, err)
		logger.Error("job failed to start", zap.Error(err))
		return
	}

	for run.Next() {
		iterationsTotal.Inc()
		if ctx.Err() != nil {
			best := run.Best()
			s.finishJob(state, "cancelled", &best, nil)
			logger.Info("job cancelled", zap.Float64("best_cost", best.Cost))
			return
		}
		st := run.State()
		s.jobsMu.Lock()
		state.Progress = float64(st.Iteration) / float64(maxIter)
		state.Iteration = st.Iteration
		state.Temperature = st.Temperature
		state.LastUpdated = time.Now()
		s.jobsMu.Unlock()
	}

	if err := run.Err(); err != nil {
		s.finishJob(state, "failed", nil, err)
		logger.Error("job failed", zap.Error(err))
		return
	}

	best := run.Best()
	s.finishJob(state, "completed", &best, nil)
	logger.Info("job completed",
		zap.Float64("best_cost", best.Cost),
		zap.Int("iterations", run.State().Iteration))
}

// finishJob moves a job into a terminal state.
func (s *Server) finishJob(state *JobState, status string, best *optimization.Candidate, err error) {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	// A cancellation may have already closed the job.
	switch state.Status {
	case "completed", "failed", "cancelled":
		return
	}

	state.Status = status
	if best != nil {
		state.Best = best
		state.Progress = 1
	}
	if err != nil {
		state.Error = err.Error()
	}
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	jobsFinished.WithLabelValues(status).Inc()
}

// cancelJob requests cancellation of a running job.
func (s *Server) cancelJob(id string) error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()

	state, exists := s.jobs[id]
	if !exists {
		return fmt.Errorf("job not found")
	}
	switch state.Status {
	case "completed", "failed", "cancelled":
		return fmt.Errorf("cannot cancel job with status: %s", state.Status)
	}
	if state.CancelFunc != nil {
		state.CancelFunc()
	}

	state.Status = "cancelled"
	now := time.Now()
	state.EndTime = &now
	state.LastUpdated = now
	jobsFinished.WithLabelValues("cancelled").Inc()

	s.logger.Info("job cancellation requested", zap.String("job_id", id))
	return nil
}

// jobStatus builds the status payload for a job.
func (s *Server) jobStatus(id string) (map[string]interface{}, error) {
	s.jobsMu.RLock()
	defer s.jobsMu.RUnlock()

	state, exists := s.jobs[id]
	if !exists {
		return nil, fmt.Errorf("job not found")
	}

	resp := map[string]interface{}{
		"status":      state.Status,
		"progress":    state.Progress,
		"iteration":   state.Iteration,
		"temperature": state.Temperature,
		"start_time":  state.StartTime.Format(time.RFC3339),
		"last_update": state.LastUpdated.Format(time.RFC3339),
	}
	if state.EndTime != nil {
		resp["end_time"] = state.EndTime.Format(time.RFC3339)
	}
	if state.Error != "" {
		resp["error"] = state.Error
	}
	if state.Best != nil {
		resp["best"] = map[string]interface{}{
			"parameters": state.Best.Parameters,
			"cost":       state.Best.Cost,
		}
	}
	return resp, nil
}

// handleJSONRPC handles JSON-RPC 2.0 requests.
func (s *Server) handleJSONRPC(w http.ResponseWriter, r *http.Request) {
	var request struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      interface{}     `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.respondWithError(w, -32700, "Parse error", nil)
		return
	}
	if request.JSONRPC != "2.0" {
		s.respondWithError(w, -32600, "Invalid Request", nil)
		return
	}

	var result interface{}
	var err error

	switch request.Method {
	case "anneal.start":
		var req annealRequest
		if err := json.Unmarshal(request.Params, &req); err != nil {
			s.respondWithError(w, -32602, "Invalid params", request.ID)
			return
		}
		var id string
		id, err = s.startJob(req)
		if err == nil {
			result = map[string]interface{}{"job_id": id, "status": "pending"}
		}
	case "anneal.status":
		var req struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(request.Params, &req); err != nil {
			s.respondWithError(w, -32602, "Invalid params", request.ID)
			return
		}
		result, err = s.jobStatus(req.JobID)
	case "anneal.cancel":
		var req struct {
			JobID string `json:"job_id"`
		}
		if err := json.Unmarshal(request.Params, &req); err != nil {
			s.respondWithError(w, -32602, "Invalid params", request.ID)
			return
		}
		err = s.cancelJob(req.JobID)
		if err == nil {
			result = map[string]interface{}{"status": "cancellation requested"}
		}
	default:
		s.respondWithError(w, -32601, "Method not found", request.ID)
		return
	}

	if err != nil {
		s.respondWithError(w, -32000, err.Error(), request.ID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      request.ID,
		"result":  result,
	})
}

// respondWithError sends a JSON-RPC 2.0 error response.
func (s *Server) respondWithError(w http.ResponseWriter, code int, message string, id interface{}) {
	s.logger.Error("request error",
		zap.Int("code", code),
		zap.String("message", message))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
		},
		"id": id,
	})
}

// handleAnneal handles POST /api/v1/anneal.
func (s *Server) handleAnneal(w http.ResponseWriter, r *http.Request) {
	var req annealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	id, err := s.startJob(req)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{"job_id": id, "status": "pending"})
}

// handleStatus handles GET /api/v1/status/{id}.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing job ID", http.StatusBadRequest)
		return
	}

	resp, err := s.jobStatus(id)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(resp)
}

// handleCancel handles DELETE /api/v1/anneal/{id}.
func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "missing job ID", http.StatusBadRequest)
		return
	}

	err := s.cancelJob(id)
	w.Header().Set("Content-Type", "application/json")
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]interface{}{"error": err.Error()})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "cancellation requested"})
}

// handleObjectives handles GET /api/v1/objectives.
func (s *Server) handleObjectives(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"objectives": objective.Names()})
}

// Close cancels every running job.
func (s *Server) Close() error {
	s.jobsMu.Lock()
	defer s.jobsMu.Unlock()
	for _, job := range s.jobs {
		if job.CancelFunc != nil {
			job.CancelFunc()
		}
	}
	return nil
}
