// Package annealing implements simulated annealing and its adaptive
// variants over a normalized decision space.
package annealing

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/copyleftdev/KILN/internal/optimization"
	"github.com/copyleftdev/KILN/internal/optimization/neighbor"
	"github.com/copyleftdev/KILN/internal/optimization/space"
)

// Phase is the solver state after an iteration.
type Phase int

const (
	// Running means the last iteration completed an equilibration block
	// and advanced the cooling schedule.
	Running Phase = iota
	// Equilibrating means the last iteration drew a neighbor at the
	// current temperature without cooling yet.
	Equilibrating
	// Terminated means the run reached the temperature floor, the
	// iteration cap, or failed.
	Terminated
)

// String implements fmt.Stringer.
func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Equilibrating:
		return "equilibrating"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// State is a snapshot of a run after one iteration. Best carries the
// minimum-cost candidate seen so far; Current may be worse than Best
// when an uphill move was accepted.
type State struct {
	Phase       Phase
	Current     optimization.Candidate
	Best        optimization.Candidate
	Temperature float64
	// Iteration is the cooling-schedule index k.
	Iteration int
	// Draw counts neighbor draws at the current temperature level.
	Draw int
}

// Option configures a Solver.
type Option func(*Solver)

// WithSeed fixes the random seed so runs are reproducible. Two runs
// started from the same solver produce identical state sequences.
func WithSeed(seed int64) Option {
	return func(s *Solver) { s.seed = seed }
}

// WithLogger attaches a logger for per-cooling-step debug output.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Solver) { s.logger = logger }
}

// Solver orchestrates representation, neighborhood generation,
// acceptance and cooling into a sequential annealing trajectory. A
// solver is immutable after construction; every run owns its state and
// random generator, so independent runs may proceed concurrently.
type Solver struct {
	bounds space.Bounds
	cost   optimization.CostFunc
	gen    neighbor.Generator
	params Params
	seed   int64
	logger *zap.Logger
}

// New creates a solver. Invalid configuration is rejected here, before
// any iteration runs.
func New(bounds space.Bounds, cost optimization.CostFunc, gen neighbor.Generator, params Params, opts ...Option) (*Solver, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if cost == nil {
		return nil, optimization.NewInvalidParameter("cost", nil, "a cost function is required")
	}
	if gen == nil {
		return nil, optimization.NewInvalidParameter("generator", nil, "a neighborhood generator is required")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Accept == nil {
		params.Accept = Metropolis
	}

	s := &Solver{
		bounds: bounds,
		cost:   cost,
		gen:    gen,
		params: params,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seed == 0 {
		s.seed = time.Now().UnixNano()
	}
	return s, nil
}

// evaluate decodes a normalized point and computes its cost once.
func (s *Solver) evaluate(point space.Vector) (optimization.Candidate, error) {
	value, err := space.Decode(s.bounds, point)
	if err != nil {
		return optimization.Candidate{}, err
	}
	cost, err := s.cost(value)
	if err != nil {
		return optimization.Candidate{}, fmt.Errorf("evaluating cost function: %w", err)
	}
	return optimization.Candidate{Parameters: value, Point: point, Cost: cost}, nil
}

// Anneal runs to termination and returns the best candidate found. The
// context is checked between iterations; cancellation aborts the run
// with the context's error.
func (s *Solver) Anneal(ctx context.Context, initial []float64) (optimization.Candidate, error) {
	run, err := s.Start(initial)
	if err != nil {
		return optimization.Candidate{}, err
	}
	for run.Next() {
		if err := ctx.Err(); err != nil {
			return optimization.Candidate{}, err
		}
	}
	if err := run.Err(); err != nil {
		return optimization.Candidate{}, err
	}
	return run.Best(), nil
}

// Start begins a lazy run from the given decision-space value. Each
// Next call advances exactly one iteration; the sequence is finite and
// safe to abandon early, but a Run is single-use: its random generator
// and counters advance with every pull.
func (s *Solver) Start(initial []float64) (*Run, error) {
	point, err := space.Encode(s.bounds, initial)
	if err != nil {
		return nil, err
	}

	r := &Run{
		solver: s,
		rng:    rand.New(rand.NewSource(s.seed)),
		temp:   s.params.Schedule.Temperature(s.params.InitialTemp, 0),
	}
	first, err := s.evaluate(point)
	if err != nil {
		return nil, err
	}
	r.current = first
	r.best = first
	r.state = State{
		Phase:       Running,
		Current:     r.current,
		Best:        r.best,
		Temperature: r.temp,
	}
	if r.temp <= s.params.MinTemp {
		r.state.Phase = Terminated
		r.done = true
	}
	s.logger.Debug("annealing run started",
		zap.Float64("initial_temp", r.temp),
		zap.Float64("initial_cost", first.Cost),
		zap.Int("dims", s.bounds.Dims()))
	return r, nil
}

// Run is a single annealing trajectory consumed one iteration at a
// time, in the manner of bufio.Scanner: Next advances and reports
// whether a state was produced, State returns the latest snapshot, and
// Err reports why the run stopped early, if it did.
type Run struct {
	solver  *Solver
	rng     *rand.Rand
	current optimization.Candidate
	best    optimization.Candidate
	temp    float64
	k       int
	draw    int
	state   State
	err     error
	done    bool
}

// Next advances the run by one iteration. It returns false once the
// run has terminated or failed; the terminating iteration itself is
// still reported as a state.
func (r *Run) Next() bool {
	if r.done {
		return false
	}
	s := r.solver

	point, err := s.gen.Generate(r.rng, space.Vector(r.current.Point), r.temp)
	if err != nil {
		return r.fail(err)
	}
	cand, err := s.evaluate(point)
	if err != nil {
		return r.fail(err)
	}

	accepted, err := s.params.Accept(r.rng, r.current.Cost, cand.Cost, r.temp)
	if err != nil {
		return r.fail(err)
	}
	if accepted {
		r.current = cand
	}
	// Strict improvement only, so ties keep the earliest-seen candidate.
	if cand.Cost < r.best.Cost {
		r.best = cand
	}

	phase := Equilibrating
	r.draw++
	if r.draw >= s.params.Equilibration {
		r.draw = 0
		r.k++
		r.temp = s.params.Schedule.Temperature(s.params.InitialTemp, r.k)
		phase = Running
		s.logger.Debug("cooled",
			zap.Int("iteration", r.k),
			zap.Float64("temp", r.temp),
			zap.Float64("best_cost", r.best.Cost))
	}

	if r.temp <= s.params.MinTemp || r.k >= s.params.MaxIterations {
		phase = Terminated
		r.done = true
	}

	r.state = State{
		Phase:       phase,
		Current:     r.current,
		Best:        r.best,
		Temperature: r.temp,
		Iteration:   r.k,
		Draw:        r.draw,
	}
	return true
}

func (r *Run) fail(err error) bool {
	r.err = err
	r.done = true
	r.state.Phase = Terminated
	return false
}

// State returns the snapshot produced by the most recent Next call, or
// the initial state if Next has not been called yet.
func (r *Run) State() State {
	return r.state
}

// Best returns the minimum-cost candidate observed so far.
func (r *Run) Best() optimization.Candidate {
	return r.best
}

// Err returns the error that stopped the run, if any.
func (r *Run) Err() error {
	return r.err
}
