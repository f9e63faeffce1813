package annealing

import (
	"github.com/copyleftdev/KILN/internal/optimization"
	"github.com/copyleftdev/KILN/internal/optimization/schedule"
)

// Params holds the run configuration. It is constructed once before a
// run and read-only afterwards.
type Params struct {
	// Schedule is the cooling schedule advanced after each
	// equilibration block.
	Schedule schedule.Schedule

	// InitialTemp is the temperature at iteration 0.
	InitialTemp float64

	// MinTemp is the termination floor: the run stops once the
	// temperature reaches or falls below it.
	MinTemp float64

	// MaxIterations caps the cooling-schedule index.
	MaxIterations int

	// Equilibration is the number of neighbor draws performed at each
	// temperature level before cooling.
	Equilibration int

	// Accept decides whether a proposed candidate replaces the current
	// one. Nil selects the Metropolis rule.
	Accept AcceptFunc
}

// NewParams validates and assembles run parameters. Decay-rate-bearing
// schedules validate their own rates at construction, before they ever
// reach this point.
func NewParams(sched schedule.Schedule, initialTemp, minTemp float64, maxIterations, equilibration int, accept AcceptFunc) (Params, error) {
	p := Params{
		Schedule:      sched,
		InitialTemp:   initialTemp,
		MinTemp:       minTemp,
		MaxIterations: maxIterations,
		Equilibration: equilibration,
		Accept:        accept,
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	if p.Accept == nil {
		p.Accept = Metropolis
	}
	return p, nil
}

// Validate checks the parameter set without mutating it.
func (p Params) Validate() error {
	if p.Schedule == nil {
		return optimization.NewInvalidParameter("schedule", nil, "a cooling schedule is required")
	}
	if p.InitialTemp <= 0 {
		return optimization.NewInvalidParameter("initial_temp", p.InitialTemp, "must be positive")
	}
	if p.MinTemp <= 0 {
		return optimization.NewInvalidParameter("min_temp", p.MinTemp, "must be positive")
	}
	if p.MinTemp >= p.InitialTemp {
		return optimization.NewInvalidParameter("min_temp", p.MinTemp,
			"must be below the initial temperature")
	}
	if p.MaxIterations < 1 {
		return optimization.NewInvalidParameter("max_iterations", p.MaxIterations, "must be at least 1")
	}
	if p.Equilibration < 1 {
		return optimization.NewInvalidParameter("equilibration", p.Equilibration, "must be at least 1")
	}
	return nil
}
