// Package neighbor provides the generating functions that propose a new
// normalized candidate from the current one at a given temperature.
package neighbor

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/copyleftdev/KILN/internal/optimization"
	"github.com/copyleftdev/KILN/internal/optimization/space"
)

// maxStepAttempts is the feasibility-search retry budget. Exceeding it
// signals a pathological bound/temperature combination and fails the
// run with a StepExhaustedError.
const maxStepAttempts = 30

// Generator proposes a candidate normalized vector from the current one.
// Implementations never mutate the current vector and draw all
// randomness from the supplied generator so runs stay reproducible.
type Generator interface {
	Generate(rng *rand.Rand, current space.Vector, temp float64) (space.Vector, error)
}

// Uniform redraws every dimension independently from U[0,1). It ignores
// both the temperature and the current point: pure exploration.
type Uniform struct {
	dims int
}

// NewUniform creates a uniform generator over dims dimensions.
func NewUniform(dims int) (Uniform, error) {
	if dims < 1 {
		return Uniform{}, optimization.NewInvalidParameter("dims", dims, "must be at least 1")
	}
	return Uniform{dims: dims}, nil
}

// Generate implements Generator.
func (u Uniform) Generate(rng *rand.Rand, current space.Vector, temp float64) (space.Vector, error) {
	if len(current) != u.dims {
		return nil, optimization.NewInvalidParameter("current", len(current),
			"dimension count must match generator")
	}
	next := make(space.Vector, u.dims)
	for i := range next {
		next[i] = rng.Float64()
	}
	return next, nil
}

// Cauchy perturbs each dimension with a draw from the standard Cauchy
// distribution added to the current normalized position. The heavy tail
// keeps occasional large jumps in play. Draws that leave the unit
// interval are redrawn under the same retry budget as the ASA stepper.
type Cauchy struct {
	dims int
	dist distuv.StudentsT
}

// NewCauchy creates a Cauchy generator over dims dimensions.
func NewCauchy(dims int) (Cauchy, error) {
	if dims < 1 {
		return Cauchy{}, optimization.NewInvalidParameter("dims", dims, "must be at least 1")
	}
	// Student's t with one degree of freedom is the standard Cauchy.
	return Cauchy{dims: dims, dist: distuv.StudentsT{Mu: 0, Sigma: 1, Nu: 1}}, nil
}

// Generate implements Generator.
func (c Cauchy) Generate(rng *rand.Rand, current space.Vector, temp float64) (space.Vector, error) {
	if len(current) != c.dims {
		return nil, optimization.NewInvalidParameter("current", len(current),
			"dimension count must match generator")
	}
	next := make(space.Vector, c.dims)
	for i := range next {
		feasible := false
		for attempt := 0; attempt < maxStepAttempts; attempt++ {
			x := current[i] + c.dist.Quantile(rng.Float64())
			if x >= 0 && x <= 1 {
				next[i] = x
				feasible = true
				break
			}
		}
		if !feasible {
			return nil, &optimization.StepExhaustedError{Dim: i, Temp: temp, Attempts: maxStepAttempts}
		}
	}
	return next, nil
}

// Stepper draws a feasible neighbor for a single dimension. It is
// closed over that dimension's [lower, upper] interval.
type Stepper func(rng *rand.Rand, x0, temp float64) (float64, error)

// NewStepper builds the ASA generating function for one dimension.
// Each call draws a uniform variate, maps it through the ASA
// distribution at the current temperature, scales the offset by the
// interval width and adds it to x0. Infeasible results are redrawn up
// to the retry budget, after which the call fails with a
// StepExhaustedError.
func NewStepper(lower, upper float64) (Stepper, error) {
	if lower >= upper {
		return nil, optimization.NewInvalidParameter("bounds", [2]float64{lower, upper},
			"lower bound must be strictly less than upper bound")
	}
	width := upper - lower
	return func(rng *rand.Rand, x0, temp float64) (float64, error) {
		for attempt := 0; attempt < maxStepAttempts; attempt++ {
			x := x0 + asaDist(temp, rng.Float64())*width
			if x >= lower && x <= upper {
				return x, nil
			}
		}
		return 0, &optimization.StepExhaustedError{Temp: temp, Attempts: maxStepAttempts}
	}, nil
}

// asaDist maps a uniform variate y to a signed step fraction. As temp
// approaches 0 the distribution collapses sharply around 0 while
// retaining non-zero probability of jumps near the interval extremes,
// which is what preserves the ASA reachability guarantee at any
// temperature above zero.
func asaDist(temp, y float64) float64 {
	sgn := 1.0
	if y < 0.5 {
		sgn = -1.0
	}
	return sgn * temp * (math.Pow(1+1/temp, math.Abs(2*y-1)) - 1)
}

// ASA perturbs each dimension through its own stepper, coupling step
// size to the temperature the way the ASA cooling schedule expects.
type ASA struct {
	steppers []Stepper
}

// NewASA creates an ASA generator over dims dimensions of the
// normalized unit cube.
func NewASA(dims int) (ASA, error) {
	if dims < 1 {
		return ASA{}, optimization.NewInvalidParameter("dims", dims, "must be at least 1")
	}
	steppers := make([]Stepper, dims)
	for i := range steppers {
		st, err := NewStepper(0, 1)
		if err != nil {
			return ASA{}, err
		}
		steppers[i] = st
	}
	return ASA{steppers: steppers}, nil
}

// Generate implements Generator.
func (a ASA) Generate(rng *rand.Rand, current space.Vector, temp float64) (space.Vector, error) {
	if len(current) != len(a.steppers) {
		return nil, optimization.NewInvalidParameter("current", len(current),
			"dimension count must match generator")
	}
	next := make(space.Vector, len(current))
	for i, step := range a.steppers {
		x, err := step(rng, current[i], temp)
		if err != nil {
			var exhausted *optimization.StepExhaustedError
			if errors.As(err, &exhausted) {
				exhausted.Dim = i
			}
			return nil, err
		}
		next[i] = x
	}
	return next, nil
}
