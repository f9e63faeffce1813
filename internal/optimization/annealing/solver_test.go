package annealing

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/KILN/internal/optimization"
	"github.com/copyleftdev/KILN/internal/optimization/neighbor"
	"github.com/copyleftdev/KILN/internal/optimization/schedule"
	"github.com/copyleftdev/KILN/internal/optimization/space"
)

// absDev50 is |x - 50|, minimized at x = 50.
func absDev50(x []float64) (float64, error) {
	return math.Abs(x[0] - 50), nil
}

func newTestSolver(t *testing.T, params Params, opts ...Option) *Solver {
	t.Helper()
	bounds := space.Bounds{{0, 100}}
	gen, err := neighbor.NewUniform(1)
	require.NoError(t, err)
	solver, err := New(bounds, absDev50, gen, params, opts...)
	require.NoError(t, err)
	return solver
}

func geometricParams(t *testing.T, rate, t0, tmin float64, maxIter, equil int) Params {
	t.Helper()
	sched, err := schedule.NewGeometric(rate)
	require.NoError(t, err)
	params, err := NewParams(sched, t0, tmin, maxIter, equil, nil)
	require.NoError(t, err)
	return params
}

func TestAnnealConvergesOnAbsDeviation(t *testing.T) {
	// Geometric schedule at rate 0.95 from t0=1000 with 500 schedule
	// steps must land within 1 of the optimum at x=50.
	params := geometricParams(t, 0.95, 1000, 1e-9, 500, 4)
	solver := newTestSolver(t, params, WithSeed(42))

	best, err := solver.Anneal(context.Background(), []float64{5})
	require.NoError(t, err)
	assert.LessOrEqual(t, best.Cost, 1.0)
	assert.InDelta(t, 50, best.Parameters[0], 1.0)
}

func TestRunIsDeterministicForFixedSeed(t *testing.T) {
	params := geometricParams(t, 0.9, 100, 0.01, 50, 2)
	solver := newTestSolver(t, params, WithSeed(1234))

	collect := func() []State {
		run, err := solver.Start([]float64{10})
		require.NoError(t, err)
		var states []State
		for run.Next() {
			states = append(states, run.State())
		}
		require.NoError(t, run.Err())
		return states
	}

	first := collect()
	second := collect()
	require.Equal(t, len(first), len(second))
	for i := range first {
		require.Equal(t, first[i].Temperature, second[i].Temperature, "iteration %d", i)
		require.Equal(t, first[i].Current.Cost, second[i].Current.Cost, "iteration %d", i)
		require.Equal(t, first[i].Best.Cost, second[i].Best.Cost, "iteration %d", i)
		require.Equal(t, first[i].Current.Parameters, second[i].Current.Parameters, "iteration %d", i)
	}
}

func TestBestCostNonIncreasingAcrossStates(t *testing.T) {
	params := geometricParams(t, 0.9, 100, 0.01, 80, 3)
	solver := newTestSolver(t, params, WithSeed(7))

	run, err := solver.Start([]float64{90})
	require.NoError(t, err)

	prev := math.Inf(1)
	lowestSeen := math.Inf(1)
	for run.Next() {
		st := run.State()
		require.LessOrEqual(t, st.Best.Cost, prev, "best cost increased")
		prev = st.Best.Cost

		// Best never lags behind any candidate observed so far, while
		// current is allowed to be worse than best.
		if st.Current.Cost < lowestSeen {
			lowestSeen = st.Current.Cost
		}
		require.LessOrEqual(t, st.Best.Cost, lowestSeen)
	}
	require.NoError(t, run.Err())
}

func TestRunLengthAtIterationCap(t *testing.T) {
	// Fast cooling keeps the temperature above the floor, so the run
	// terminates at the iteration cap after maxIter*equil draws.
	sched := schedule.Fast{}
	params, err := NewParams(sched, 10, 0.001, 5, 3, nil)
	require.NoError(t, err)
	solver := newTestSolver(t, params, WithSeed(11))

	run, err := solver.Start([]float64{30})
	require.NoError(t, err)

	n := 0
	for run.Next() {
		n++
	}
	require.NoError(t, run.Err())
	assert.Equal(t, 15, n)

	final := run.State()
	assert.Equal(t, Terminated, final.Phase)
	assert.Equal(t, 5, final.Iteration)
}

func TestRunTerminatesAtTemperatureFloor(t *testing.T) {
	// Geometric rate 0.5 from t0=10 crosses tmin=1 at k=4.
	params := geometricParams(t, 0.5, 10, 1, 100, 1)
	solver := newTestSolver(t, params, WithSeed(13))

	run, err := solver.Start([]float64{30})
	require.NoError(t, err)

	n := 0
	for run.Next() {
		n++
	}
	require.NoError(t, run.Err())
	assert.Equal(t, 4, n)

	final := run.State()
	assert.Equal(t, Terminated, final.Phase)
	assert.LessOrEqual(t, final.Temperature, 1.0)
}

func TestRunPhases(t *testing.T) {
	params := geometricParams(t, 0.5, 10, 1, 100, 3)
	solver := newTestSolver(t, params, WithSeed(17))

	run, err := solver.Start([]float64{30})
	require.NoError(t, err)

	var phases []Phase
	for run.Next() {
		phases = append(phases, run.State().Phase)
	}
	require.NoError(t, run.Err())

	// Two draws equilibrate, the third cools; the final iteration
	// terminates the run.
	require.Equal(t, 12, len(phases))
	for i, phase := range phases[:len(phases)-1] {
		if (i+1)%3 == 0 {
			assert.Equal(t, Running, phase, "iteration %d", i)
		} else {
			assert.Equal(t, Equilibrating, phase, "iteration %d", i)
		}
	}
	assert.Equal(t, Terminated, phases[len(phases)-1])
}

func TestRunSafeToAbandonEarly(t *testing.T) {
	params := geometricParams(t, 0.99, 1000, 1e-6, 10000, 1)
	solver := newTestSolver(t, params, WithSeed(19))

	run, err := solver.Start([]float64{30})
	require.NoError(t, err)
	for i := 0; i < 3 && run.Next(); i++ {
	}
	// Abandoning the sequence needs no teardown; the state remains
	// consistent.
	assert.NoError(t, run.Err())
	assert.NotEqual(t, Terminated, run.State().Phase)
}

// exhaustedGenerator always reports a spent retry budget.
type exhaustedGenerator struct{}

func (exhaustedGenerator) Generate(_ *rand.Rand, _ space.Vector, temp float64) (space.Vector, error) {
	return nil, &optimization.StepExhaustedError{Dim: 0, Temp: temp, Attempts: 30}
}

func TestStepExhaustedAbortsRun(t *testing.T) {
	params := geometricParams(t, 0.95, 1000, 1e-6, 100, 1)
	bounds := space.Bounds{{0, 100}}
	solver, err := New(bounds, absDev50, exhaustedGenerator{}, params, WithSeed(23))
	require.NoError(t, err)

	run, err := solver.Start([]float64{30})
	require.NoError(t, err)
	require.False(t, run.Next())

	var exhausted *optimization.StepExhaustedError
	require.ErrorAs(t, run.Err(), &exhausted)
	assert.Equal(t, Terminated, run.State().Phase)

	// The blocking form surfaces the same failure.
	_, err = solver.Anneal(context.Background(), []float64{30})
	require.ErrorAs(t, err, &exhausted)
}

func TestCostFunctionErrorAbortsRun(t *testing.T) {
	calls := 0
	failing := func(x []float64) (float64, error) {
		calls++
		if calls > 3 {
			return 0, fmt.Errorf("objective unavailable")
		}
		return x[0], nil
	}

	params := geometricParams(t, 0.95, 1000, 1e-6, 100, 1)
	bounds := space.Bounds{{0, 100}}
	gen, err := neighbor.NewUniform(1)
	require.NoError(t, err)
	solver, err := New(bounds, failing, gen, params, WithSeed(29))
	require.NoError(t, err)

	_, err = solver.Anneal(context.Background(), []float64{30})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "objective unavailable")
}

func TestAnnealHonoursContextCancellation(t *testing.T) {
	params := geometricParams(t, 0.9999, 1000, 1e-9, 1000000, 10)
	solver := newTestSolver(t, params, WithSeed(31))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := solver.Anneal(ctx, []float64{30})
	require.ErrorIs(t, err, context.Canceled)
}

func TestStartRejectsOutOfBoundsInitial(t *testing.T) {
	params := geometricParams(t, 0.95, 1000, 1e-6, 100, 1)
	solver := newTestSolver(t, params, WithSeed(37))

	_, err := solver.Start([]float64{101})
	var vecErr *optimization.InvalidVectorError
	require.ErrorAs(t, err, &vecErr)
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	params := geometricParams(t, 0.95, 1000, 1e-6, 100, 1)
	gen, err := neighbor.NewUniform(1)
	require.NoError(t, err)

	var paramErr *optimization.InvalidParameterError

	_, err = New(space.Bounds{}, absDev50, gen, params)
	require.ErrorAs(t, err, &paramErr)

	_, err = New(space.Bounds{{0, 100}}, nil, gen, params)
	require.ErrorAs(t, err, &paramErr)

	_, err = New(space.Bounds{{0, 100}}, absDev50, nil, params)
	require.ErrorAs(t, err, &paramErr)
}

func TestStateReportsTemperatureWithinRange(t *testing.T) {
	params := geometricParams(t, 0.8, 50, 0.01, 40, 2)
	solver := newTestSolver(t, params, WithSeed(41))

	run, err := solver.Start([]float64{30})
	require.NoError(t, err)
	for run.Next() {
		st := run.State()
		assert.Greater(t, st.Temperature, 0.0)
		assert.LessOrEqual(t, st.Temperature, 50.0)
		assert.Less(t, st.Draw, 2)
	}
	require.NoError(t, run.Err())
}
