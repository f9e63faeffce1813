package annealing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/KILN/internal/optimization"
	"github.com/copyleftdev/KILN/internal/optimization/schedule"
)

func TestNewParams(t *testing.T) {
	geo, err := schedule.NewGeometric(0.95)
	require.NoError(t, err)

	tests := []struct {
		name          string
		sched         schedule.Schedule
		t0, tmin      float64
		maxIter       int
		equilibration int
		wantErr       bool
	}{
		{"valid", geo, 1000, 0.001, 500, 1, false},
		{"valid with equilibration", geo, 1000, 0.001, 500, 10, false},
		{"nil schedule", nil, 1000, 0.001, 500, 1, true},
		{"zero initial temp", geo, 0, 0.001, 500, 1, true},
		{"negative initial temp", geo, -10, 0.001, 500, 1, true},
		{"zero min temp", geo, 1000, 0, 500, 1, true},
		{"min temp above initial", geo, 10, 20, 500, 1, true},
		{"zero iterations", geo, 1000, 0.001, 0, 1, true},
		{"zero equilibration", geo, 1000, 0.001, 500, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewParams(tt.sched, tt.t0, tt.tmin, tt.maxIter, tt.equilibration, nil)
			if tt.wantErr {
				var paramErr *optimization.InvalidParameterError
				require.ErrorAs(t, err, &paramErr)
				return
			}
			require.NoError(t, err)
			// The default acceptance rule is filled in.
			assert.NotNil(t, p.Accept)
		})
	}
}

func TestInvalidDecayRateRejectedBeforeAnyIteration(t *testing.T) {
	// The decay rate is validated when the schedule is constructed, so
	// a bad rate never reaches NewParams, let alone the loop.
	var paramErr *optimization.InvalidParameterError

	_, err := schedule.NewExponential(0)
	require.ErrorAs(t, err, &paramErr)

	_, err = schedule.NewExponential(1.5)
	require.ErrorAs(t, err, &paramErr)
}
