package annealing

import (
	"math"
	"math/rand"

	"github.com/copyleftdev/KILN/internal/optimization"
)

// maxExpArg is the largest exponent argument fed to math.Exp before the
// acceptance probability is treated as exactly zero. Anything larger
// would overflow to +Inf and the probability underflows anyway.
const maxExpArg = 700

// AcceptFunc decides whether a proposed candidate replaces the current
// one, given both costs and the current temperature.
type AcceptFunc func(rng *rand.Rand, oldCost, newCost, temp float64) (bool, error)

// Metropolis is the default Boltzmann acceptance rule. A strictly
// better candidate is accepted unconditionally; a worse one is accepted
// with probability 1 / (1 + e^((new-old)/t)) against a uniform draw.
// The temperature must be positive: a non-positive value is a
// configuration bug and is surfaced, not masked.
func Metropolis(rng *rand.Rand, oldCost, newCost, temp float64) (bool, error) {
	if temp <= 0 {
		return false, optimization.NewInvalidParameter("temp", temp, "must be positive")
	}
	if oldCost-newCost > 0 {
		return true, nil
	}
	arg := (newCost - oldCost) / temp
	if arg > maxExpArg {
		// Saturates to probability 0 instead of overflowing.
		return false, nil
	}
	p := 1 / (1 + math.Exp(arg))
	return rng.Float64() < p, nil
}
