// Package schedule provides the cooling schedules that drive a
// simulated annealing run from its initial temperature toward zero.
package schedule

import (
	"math"

	"github.com/copyleftdev/KILN/internal/optimization"
)

// Schedule maps an initial temperature and an iteration index to the
// current temperature. Implementations are pure: the returned value is
// monotonically non-increasing in k, lies in (0, t0], and tends to 0 as
// k grows. k starts at 0 and Temperature(t0, 0) == t0 for every
// schedule in this package.
type Schedule interface {
	Temperature(t0 float64, k int) float64
}

// Boltzmann is the classic logarithmic schedule t0 / (1 + ln(1+k)).
// Convergence is slow but carries the strongest statistical guarantee.
type Boltzmann struct{}

// Temperature implements Schedule.
func (Boltzmann) Temperature(t0 float64, k int) float64 {
	return t0 / (1 + math.Log(1+float64(k)))
}

// Fast is the Cauchy schedule t0 / (1 + k), exponentially faster than
// Boltzmann cooling.
type Fast struct{}

// Temperature implements Schedule.
func (Fast) Temperature(t0 float64, k int) float64 {
	return t0 / (1 + float64(k))
}

// Exponential is a quenching schedule t0 * e^((rate-1)*k). It trades
// the statistical guarantee for speed.
type Exponential struct {
	rate float64
}

// NewExponential creates an exponential schedule. The decay rate must
// lie in (0, 1].
func NewExponential(rate float64) (Exponential, error) {
	if rate <= 0 || rate > 1 {
		return Exponential{}, optimization.NewInvalidParameter("rate", rate, "must be in (0, 1]")
	}
	return Exponential{rate: rate}, nil
}

// Temperature implements Schedule.
func (e Exponential) Temperature(t0 float64, k int) float64 {
	return t0 * math.Exp((e.rate-1)*float64(k))
}

// Geometric is a quenching schedule that multiplies the previous
// temperature by a fixed rate at every step. Expressed against the
// uniform (t0, k) signature this is the closed form t0 * rate^k.
type Geometric struct {
	rate float64
}

// NewGeometric creates a geometric schedule. The decay rate must lie
// in (0, 1].
func NewGeometric(rate float64) (Geometric, error) {
	if rate <= 0 || rate > 1 {
		return Geometric{}, optimization.NewInvalidParameter("rate", rate, "must be in (0, 1]")
	}
	return Geometric{rate: rate}, nil
}

// Temperature implements Schedule.
func (g Geometric) Temperature(t0 float64, k int) float64 {
	return t0 * math.Pow(g.rate, float64(k))
}

// ASA is the adaptive schedule t0 * e^(-c * k^(quench/dims)), meant to
// be paired with the ASA neighborhood generator so cooling and step
// size collapse together.
type ASA struct {
	c      float64
	quench float64
	dims   int
}

// NewASA creates an ASA schedule over a decision space with the given
// dimension count. Pass c=1 and quench=1 for the standard coupling.
func NewASA(c, quench float64, dims int) (ASA, error) {
	if c <= 0 {
		return ASA{}, optimization.NewInvalidParameter("c", c, "must be positive")
	}
	if quench <= 0 {
		return ASA{}, optimization.NewInvalidParameter("quench", quench, "must be positive")
	}
	if dims < 1 {
		return ASA{}, optimization.NewInvalidParameter("dims", dims, "must be at least 1")
	}
	return ASA{c: c, quench: quench, dims: dims}, nil
}

// Temperature implements Schedule.
func (a ASA) Temperature(t0 float64, k int) float64 {
	return t0 * math.Exp(-a.c*math.Pow(float64(k), a.quench/float64(a.dims)))
}
