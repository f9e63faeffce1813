// Package objective provides the built-in benchmark cost functions the
// service can optimize by name.
package objective

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/copyleftdev/KILN/internal/optimization"
)

// Sphere is the sum of squares. Global minimum 0 at the origin.
func Sphere(x []float64) (float64, error) {
	return floats.Dot(x, x), nil
}

// Rosenbrock is the classic banana-valley function. Global minimum 0 at
// (1, ..., 1). Requires at least two dimensions.
func Rosenbrock(x []float64) (float64, error) {
	if len(x) < 2 {
		return 0, fmt.Errorf("rosenbrock requires at least 2 dimensions, got %d", len(x))
	}
	sum := 0.0
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum, nil
}

// Rastrigin is highly multimodal with a regular lattice of local
// minima. Global minimum 0 at the origin.
func Rastrigin(x []float64) (float64, error) {
	sum := 10 * float64(len(x))
	for _, v := range x {
		sum += v*v - 10*math.Cos(2*math.Pi*v)
	}
	return sum, nil
}

// Ackley has a nearly flat outer region and a large central basin.
// Global minimum 0 at the origin.
func Ackley(x []float64) (float64, error) {
	n := float64(len(x))
	sumSq := floats.Dot(x, x)
	sumCos := 0.0
	for _, v := range x {
		sumCos += math.Cos(2 * math.Pi * v)
	}
	return -20*math.Exp(-0.2*math.Sqrt(sumSq/n)) - math.Exp(sumCos/n) + 20 + math.E, nil
}

// AbsDev is the one-dimensional absolute deviation |x - 50|, a simple
// convex target for smoke tests.
func AbsDev(x []float64) (float64, error) {
	if len(x) != 1 {
		return 0, fmt.Errorf("absdev requires exactly 1 dimension, got %d", len(x))
	}
	return math.Abs(x[0] - 50), nil
}

var registry = map[string]optimization.CostFunc{
	"sphere":     Sphere,
	"rosenbrock": Rosenbrock,
	"rastrigin":  Rastrigin,
	"ackley":     Ackley,
	"absdev":     AbsDev,
}

// Lookup resolves an objective by name.
func Lookup(name string) (optimization.CostFunc, error) {
	fn, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown objective %q", name)
	}
	return fn, nil
}

// Names returns the registered objective names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
