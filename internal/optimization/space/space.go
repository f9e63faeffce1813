// Package space maps between domain-specific decision values and the
// normalized [0,1] vectors the generic neighborhood generators operate on.
package space

import (
	"github.com/copyleftdev/KILN/internal/optimization"
)

// Bounds is an ordered sequence of (lower, upper) pairs, one per
// dimension. It is immutable once a search starts.
type Bounds [][2]float64

// Validate checks that the bounds describe a usable decision space.
func (b Bounds) Validate() error {
	if len(b) == 0 {
		return optimization.NewInvalidParameter("bounds", b, "at least one dimension is required")
	}
	for _, pair := range b {
		if pair[0] >= pair[1] {
			return optimization.NewInvalidParameter("bounds", pair,
				"lower bound must be strictly less than upper bound")
		}
	}
	return nil
}

// Dims returns the number of dimensions.
func (b Bounds) Dims() int {
	return len(b)
}

// Width returns upper-lower for dimension i.
func (b Bounds) Width(i int) float64 {
	return b[i][1] - b[i][0]
}

// Vector is a normalized encoding of a candidate: one component per
// dimension, each in [0,1]. Vectors are produced by Encode or by a
// neighborhood generator, never hand-constructed.
type Vector []float64

// Clone returns a copy of the vector.
func (v Vector) Clone() Vector {
	return append(Vector(nil), v...)
}

// Encode maps a decision-space value into the normalized unit cube.
// Each component of value must lie within its bound; out-of-range
// components produce an InvalidVectorError.
func Encode(b Bounds, value []float64) (Vector, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(value) != len(b) {
		return nil, optimization.NewInvalidParameter("value", len(value),
			"dimension count must match bounds")
	}
	vec := make(Vector, len(value))
	for i, x := range value {
		lo, hi := b[i][0], b[i][1]
		if x < lo || x > hi {
			return nil, &optimization.InvalidVectorError{Index: i, Value: x, Lower: lo, Upper: hi}
		}
		vec[i] = (x - lo) / (hi - lo)
	}
	return vec, nil
}

// Decode is the inverse of Encode: it scales each normalized component
// into its declared [lower, upper] range. Components outside [0,1] are
// an error, not silently clamped, so perturbation bugs surface
// immediately.
func Decode(b Bounds, vec Vector) ([]float64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	if len(vec) != len(b) {
		return nil, optimization.NewInvalidParameter("vector", len(vec),
			"dimension count must match bounds")
	}
	value := make([]float64, len(vec))
	for i, u := range vec {
		if u < 0 || u > 1 {
			return nil, &optimization.InvalidVectorError{Index: i, Value: u, Lower: 0, Upper: 1}
		}
		lo, hi := b[i][0], b[i][1]
		value[i] = lo + u*(hi-lo)
	}
	return value, nil
}
