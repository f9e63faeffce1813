package optimization

// CostFunc evaluates the cost of a point in the decision space.
// Lower is better. Returning an error aborts the run that called it.
type CostFunc func(x []float64) (float64, error)

// Candidate pairs a decision-space point with its evaluated cost.
// The cost is computed once when the candidate is created and never
// recomputed for the same instance.
type Candidate struct {
	// Parameters is the decoded decision-space value.
	Parameters []float64

	// Point is the normalized [0,1] encoding Parameters was decoded from.
	Point []float64

	// Cost is the value of the cost function at Parameters.
	Cost float64
}

// Clone returns a deep copy of the candidate.
func (c Candidate) Clone() Candidate {
	return Candidate{
		Parameters: append([]float64(nil), c.Parameters...),
		Point:      append([]float64(nil), c.Point...),
		Cost:       c.Cost,
	}
}
