package optimization

import "fmt"

// InvalidParameterError reports malformed configuration: a decay rate
// outside (0,1], a non-positive temperature, empty bounds, and so on.
// It is detected eagerly at construction time and never reaches the
// iteration loop.
type InvalidParameterError struct {
	// Param is the name of the offending parameter.
	Param string
	// Value is the rejected value, as given.
	Value interface{}
	// Reason describes the constraint that was violated.
	Reason string
}

// Error implements the error interface.
func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Param, e.Value, e.Reason)
}

// NewInvalidParameter creates an InvalidParameterError for the named parameter.
func NewInvalidParameter(param string, value interface{}, reason string) *InvalidParameterError {
	return &InvalidParameterError{Param: param, Value: value, Reason: reason}
}

// InvalidVectorError reports a normalized vector component outside its
// declared range. It indicates a bug in a neighborhood generator or in
// the caller, so it is surfaced immediately rather than clamped away.
type InvalidVectorError struct {
	// Index is the offending dimension.
	Index int
	// Value is the out-of-range component.
	Value float64
	// Lower and Upper delimit the valid range for the component.
	Lower, Upper float64
}

// Error implements the error interface.
func (e *InvalidVectorError) Error() string {
	return fmt.Sprintf("vector component %d out of range: %v not in [%v, %v]",
		e.Index, e.Value, e.Lower, e.Upper)
}

// StepExhaustedError reports that a stepper gave up searching for a
// feasible neighbor after its retry budget. It is fatal for the current
// run: the generator already spent its retries, so the engine does not
// retry again. Callers may restart with a different seed or a relaxed
// temperature.
type StepExhaustedError struct {
	// Dim is the dimension whose stepper gave up.
	Dim int
	// Temp is the temperature at which the search failed.
	Temp float64
	// Attempts is the number of draws that fell outside the bound.
	Attempts int
}

// Error implements the error interface.
func (e *StepExhaustedError) Error() string {
	return fmt.Sprintf("no feasible step for dimension %d after %d attempts at temperature %v",
		e.Dim, e.Attempts, e.Temp)
}
