package preisach

import (
	"errors"
	"fmt"
)

// Domain errors for hysteresis operations.
var (
	// ErrConfiguration indicates malformed arguments (shapes, degenerate data).
	ErrConfiguration = errors.New("preisach: invalid configuration")

	// ErrDomain indicates input values outside the valid field domain.
	ErrDomain = errors.New("preisach: value outside valid domain")

	// ErrModeConsistency indicates an evaluation whose mode precondition is unmet.
	ErrModeConsistency = errors.New("preisach: mode precondition not met")

	// ErrUnknownMode indicates a mode value outside the declared enumeration.
	ErrUnknownMode = errors.New("preisach: unknown mode")

	// ErrParameterBounds indicates a parameter value outside its constraint.
	ErrParameterBounds = errors.New("preisach: parameter out of valid bounds")
)

// DomainError reports the offending values of a domain check.
type DomainError struct {
	Name   string
	Values []float64
	Min    float64
	Max    float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%v: %s values %v not inside [%g, %g]", ErrDomain, e.Name, e.Values, e.Min, e.Max)
}

func (e *DomainError) Unwrap() error {
	return ErrDomain
}

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
