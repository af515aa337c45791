package rbf

import "errors"

var (
	// ErrInvalidState is returned when evaluating a model that has not been
	// built, or when building a model that is already built or building.
	ErrInvalidState = errors.New("rbf: invalid model state")

	// ErrDegenerateInput is returned when a build is given no samples.
	ErrDegenerateInput = errors.New("rbf: degenerate input")

	// ErrNumericalFailure is returned when the least-squares solve does not
	// produce finite coefficients.
	ErrNumericalFailure = errors.New("rbf: numerical failure")
)
