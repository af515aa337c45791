package rbf

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/chazu/rbfsurf/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Stats describes a completed build.
type Stats struct {
	Samples  int           `json:"samples"`
	Centers  int           `json:"centers"`
	Rank     int           `json:"rank"`
	Cutoff   float64       `json:"cutoff"`
	Residual float64       `json:"residual"` // ‖Aλ − b‖₂
	Elapsed  time.Duration `json:"elapsed"`
}

// fit is the Built state. It is never mutated after publication.
type fit struct {
	centers []r3.Vec
	coeffs  []float64
	stats   Stats
}

func (f *fit) eval(p r3.Vec) float64 {
	var sum float64
	for j, c := range f.centers {
		sum += f.coeffs[j] * kernel(p, c)
	}
	return sum
}

func (f *fit) grad(p r3.Vec) r3.Vec {
	var g r3.Vec
	for j, c := range f.centers {
		d := r3.Sub(p, c)
		g = r3.Add(g, r3.Scale(3*f.coeffs[j]*r3.Norm(d), d))
	}
	return g
}

// Model is an RBF implicit surface. The zero value is not usable; create
// models with New, Fit or Restore.
type Model struct {
	opts     options
	state    atomic.Pointer[fit]
	building atomic.Bool
}

// New returns an Unbuilt model.
func New(opts ...Option) *Model {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Model{opts: o}
}

// Restore returns a Built model from previously computed centers and
// coefficients, for example ones loaded from storage.
func Restore(centers []r3.Vec, coeffs []float64, opts ...Option) (*Model, error) {
	if len(centers) != len(coeffs) {
		return nil, fmt.Errorf("%w: %d centers but %d coefficients", ErrInvalidState, len(centers), len(coeffs))
	}
	for i, c := range centers {
		if !geom.Finite(c) {
			return nil, fmt.Errorf("%w: center %d is not finite", ErrNumericalFailure, i)
		}
		if !finite(coeffs[i]) {
			return nil, fmt.Errorf("%w: coefficient %d is not finite", ErrNumericalFailure, i)
		}
	}
	m := New(opts...)
	m.state.Store(&fit{
		centers: append([]r3.Vec{}, centers...),
		coeffs:  append([]float64{}, coeffs...),
		stats:   Stats{Centers: len(centers)},
	})
	return m, nil
}

// Built reports whether the model has completed a build.
func (m *Model) Built() bool {
	return m.state.Load() != nil
}

// Len returns the number of centers, or 0 for an Unbuilt model.
func (m *Model) Len() int {
	f := m.state.Load()
	if f == nil {
		return 0
	}
	return len(f.centers)
}

// Centers returns a copy of the centers in stored order, or nil if Unbuilt.
func (m *Model) Centers() []r3.Vec {
	f := m.state.Load()
	if f == nil {
		return nil
	}
	return append([]r3.Vec{}, f.centers...)
}

// Coefficients returns a copy of the weights in center order, or nil if
// Unbuilt.
func (m *Model) Coefficients() []float64 {
	f := m.state.Load()
	if f == nil {
		return nil
	}
	return append([]float64{}, f.coeffs...)
}

// Stats returns the statistics of the completed build.
func (m *Model) Stats() (Stats, error) {
	f := m.state.Load()
	if f == nil {
		return Stats{}, fmt.Errorf("%w: model not built", ErrInvalidState)
	}
	return f.stats, nil
}

// Evaluate returns f(p). It fails with ErrInvalidState on an Unbuilt model.
// A model built with no centers evaluates to 0 everywhere.
func (m *Model) Evaluate(p r3.Vec) (float64, error) {
	f := m.state.Load()
	if f == nil {
		return 0, fmt.Errorf("%w: evaluate before build", ErrInvalidState)
	}
	return f.eval(p), nil
}

// Gradient returns ∇f(p) = Σ_j 3λ_j‖p − c_j‖(p − c_j).
func (m *Model) Gradient(p r3.Vec) (r3.Vec, error) {
	f := m.state.Load()
	if f == nil {
		return r3.Vec{}, fmt.Errorf("%w: gradient before build", ErrInvalidState)
	}
	return f.grad(p), nil
}

// Field returns the evaluator of the built model as a plain function.
// The function is bound to the model's immutable fit and is safe for
// concurrent use.
func (m *Model) Field() (func(r3.Vec) float64, error) {
	f := m.state.Load()
	if f == nil {
		return nil, fmt.Errorf("%w: field before build", ErrInvalidState)
	}
	return f.eval, nil
}
