// Package tessellate turns scalar fields into triangle meshes using a
// geometry kernel, and samples fields onto regular lattices.
package tessellate

import (
	"errors"
	"fmt"

	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/kernel"
)

// Default padding applied around the sample bounds before meshing.
const (
	DefaultPadding    = 0.1
	DefaultMinPadding = 1e-3
	DefaultName       = "surface"
)

var (
	// ErrNilField is returned when no field function is given.
	ErrNilField = errors.New("tessellate: nil field")
	// ErrEmptyBounds is returned when the bounds contain no points.
	ErrEmptyBounds = errors.New("tessellate: empty bounds")
)

// Options controls how a field is meshed.
type Options struct {
	// Padding grows the bounds by this fraction of their diagonal on every side.
	Padding float64
	// MinPadding is the smallest absolute growth, for flat or point-like bounds.
	MinPadding float64
	// Name is copied onto the resulting mesh.
	Name string
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Padding:    DefaultPadding,
		MinPadding: DefaultMinPadding,
		Name:       DefaultName,
	}
}

// Region returns the padded box that Tessellate meshes for the given bounds.
func Region(bounds geom.Bounds, opts Options) (min, max [3]float64) {
	b := bounds.Pad(opts.Padding, opts.MinPadding)
	min = [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	max = [3]float64{b.Max.X, b.Max.Y, b.Max.Z}
	return min, max
}

// Tessellate extracts the zero level set of f inside the padded bounds
// using the provided geometry kernel. A field with no sign change in the
// region yields an empty mesh, not an error.
func Tessellate(f kernel.FieldFunc, bounds geom.Bounds, k kernel.Kernel, opts Options) (*kernel.Mesh, error) {
	if f == nil {
		return nil, ErrNilField
	}
	if bounds.Empty() {
		return nil, ErrEmptyBounds
	}

	min, max := Region(bounds, opts)
	mesh, err := k.ToMesh(k.Field(f, min, max))
	if err != nil {
		return nil, fmt.Errorf("tessellate: ToMesh failed: %w", err)
	}

	mesh.Name = opts.Name
	if mesh.Name == "" {
		mesh.Name = DefaultName
	}
	return mesh, nil
}
