// Package kernel defines the abstract geometry kernel used to turn implicit
// surfaces into triangle meshes. Implementations (sdfx) provide CAD
// primitives for synthesising point clouds and isosurface extraction for
// reconstructed fields behind this interface.
package kernel

import "gonum.org/v1/gonum/spatial/r3"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// BoundingBox returns the axis-aligned bounding box.
	BoundingBox() (min, max [3]float64)
}

// FieldFunc is a scalar field that is negative inside a surface and positive
// outside it. It must be safe for concurrent use.
type FieldFunc func(p r3.Vec) float64

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Primitives
	Box(x, y, z float64) Solid
	Cylinder(height, radius float64) Solid
	Sphere(radius float64) Solid

	// Boolean operations
	Union(a, b Solid) Solid
	Difference(a, b Solid) Solid
	Intersection(a, b Solid) Solid

	// Transforms
	Translate(s Solid, x, y, z float64) Solid
	Rotate(s Solid, x, y, z float64) Solid // Euler angles in degrees

	// Field wraps an arbitrary scalar field, meshed within [min, max].
	Field(f FieldFunc, min, max [3]float64) Solid

	// Mesh output
	ToMesh(s Solid) (*Mesh, error)
}
