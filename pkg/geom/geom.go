package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// OrientedPoint is one point-cloud record: a surface position and its normal.
// The normal need not be unit length.
type OrientedPoint struct {
	Pos    r3.Vec `json:"pos"`
	Normal r3.Vec `json:"normal"`
}

// NewOrientedPoint builds an OrientedPoint from the six-number record
// (x, y, z, nx, ny, nz).
func NewOrientedPoint(x, y, z, nx, ny, nz float64) OrientedPoint {
	return OrientedPoint{
		Pos:    r3.Vec{X: x, Y: y, Z: z},
		Normal: r3.Vec{X: nx, Y: ny, Z: nz},
	}
}

func (p OrientedPoint) String() string {
	return fmt.Sprintf("(%g %g %g | %g %g %g)", p.Pos.X, p.Pos.Y, p.Pos.Z, p.Normal.X, p.Normal.Y, p.Normal.Z)
}

// Sample is a supervised training point: the field should take Value at Pos.
type Sample struct {
	Pos   r3.Vec  `json:"pos"`
	Value float64 `json:"value"`
}

// SurfaceTolerance is the largest |value| for which a sample lies on the
// surface.
const SurfaceTolerance = 1e-9

// OnSurface reports whether the sample's value is zero within
// SurfaceTolerance.
func (s Sample) OnSurface() bool {
	return s.Value < SurfaceTolerance && s.Value > -SurfaceTolerance
}

// Finite reports whether every component of v is a finite number.
func Finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}
