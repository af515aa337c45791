package rbf

import (
	"math"

	"github.com/chazu/rbfsurf/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// CenterTolerance is the largest |value| for which a sample becomes a center.
const CenterTolerance = geom.SurfaceTolerance

// Cubic is the radial basis function φ(r) = r³.
func Cubic(r float64) float64 {
	return r * r * r
}

// kernel evaluates φ(‖p − c‖).
func kernel(p, c r3.Vec) float64 {
	return Cubic(geom.Dist(p, c))
}

// IsCenter reports whether a sample value marks an on-surface center.
func IsCenter(value float64) bool {
	return geom.Sample{Value: value}.OnSurface()
}

// Centers extracts center positions from samples in encounter order.
func Centers(samples []geom.Sample) []r3.Vec {
	centers := make([]r3.Vec, 0, len(samples)/3+1)
	for _, s := range samples {
		if s.OnSurface() {
			centers = append(centers, s.Pos)
		}
	}
	return centers
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
