package sample

import (
	"math"

	"github.com/chazu/rbfsurf/pkg/geom"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// DefaultSpacingScale is the fraction of the mean nearest-neighbour spacing
// used by Adaptive when no scale is given.
const DefaultSpacingScale = 0.5

// MeanSpacing returns the mean distance from each point to its nearest
// distinct neighbour. Coincident points are ignored. ok is false when fewer
// than two distinct positions exist.
func MeanSpacing(points []geom.OrientedPoint) (spacing float64, ok bool) {
	if len(points) < 2 {
		return 0, false
	}
	pts := make(kdtree.Points, len(points))
	for i, p := range points {
		pts[i] = kdtree.Point{p.Pos.X, p.Pos.Y, p.Pos.Z}
	}
	tree := kdtree.New(pts, false)

	var sum float64
	var n int
	for _, p := range points {
		q := kdtree.Point{p.Pos.X, p.Pos.Y, p.Pos.Z}
		// Two neighbours: the query point itself and its nearest other.
		keep := kdtree.NewNKeeper(2)
		tree.NearestSet(keep, q)

		best := -1.0
		for _, cd := range keep.Heap {
			if cd.Comparable == nil || cd.Dist == 0 {
				continue
			}
			if best < 0 || cd.Dist < best {
				best = cd.Dist
			}
		}
		if best > 0 {
			sum += math.Sqrt(best)
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Adaptive returns a Config whose offset and value are scale times the mean
// nearest-neighbour spacing of points. Clouds without a measurable spacing
// get DefaultConfig. A non-positive scale selects DefaultSpacingScale.
func Adaptive(points []geom.OrientedPoint, scale float64) Config {
	cfg := DefaultConfig()
	if !(scale > 0) {
		scale = DefaultSpacingScale
	}
	spacing, ok := MeanSpacing(points)
	if !ok {
		return cfg
	}
	cfg.Offset = scale * spacing
	cfg.Value = scale * spacing
	return cfg
}
