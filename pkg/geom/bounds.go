package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Bounds is an r3.Box that also counts the points folded into it. The zero
// value is empty; Extend grows it to include points.
//
// r3.Box reports flat boxes as empty, which a planar or single-point cloud
// is not, so Empty and Contains go by the point count instead.
type Bounds struct {
	r3.Box
	n int
}

// NewBounds returns the bounds of the given points.
func NewBounds(pts ...r3.Vec) Bounds {
	var b Bounds
	for _, p := range pts {
		b.Extend(p)
	}
	return b
}

// Extend grows b to contain p.
func (b *Bounds) Extend(p r3.Vec) {
	if b.n == 0 {
		b.Box = r3.Box{Min: p, Max: p}
	} else {
		b.Box = extend(b.Box, p)
	}
	b.n++
}

func extend(box r3.Box, p r3.Vec) r3.Box {
	lo := r3.NewBox(box.Min.X, box.Min.Y, box.Min.Z, p.X, p.Y, p.Z)
	hi := r3.NewBox(box.Max.X, box.Max.Y, box.Max.Z, p.X, p.Y, p.Z)
	return r3.Box{Min: lo.Min, Max: hi.Max}
}

// Empty reports whether no point has been added.
func (b Bounds) Empty() bool {
	return b.n == 0
}

// Count returns the number of points folded into b.
func (b Bounds) Count() int {
	return b.n
}

// Diagonal returns the length of the box diagonal.
func (b Bounds) Diagonal() float64 {
	return r3.Norm(b.Size())
}

// Pad returns a copy of b grown by frac of its diagonal on every side.
// Flat or single-point boxes are grown by at least minPad.
func (b Bounds) Pad(frac, minPad float64) Bounds {
	if b.Empty() {
		return b
	}
	d := math.Max(b.Diagonal()*frac, minPad)
	out := b
	out.Box = r3.Box{
		Min: r3.Sub(b.Min, r3.Vec{X: d, Y: d, Z: d}),
		Max: r3.Add(b.Max, r3.Vec{X: d, Y: d, Z: d}),
	}
	return out
}

// Contains reports whether p lies inside or on the box.
func (b Bounds) Contains(p r3.Vec) bool {
	switch {
	case b.n == 0:
		return false
	case !b.Box.Empty():
		return b.Box.Contains(p)
	}
	return extend(b.Box, p) == b.Box
}
