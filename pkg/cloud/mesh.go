package cloud

import (
	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/kernel"
	"gonum.org/v1/gonum/spatial/r3"
)

// FromMesh returns one oriented point per triangle of m, placed at the
// triangle centroid with the unit face normal. The stored vertex normal is
// used when present, otherwise the winding order decides. Degenerate
// triangles are skipped. When maxPoints is positive and the mesh has more usable
// triangles, the triangles are strided down to at most maxPoints points.
func FromMesh(m *kernel.Mesh, maxPoints int) []geom.OrientedPoint {
	if m == nil || m.IsEmpty() {
		return nil
	}

	stored := len(m.Normals) == len(m.Vertices)
	n := m.TriangleCount()
	points := make([]geom.OrientedPoint, 0, n)
	for t := 0; t < n; t++ {
		idx := m.Triangle(t)
		a, b, c := m.Vertex(int(idx[0])), m.Vertex(int(idx[1])), m.Vertex(int(idx[2]))

		cross := r3.Cross(r3.Sub(b, a), r3.Sub(c, a))
		if r3.Norm(cross) == 0 {
			continue
		}
		normal := cross
		if stored {
			normal = m.Normal(int(idx[0]))
		}
		length := r3.Norm(normal)
		if length == 0 || !geom.Finite(normal) {
			continue
		}
		centroid := r3.Scale(1.0/3.0, r3.Add(r3.Add(a, b), c))
		points = append(points, geom.OrientedPoint{Pos: centroid, Normal: r3.Scale(1/length, normal)})
	}

	if maxPoints <= 0 || len(points) <= maxPoints {
		return points
	}
	out := make([]geom.OrientedPoint, maxPoints)
	step := float64(len(points)) / float64(maxPoints)
	for i := range out {
		out[i] = points[int(float64(i)*step)]
	}
	return out
}
