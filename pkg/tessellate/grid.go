package tessellate

import (
	"context"
	"fmt"
	"runtime"

	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/kernel"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r3"
)

// Grid holds field values on an N×N×N lattice spanning Bounds, corners
// included. Values are stored with X varying slowest and Z fastest.
type Grid struct {
	N      int         `json:"n"`
	Bounds geom.Bounds `json:"bounds"`
	Values []float64   `json:"values"`
}

func (g *Grid) index(i, j, k int) int {
	return (i*g.N+j)*g.N + k
}

// At returns the value at lattice index (i, j, k).
func (g *Grid) At(i, j, k int) float64 {
	return g.Values[g.index(i, j, k)]
}

// Point returns the position of lattice index (i, j, k).
func (g *Grid) Point(i, j, k int) r3.Vec {
	step := r3.Scale(1/float64(g.N-1), g.Bounds.Size())
	return r3.Vec{
		X: g.Bounds.Min.X + float64(i)*step.X,
		Y: g.Bounds.Min.Y + float64(j)*step.Y,
		Z: g.Bounds.Min.Z + float64(k)*step.Z,
	}
}

// Inside counts lattice points where the field is negative.
func (g *Grid) Inside() int {
	n := 0
	for _, v := range g.Values {
		if v < 0 {
			n++
		}
	}
	return n
}

// SampleGrid evaluates f on an n³ lattice over bounds. X slabs are
// evaluated concurrently on up to workers goroutines; workers <= 0 uses
// GOMAXPROCS. Cancelling ctx stops the sampling between slabs.
func SampleGrid(ctx context.Context, f kernel.FieldFunc, bounds geom.Bounds, n, workers int) (*Grid, error) {
	if f == nil {
		return nil, ErrNilField
	}
	if bounds.Empty() {
		return nil, ErrEmptyBounds
	}
	if n < 2 {
		return nil, fmt.Errorf("tessellate: grid resolution %d, need at least 2", n)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g := &Grid{N: n, Bounds: bounds, Values: make([]float64, n*n*n)}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for j := 0; j < n; j++ {
				for k := 0; k < n; k++ {
					g.Values[g.index(i, j, k)] = f(g.Point(i, j, k))
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g, nil
}
