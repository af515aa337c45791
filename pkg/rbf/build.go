package rbf

import (
	"context"
	"fmt"
	"time"

	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/logging"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// machineEpsilon is the float64 unit roundoff, 2⁻⁵².
const machineEpsilon = 2.220446049250313e-16

// Fit creates a model and builds it from samples.
func Fit(ctx context.Context, samples []geom.Sample, opts ...Option) (*Model, error) {
	m := New(opts...)
	if err := m.Build(ctx, samples); err != nil {
		return nil, err
	}
	return m, nil
}

// Build computes centers and coefficients from samples and moves the model to
// the Built state. Samples with |value| < CenterTolerance become centers in
// encounter order. On any error the model stays Unbuilt.
//
// Build blocks until the solve finishes or ctx is cancelled. Cancellation is
// observed during matrix assembly and before the solve.
func (m *Model) Build(ctx context.Context, samples []geom.Sample) error {
	if m.state.Load() != nil {
		return fmt.Errorf("%w: model already built", ErrInvalidState)
	}
	if !m.building.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: build already in progress", ErrInvalidState)
	}
	defer m.building.Store(false)

	if len(samples) == 0 {
		return fmt.Errorf("%w: no samples", ErrDegenerateInput)
	}

	start := time.Now()
	centers := Centers(samples)
	log := m.opts.logger.WithSamples(len(samples)).WithCenters(len(centers))
	log.Debug("rbf build started", "workers", m.opts.workers)

	f := &fit{
		centers: centers,
		coeffs:  []float64{},
		stats:   Stats{Samples: len(samples), Centers: len(centers)},
	}

	if len(centers) > 0 {
		a, b, err := assemble(ctx, samples, centers, m.opts.workers)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rbf: build cancelled before solve: %w", err)
		}
		rcond := m.opts.cutoff
		if rcond <= 0 {
			rcond = float64(max(len(samples), len(centers))) * machineEpsilon
		}
		coeffs, rank, err := solve(a, b, rcond)
		if err != nil {
			log.Warn("rbf solve failed", "error", err)
			return err
		}
		f.coeffs = coeffs
		f.stats.Rank = rank
		f.stats.Cutoff = rcond
		f.stats.Residual = residual(a, b, coeffs)
	} else {
		log.Warn("no on-surface samples; model evaluates to zero everywhere")
	}

	f.stats.Elapsed = time.Since(start)
	m.state.Store(f)

	log.Info("rbf build complete",
		"rank", f.stats.Rank,
		"residual", f.stats.Residual,
		logging.Elapsed(start))
	return nil
}

// assemble builds A[i][j] = φ(‖s_i − c_j‖) and b[i] = s_i.value. Rows are
// filled concurrently; each entry depends only on immutable inputs.
func assemble(ctx context.Context, samples []geom.Sample, centers []r3.Vec, workers int) (*mat.Dense, *mat.VecDense, error) {
	n, k := len(samples), len(centers)
	a := mat.NewDense(n, k, nil)
	raw := a.RawMatrix()

	chunk := max(1, (n+workers*4-1)/(workers*4))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				row := raw.Data[i*raw.Stride : i*raw.Stride+k]
				p := samples[i].Pos
				for j, c := range centers {
					v := kernel(p, c)
					if !finite(v) {
						return fmt.Errorf("%w: design matrix entry (%d,%d) is %v", ErrNumericalFailure, i, j, v)
					}
					row[j] = v
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("rbf: matrix assembly: %w", err)
	}

	b := mat.NewVecDense(n, nil)
	for i, s := range samples {
		if !finite(s.Value) {
			return nil, nil, fmt.Errorf("%w: sample %d value is %v", ErrNumericalFailure, i, s.Value)
		}
		b.SetVec(i, s.Value)
	}
	return a, b, nil
}

// solve returns the minimum-norm minimiser of ‖Ax − b‖₂ using a thin SVD,
// discarding singular values at or below rcond·σ_max.
func solve(a *mat.Dense, b *mat.VecDense, rcond float64) ([]float64, int, error) {
	_, k := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, fmt.Errorf("%w: singular value decomposition did not converge", ErrNumericalFailure)
	}

	for _, v := range svd.Values(nil) {
		if !finite(v) {
			return nil, 0, fmt.Errorf("%w: singular value %v", ErrNumericalFailure, v)
		}
	}

	coeffs := make([]float64, k)
	rank := svd.Rank(rcond)
	if rank == 0 {
		// A is numerically zero; the minimum-norm solution is λ = 0.
		return coeffs, 0, nil
	}

	var x mat.VecDense
	svd.SolveVecTo(&x, b, rank)
	for i := range coeffs {
		v := x.AtVec(i)
		if !finite(v) {
			return nil, rank, fmt.Errorf("%w: coefficient %d is %v", ErrNumericalFailure, i, v)
		}
		coeffs[i] = v
	}
	return coeffs, rank, nil
}

func residual(a *mat.Dense, b *mat.VecDense, coeffs []float64) float64 {
	var r mat.VecDense
	r.MulVec(a, mat.NewVecDense(len(coeffs), coeffs))
	r.SubVec(&r, b)
	return mat.Norm(&r, 2)
}
