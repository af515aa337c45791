// Package sample turns oriented point-cloud points into the supervised
// training set for implicit surface fitting: one on-surface sample per point
// plus an off-surface pair displaced along the normal.
package sample

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/rbfsurf/pkg/geom"
	"gonum.org/v1/gonum/spatial/r3"
)

// Reference constants for the off-surface pair.
const (
	DefaultOffset        = 0.01
	DefaultValue         = 0.01
	DefaultNormalEpsilon = 1e-9
)

// Config controls off-surface sample placement.
type Config struct {
	// Offset is the spatial displacement along the unit normal.
	Offset float64 `json:"offset"`
	// Value is the field magnitude assigned to off-surface samples.
	Value float64 `json:"value"`
	// NormalEpsilon is the minimum normal length; shorter normals only
	// produce the on-surface sample.
	NormalEpsilon float64 `json:"normal-epsilon"`
}

// DefaultConfig returns the reference configuration.
func DefaultConfig() Config {
	return Config{
		Offset:        DefaultOffset,
		Value:         DefaultValue,
		NormalEpsilon: DefaultNormalEpsilon,
	}
}

// Validate checks that the offset and value are positive finite numbers.
func (c Config) Validate() error {
	var errs []error
	if !(c.Offset > 0) || math.IsInf(c.Offset, 0) {
		errs = append(errs, fmt.Errorf("offset must be positive and finite, got %g", c.Offset))
	}
	if !(c.Value > 0) || math.IsInf(c.Value, 0) {
		errs = append(errs, fmt.Errorf("value must be positive and finite, got %g", c.Value))
	}
	if c.NormalEpsilon < 0 || math.IsNaN(c.NormalEpsilon) {
		errs = append(errs, fmt.Errorf("normal epsilon must be non-negative, got %g", c.NormalEpsilon))
	}
	if len(errs) > 0 {
		return fmt.Errorf("sample: invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Generate emits, for every input point, an on-surface sample with value 0
// followed by the outward (+Value) and inward (-Value) samples at
// pos ± Offset·n̂. Points whose normal is shorter than NormalEpsilon only
// contribute the on-surface sample. The result has between len(points) and
// 3·len(points) entries and depends only on its inputs.
func Generate(points []geom.OrientedPoint, cfg Config) []geom.Sample {
	out := make([]geom.Sample, 0, 3*len(points))
	for _, p := range points {
		out = append(out, geom.Sample{Pos: p.Pos, Value: 0})

		length := r3.Norm(p.Normal)
		if !(length >= cfg.NormalEpsilon) || length == 0 {
			continue
		}
		n := r3.Scale(1/length, p.Normal)
		d := r3.Scale(cfg.Offset, n)

		out = append(out,
			geom.Sample{Pos: r3.Add(p.Pos, d), Value: +cfg.Value},
			geom.Sample{Pos: r3.Sub(p.Pos, d), Value: -cfg.Value},
		)
	}
	return out
}

// Split partitions samples into on-surface and off-surface sets, preserving
// order. On-surface samples are the ones an RBF build turns into centers.
func Split(samples []geom.Sample) (on, off []geom.Sample) {
	for _, s := range samples {
		if s.OnSurface() {
			on = append(on, s)
		} else {
			off = append(off, s)
		}
	}
	return on, off
}
