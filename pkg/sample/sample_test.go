package sample

import (
	"math"
	"testing"

	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGenerateSinglePoint(t *testing.T) {
	pts := []geom.OrientedPoint{geom.NewOrientedPoint(0, 0, 0, 0, 0, 1)}

	got := Generate(pts, DefaultConfig())

	require.Len(t, got, 3)
	assert.Equal(t, geom.Sample{Pos: r3.Vec{}, Value: 0}, got[0])
	assert.Equal(t, geom.Sample{Pos: r3.Vec{Z: 0.01}, Value: 0.01}, got[1])
	assert.Equal(t, geom.Sample{Pos: r3.Vec{Z: -0.01}, Value: -0.01}, got[2])
}

func TestGenerateNormalizesNormal(t *testing.T) {
	pts := []geom.OrientedPoint{geom.NewOrientedPoint(1, 2, 3, 10, 0, 0)}
	cfg := Config{Offset: 0.5, Value: 2, NormalEpsilon: 1e-9}

	got := Generate(pts, cfg)

	require.Len(t, got, 3)
	assert.InDelta(t, 1.5, got[1].Pos.X, 1e-15)
	assert.InDelta(t, 0.5, got[2].Pos.X, 1e-15)
	assert.Equal(t, 2.0, got[1].Value)
	assert.Equal(t, -2.0, got[2].Value)
}

func TestGenerateDegenerateNormal(t *testing.T) {
	tests := []struct {
		name   string
		normal r3.Vec
	}{
		{"zero", r3.Vec{}},
		{"tiny", r3.Vec{X: 1e-12}},
		{"nan", r3.Vec{X: math.NaN()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := []geom.OrientedPoint{{Pos: r3.Vec{X: 1}, Normal: tt.normal}}
			got := Generate(pts, DefaultConfig())
			require.Len(t, got, 1)
			assert.Equal(t, 0.0, got[0].Value)
			assert.Equal(t, r3.Vec{X: 1}, got[0].Pos)
		})
	}
}

func TestGenerateLengthBounds(t *testing.T) {
	pts := []geom.OrientedPoint{
		geom.NewOrientedPoint(0, 0, 0, 0, 0, 1),
		geom.NewOrientedPoint(1, 0, 0, 0, 0, 0),
		geom.NewOrientedPoint(0, 1, 0, 0, 1, 0),
	}
	got := Generate(pts, DefaultConfig())
	assert.Len(t, got, 7)
	assert.GreaterOrEqual(t, len(got), len(pts))
	assert.LessOrEqual(t, len(got), 3*len(pts))

	on, off := Split(got)
	assert.Len(t, on, 3)
	assert.Len(t, off, 4)
}

func TestGenerateDeterministic(t *testing.T) {
	pts := []geom.OrientedPoint{
		geom.NewOrientedPoint(0.3, -1, 2, 1, 1, 1),
		geom.NewOrientedPoint(5, 4, 3, -1, 0, 2),
	}
	a := Generate(pts, DefaultConfig())
	b := Generate(pts, DefaultConfig())
	assert.Equal(t, a, b)
}

func TestGenerateEmpty(t *testing.T) {
	got := Generate(nil, DefaultConfig())
	assert.Empty(t, got)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"default", DefaultConfig(), true},
		{"zero offset", Config{Offset: 0, Value: 1}, false},
		{"negative value", Config{Offset: 1, Value: -1}, false},
		{"nan offset", Config{Offset: math.NaN(), Value: 1}, false},
		{"inf value", Config{Offset: 1, Value: math.Inf(1)}, false},
		{"negative epsilon", Config{Offset: 1, Value: 1, NormalEpsilon: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestSplitTolerance(t *testing.T) {
	samples := []geom.Sample{
		{Value: 0},
		{Value: 5e-10},
		{Value: -5e-10},
		{Value: geom.SurfaceTolerance},
		{Value: 0.01},
	}
	on, off := Split(samples)
	assert.Len(t, on, 3)
	assert.Len(t, off, 2)
}
