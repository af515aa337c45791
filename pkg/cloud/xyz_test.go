package cloud

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestReadXYZ(t *testing.T) {
	input := `# comment
1 2 3 0 0 1

4 5 6 1 0 0 extra fields
7 8 9
-1.5e0 0 0 -1 0 0
`
	points, err := ReadXYZ(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, geom.NewOrientedPoint(1, 2, 3, 0, 0, 1), points[0])
	assert.Equal(t, geom.NewOrientedPoint(4, 5, 6, 1, 0, 0), points[1])
	assert.Equal(t, r3.Vec{X: -1.5}, points[2].Pos)
}

func TestReadXYZShortLinesSkipped(t *testing.T) {
	points, err := ReadXYZ(strings.NewReader("1 2 3 4 5\n1\n\n"))
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestReadXYZParseError(t *testing.T) {
	_, err := ReadXYZ(strings.NewReader("0 0 0 0 0 1\n1 2 x 0 0 1\n"))
	require.Error(t, err)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
	assert.Contains(t, err.Error(), "line 2")
}

func TestWriteXYZRoundTrip(t *testing.T) {
	in := []geom.OrientedPoint{
		geom.NewOrientedPoint(0.1, -2, 3e-7, 0, 1, 0),
		geom.NewOrientedPoint(1, 1, 1, 0.6, 0, 0.8),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXYZ(&buf, in))

	out, err := ReadXYZ(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestBounds(t *testing.T) {
	b := Bounds([]geom.OrientedPoint{
		geom.NewOrientedPoint(1, -1, 0, 0, 0, 1),
		geom.NewOrientedPoint(-2, 3, 5, 0, 0, 1),
	})
	assert.Equal(t, 2, b.Count())
	assert.Equal(t, r3.Vec{X: -2, Y: -1, Z: 0}, b.Min)
	assert.Equal(t, r3.Vec{X: 1, Y: 3, Z: 5}, b.Max)

	assert.True(t, Bounds(nil).Empty())
}

func TestDetect(t *testing.T) {
	tests := []struct {
		path   string
		format Format
		comp   Compression
	}{
		{"scan.xyz", FormatXYZ, CompressionNone},
		{"scan.TXT", FormatXYZ, CompressionNone},
		{"/data/scan.pts", FormatXYZ, CompressionNone},
		{"scan.ply", FormatPLY, CompressionNone},
		{"scan.ply.zst", FormatPLY, CompressionZstd},
		{"scan.xyz.lz4", FormatXYZ, CompressionLZ4},
		{"scan.obj", FormatUnknown, CompressionNone},
		{"scan.zst", FormatUnknown, CompressionZstd},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			format, comp := Detect(tt.path)
			assert.Equal(t, tt.format, format)
			assert.Equal(t, tt.comp, comp)
		})
	}
}
