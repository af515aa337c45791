// Package cloud reads oriented point clouds from disk and synthesises them
// from triangle meshes.
//
// Supported formats are whitespace separated text (x y z nx ny nz per line)
// and PLY vertex data, optionally compressed with zstd or lz4.
package cloud

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/chazu/rbfsurf/pkg/geom"
)

// Format identifies a point-cloud file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatXYZ
	FormatPLY
)

func (f Format) String() string {
	switch f {
	case FormatXYZ:
		return "xyz"
	case FormatPLY:
		return "ply"
	default:
		return "unknown"
	}
}

// Compression identifies a stream compression wrapper.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionZstd
	CompressionLZ4
)

// Detect infers the format and compression of path from its extensions,
// e.g. "scan.ply.zst".
func Detect(path string) (Format, Compression) {
	name := strings.ToLower(filepath.Base(path))
	comp := CompressionNone
	switch {
	case strings.HasSuffix(name, ".zst"):
		comp = CompressionZstd
		name = strings.TrimSuffix(name, ".zst")
	case strings.HasSuffix(name, ".lz4"):
		comp = CompressionLZ4
		name = strings.TrimSuffix(name, ".lz4")
	}

	switch filepath.Ext(name) {
	case ".xyz", ".txt", ".pts":
		return FormatXYZ, comp
	case ".ply":
		return FormatPLY, comp
	default:
		return FormatUnknown, comp
	}
}

// ParseError reports malformed input at a given line. Line is zero for
// binary payloads.
type ParseError struct {
	Line int
	Msg  string
	Err  error
}

func (e *ParseError) Error() string {
	msg := e.Msg
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Line > 0 {
		return fmt.Sprintf("cloud: line %d: %s", e.Line, msg)
	}
	return "cloud: " + msg
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Bounds returns the bounding box of the point positions.
func Bounds(points []geom.OrientedPoint) geom.Bounds {
	var b geom.Bounds
	for _, p := range points {
		b.Extend(p.Pos)
	}
	return b
}
