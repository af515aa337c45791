package cloud

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// ErrUnknownFormat is returned when a path's extension names no supported
// point-cloud format.
var ErrUnknownFormat = errors.New("cloud: unknown point cloud format")

// stream closes a decompressor together with the file beneath it.
type stream struct {
	io.Reader
	closers []func() error
}

func (s *stream) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Open opens path for reading, decompressing .zst and .lz4 files on the
// fly, and reports the point-cloud format named by the remaining
// extension.
func Open(path string) (io.ReadCloser, Format, error) {
	format, comp := Detect(path)
	if format == FormatUnknown {
		return nil, format, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, format, err
	}

	switch comp {
	case CompressionZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, format, fmt.Errorf("cloud: zstd: %w", err)
		}
		return &stream{
			Reader:  dec,
			closers: []func() error{func() error { dec.Close(); return nil }, f.Close},
		}, format, nil
	case CompressionLZ4:
		return &stream{Reader: lz4.NewReader(f), closers: []func() error{f.Close}}, format, nil
	default:
		return f, format, nil
	}
}

// Read parses a point cloud of the given format from r.
func Read(r io.Reader, format Format) ([]geom.OrientedPoint, error) {
	switch format {
	case FormatXYZ:
		return ReadXYZ(r)
	case FormatPLY:
		return ReadPLY(r)
	default:
		return nil, ErrUnknownFormat
	}
}

// Load reads every oriented point from the file at path.
func Load(path string) ([]geom.OrientedPoint, error) {
	rc, format, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	points, err := Read(rc, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}
