package store

import (
	"encoding/binary"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// encodeFloats packs values as little-endian float64s.
func encodeFloats(v []float64) []byte {
	b := make([]byte, 8*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint64(b[i*8:], math.Float64bits(f))
	}
	return b
}

// decodeFloats unpacks a blob written by encodeFloats.
func decodeFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("store: invalid float blob length %d", len(b))
	}
	v := make([]float64, len(b)/8)
	for i := range v {
		v[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return v, nil
}

// encodeVecs packs vectors as consecutive x, y, z float64 triples.
func encodeVecs(v []r3.Vec) []byte {
	flat := make([]float64, 0, 3*len(v))
	for _, p := range v {
		flat = append(flat, p.X, p.Y, p.Z)
	}
	return encodeFloats(flat)
}

// decodeVecs unpacks a blob written by encodeVecs.
func decodeVecs(b []byte) ([]r3.Vec, error) {
	flat, err := decodeFloats(b)
	if err != nil {
		return nil, err
	}
	if len(flat)%3 != 0 {
		return nil, fmt.Errorf("store: invalid vector blob length %d", len(b))
	}
	v := make([]r3.Vec, len(flat)/3)
	for i := range v {
		v[i] = r3.Vec{X: flat[3*i], Y: flat[3*i+1], Z: flat[3*i+2]}
	}
	return v, nil
}
