// Package geom defines the value types shared by the reconstruction
// pipeline: oriented input points, supervised samples and axis-aligned
// bounds. Positions are gonum r3 vectors.
package geom
