package engine

import (
	"github.com/chazu/rbfsurf/pkg/cloud"
	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/sample"
)

// Settings are sample generation overrides declared by a script with
// (settings ...). Nil fields leave the caller's configuration untouched.
type Settings struct {
	Offset       *float64 `json:"offset,omitempty"`
	Value        *float64 `json:"value,omitempty"`
	Adaptive     *bool    `json:"adaptive,omitempty"`
	SpacingScale *float64 `json:"spacing-scale,omitempty"`
}

// IsZero reports whether no override is set.
func (s Settings) IsZero() bool {
	return s.Offset == nil && s.Value == nil && s.Adaptive == nil && s.SpacingScale == nil
}

// Apply returns cfg with the script's overrides folded in. When adaptive
// spacing is on (from the script or the adaptive argument), the offset and
// value are first derived from points; explicit offset and value overrides
// still win.
func (s Settings) Apply(cfg sample.Config, points []geom.OrientedPoint, adaptive bool, scale float64) sample.Config {
	if s.Adaptive != nil {
		adaptive = *s.Adaptive
	}
	if s.SpacingScale != nil {
		scale = *s.SpacingScale
	}
	if adaptive {
		a := sample.Adaptive(points, scale)
		cfg.Offset, cfg.Value = a.Offset, a.Value
	}
	if s.Offset != nil {
		cfg.Offset = *s.Offset
	}
	if s.Value != nil {
		cfg.Value = *s.Value
	}
	return cfg
}

// Scene is the output of a script: an oriented point cloud plus sampling
// settings.
type Scene struct {
	Points   []geom.OrientedPoint `json:"points"`
	Settings Settings             `json:"settings"`
}

// Bounds returns the bounding box of the scene's points.
func (s *Scene) Bounds() geom.Bounds {
	return cloud.Bounds(s.Points)
}
