package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/rbfsurf/pkg/cloud"
	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/kernel"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// sceneBuilder is the mutable state the builtins of one evaluation share.
type sceneBuilder struct {
	scene     *Scene
	kernel    kernel.Kernel
	kernels   KernelFactory
	cells     int
	maxPoints int
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps an r3.Vec.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSolid wraps a kernel.Solid so solids can be bound and combined.
type sexpSolid struct {
	solid kernel.Solid
	desc  string
}

func (s *sexpSolid) SexpString(ps *zygo.PrintState) string {
	return "(" + s.desc + ")"
}
func (s *sexpSolid) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// check rejects keywords a builtin does not understand.
func (pa kwArgs) check(fn string, allowed ...string) error {
	for name := range pa.kw {
		known := false
		for _, a := range allowed {
			if a == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%s: unknown keyword :%s", fn, name)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a finite float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	var f float64
	switch v := s.(type) {
	case *zygo.SexpInt:
		f = float64(v.Val)
	case *zygo.SexpFloat:
		f = v.Val
	default:
		return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("expected finite number, got %g", f)
	}
	return f, nil
}

// toPositive extracts a number greater than zero.
func toPositive(s zygo.Sexp) (float64, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, fmt.Errorf("expected positive number, got %g", f)
	}
	return f, nil
}

// toInt extracts an integer.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a boolean.
func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts an r3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toSolid extracts a kernel.Solid from a sexpSolid.
func toSolid(s zygo.Sexp) (*sexpSolid, error) {
	if v, ok := s.(*sexpSolid); ok {
		return v, nil
	}
	return nil, fmt.Errorf("expected solid, got %T (%s)", s, s.SexpString(nil))
}

// positiveArgs extracts exactly n positive numbers.
func positiveArgs(fn string, args []zygo.Sexp, names ...string) ([]float64, error) {
	if len(args) != len(names) {
		return nil, fmt.Errorf("%s requires exactly %d arguments, got %d", fn, len(names), len(args))
	}
	out := make([]float64, len(args))
	for i, a := range args {
		f, err := toPositive(a)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", fn, names[i], err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the scene builtins into a zygomys environment.
// Source must be preprocessed with preprocessSource so that :keyword tokens
// arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *sceneBuilder) {

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: r3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (point (vec3 0 0 1) (vec3 0 0 1))
	env.AddFunction("point", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("point requires a position and a normal, got %d arguments", len(args))
		}
		pos, err := toVec3(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: position: %w", err)
		}
		normal, err := toVec3(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: normal: %w", err)
		}
		b.scene.Points = append(b.scene.Points, geom.OrientedPoint{Pos: pos, Normal: normal})
		return &zygo.SexpInt{Val: int64(len(b.scene.Points))}, nil
	})

	// (box 2 1 1)
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		d, err := positiveArgs("box", args, "x", "y", "z")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{
			solid: b.kernel.Box(d[0], d[1], d[2]),
			desc:  fmt.Sprintf("box %g %g %g", d[0], d[1], d[2]),
		}, nil
	})

	// (cylinder height radius)
	env.AddFunction("cylinder", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		d, err := positiveArgs("cylinder", args, "height", "radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{
			solid: b.kernel.Cylinder(d[0], d[1]),
			desc:  fmt.Sprintf("cylinder %g %g", d[0], d[1]),
		}, nil
	})

	// (sphere radius)
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		d, err := positiveArgs("sphere", args, "radius")
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpSolid{
			solid: b.kernel.Sphere(d[0]),
			desc:  fmt.Sprintf("sphere %g", d[0]),
		}, nil
	})

	// (union a b ...), (difference a b), (intersection a b ...)
	booleans := map[string]func(a, c kernel.Solid) kernel.Solid{
		"union":        b.kernel.Union,
		"difference":   b.kernel.Difference,
		"intersection": b.kernel.Intersection,
	}
	for fn, op := range booleans {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) < 2 || (fn == "difference" && len(args) != 2) {
				return zygo.SexpNull, fmt.Errorf("%s requires two solids, got %d arguments", fn, len(args))
			}
			acc, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: argument 1: %w", fn, err)
			}
			out := acc.solid
			descs := []string{acc.desc}
			for i := 1; i < len(args); i++ {
				s, err := toSolid(args[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
				}
				out = op(out, s.solid)
				descs = append(descs, s.desc)
			}
			return &sexpSolid{solid: out, desc: fn + " " + strings.Join(descs, " ")}, nil
		})
	}

	// (translate solid (vec3 1 0 0)), (rotate solid (vec3 0 0 90))
	transforms := map[string]func(s kernel.Solid, x, y, z float64) kernel.Solid{
		"translate": b.kernel.Translate,
		"rotate":    b.kernel.Rotate,
	}
	for fn, op := range transforms {
		env.AddFunction(fn, func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a solid and a vec3, got %d arguments", fn, len(args))
			}
			s, err := toSolid(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			v, err := toVec3(args[1])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", fn, err)
			}
			return &sexpSolid{
				solid: op(s.solid, v.X, v.Y, v.Z),
				desc:  fmt.Sprintf("%s %s %g %g %g", fn, s.desc, v.X, v.Y, v.Z),
			}, nil
		})
	}

	// (scan solid :cells 24 :max-points 300)
	env.AddFunction("scan", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if err := pa.check("scan", "cells", "max-points"); err != nil {
			return zygo.SexpNull, err
		}
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("scan requires exactly one solid")
		}
		s, err := toSolid(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scan: %w", err)
		}

		cells, maxPoints := b.cells, b.maxPoints
		if v, ok := pa.kw["cells"]; ok {
			if cells, err = toInt(v); err != nil || cells < 2 {
				return zygo.SexpNull, fmt.Errorf("scan: cells must be an integer of at least 2")
			}
		}
		if v, ok := pa.kw["max-points"]; ok {
			if maxPoints, err = toInt(v); err != nil || maxPoints < 1 {
				return zygo.SexpNull, fmt.Errorf("scan: max-points must be a positive integer")
			}
		}

		k := b.kernel
		if cells != b.cells {
			k = b.kernels(cells)
		}
		mesh, err := k.ToMesh(s.solid)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("scan: %w", err)
		}
		pts := cloud.FromMesh(mesh, maxPoints)
		b.scene.Points = append(b.scene.Points, pts...)
		return &zygo.SexpInt{Val: int64(len(pts))}, nil
	})

	// (settings :offset 0.01 :value 0.01 :adaptive true :spacing-scale 0.5)
	env.AddFunction("settings", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("settings takes only keyword arguments")
		}
		if err := pa.check("settings", "offset", "value", "adaptive", "spacing-scale"); err != nil {
			return zygo.SexpNull, err
		}

		st := &b.scene.Settings
		for kw, dst := range map[string]**float64{
			"offset":        &st.Offset,
			"value":         &st.Value,
			"spacing-scale": &st.SpacingScale,
		} {
			v, ok := pa.kw[kw]
			if !ok {
				continue
			}
			f, err := toPositive(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("settings: %s: %w", kw, err)
			}
			*dst = &f
		}
		if v, ok := pa.kw["adaptive"]; ok {
			on, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("settings: adaptive: %w", err)
			}
			st.Adaptive = &on
		}
		return zygo.SexpNull, nil
	})

	// (point-count)
	env.AddFunction("point_count", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		return &zygo.SexpInt{Val: int64(len(b.scene.Points))}, nil
	})
}
