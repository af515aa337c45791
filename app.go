package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/rbfsurf/pkg/cloud"
	"github.com/chazu/rbfsurf/pkg/config"
	"github.com/chazu/rbfsurf/pkg/engine"
	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/kernel"
	"github.com/chazu/rbfsurf/pkg/kernel/sdfx"
	"github.com/chazu/rbfsurf/pkg/logging"
	"github.com/chazu/rbfsurf/pkg/rbf"
	"github.com/chazu/rbfsurf/pkg/sample"
	"github.com/chazu/rbfsurf/pkg/store"
	"github.com/chazu/rbfsurf/pkg/tessellate"
)

// surfaceColor is the display color attached to reconstructed meshes.
const surfaceColor = "#4A90D9"

// App wires scene evaluation, sampling, the RBF solve and meshing.
type App struct {
	conf   config.Config
	log    *logging.Logger
	engine *engine.Engine
	kernel *sdfx.SdfxKernel
	store  *store.Store
	name   string
}

// MeshData is the JSON-serializable mesh format.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	Name     string    `json:"name"`
	Color    string    `json:"color"`
}

// ErrorData is a JSON-serializable error.
type ErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// Result is the full outcome of one reconstruction.
type Result struct {
	Mesh    *MeshData      `json:"mesh,omitempty"`
	Stats   *rbf.Stats     `json:"stats,omitempty"`
	Sample  *sample.Config `json:"sample,omitempty"`
	Points  int            `json:"points"`
	ModelID string         `json:"modelId,omitempty"`
	Errors  []ErrorData    `json:"errors"`

	model  *rbf.Model
	bounds geom.Bounds
}

// OK reports whether the reconstruction produced a model.
func (r Result) OK() bool {
	return len(r.Errors) == 0 && r.model != nil
}

// NewApp creates an App from a validated configuration.
func NewApp(conf config.Config, log *logging.Logger) *App {
	if log == nil {
		log = logging.Noop()
	}
	return &App{
		conf: conf,
		log:  log,
		engine: engine.NewEngine(
			engine.WithTimeout(conf.Script.Timeout()),
			engine.WithScanDefaults(conf.Script.ScanCells, conf.Script.ScanMaxPoints),
		),
		kernel: sdfx.New(sdfx.WithCells(conf.Mesh.Cells), sdfx.WithOctree(conf.Mesh.Octree)),
	}
}

// UseStore saves every successful model to s.
func (a *App) UseStore(s *store.Store) {
	a.store = s
}

// SetName overrides the name given to meshes and stored models.
func (a *App) SetName(name string) {
	a.name = name
}

func (a *App) nameOr(def string) string {
	if a.name != "" {
		return a.name
	}
	return def
}

func errorResult(err error) Result {
	return Result{Errors: []ErrorData{{Message: err.Error()}}}
}

// Evaluate runs a scene script and reconstructs the surface of the points
// it produced.
func (a *App) Evaluate(ctx context.Context, source string) Result {
	scene, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error("evaluate fatal error", "error", err)
		return errorResult(err)
	}
	if len(evalErrs) > 0 {
		res := Result{Errors: make([]ErrorData, 0, len(evalErrs))}
		for _, e := range evalErrs {
			res.Errors = append(res.Errors, ErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		return res
	}
	return a.reconstruct(ctx, scene.Points, scene.Bounds(), scene.Settings, a.nameOr("scene"))
}

// Reconstruct builds a surface from an oriented point cloud using the
// configured sample settings.
func (a *App) Reconstruct(ctx context.Context, points []geom.OrientedPoint) Result {
	return a.reconstruct(ctx, points, cloud.Bounds(points), engine.Settings{}, a.nameOr("cloud"))
}

func (a *App) reconstruct(ctx context.Context, points []geom.OrientedPoint, bounds geom.Bounds, st engine.Settings, name string) Result {
	start := time.Now()
	log := a.log.WithSource(name)

	if len(points) == 0 {
		return errorResult(fmt.Errorf("%w: no points", rbf.ErrDegenerateInput))
	}

	if !st.IsZero() {
		log.Debug("script sample overrides", "settings", st)
	}
	cfg := st.Apply(a.conf.Sample.Config, points, a.conf.Sample.Adaptive, a.conf.Sample.SpacingScale)
	if err := cfg.Validate(); err != nil {
		return errorResult(err)
	}
	samples := sample.Generate(points, cfg)
	log.Debug("samples generated", "points", len(points), "samples", len(samples), "offset", cfg.Offset, "value", cfg.Value)

	model, err := rbf.Fit(ctx, samples,
		rbf.WithLogger(log),
		rbf.WithWorkers(a.conf.Solve.Workers),
		rbf.WithCutoff(a.conf.Solve.Cutoff),
	)
	if err != nil {
		log.Error("rbf build failed", "error", err)
		return errorResult(err)
	}

	res, err := a.mesh(model, bounds, name)
	if err != nil {
		log.Error("tessellation failed", "error", err)
		return errorResult(fmt.Errorf("tessellation failed: %w", err))
	}
	res.Points = len(points)
	res.Sample = &cfg

	if a.store != nil {
		id, err := a.store.Save(ctx, name, model)
		if err != nil {
			log.Error("store save failed", "error", err)
			res.Errors = append(res.Errors, ErrorData{Message: err.Error()})
			return res
		}
		res.ModelID = id
	}

	log.Info("reconstruction complete",
		"triangles", res.Mesh.TriangleCount(),
		"model", res.ModelID,
		logging.Elapsed(start),
	)
	return res
}

// MeshModel meshes an already built model, such as one loaded from the
// store. The model's centers bound the meshed region.
func (a *App) MeshModel(m *rbf.Model, name string) Result {
	centers := m.Centers()
	if len(centers) == 0 {
		return errorResult(fmt.Errorf("%w: model has no centers", rbf.ErrDegenerateInput))
	}
	res, err := a.mesh(m, geom.NewBounds(centers...), name)
	if err != nil {
		return errorResult(err)
	}
	return res
}

func (a *App) mesh(m *rbf.Model, bounds geom.Bounds, name string) (Result, error) {
	field, err := m.Field()
	if err != nil {
		return Result{}, err
	}
	stats, err := m.Stats()
	if err != nil {
		return Result{}, err
	}
	mesh, err := tessellate.Tessellate(field, bounds, a.kernel, a.conf.TessellateOptions(name))
	if err != nil {
		return Result{}, err
	}
	if err := shadeNormals(mesh, m); err != nil {
		return Result{}, err
	}
	return Result{
		Mesh:   toMeshData(mesh),
		Stats:  &stats,
		Errors: []ErrorData{},
		model:  m,
		bounds: bounds,
	}, nil
}

// shadeNormals replaces the marching-cubes face normals with the unit field
// gradient at each vertex. Vertices with a zero gradient keep their normal.
func shadeNormals(mesh *kernel.Mesh, m *rbf.Model) error {
	if len(mesh.Normals) != len(mesh.Vertices) {
		mesh.Normals = make([]float32, len(mesh.Vertices))
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		g, err := m.Gradient(mesh.Vertex(i))
		if err != nil {
			return err
		}
		l := r3.Norm(g)
		if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
			continue
		}
		n := r3.Scale(1/l, g)
		mesh.Normals[3*i] = float32(n.X)
		mesh.Normals[3*i+1] = float32(n.Y)
		mesh.Normals[3*i+2] = float32(n.Z)
	}
	return nil
}

func toMeshData(m *kernel.Mesh) *MeshData {
	return &MeshData{
		Vertices: m.Vertices,
		Normals:  m.Normals,
		Indices:  m.Indices,
		Name:     m.Name,
		Color:    surfaceColor,
	}
}

// TriangleCount returns the number of triangles.
func (m *MeshData) TriangleCount() int {
	return len(m.Indices) / 3
}

// Volume samples the result's field on an n³ lattice over the padded
// reconstruction bounds.
func (a *App) Volume(ctx context.Context, res Result, n int) (*tessellate.Grid, error) {
	if !res.OK() {
		return nil, errors.New("no model to sample")
	}
	field, err := res.model.Field()
	if err != nil {
		return nil, err
	}
	bounds := res.bounds.Pad(a.conf.Mesh.Padding, a.conf.Mesh.MinPadding)
	start := time.Now()
	g, err := tessellate.SampleGrid(ctx, field, bounds, n, a.conf.Solve.Workers)
	if err != nil {
		return nil, err
	}
	a.log.Info("volume sampled", "cells", n, "inside", g.Inside(), logging.Elapsed(start))
	return g, nil
}

// WriteSTL meshes the result's model again and writes it as STL.
func (a *App) WriteSTL(res Result, path string) error {
	if !res.OK() {
		return errors.New("no model to write")
	}
	if res.Mesh.TriangleCount() == 0 {
		return errors.New("model has no zero crossing in its bounds")
	}
	field, err := res.model.Field()
	if err != nil {
		return err
	}
	min, max := tessellate.Region(res.bounds, a.conf.TessellateOptions(""))
	return a.kernel.WriteSTL(a.kernel.Field(field, min, max), path)
}
