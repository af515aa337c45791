package main

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/rbfsurf/pkg/geom"
	"github.com/chazu/rbfsurf/pkg/rbf"
	"github.com/chazu/rbfsurf/pkg/store"
)

// octahedron is six axis points with outward normals. It is the smallest
// cloud that encloses a volume.
func octahedron() []geom.OrientedPoint {
	return []geom.OrientedPoint{
		geom.NewOrientedPoint(1, 0, 0, 1, 0, 0),
		geom.NewOrientedPoint(-1, 0, 0, -1, 0, 0),
		geom.NewOrientedPoint(0, 1, 0, 0, 1, 0),
		geom.NewOrientedPoint(0, -1, 0, 0, -1, 0),
		geom.NewOrientedPoint(0, 0, 1, 0, 0, 1),
		geom.NewOrientedPoint(0, 0, -1, 0, 0, -1),
	}
}

func octahedronApp() *App {
	conf := testConfig()
	conf.Sample.Offset = 0.1
	conf.Sample.Value = 0.1
	return NewApp(conf, nil)
}

// ---------------------------------------------------------------------------
// Script errors: the reconstruction never starts.
// ---------------------------------------------------------------------------

func TestE2ESyntaxErrorWithLineInfo(t *testing.T) {
	app := newTestApp()
	res := app.Evaluate(context.Background(), "(point (vec3 1 0 0) (vec3 1 0 0))\n(point (vec3 0 1 0)\n")

	if len(res.Errors) == 0 {
		t.Fatal("expected errors for unmatched paren")
	}
	if res.Errors[0].Message == "" {
		t.Error("error has no message")
	}
	if res.Stats != nil || res.Mesh != nil {
		t.Error("expected no stats or mesh on a script error")
	}
}

func TestE2EInvalidBuiltinArgs(t *testing.T) {
	app := newTestApp()
	for _, src := range []string{
		`(sphere -1)`,
		`(point (vec3 0 0 0))`,
		`(settings :offset 0)`,
		`(scan (box 1 1 1) :cells 1)`,
	} {
		res := app.Evaluate(context.Background(), src)
		if len(res.Errors) == 0 {
			t.Errorf("%s: expected an error", src)
		}
	}
}

func TestE2ECommentsOnly(t *testing.T) {
	app := newTestApp()
	res := app.Evaluate(context.Background(), "; nothing here\n;; nor here\n")

	if len(res.Errors) != 1 {
		t.Fatalf("expected one error for a scene without points, got %d", len(res.Errors))
	}
	if !strings.Contains(res.Errors[0].Message, "no points") {
		t.Errorf("unexpected message %q", res.Errors[0].Message)
	}
}

// ---------------------------------------------------------------------------
// Reconstruction edge cases.
// ---------------------------------------------------------------------------

func TestE2EReconstructNoPoints(t *testing.T) {
	app := newTestApp()
	res := app.Reconstruct(context.Background(), nil)

	if len(res.Errors) == 0 || res.OK() {
		t.Fatal("expected an error for an empty cloud")
	}
}

func TestE2EReconstructCancelled(t *testing.T) {
	app := octahedronApp()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := app.Reconstruct(ctx, octahedron())
	if len(res.Errors) == 0 {
		t.Fatal("expected an error for a cancelled context")
	}
	if res.Mesh != nil {
		t.Error("expected no mesh")
	}
}

func TestE2EReconstructInvalidSampleConfig(t *testing.T) {
	conf := testConfig()
	conf.Sample.Offset = -1
	app := NewApp(conf, nil)

	res := app.Reconstruct(context.Background(), octahedron())
	if len(res.Errors) == 0 {
		t.Fatal("expected a validation error for a negative offset")
	}
}

func TestE2EDegenerateNormalsSkipped(t *testing.T) {
	app := octahedronApp()
	points := append(octahedron(), geom.NewOrientedPoint(0.5, 0.5, 0.5, 0, 0, 0))

	res := app.Reconstruct(context.Background(), points)
	requireOK(t, res)

	// The zero-normal point still yields its on-surface sample only.
	if res.Stats.Samples != 3*6+1 || res.Stats.Centers != 7 {
		t.Errorf("expected 19 samples and 7 centers, got %+v", *res.Stats)
	}
}

func TestE2EJSONShape(t *testing.T) {
	app := octahedronApp()
	res := app.Reconstruct(context.Background(), octahedron())
	requireOK(t, res)

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"mesh", "stats", "sample", "points", "errors"} {
		if _, ok := decoded[key]; !ok {
			t.Errorf("missing key %q in %s", key, data)
		}
	}
	// Errors serialize as [] rather than null.
	if errs, ok := decoded["errors"].([]any); !ok || len(errs) != 0 {
		t.Errorf("expected empty errors array, got %v", decoded["errors"])
	}
	if _, ok := decoded["modelId"]; ok {
		t.Error("modelId should be omitted without a store")
	}
}

// ---------------------------------------------------------------------------
// Repeated evaluation on one App.
// ---------------------------------------------------------------------------

func TestE2ERapidEvaluation(t *testing.T) {
	app := octahedronApp()

	sources := []string{
		`(point (vec3 1 0 0) (vec3 1 0 0))`,
		`(+ 1 2)`,
		``,
		`(point (vec3 0 0 0)`,
		`(sphere 1)`,
	}
	for i, source := range sources {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("iteration %d panicked: %v", i, r)
				}
			}()
			_ = app.Evaluate(context.Background(), source)
		}()
	}

	// The App is still usable afterwards.
	source, err := os.ReadFile("examples/octahedron.surf")
	if err != nil {
		t.Fatal(err)
	}
	requireOK(t, app.Evaluate(context.Background(), string(source)))
}

// ---------------------------------------------------------------------------
// Store and file output.
// ---------------------------------------------------------------------------

func TestE2EStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "models.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	app := octahedronApp()
	app.UseStore(st)

	res := app.Reconstruct(ctx, octahedron())
	requireOK(t, res)
	if res.ModelID == "" {
		t.Fatal("expected a model id")
	}

	records, err := st.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != res.ModelID || records[0].Name != "cloud" {
		t.Fatalf("unexpected records %+v", records)
	}

	m, err := st.Load(ctx, res.ModelID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	again := app.MeshModel(m, "restored")
	requireOK(t, again)
	if again.Mesh.Name != "restored" {
		t.Errorf("expected mesh name restored, got %q", again.Mesh.Name)
	}
	if again.Stats.Centers != res.Stats.Centers {
		t.Errorf("center count changed: %d vs %d", again.Stats.Centers, res.Stats.Centers)
	}
}

// planeModel is zero on the plane x = 5, halfway between its two centers.
func planeModel(t *testing.T) *rbf.Model {
	t.Helper()
	m, err := rbf.Restore([]r3.Vec{{}, {X: 10}}, []float64{1, -1})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	return m
}

func TestE2EMeshModel(t *testing.T) {
	app := newTestApp()
	res := app.MeshModel(planeModel(t), "plane")
	requireOK(t, res)

	if res.Mesh.TriangleCount() == 0 {
		t.Fatal("expected the plane x = 5 to be meshed")
	}
	for i := 0; i < len(res.Mesh.Vertices); i += 3 {
		if x := res.Mesh.Vertices[i]; x < 4.5 || x > 5.5 {
			t.Fatalf("vertex %d off the plane: x = %g", i/3, x)
		}
	}
}

func TestE2EShadedNormals(t *testing.T) {
	app := newTestApp()
	res := app.MeshModel(planeModel(t), "plane")
	requireOK(t, res)

	// The field gradient on x = 5 points along +X.
	for i := 0; i < len(res.Mesh.Normals); i += 3 {
		n := r3.Vec{
			X: float64(res.Mesh.Normals[i]),
			Y: float64(res.Mesh.Normals[i+1]),
			Z: float64(res.Mesh.Normals[i+2]),
		}
		if n.X < 0.99 || math.Abs(r3.Norm(n)-1) > 1e-5 {
			t.Fatalf("vertex %d normal %v, expected about (1, 0, 0)", i/3, n)
		}
	}
}

func TestE2EVolume(t *testing.T) {
	app := newTestApp()
	res := app.MeshModel(planeModel(t), "plane")
	requireOK(t, res)

	// Padded bounds span x in [-1, 11]; 10 samples per axis put 5 X slabs
	// below the plane.
	g, err := app.Volume(context.Background(), res, 10)
	if err != nil {
		t.Fatalf("volume: %v", err)
	}
	if g.N != 10 || len(g.Values) != 1000 {
		t.Fatalf("unexpected grid size %d/%d", g.N, len(g.Values))
	}
	if inside := g.Inside(); inside != 500 {
		t.Errorf("expected 500 inside samples, got %d", inside)
	}

	if _, err := app.Volume(context.Background(), Result{}, 10); err == nil {
		t.Error("expected an error for a result without a model")
	}
}

func TestE2EMeshModelEmpty(t *testing.T) {
	app := newTestApp()
	m, err := rbf.Restore(nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res := app.MeshModel(m, "empty"); len(res.Errors) == 0 {
		t.Error("expected an error for a model without centers")
	}
}

func TestE2EWriteSTL(t *testing.T) {
	app := newTestApp()
	res := app.MeshModel(planeModel(t), "plane")
	requireOK(t, res)

	path := filepath.Join(t.TempDir(), "plane.stl")
	if err := app.WriteSTL(res, path); err != nil {
		t.Fatalf("write stl: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	// Binary STL: 80 byte header, count, 50 bytes per triangle.
	if info.Size() <= 84 {
		t.Errorf("stl too small: %d bytes", info.Size())
	}
}

func TestE2EWriteSTLNoSurface(t *testing.T) {
	app := octahedronApp()
	res := app.Reconstruct(context.Background(), octahedron())
	requireOK(t, res)

	if err := app.WriteSTL(res, filepath.Join(t.TempDir(), "none.stl")); err == nil {
		t.Error("expected an error for a field without a zero crossing")
	}
}

func TestE2EWriteSTLWithoutModel(t *testing.T) {
	app := newTestApp()
	res := app.Evaluate(context.Background(), "(point (vec3 0 0 0)")

	if err := app.WriteSTL(res, filepath.Join(t.TempDir(), "x.stl")); err == nil {
		t.Error("expected an error writing a failed result")
	}
}
