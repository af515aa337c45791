package sdfx

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBox(t *testing.T) {
	k := New(WithCells(32))
	box := k.Box(100, 50, 25)
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestBoxCentered(t *testing.T) {
	k := New()
	min, max := k.Box(100, 50, 25).BoundingBox()
	want := [3]float64{50, 25, 12.5}
	for i := 0; i < 3; i++ {
		if math.Abs(min[i]+want[i]) > 1e-9 || math.Abs(max[i]-want[i]) > 1e-9 {
			t.Fatalf("axis %d: bounds [%f, %f], want [%f, %f]", i, min[i], max[i], -want[i], want[i])
		}
	}
}

func TestCylinder(t *testing.T) {
	k := New(WithCells(32))
	cyl := k.Cylinder(50, 10)
	mesh, err := k.ToMesh(cyl)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	t.Logf("cylinder triangle count: %d", mesh.TriangleCount())
}

func TestSphere(t *testing.T) {
	k := New(WithCells(32))
	mesh, err := k.ToMesh(k.Sphere(5))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		r := r3.Norm(mesh.Vertex(i))
		if math.Abs(r-5) > 0.5 {
			t.Fatalf("vertex %d at radius %f, want about 5", i, r)
		}
	}
}

func TestDifference(t *testing.T) {
	k := New(WithCells(32))

	box := k.Box(100, 100, 100)
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	cyl := k.Cylinder(120, 20)
	diffMesh, err := k.ToMesh(k.Difference(box, cyl))
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.IsEmpty() {
		t.Fatal("difference mesh is empty")
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnionBounds(t *testing.T) {
	k := New()
	a := k.Box(10, 10, 10)
	b := k.Translate(k.Box(10, 10, 10), 20, 0, 0)
	min, max := k.Union(a, b).BoundingBox()
	if math.Abs(min[0]+5) > 1e-9 || math.Abs(max[0]-25) > 1e-9 {
		t.Fatalf("union X bounds [%f, %f], want [-5, 25]", min[0], max[0])
	}
}

func TestIntersection(t *testing.T) {
	k := New(WithCells(32))
	a := k.Box(10, 10, 10)
	b := k.Sphere(6)
	mesh, err := k.ToMesh(k.Intersection(a, b))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("intersection mesh is empty")
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box := k.Box(100, 10, 10)
	rotated := k.Rotate(box, 0, 0, 90)
	min, max := rotated.BoundingBox()

	// After 90° Z rotation the long axis lies along Y.
	if sizeY := max[1] - min[1]; math.Abs(sizeY-100) > 1 {
		t.Fatalf("rotated Y size %f, want about 100", sizeY)
	}
	if sizeX := max[0] - min[0]; math.Abs(sizeX-10) > 1 {
		t.Fatalf("rotated X size %f, want about 10", sizeX)
	}
}

func TestField(t *testing.T) {
	k := New(WithCells(40))
	sphere := func(p r3.Vec) float64 { return r3.Norm(p) - 1 }
	solid := k.Field(sphere, [3]float64{-1.5, -1.5, -1.5}, [3]float64{1.5, 1.5, 1.5})

	min, max := solid.BoundingBox()
	if min != [3]float64{-1.5, -1.5, -1.5} || max != [3]float64{1.5, 1.5, 1.5} {
		t.Fatalf("field bounds %v %v", min, max)
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("field mesh is empty")
	}
	for i := 0; i < mesh.VertexCount(); i++ {
		if r := r3.Norm(mesh.Vertex(i)); math.Abs(r-1) > 0.1 {
			t.Fatalf("vertex %d at radius %f, want about 1", i, r)
		}
	}
}

func TestFieldOctree(t *testing.T) {
	k := New(WithCells(32), WithOctree(true))
	sphere := func(p r3.Vec) float64 { return r3.Norm(p) - 1 }
	mesh, err := k.ToMesh(k.Field(sphere, [3]float64{-2, -2, -2}, [3]float64{2, 2, 2}))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("octree mesh is empty")
	}
}

func TestFieldNoSurface(t *testing.T) {
	k := New(WithCells(16))
	positive := func(p r3.Vec) float64 { return 1 }
	mesh, err := k.ToMesh(k.Field(positive, [3]float64{-1, -1, -1}, [3]float64{1, 1, 1}))
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if !mesh.IsEmpty() {
		t.Fatalf("expected empty mesh, got %d triangles", mesh.TriangleCount())
	}
}

func TestWithCells(t *testing.T) {
	if got := New().Cells(); got != DefaultMeshCells {
		t.Fatalf("default cells %d, want %d", got, DefaultMeshCells)
	}
	if got := New(WithCells(1)).Cells(); got != DefaultMeshCells {
		t.Fatalf("cells below 2 should be ignored, got %d", got)
	}
	if got := New(WithCells(100)).Cells(); got != 100 {
		t.Fatalf("cells %d, want 100", got)
	}
}

func TestWriteSTL(t *testing.T) {
	k := New(WithCells(16))
	path := filepath.Join(t.TempDir(), "sphere.stl")
	if err := k.WriteSTL(k.Sphere(1), path); err != nil {
		t.Fatalf("WriteSTL failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("STL file is empty")
	}
}
