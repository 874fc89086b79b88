package dtrans_test

import (
	"math"
	"testing"

	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/internal/d3"
	"github.com/soypat/dtrans/internal/meshtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestMeshValidate(t *testing.T) {
	m := meshtest.Grid(2, 2, 1)
	require.NoError(t, m.Validate())
	m.Triangles[3].V[1] = len(m.Vertices)
	assert.Error(t, m.Validate())
	m = meshtest.Grid(2, 2, 1)
	m.Triangles[0].N = [3]int{0, 0, 0}
	assert.Error(t, m.Validate(), "normal index without normals")
}

func TestComputeVertexNormals(t *testing.T) {
	sphere := meshtest.Sphere(2)
	for i, n := range sphere.ComputeVertexNormals() {
		// Vertices lie on the unit sphere so the normal is the position.
		assert.InDelta(t, 1, r3.Dot(n, sphere.Vertices[i]), 0.05, "vertex %d", i)
		assert.InDelta(t, 1, r3.Norm(n), 1e-12)
	}
	grid := meshtest.Grid(3, 3, 1)
	for _, n := range grid.ComputeVertexNormals() {
		assert.True(t, d3.EqualWithin(r3.Vec{Z: 1}, n, 1e-15), "got %v", n)
	}
}

func TestVertexNormalsFromFile(t *testing.T) {
	m := meshtest.Grid(1, 1, 1)
	m.Normals = []r3.Vec{{Z: -1}, {X: 1}}
	m.Triangles[0].N = [3]int{0, 0, 0}
	m.Triangles[1].N = [3]int{1, 1, 1}
	idx := m.VertexNormalIndices()
	// Triangle 1 is the last to reference vertices 0, 2 and 3.
	assert.Equal(t, []int{1, 0, 1, 1}, idx)
	n := m.VertexNormals(true)
	assert.Equal(t, r3.Vec{X: 1}, n[0])
	assert.Equal(t, r3.Vec{Z: -1}, n[1])
	assert.Equal(t, r3.Vec{Z: 1}, m.VertexNormals(false)[1])
}

func TestCorrespondenceRadius(t *testing.T) {
	m := meshtest.Grid(4, 4, 2) // 32 triangles on a 2x2 square.
	want := math.Sqrt(4 * 4.0 / 32)
	assert.InDelta(t, want, m.CorrespondenceRadius(), 1e-12)
	assert.Zero(t, (&dtrans.Mesh{}).CorrespondenceRadius())
}

func TestComponents(t *testing.T) {
	a := meshtest.Grid(2, 1, 1)
	b := meshtest.Sphere(0)
	m := a.Clone()
	off := len(m.Vertices)
	m.Vertices = append(m.Vertices, b.Vertices...)
	for _, tri := range b.Triangles {
		for k := range tri.V {
			tri.V[k] += off
		}
		m.Triangles = append(m.Triangles, tri)
	}
	m.Vertices = append(m.Vertices, r3.Vec{X: 10}) // stray vertex
	label, n := m.Components()
	require.Equal(t, 3, n)
	for i := 1; i < off; i++ {
		assert.Equal(t, label[0], label[i])
	}
	for i := off + 1; i < len(m.Vertices)-1; i++ {
		assert.Equal(t, label[off], label[i])
	}
	assert.NotEqual(t, label[0], label[off])
	assert.NotEqual(t, label[off], label[len(label)-1])
}

func TestSurfaceMatrix(t *testing.T) {
	m := &dtrans.Mesh{
		Vertices:  []r3.Vec{{}, {X: 2}, {Y: 2}},
		Triangles: []dtrans.Triangle{{V: [3]int{0, 1, 2}}},
	}
	V := m.SurfaceMatrix(0)
	// Cross product is (0,0,4), the phantom offset is (0,0,2).
	want := d3.FromCols(r3.Vec{X: 2}, r3.Vec{Y: 2}, r3.Vec{Z: 2})
	assert.True(t, V.EqualWithin(want, 1e-15), "got %v", V)
	assert.Equal(t, r3.Vec{Z: 2}, m.PhantomVertex(0))
	inv, err := m.SurfaceInverses()
	require.NoError(t, err)
	assert.True(t, inv[0].Mul(V).EqualWithin(d3.Identity(), 1e-14))

	m.Vertices[2] = r3.Vec{X: 1}
	_, err = m.SurfaceInverses()
	assert.True(t, dtrans.IsFatal(err), "degenerate triangle should be fatal, got %v", err)
}

// The elementary block applied to deformed corners and phantom vertex must
// reproduce the deformation gradient V'·inv(V).
func TestElementaryBlock(t *testing.T) {
	ref := meshtest.Sphere(1)
	A := dtrans.Mat3{{1.2, 0.1, 0}, {-0.3, 0.9, 0.2}, {0.05, 0, 1.1}}
	def := meshtest.Bend(meshtest.Affine(ref, A, r3.Vec{X: 1, Y: -2}), 0.3)
	inv, err := ref.SurfaceInverses()
	require.NoError(t, err)
	for i := range ref.Triangles {
		want := def.SurfaceMatrix(i).Mul(inv[i]).Flat()
		block := dtrans.ElementaryBlock(inv[i])
		c := def.Corners(i)
		pts := [4]r3.Vec{c[0], c[1], c[2], def.PhantomVertex(i)}
		for row := 0; row < 9; row++ {
			dim := row / 3
			var got float64
			for k := 0; k < 4; k++ {
				got += block[row][k] * d3.Comp(pts[k], dim)
			}
			assert.InDelta(t, want[row], got, 1e-9, "triangle %d row %d", i, row)
		}
	}
}

func TestConstraints(t *testing.T) {
	c := dtrans.Constraints{{Src: 5, Tgt: 1}, {Src: 0, Tgt: 3}, {Src: 2, Tgt: 2}}
	assert.False(t, c.IsSorted())
	c.Sort()
	assert.True(t, c.IsSorted())
	assert.Equal(t, dtrans.Constraint{Src: 0, Tgt: 3}, c[0])
	require.NoError(t, c.Validate(6, 4))
	assert.Error(t, c.Validate(5, 4), "source out of range")
	assert.Error(t, c.Validate(6, 3), "target out of range")
	dup := append(c, dtrans.Constraint{Src: 2, Tgt: 0})
	assert.Error(t, dup.Validate(6, 4))
}
