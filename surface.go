package dtrans

import (
	"math"

	"github.com/soypat/dtrans/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// SurfaceMatrix returns the local frame of triangle i with columns v2-v1,
// v3-v1 and the phantom offset n/sqrt(|n|) where n = (v2-v1)×(v3-v1).
// The phantom offset has length sqrt(|n|), the same scale as the edges.
func (m *Mesh) SurfaceMatrix(i int) Mat3 {
	c := m.Corners(i)
	e1 := r3.Sub(c[1], c[0])
	e2 := r3.Sub(c[2], c[0])
	n := r3.Cross(e1, e2)
	v4 := r3.Scale(1/math.Sqrt(r3.Norm(n)), n)
	return d3.FromCols(e1, e2, v4)
}

// SurfaceInverses returns the inverse surface matrix of every triangle.
// A degenerate triangle makes its surface matrix singular, which is fatal.
func (m *Mesh) SurfaceInverses() ([]Mat3, error) {
	inv := make([]Mat3, len(m.Triangles))
	for i := range inv {
		var ok bool
		inv[i], ok = m.SurfaceMatrix(i).Inverse()
		if !ok {
			return nil, Fatalf("surface matrix", "triangle %d %v is degenerate", i, m.Triangles[i].V)
		}
	}
	return inv, nil
}

// Block linearizes the deformation gradient T = [u2-u1, u3-u1, u4-u1]·inv(V)
// of one triangle over its unknown corners u1, u2, u3 and phantom vertex u4.
// Row 3*dim+j holds the coefficients of T[dim][j] for the dim coordinate of
// each of the four points; the coefficients do not depend on dim.
type Block [9][4]float64

// ElementaryBlock returns the Block for a triangle with inverse surface
// matrix inv.
func ElementaryBlock(inv Mat3) (b Block) {
	for dim := 0; dim < 3; dim++ {
		for j := 0; j < 3; j++ {
			row := 3*dim + j
			b[row][0] = -(inv[0][j] + inv[1][j] + inv[2][j])
			b[row][1] = inv[0][j]
			b[row][2] = inv[1][j]
			b[row][3] = inv[2][j]
		}
	}
	return b
}

// PhantomVertex returns v1 plus the phantom offset of triangle i, the point
// whose unknown completes the triangle's deformation gradient.
func (m *Mesh) PhantomVertex(i int) r3.Vec {
	c := m.Corners(i)
	return r3.Add(c[0], m.SurfaceMatrix(i).Col(2))
}
