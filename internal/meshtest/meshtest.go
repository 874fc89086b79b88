// Package meshtest builds small meshes for tests.
package meshtest

import (
	"math"

	"github.com/soypat/dtrans"
	"gonum.org/v1/gonum/spatial/r3"
)

func tri(a, b, c int) dtrans.Triangle {
	return dtrans.Triangle{V: [3]int{a, b, c}, N: [3]int{dtrans.NoIndex, dtrans.NoIndex, dtrans.NoIndex}}
}

// Grid returns an open planar nx by ny quad grid in the z=0 plane spanning
// [0,size]x[0,size], each quad split in two triangles facing +z.
func Grid(nx, ny int, size float64) *dtrans.Mesh {
	m := &dtrans.Mesh{}
	for j := 0; j <= ny; j++ {
		for i := 0; i <= nx; i++ {
			m.Vertices = append(m.Vertices, r3.Vec{
				X: size * float64(i) / float64(nx),
				Y: size * float64(j) / float64(ny),
			})
		}
	}
	idx := func(i, j int) int { return j*(nx+1) + i }
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			a, b, c, d := idx(i, j), idx(i+1, j), idx(i+1, j+1), idx(i, j+1)
			m.Triangles = append(m.Triangles, tri(a, b, c), tri(a, c, d))
		}
	}
	return m
}

// Sphere returns a closed unit sphere obtained by subdividing an octahedron
// level times, with outward facing triangles.
func Sphere(level int) *dtrans.Mesh {
	m := &dtrans.Mesh{
		Vertices: []r3.Vec{
			{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
		},
		Triangles: []dtrans.Triangle{
			tri(0, 2, 4), tri(2, 1, 4), tri(1, 3, 4), tri(3, 0, 4),
			tri(2, 0, 5), tri(1, 2, 5), tri(3, 1, 5), tri(0, 3, 5),
		},
	}
	for l := 0; l < level; l++ {
		mid := make(map[[2]int]int)
		midpoint := func(a, b int) int {
			key := [2]int{min(a, b), max(a, b)}
			if v, ok := mid[key]; ok {
				return v
			}
			p := r3.Unit(r3.Add(m.Vertices[a], m.Vertices[b]))
			m.Vertices = append(m.Vertices, p)
			mid[key] = len(m.Vertices) - 1
			return mid[key]
		}
		var next []dtrans.Triangle
		for _, t := range m.Triangles {
			a, b, c := t.V[0], t.V[1], t.V[2]
			ab, bc, ca := midpoint(a, b), midpoint(b, c), midpoint(c, a)
			next = append(next, tri(a, ab, ca), tri(ab, b, bc), tri(ca, bc, c), tri(ab, bc, ca))
		}
		m.Triangles = next
	}
	return m
}

// Affine returns a copy of m with every vertex mapped to A*v + t.
func Affine(m *dtrans.Mesh, A dtrans.Mat3, t r3.Vec) *dtrans.Mesh {
	out := m.Clone()
	for i, v := range out.Vertices {
		out.Vertices[i] = r3.Add(A.MulVec(v), t)
	}
	return out
}

// Bend returns a copy of m with vertices rotated about the y axis by an
// angle proportional to their x coordinate.
func Bend(m *dtrans.Mesh, radPerUnit float64) *dtrans.Mesh {
	out := m.Clone()
	for i, v := range out.Vertices {
		s, c := math.Sincos(radPerUnit * v.X)
		out.Vertices[i] = r3.Vec{X: c*v.X + s*v.Z, Y: v.Y, Z: -s*v.X + c*v.Z}
	}
	return out
}

// Centered returns a copy of m translated so its vertex mean is the origin.
func Centered(m *dtrans.Mesh) *dtrans.Mesh {
	out := m.Clone()
	var mean r3.Vec
	for _, v := range out.Vertices {
		mean = r3.Add(mean, v)
	}
	mean = r3.Scale(1/float64(len(out.Vertices)), mean)
	for i := range out.Vertices {
		out.Vertices[i] = r3.Sub(out.Vertices[i], mean)
	}
	return out
}
