// Package dtrans holds the triangle mesh model shared by the correspondence
// solver and the deformation transfer equation: surface matrices, vertex
// constraints and the triangle adjacency resolver.
package dtrans

import (
	"fmt"
	"math"

	"github.com/soypat/dtrans/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// NoIndex marks a missing normal index or a missing neighbour.
const NoIndex = -1

// Mat3 is a row major 3x3 matrix.
type Mat3 = d3.Mat3

// Triangle indexes three vertices and, optionally, three normals of a Mesh.
type Triangle struct {
	V [3]int
	// N holds normal indices or NoIndex when the source carried none.
	N [3]int
}

// Mesh is an indexed triangle mesh. Vertex positions are the only part
// mutated by the solvers.
type Mesh struct {
	Vertices  []r3.Vec
	Normals   []r3.Vec
	Triangles []Triangle
}

// Validate checks every index of m against the vertex and normal arrays.
func (m *Mesh) Validate() error {
	for i, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			if t.V[k] < 0 || t.V[k] >= len(m.Vertices) {
				return fmt.Errorf("triangle %d: vertex index %d out of range [0,%d)", i, t.V[k], len(m.Vertices))
			}
			if t.N[k] != NoIndex && (t.N[k] < 0 || t.N[k] >= len(m.Normals)) {
				return fmt.Errorf("triangle %d: normal index %d out of range [0,%d)", i, t.N[k], len(m.Normals))
			}
		}
	}
	return nil
}

// SameTopology returns an error if a and b do not share vertex count and
// triangle connectivity.
func SameTopology(a, b *Mesh) error {
	if len(a.Vertices) != len(b.Vertices) || len(a.Triangles) != len(b.Triangles) {
		return fmt.Errorf("topology mismatch: %d vertices/%d triangles vs %d/%d",
			len(a.Vertices), len(a.Triangles), len(b.Vertices), len(b.Triangles))
	}
	for i := range a.Triangles {
		if a.Triangles[i].V != b.Triangles[i].V {
			return fmt.Errorf("topology mismatch at triangle %d", i)
		}
	}
	return nil
}

// Clone returns a deep copy of m.
func (m *Mesh) Clone() *Mesh {
	return &Mesh{
		Vertices:  append([]r3.Vec(nil), m.Vertices...),
		Normals:   append([]r3.Vec(nil), m.Normals...),
		Triangles: append([]Triangle(nil), m.Triangles...),
	}
}

// Corners returns the vertex positions of triangle i.
func (m *Mesh) Corners(i int) [3]r3.Vec {
	t := m.Triangles[i].V
	return [3]r3.Vec{m.Vertices[t[0]], m.Vertices[t[1]], m.Vertices[t[2]]}
}

// Centroid returns the mean of triangle i's corners.
func (m *Mesh) Centroid(i int) r3.Vec {
	c := m.Corners(i)
	return r3.Scale(1./3., r3.Add(c[0], r3.Add(c[1], c[2])))
}

// Centroids returns the centroid of every triangle.
func (m *Mesh) Centroids() []r3.Vec {
	c := make([]r3.Vec, len(m.Triangles))
	for i := range c {
		c[i] = m.Centroid(i)
	}
	return c
}

// FaceNormal returns (v2-v1)×(v3-v1) for triangle i. Its length is twice the
// triangle's area.
func (m *Mesh) FaceNormal(i int) r3.Vec {
	c := m.Corners(i)
	return r3.Cross(r3.Sub(c[1], c[0]), r3.Sub(c[2], c[0]))
}

// Bounds returns the bounding box of the vertices.
func (m *Mesh) Bounds() d3.Box {
	return d3.BoxOf(m.Vertices)
}

// CorrespondenceRadius estimates the mean spacing of triangle centroids as
// sqrt(4*A/n) where A is half the bounding box surface area and n the
// triangle count.
func (m *Mesh) CorrespondenceRadius() float64 {
	if len(m.Triangles) == 0 {
		return 0
	}
	return math.Sqrt(4 * m.Bounds().HalfArea() / float64(len(m.Triangles)))
}

// VertexNormalIndices returns for every vertex the normal index written by
// the last triangle corner referencing it, NoIndex if none does.
func (m *Mesh) VertexNormalIndices() []int {
	idx := make([]int, len(m.Vertices))
	for i := range idx {
		idx[i] = NoIndex
	}
	for _, t := range m.Triangles {
		for k := 0; k < 3; k++ {
			if t.N[k] != NoIndex {
				idx[t.V[k]] = t.N[k]
			}
		}
	}
	return idx
}

// ComputeVertexNormals returns unit vertex normals computed as the sum of
// the incident face normals, so larger faces weigh more. Vertices not
// referenced by a triangle or with a vanishing sum get the zero vector.
func (m *Mesh) ComputeVertexNormals() []r3.Vec {
	n := make([]r3.Vec, len(m.Vertices))
	for i, t := range m.Triangles {
		fn := m.FaceNormal(i)
		for k := 0; k < 3; k++ {
			n[t.V[k]] = r3.Add(n[t.V[k]], fn)
		}
	}
	for i := range n {
		if r3.Norm2(n[i]) > 0 {
			n[i] = r3.Unit(n[i])
		}
	}
	return n
}

// VertexNormals returns a normal per vertex. When fromFile is set and the
// mesh carries normals the file assignment of VertexNormalIndices is used,
// falling back to computed normals for vertices without one.
func (m *Mesh) VertexNormals(fromFile bool) []r3.Vec {
	computed := m.ComputeVertexNormals()
	if !fromFile || len(m.Normals) == 0 {
		return computed
	}
	for v, ni := range m.VertexNormalIndices() {
		if ni != NoIndex {
			computed[v] = m.Normals[ni]
		}
	}
	return computed
}

// Components labels every vertex with the index of its connected component,
// two vertices being connected when a triangle references both. Vertices
// not referenced by any triangle form their own component.
func (m *Mesh) Components() (label []int, n int) {
	parent := make([]int, len(m.Vertices))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	for _, t := range m.Triangles {
		a := find(t.V[0])
		for k := 1; k < 3; k++ {
			if b := find(t.V[k]); a != b {
				parent[b] = a
			}
		}
	}
	label = make([]int, len(m.Vertices))
	ids := make(map[int]int)
	for i := range label {
		root := find(i)
		id, ok := ids[root]
		if !ok {
			id = len(ids)
			ids[root] = id
		}
		label[i] = id
	}
	return label, len(ids)
}
