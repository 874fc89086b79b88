// Package corres deforms a source mesh onto a target mesh to find which
// triangles of the two correspond.
//
// The deformation is the least squares solution of a sparse linear system
// whose unknowns are the coordinates of the free source vertices followed by
// one phantom vertex per source triangle. Vertices pinned by a marker
// constraint are not unknowns; their target position is folded into the
// right hand side. A Problem first solves for a smooth deformation that
// honours the markers, then iterates adding closest point terms of
// increasing weight, and finally resolves triangle correspondences between
// the deformed source and the target.
package corres

import (
	"github.com/soypat/dtrans"
)

// VertexKind says whether a vertex is an unknown of the system.
type VertexKind uint8

const (
	Free VertexKind = iota
	Constrained
)

func (k VertexKind) String() string {
	switch k {
	case Free:
		return "free"
	case Constrained:
		return "constrained"
	}
	return "VertexKind(?)"
}

// VertexInfo classifies one source vertex. Index is the dense index among
// free vertices for a Free vertex and the index into the constraint list
// for a Constrained one.
type VertexInfo struct {
	Kind  VertexKind
	Index int
}

// VertexInfoList classifies every source vertex.
type VertexInfoList struct {
	Info           []VertexInfo
	NumFree        int
	NumConstrained int
}

// ClassifyVertices partitions nvert vertices into free and constrained ones
// in a single scan. cons must be sorted by source index and hold no source
// index twice; ClassifyVertices panics otherwise.
func ClassifyVertices(nvert int, cons dtrans.Constraints) *VertexInfoList {
	if !cons.IsSorted() {
		panic("corres: constraints not sorted by source vertex")
	}
	l := &VertexInfoList{Info: make([]VertexInfo, nvert)}
	next := 0
	for v := range l.Info {
		if next < len(cons) && cons[next].Src == v {
			l.Info[v] = VertexInfo{Kind: Constrained, Index: next}
			l.NumConstrained++
			next++
			continue
		}
		l.Info[v] = VertexInfo{Kind: Free, Index: l.NumFree}
		l.NumFree++
	}
	if next != len(cons) {
		panic("corres: constraint source out of range or duplicated")
	}
	return l
}

// NumVars returns the unknown count of a system over ntri triangles.
func (l *VertexInfoList) NumVars(ntri int) int {
	return 3 * (l.NumFree + ntri)
}

// FreeVar returns the unknown of coordinate dim of vertex v, NoIndex when v
// is constrained.
func (l *VertexInfoList) FreeVar(v, dim int) int {
	info := l.Info[v]
	if info.Kind != Free {
		return dtrans.NoIndex
	}
	return 3*info.Index + dim
}

// PhantomVar returns the unknown of coordinate dim of the phantom vertex of
// triangle tri.
func (l *VertexInfoList) PhantomVar(tri, dim int) int {
	return 3*(l.NumFree+tri) + dim
}

// TriangleVars returns the unknowns of triangle t indexed by dimension and
// local vertex, the phantom vertex being local vertex 3.
func (l *VertexInfoList) TriangleVars(tri int, t dtrans.Triangle) (vars [3][4]int) {
	for dim := 0; dim < 3; dim++ {
		for k := 0; k < 3; k++ {
			vars[dim][k] = l.FreeVar(t.V[k], dim)
		}
		vars[dim][3] = l.PhantomVar(tri, dim)
	}
	return vars
}
