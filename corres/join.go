package corres

import (
	"math"

	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Join maps every free source vertex to the nearest target vertex whose
// normal points into the same half space as its own.
type Join struct {
	// Target holds the joined target vertex per source vertex. Constrained
	// and unmatched vertices hold NoIndex.
	Target []int
	// Unmatched counts free vertices without a compatible target vertex.
	Unmatched int
	// MeanDist2 is the mean squared distance over matched vertices.
	MeanDist2 float64
}

// VertexTree returns a tree over the vertices of m identified by index.
func VertexTree(m *dtrans.Mesh) *kdtree.Tree {
	pts := make([]kdtree.Point, len(m.Vertices))
	for i, v := range m.Vertices {
		pts[i] = kdtree.Point{Pos: v, ID: i}
	}
	return kdtree.New(pts)
}

// normalMatch accepts target vertices whose normal has a positive dot
// product with the normal of the source vertex being joined.
type normalMatch struct {
	tgt []r3.Vec
	src r3.Vec
}

func (n *normalMatch) keep(p kdtree.Point) bool {
	return r3.Dot(n.src, n.tgt[p.ID]) > 0
}

// SpatialJoin joins the free vertices of src against tree, a VertexTree of
// the target. srcNormals and tgtNormals hold one normal per vertex.
func SpatialJoin(src *dtrans.Mesh, srcNormals []r3.Vec, tree *kdtree.Tree, tgtNormals []r3.Vec, info *VertexInfoList) *Join {
	j := newJoin(len(src.Vertices))
	match := &normalMatch{tgt: tgtNormals}
	for v, pos := range src.Vertices {
		if info.Info[v].Kind != Free {
			continue
		}
		match.src = srcNormals[v]
		p, d2, ok := tree.Nearest(pos, match.keep)
		j.add(v, p.ID, d2, ok)
	}
	j.finish()
	return j
}

// SpatialJoinBruteForce computes the same join as SpatialJoin by testing
// every pair of vertices.
func SpatialJoinBruteForce(src, tgt *dtrans.Mesh, srcNormals, tgtNormals []r3.Vec, info *VertexInfoList) *Join {
	j := newJoin(len(src.Vertices))
	for v, pos := range src.Vertices {
		if info.Info[v].Kind != Free {
			continue
		}
		best, bestD2 := dtrans.NoIndex, math.Inf(1)
		for t, q := range tgt.Vertices {
			if r3.Dot(srcNormals[v], tgtNormals[t]) <= 0 {
				continue
			}
			if d2 := r3.Norm2(r3.Sub(pos, q)); d2 < bestD2 {
				best, bestD2 = t, d2
			}
		}
		j.add(v, best, bestD2, best != dtrans.NoIndex)
	}
	j.finish()
	return j
}

func newJoin(n int) *Join {
	j := &Join{Target: make([]int, n)}
	for i := range j.Target {
		j.Target[i] = dtrans.NoIndex
	}
	return j
}

func (j *Join) add(v, t int, d2 float64, ok bool) {
	if !ok {
		j.Unmatched++
		return
	}
	j.Target[v] = t
	j.MeanDist2 += d2
}

func (j *Join) finish() {
	matched := 0
	for _, t := range j.Target {
		if t != dtrans.NoIndex {
			matched++
		}
	}
	if matched > 0 {
		j.MeanDist2 /= float64(matched)
	}
}
