// Package kdtree implements a 3-d tree over points carrying integer ids.
//
// Trees are built in bulk with New, which splits each subtree on the axis of
// largest sample variance at the exact median found by median-of-medians
// selection, so depth is bounded by ceil(log2(n+1)) for any input. Queries
// accept an optional Filter that decides which points may be reported; a
// rejected point still guides the descent through its subtree.
package kdtree

import (
	"math"

	"github.com/soypat/dtrans/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Point is a position with a caller defined id.
type Point struct {
	Pos r3.Vec
	ID  int
}

// Node is a tree node. Left holds points whose coordinate along Split is
// less than or equal to the node's, Right holds the rest.
type Node struct {
	Point
	Split       int
	Left, Right *Node
}

// Tree is a 3-d tree. The zero value is an empty tree ready for Insert.
type Tree struct {
	Root  *Node
	count int
}

// Filter reports whether p may be reported by a query.
// A nil Filter accepts every point.
type Filter func(p Point) bool

// Match is a point reported by Range with its squared distance to the query.
type Match struct {
	Point
	Dist2 float64
}

// New builds a balanced tree over pts. pts is not modified.
func New(pts []Point) *Tree {
	work := make([]Point, len(pts))
	copy(work, pts)
	return &Tree{Root: build(work), count: len(pts)}
}

func build(pts []Point) *Node {
	if len(pts) == 0 {
		return nil
	}
	dim := splitDim(pts)
	k := len(pts) / 2
	selectKth(pts, k, dim)
	return &Node{
		Point: pts[k],
		Split: dim,
		Left:  build(pts[:k]),
		Right: build(pts[k+1:]),
	}
}

// splitDim returns the axis of largest sample variance. Ties go to the lower axis.
func splitDim(pts []Point) int {
	var mean r3.Vec
	for _, p := range pts {
		mean = r3.Add(mean, p.Pos)
	}
	mean = r3.Scale(1/float64(len(pts)), mean)
	var v r3.Vec
	for _, p := range pts {
		d := r3.Sub(p.Pos, mean)
		v = r3.Add(v, r3.Vec{X: d.X * d.X, Y: d.Y * d.Y, Z: d.Z * d.Z})
	}
	dim := 0
	if v.Y > d3.Comp(v, dim) {
		dim = 1
	}
	if v.Z > d3.Comp(v, dim) {
		dim = 2
	}
	return dim
}

// Len returns the number of points in the tree.
func (t *Tree) Len() int { return t.count }

// Depth returns the number of nodes on the longest root to leaf path.
func (t *Tree) Depth() int { return depth(t.Root) }

func depth(n *Node) int {
	if n == nil {
		return 0
	}
	return 1 + max(depth(n.Left), depth(n.Right))
}

// Do calls fn for every node in depth first order until fn returns true.
func (t *Tree) Do(fn func(*Node) (done bool)) bool {
	return do(t.Root, fn)
}

func do(n *Node, fn func(*Node) bool) bool {
	if n == nil {
		return false
	}
	return do(n.Left, fn) || fn(n) || do(n.Right, fn)
}

// Insert adds p below the node it compares into. The new leaf splits on
// the axis following its parent's, so trees grown by Insert are not
// balanced and may degrade to a list for sorted input.
func (t *Tree) Insert(p Point) {
	t.count++
	if t.Root == nil {
		t.Root = &Node{Point: p}
		return
	}
	n := t.Root
	for {
		child := &n.Left
		if d3.Comp(p.Pos, n.Split) > d3.Comp(n.Pos, n.Split) {
			child = &n.Right
		}
		if *child == nil {
			*child = &Node{Point: p, Split: (n.Split + 1) % 3}
			return
		}
		n = *child
	}
}

// Nearest returns the point closest to q accepted by keep and its squared
// distance. ok is false if the tree holds no accepted point. Among points at
// equal distance the first one visited is returned.
func (t *Tree) Nearest(q r3.Vec, keep Filter) (p Point, dist2 float64, ok bool) {
	s := nearest{q: q, keep: keep, dist2: math.Inf(1)}
	inf := math.Inf(1)
	s.search(t.Root, d3.Box{Min: d3.Elem(-inf), Max: d3.Elem(inf)})
	if s.best == nil {
		return Point{}, 0, false
	}
	return s.best.Point, s.dist2, true
}

type nearest struct {
	q     r3.Vec
	keep  Filter
	best  *Node
	dist2 float64
}

func (s *nearest) search(n *Node, rect d3.Box) {
	if n == nil {
		return
	}
	pivot := d3.Comp(n.Pos, n.Split)
	nearRect, farRect := rect, rect
	nearRect.Max = d3.SetComp(rect.Max, n.Split, pivot)
	farRect.Min = d3.SetComp(rect.Min, n.Split, pivot)
	near, far := n.Left, n.Right
	if d3.Comp(s.q, n.Split) > pivot {
		near, far = far, near
		nearRect, farRect = farRect, nearRect
	}

	s.search(near, nearRect)
	if d2 := r3.Norm2(r3.Sub(n.Pos, s.q)); d2 < s.dist2 && (s.keep == nil || s.keep(n.Point)) {
		s.best = n
		s.dist2 = d2
	}
	if farRect.Dist2(s.q) < s.dist2 {
		s.search(far, farRect)
	}
}

// Range returns every point accepted by keep whose squared distance to q is
// at most radius². The order of the result is unspecified.
func (t *Tree) Range(q r3.Vec, radius float64, keep Filter) []Match {
	if radius < 0 || math.IsNaN(radius) {
		return nil
	}
	return rangeSearch(nil, t.Root, q, radius, keep)
}

func rangeSearch(dst []Match, n *Node, q r3.Vec, radius float64, keep Filter) []Match {
	if n == nil {
		return dst
	}
	if d2 := r3.Norm2(r3.Sub(n.Pos, q)); d2 <= radius*radius && (keep == nil || keep(n.Point)) {
		dst = append(dst, Match{Point: n.Point, Dist2: d2})
	}
	off := d3.Comp(q, n.Split) - d3.Comp(n.Pos, n.Split)
	near, far := n.Left, n.Right
	if off > 0 {
		near, far = far, near
	}
	dst = rangeSearch(dst, near, q, radius, keep)
	if math.Abs(off) <= radius {
		dst = rangeSearch(dst, far, q, radius, keep)
	}
	return dst
}
