package kdtree_test

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/soypat/dtrans/kdtree"
	gkd "gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

func randomPoints(rng *rand.Rand, n int, grid bool) []kdtree.Point {
	pts := make([]kdtree.Point, n)
	for i := range pts {
		var p r3.Vec
		if grid {
			// Coarse lattice so many coordinates and points coincide.
			p = r3.Vec{X: float64(rng.Intn(4)), Y: float64(rng.Intn(3)), Z: float64(rng.Intn(2))}
		} else {
			p = r3.Vec{X: rng.NormFloat64() * 10, Y: rng.Float64(), Z: rng.NormFloat64() * 3}
		}
		pts[i] = kdtree.Point{Pos: p, ID: i}
	}
	return pts
}

func bruteNearest(pts []kdtree.Point, q r3.Vec, keep kdtree.Filter) (best kdtree.Point, d2 float64, ok bool) {
	d2 = math.Inf(1)
	for _, p := range pts {
		if keep != nil && !keep(p) {
			continue
		}
		if d := r3.Norm2(r3.Sub(p.Pos, q)); d < d2 {
			best, d2, ok = p, d, true
		}
	}
	return best, d2, ok
}

func bruteRange(pts []kdtree.Point, q r3.Vec, r float64, keep kdtree.Filter) []int {
	var ids []int
	for _, p := range pts {
		if keep != nil && !keep(p) {
			continue
		}
		if r3.Norm2(r3.Sub(p.Pos, q)) <= r*r {
			ids = append(ids, p.ID)
		}
	}
	sort.Ints(ids)
	return ids
}

func matchIDs(m []kdtree.Match) []int {
	ids := make([]int, len(m))
	for i := range m {
		ids[i] = m[i].ID
	}
	sort.Ints(ids)
	return ids
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func queries(rng *rand.Rand, pts []kdtree.Point) []r3.Vec {
	var q []r3.Vec
	for i := 0; i < 50; i++ {
		q = append(q, r3.Vec{X: rng.NormFloat64() * 12, Y: rng.Float64()*2 - 0.5, Z: rng.NormFloat64() * 4})
	}
	// Points coincident with tree members.
	for i := 0; i < len(pts) && i < 50; i++ {
		q = append(q, pts[rng.Intn(len(pts))].Pos)
	}
	return q
}

func TestNearestBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, n := range []int{0, 1, 2, 5, 6, 31, 200, 1500} {
		for _, grid := range []bool{false, true} {
			pts := randomPoints(rng, n, grid)
			tree := kdtree.New(pts)
			if tree.Len() != n {
				t.Fatalf("Len()=%d, want %d", tree.Len(), n)
			}
			for _, q := range queries(rng, pts) {
				got, gotD2, gotOK := tree.Nearest(q, nil)
				want, wantD2, wantOK := bruteNearest(pts, q, nil)
				if gotOK != wantOK {
					t.Fatalf("n=%d grid=%v q=%v: ok=%v, want %v", n, grid, q, gotOK, wantOK)
				}
				if !gotOK {
					continue
				}
				if gotD2 != wantD2 {
					t.Fatalf("n=%d grid=%v q=%v: got %v (d2=%g), want %v (d2=%g)", n, grid, q, got, gotD2, want, wantD2)
				}
				if !grid && got.ID != want.ID {
					t.Fatalf("n=%d q=%v: got id %d, want %d", n, q, got.ID, want.ID)
				}
				if r3.Norm2(r3.Sub(got.Pos, q)) != gotD2 {
					t.Fatalf("reported distance does not belong to reported point")
				}
			}
		}
	}
}

func TestNearestFilter(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	pts := randomPoints(rng, 500, false)
	tree := kdtree.New(pts)
	even := func(p kdtree.Point) bool { return p.ID%2 == 0 }
	for _, q := range queries(rng, pts) {
		got, gotD2, ok := tree.Nearest(q, even)
		want, wantD2, _ := bruteNearest(pts, q, even)
		if !ok || got.ID != want.ID || gotD2 != wantD2 {
			t.Fatalf("q=%v: got %v (%g), want %v (%g)", q, got, gotD2, want, wantD2)
		}
	}
	none := func(kdtree.Point) bool { return false }
	if _, _, ok := tree.Nearest(r3.Vec{}, none); ok {
		t.Error("expected no result when the filter rejects every point")
	}
}

func TestRangeBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, n := range []int{0, 1, 7, 300} {
		for _, grid := range []bool{false, true} {
			pts := randomPoints(rng, n, grid)
			tree := kdtree.New(pts)
			for _, r := range []float64{0, 0.5, 1, 2.5, 40} {
				for _, q := range queries(rng, pts) {
					got := matchIDs(tree.Range(q, r, nil))
					want := bruteRange(pts, q, r, nil)
					if !equalInts(got, want) {
						t.Fatalf("n=%d grid=%v r=%g q=%v: got %v, want %v", n, grid, r, q, got, want)
					}
				}
			}
		}
	}
}

func TestRangeFilterAndDistances(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	pts := randomPoints(rng, 400, false)
	tree := kdtree.New(pts)
	odd := func(p kdtree.Point) bool { return p.ID%2 == 1 }
	for _, q := range queries(rng, pts) {
		matches := tree.Range(q, 3, odd)
		if !equalInts(matchIDs(matches), bruteRange(pts, q, 3, odd)) {
			t.Fatalf("filtered range mismatch at %v", q)
		}
		for _, m := range matches {
			if m.Dist2 != r3.Norm2(r3.Sub(pts[m.ID].Pos, q)) {
				t.Fatalf("bad distance for id %d", m.ID)
			}
		}
	}
	if got := tree.Range(r3.Vec{}, -1, nil); got != nil {
		t.Errorf("negative radius returned %d matches", len(got))
	}
}

func TestBalancedDepth(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	for _, n := range []int{1, 2, 3, 10, 1000, 4097} {
		for _, grid := range []bool{false, true} {
			tree := kdtree.New(randomPoints(rng, n, grid))
			limit := int(math.Ceil(math.Log2(float64(n + 1))))
			if d := tree.Depth(); d > limit {
				t.Errorf("n=%d grid=%v: depth %d exceeds %d", n, grid, d, limit)
			}
		}
	}
	// All points equal along every axis.
	same := make([]kdtree.Point, 257)
	for i := range same {
		same[i] = kdtree.Point{Pos: r3.Vec{X: 1, Y: 1, Z: 1}, ID: i}
	}
	if d := kdtree.New(same).Depth(); d != 9 {
		t.Errorf("identical points: depth %d, want 9", d)
	}
}

func TestBuildOrdering(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	tree := kdtree.New(randomPoints(rng, 777, true))
	var check func(n *kdtree.Node)
	check = func(n *kdtree.Node) {
		if n == nil {
			return
		}
		pivot := comp(n.Pos, n.Split)
		(&kdtree.Tree{Root: n.Left}).Do(func(c *kdtree.Node) bool {
			if comp(c.Pos, n.Split) > pivot {
				t.Fatalf("left descendant %v above pivot %g on axis %d", c.Pos, pivot, n.Split)
			}
			return false
		})
		(&kdtree.Tree{Root: n.Right}).Do(func(c *kdtree.Node) bool {
			if comp(c.Pos, n.Split) < pivot {
				t.Fatalf("right descendant %v below pivot %g on axis %d", c.Pos, pivot, n.Split)
			}
			return false
		})
		check(n.Left)
		check(n.Right)
	}
	check(tree.Root)
	seen := make(map[int]bool)
	tree.Do(func(n *kdtree.Node) bool { seen[n.ID] = true; return false })
	if len(seen) != 777 {
		t.Errorf("tree holds %d distinct ids, want 777", len(seen))
	}
}

func comp(v r3.Vec, dim int) float64 {
	return [3]float64{v.X, v.Y, v.Z}[dim]
}

// Sequential inserts of sorted points produce a list shaped tree. Queries
// must remain exact.
func TestInsertUnbalanced(t *testing.T) {
	const n = 2000
	var tree kdtree.Tree
	pts := make([]kdtree.Point, n)
	for i := range pts {
		pts[i] = kdtree.Point{Pos: r3.Vec{X: float64(i) * 0.5, Y: float64(i), Z: float64(2 * i)}, ID: i}
		tree.Insert(pts[i])
	}
	if tree.Depth() != n {
		t.Fatalf("depth %d, want %d for sorted inserts", tree.Depth(), n)
	}
	if tree.Root.Split != 0 || tree.Root.Right.Split != 1 || tree.Root.Right.Right.Split != 2 {
		t.Error("inserted leaves should split round robin from the parent axis")
	}
	rng := rand.New(rand.NewSource(7))
	for _, q := range queries(rng, pts) {
		got, d2, _ := tree.Nearest(q, nil)
		want, wantD2, _ := bruteNearest(pts, q, nil)
		if got.ID != want.ID || d2 != wantD2 {
			t.Fatalf("q=%v: got %d, want %d", q, got.ID, want.ID)
		}
		if !equalInts(matchIDs(tree.Range(q, 30, nil)), bruteRange(pts, q, 30, nil)) {
			t.Fatalf("range mismatch at %v", q)
		}
	}
}

func TestInsertIntoBuiltTree(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	pts := randomPoints(rng, 300, false)
	tree := kdtree.New(pts[:150])
	for _, p := range pts[150:] {
		tree.Insert(p)
	}
	if tree.Len() != 300 {
		t.Fatalf("Len()=%d", tree.Len())
	}
	for _, q := range queries(rng, pts) {
		got, _, _ := tree.Nearest(q, nil)
		want, _, _ := bruteNearest(pts, q, nil)
		if got.ID != want.ID {
			t.Fatalf("q=%v: got %d, want %d", q, got.ID, want.ID)
		}
	}
}

// Cross check against gonum's independent kd-tree implementation.
func TestNearestGonum(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	pts := randomPoints(rng, 1000, false)
	gpts := make(gkd.Points, len(pts))
	for i, p := range pts {
		gpts[i] = gkd.Point{p.Pos.X, p.Pos.Y, p.Pos.Z}
	}
	gtree := gkd.New(gpts, false)
	tree := kdtree.New(pts)
	for _, q := range queries(rng, pts) {
		_, want := gtree.Nearest(gkd.Point{q.X, q.Y, q.Z})
		_, got, _ := tree.Nearest(q, nil)
		if math.Abs(got-want) > 1e-9*math.Max(1, want) {
			t.Fatalf("q=%v: got d2=%g, gonum d2=%g", q, got, want)
		}
		keep := gkd.NewDistKeeper(4)
		gtree.NearestSet(keep, gkd.Point{q.X, q.Y, q.Z})
		if n := len(tree.Range(q, 2, nil)); n != keep.Len() {
			t.Fatalf("q=%v: range found %d, gonum %d", q, n, keep.Len())
		}
	}
}
