package dtrans

// Adjacency lists for every triangle the triangles sharing one of its edges.
type Adjacency struct {
	// Neighbors holds up to three neighbours per triangle packed at the
	// front, unused slots hold NoIndex.
	Neighbors [][3]int
	// Count is the total number of neighbour entries.
	Count int
}

// Of returns the neighbours of triangle i.
func (a *Adjacency) Of(i int) []int {
	n := a.Neighbors[i]
	k := 0
	for k < 3 && n[k] != NoIndex {
		k++
	}
	return n[:k:k]
}

// edge is an entry of the edge dictionary. Edges of a bucket form a list
// sorted by hi and linked through next.
type edge struct {
	hi   int
	tri  [2]int
	next int
}

// edgeDict maps an undirected edge (lo, hi), lo < hi, to the first two
// triangles owning it. Buckets are indexed by lo; the list nodes live in one
// arena slice.
type edgeDict struct {
	head  []int
	edges []edge
}

func newEdgeDict(nvert, ntri int) *edgeDict {
	d := &edgeDict{
		head:  make([]int, nvert),
		edges: make([]edge, 0, 3*ntri/2+1),
	}
	for i := range d.head {
		d.head[i] = NoIndex
	}
	return d
}

// add registers tri as owner of edge (a, b). Owners beyond the second are
// ignored.
func (d *edgeDict) add(a, b, tri int) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	prev, cur := NoIndex, d.head[lo]
	for cur != NoIndex && d.edges[cur].hi < hi {
		prev, cur = cur, d.edges[cur].next
	}
	if cur != NoIndex && d.edges[cur].hi == hi {
		e := &d.edges[cur]
		if e.tri[1] == NoIndex {
			e.tri[1] = tri
		}
		return
	}
	d.edges = append(d.edges, edge{hi: hi, tri: [2]int{tri, NoIndex}, next: cur})
	idx := len(d.edges) - 1
	if prev == NoIndex {
		d.head[lo] = idx
	} else {
		d.edges[prev].next = idx
	}
}

// lookup returns the edge (a, b) or nil.
func (d *edgeDict) lookup(a, b int) *edge {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	for cur := d.head[lo]; cur != NoIndex; cur = d.edges[cur].next {
		switch e := &d.edges[cur]; {
		case e.hi == hi:
			return e
		case e.hi > hi:
			return nil
		}
	}
	return nil
}

// triangle edges in the order neighbours are reported.
var triEdges = [3][2]int{{0, 1}, {1, 2}, {0, 2}}

// ResolveAdjacency finds edge neighbours through a dictionary of edges in
// time linear in the triangle count for meshes of bounded vertex valence.
// Neighbours are reported in edge order (v0,v1), (v1,v2), (v0,v2). Edges
// shared by more than two triangles keep their first two owners.
// A triangle repeating a vertex is a malformed edge and yields a FatalError.
func ResolveAdjacency(m *Mesh) (*Adjacency, error) {
	if err := m.Validate(); err != nil {
		return nil, Fatalf("adjacency", "%w", err)
	}
	d := newEdgeDict(len(m.Vertices), len(m.Triangles))
	for i, t := range m.Triangles {
		for _, e := range triEdges {
			a, b := t.V[e[0]], t.V[e[1]]
			if a == b {
				return nil, Fatalf("adjacency", "triangle %d has malformed edge (%d,%d)", i, a, b)
			}
			d.add(a, b, i)
		}
	}
	adj := &Adjacency{Neighbors: make([][3]int, len(m.Triangles))}
	for i, t := range m.Triangles {
		n := [3]int{NoIndex, NoIndex, NoIndex}
		k := 0
		for _, e := range triEdges {
			ed := d.lookup(t.V[e[0]], t.V[e[1]])
			if ed == nil {
				return nil, Fatalf("adjacency", "edge (%d,%d) of triangle %d missing from dictionary", t.V[e[0]], t.V[e[1]], i)
			}
			other := NoIndex
			switch i {
			case ed.tri[0]:
				other = ed.tri[1]
			case ed.tri[1]:
				other = ed.tri[0]
			}
			if other != NoIndex {
				n[k] = other
				k++
			}
		}
		adj.Neighbors[i] = n
		adj.Count += k
	}
	return adj, nil
}

// ResolveAdjacencyBruteForce compares every pair of triangles and reports
// those sharing exactly two vertices, in ascending triangle order, keeping
// at most three. It is quadratic and meant for small meshes and tests.
func ResolveAdjacencyBruteForce(m *Mesh) *Adjacency {
	adj := &Adjacency{Neighbors: make([][3]int, len(m.Triangles))}
	for i, ti := range m.Triangles {
		n := [3]int{NoIndex, NoIndex, NoIndex}
		k := 0
		for j, tj := range m.Triangles {
			if i == j || k == 3 {
				continue
			}
			shared := 0
			for _, a := range ti.V {
				for _, b := range tj.V {
					if a == b {
						shared++
					}
				}
			}
			if shared == 2 {
				n[k] = j
				k++
			}
		}
		adj.Neighbors[i] = n
		adj.Count += k
	}
	return adj
}
