package corres

import (
	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/internal/d3"
	"github.com/soypat/dtrans/linsys"
)

// System is the linear system M·x = C of one correspondence solve under
// construction. Rows are handed out by the caller: every Append method
// writes from the row it is given and returns the row after its last one.
type System struct {
	M *linsys.Triplet
	C []float64

	info *VertexInfoList
	tris []dtrans.Triangle
}

// SystemSize returns the dimensions of the system over ntri source
// triangles with nadj adjacency entries and nfree free vertices. closest
// adds three rows per free vertex.
func SystemSize(ntri, nadj, nfree int, closest bool) (rows, cols int) {
	rows = 9 * (nadj + ntri)
	if closest {
		rows += 3 * nfree
	}
	return rows, 3 * (nfree + ntri)
}

// NewSystem allocates the system for src sized by SystemSize.
func NewSystem(src *dtrans.Mesh, info *VertexInfoList, nadj int, closest bool) *System {
	rows, cols := SystemSize(len(src.Triangles), nadj, info.NumFree, closest)
	nnz := 36 * (2*nadj + len(src.Triangles))
	if closest {
		nnz += 3 * info.NumFree
	}
	return &System{
		M:    linsys.NewTriplet(rows, cols, nnz),
		C:    make([]float64, rows),
		info: info,
		tris: src.Triangles,
	}
}

// Rows returns the row count of the system.
func (s *System) Rows() int { return len(s.C) }

// AppendTerm adds weight times the elementary term of triangle tri with
// right hand side c to rows [row, row+9).
func (s *System) AppendTerm(row, tri int, m *dtrans.Block, c *[9]float64, weight float64) {
	vars := s.info.TriangleVars(tri, s.tris[tri])
	for r := 0; r < 9; r++ {
		dim := r / 3
		for k := 0; k < 4; k++ {
			if j := vars[dim][k]; j != dtrans.NoIndex {
				s.M.Append(row+r, j, weight*m[r][k])
			}
		}
		s.C[row+r] += weight * c[r]
	}
}

// AppendSmoothness adds T[i] - T[j] ≈ 0 for every triangle i and each of
// its neighbours j, in triangle then neighbour order.
func (s *System) AppendSmoothness(row int, adj *dtrans.Adjacency, terms []Term, weight float64) int {
	for i := range terms {
		for _, j := range adj.Of(i) {
			s.AppendTerm(row, i, &terms[i].M, &terms[i].C, weight)
			s.AppendTerm(row, j, &terms[j].M, &terms[j].C, -weight)
			row += 9
		}
	}
	return row
}

// AppendIdentity adds T[i] ≈ I for every triangle i.
func (s *System) AppendIdentity(row int, terms []Term, weight float64) int {
	for i := range terms {
		c := terms[i].C
		c[0]++
		c[4]++
		c[8]++
		s.AppendTerm(row, i, &terms[i].M, &c, weight)
		row += 9
	}
	return row
}

// AppendClosest pins every free vertex toward its joined target vertex with
// three unit rows. Rows of unmatched vertices are reserved but left empty.
func (s *System) AppendClosest(row int, tgt *dtrans.Mesh, join *Join, weight float64) int {
	for v, info := range s.info.Info {
		if info.Kind != Free {
			continue
		}
		if t := join.Target[v]; t != dtrans.NoIndex {
			p := tgt.Vertices[t]
			for dim := 0; dim < 3; dim++ {
				s.M.Append(row+dim, 3*info.Index+dim, weight)
				s.C[row+dim] += weight * d3.Comp(p, dim)
			}
		}
		row += 3
	}
	return row
}
