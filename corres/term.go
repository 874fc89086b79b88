package corres

import (
	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/internal/d3"
)

// Term is the elementary term of one source triangle: row r of its
// deformation gradient equals M[r]·u - C[r], u being the triangle's local
// unknowns. Coefficients of constrained corners are zero in M and their
// contribution at the mapped target position is moved into C.
type Term struct {
	M dtrans.Block
	C [9]float64
}

// NewTerm returns the elementary term of triangle tri of src given its
// inverse surface matrix.
func NewTerm(src, tgt *dtrans.Mesh, cons dtrans.Constraints, info *VertexInfoList, tri int, inv dtrans.Mat3) (term Term) {
	term.M = dtrans.ElementaryBlock(inv)
	t := src.Triangles[tri]
	for k := 0; k < 3; k++ {
		vi := info.Info[t.V[k]]
		if vi.Kind != Constrained {
			continue
		}
		p := tgt.Vertices[cons[vi.Index].Tgt]
		for row := range term.M {
			dim := row / 3
			term.C[row] -= term.M[row][k] * d3.Comp(p, dim)
			term.M[row][k] = 0
		}
	}
	return term
}

// BuildTerms returns the elementary term of every source triangle.
func BuildTerms(src, tgt *dtrans.Mesh, cons dtrans.Constraints, info *VertexInfoList, inv []dtrans.Mat3) []Term {
	terms := make([]Term, len(src.Triangles))
	for i := range terms {
		terms[i] = NewTerm(src, tgt, cons, info, i, inv[i])
	}
	return terms
}
