// Package linsys assembles and solves sparse linear least squares problems
// min‖c − A·x‖² through the normal equations (AᵀA)x = Aᵀc.
//
// Matrices are assembled as growable coordinate lists (Triplet) and
// compressed to github.com/james-bowman/sparse CSR matrices. Normal matrices
// are factorized once by a dense gonum Cholesky decomposition or prepared
// for Jacobi preconditioned conjugate gradients, after which any number of
// right hand sides can be solved.
package linsys

import (
	"fmt"
	"sort"

	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// Triplet is a sparse matrix in coordinate form. Entries sharing a position
// are summed on compression.
type Triplet struct {
	r, c int
	I, J []int
	V    []float64
}

// NewTriplet returns an empty r×c matrix with room for nnz entries.
func NewTriplet(r, c, nnz int) *Triplet {
	return &Triplet{
		r: r,
		c: c,
		I: make([]int, 0, nnz),
		J: make([]int, 0, nnz),
		V: make([]float64, 0, nnz),
	}
}

// Dims returns the dimensions of the matrix.
func (t *Triplet) Dims() (r, c int) { return t.r, t.c }

// Len returns the number of appended entries.
func (t *Triplet) Len() int { return len(t.V) }

// Append adds v at (i, j). Positions outside the matrix panic.
func (t *Triplet) Append(i, j int, v float64) {
	if i < 0 || i >= t.r || j < 0 || j >= t.c {
		panic(fmt.Sprintf("linsys: entry (%d,%d) outside %dx%d matrix", i, j, t.r, t.c))
	}
	t.I = append(t.I, i)
	t.J = append(t.J, j)
	t.V = append(t.V, v)
}

// Transpose returns a new triplet holding the transpose of t.
func (t *Triplet) Transpose() *Triplet {
	return &Triplet{
		r: t.c,
		c: t.r,
		I: append([]int(nil), t.J...),
		J: append([]int(nil), t.I...),
		V: append([]float64(nil), t.V...),
	}
}

// ToCSR compresses t into CSR form with columns sorted within each row and
// duplicate entries summed. t is not modified.
func (t *Triplet) ToCSR() *sparse.CSR {
	indptr := make([]int, t.r+1)
	for _, i := range t.I {
		indptr[i+1]++
	}
	for i := 0; i < t.r; i++ {
		indptr[i+1] += indptr[i]
	}
	ind := make([]int, len(t.I))
	data := make([]float64, len(t.I))
	next := append([]int(nil), indptr[:t.r]...)
	for k, i := range t.I {
		p := next[i]
		ind[p] = t.J[k]
		data[p] = t.V[k]
		next[i]++
	}
	// Sort each row by column and merge duplicates in place. The write
	// cursor w never passes the start of the row being read.
	w := 0
	for i := 0; i < t.r; i++ {
		start, end := indptr[i], indptr[i+1]
		sort.Sort(rowEntries{ind: ind[start:end], data: data[start:end]})
		indptr[i] = w
		for p := start; p < end; p++ {
			if w > indptr[i] && ind[w-1] == ind[p] {
				data[w-1] += data[p]
				continue
			}
			ind[w] = ind[p]
			data[w] = data[p]
			w++
		}
	}
	indptr[t.r] = w
	return sparse.NewCSR(t.r, t.c, indptr, ind[:w], data[:w])
}

// Dense returns t as a dense matrix. Meant for small systems and tests.
func (t *Triplet) Dense() *mat.Dense {
	d := mat.NewDense(t.r, t.c, nil)
	for k := range t.V {
		d.Set(t.I[k], t.J[k], d.At(t.I[k], t.J[k])+t.V[k])
	}
	return d
}

type rowEntries struct {
	ind  []int
	data []float64
}

func (r rowEntries) Len() int           { return len(r.ind) }
func (r rowEntries) Less(i, j int) bool { return r.ind[i] < r.ind[j] }
func (r rowEntries) Swap(i, j int) {
	r.ind[i], r.ind[j] = r.ind[j], r.ind[i]
	r.data[i], r.data[j] = r.data[j], r.data[i]
}
