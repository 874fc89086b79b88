package linsys

import (
	"math"

	"github.com/james-bowman/sparse"
	"github.com/soypat/dtrans"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// cg solves with the Jacobi preconditioned conjugate gradient method. The
// normal matrix is copied out of the CSR into flat arrays once so each
// iteration is a plain loop.
type cg struct {
	n       int
	indptr  []int
	ind     []int
	data    []float64
	invDiag []float64
	tol     float64
	maxIter int
}

func newCG(ata *sparse.CSR, diag []float64, opts Options) *cg {
	f := &cg{
		n:       len(diag),
		indptr:  make([]int, len(diag)+1),
		ind:     make([]int, 0, ata.NNZ()),
		data:    make([]float64, 0, ata.NNZ()),
		invDiag: make([]float64, len(diag)),
		tol:     opts.Tolerance,
		maxIter: opts.MaxIterations,
	}
	if f.maxIter <= 0 {
		f.maxIter = 10 * f.n
	}
	// DoNonZero visits CSR rows in order.
	ata.DoNonZero(func(i, j int, v float64) {
		f.indptr[i+1]++
		f.ind = append(f.ind, j)
		f.data = append(f.data, v)
	})
	for i := 0; i < f.n; i++ {
		f.indptr[i+1] += f.indptr[i]
	}
	for i, d := range diag {
		f.invDiag[i] = 1 / d
	}
	return f
}

func (f *cg) Dim() int { return f.n }

func (f *cg) mulVec(dst, x []float64) {
	for i := 0; i < f.n; i++ {
		var s float64
		for p := f.indptr[i]; p < f.indptr[i+1]; p++ {
			s += f.data[p] * x[f.ind[p]]
		}
		dst[i] = s
	}
}

func (f *cg) Solve(b []float64) ([]float64, error) {
	if len(b) != f.n {
		panic(mat.ErrShape)
	}
	x := make([]float64, f.n)
	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		return x, nil
	}
	r := append([]float64(nil), b...)
	z := make([]float64, f.n)
	floats.MulTo(z, f.invDiag, r)
	p := append([]float64(nil), z...)
	q := make([]float64, f.n)
	rz := floats.Dot(r, z)
	for it := 0; it < f.maxIter; it++ {
		f.mulVec(q, p)
		pq := floats.Dot(p, q)
		if !(pq > 0) {
			return nil, dtrans.Fatalf("solve", "normal matrix is not positive definite (pᵀAp = %g at iteration %d)", pq, it)
		}
		alpha := rz / pq
		floats.AddScaled(x, alpha, p)
		floats.AddScaled(r, -alpha, q)
		if floats.Norm(r, 2) <= f.tol*bnorm {
			return x, nil
		}
		floats.MulTo(z, f.invDiag, r)
		rzNext := floats.Dot(r, z)
		beta := rzNext / rz
		rz = rzNext
		floats.Scale(beta, p)
		floats.Add(p, z)
	}
	res := floats.Norm(r, 2) / bnorm
	if math.IsNaN(res) {
		return nil, dtrans.Fatalf("solve", "conjugate gradient diverged")
	}
	return nil, dtrans.Fatalf("solve", "conjugate gradient did not converge in %d iterations (relative residual %.3g)", f.maxIter, res)
}
