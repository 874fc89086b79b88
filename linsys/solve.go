package linsys

import (
	"errors"

	"github.com/james-bowman/sparse"
	"github.com/soypat/dtrans"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Normal holds a coefficient matrix A with its transpose and normal matrix
// AᵀA in compressed form.
type Normal struct {
	A, At, AtA *sparse.CSR
}

// NewNormal compresses a and forms its normal matrix.
func NewNormal(a *Triplet) *Normal {
	n := &Normal{A: a.ToCSR(), At: a.Transpose().ToCSR()}
	var ata sparse.CSR
	ata.Mul(n.At, n.A)
	n.AtA = &ata
	return n
}

// Rhs returns Aᵀc.
func (n *Normal) Rhs(c []float64) []float64 {
	return MulVec(n.At, c)
}

// Residual returns ‖c − A·x‖.
func (n *Normal) Residual(x, c []float64) float64 {
	r := MulVec(n.A, x)
	floats.SubTo(r, c, r)
	return floats.Norm(r, 2)
}

// MulVec returns a·x.
func MulVec(a *sparse.CSR, x []float64) []float64 {
	r, c := a.Dims()
	if len(x) != c {
		panic(mat.ErrShape)
	}
	y := make([]float64, r)
	a.DoNonZero(func(i, j int, v float64) {
		y[i] += v * x[j]
	})
	return y
}

// Factor solves against a factorized normal matrix.
type Factor interface {
	// Solve returns x such that (AᵀA)x = b.
	Solve(b []float64) ([]float64, error)
	// Dim returns the number of unknowns.
	Dim() int
}

// Factorize prepares ata, a symmetric positive definite matrix, for solving.
// A zero diagonal entry (an unknown no equation touches) or a matrix that is
// not positive definite yields a fatal error.
func Factorize(ata *sparse.CSR, opts Options) (Factor, error) {
	opts = opts.withDefaults()
	n, c := ata.Dims()
	if n != c {
		return nil, dtrans.Fatalf("factorize", "normal matrix is %dx%d", n, c)
	}
	diag := make([]float64, n)
	ata.DoNonZero(func(i, j int, v float64) {
		if i == j {
			diag[i] += v
		}
	})
	for i, d := range diag {
		if !(d > 0) {
			return nil, dtrans.Fatalf("factorize", "unknown %d is not constrained by any equation (diagonal %g)", i, d)
		}
	}
	method := opts.Method
	if method == Auto {
		method = Cholesky
		if n > opts.DenseLimit {
			method = ConjugateGradient
		}
	}
	switch method {
	case Cholesky:
		return newCholesky(ata, n)
	case ConjugateGradient:
		return newCG(ata, diag, opts), nil
	}
	return nil, dtrans.Fatalf("factorize", "unknown method %v", method)
}

// LeastSquares solves min‖c − A·x‖² through the normal equations.
func LeastSquares(a *Triplet, c []float64, opts Options) ([]float64, error) {
	if r, _ := a.Dims(); r != len(c) {
		return nil, dtrans.Fatalf("least squares", "%d rows but right hand side of length %d", r, len(c))
	}
	n := NewNormal(a)
	f, err := Factorize(n.AtA, opts)
	if err != nil {
		return nil, err
	}
	return f.Solve(n.Rhs(c))
}

type cholesky struct {
	n    int
	chol mat.Cholesky
}

func newCholesky(ata *sparse.CSR, n int) (Factor, error) {
	f := &cholesky{n: n}
	if n == 0 {
		return f, nil
	}
	sym := mat.NewSymDense(n, nil)
	ata.DoNonZero(func(i, j int, v float64) {
		if i <= j {
			sym.SetSym(i, j, v)
		}
	})
	if ok := f.chol.Factorize(sym); !ok {
		return nil, dtrans.Fatalf("factorize", "normal matrix of %d unknowns is not positive definite", n)
	}
	return f, nil
}

func (f *cholesky) Dim() int { return f.n }

func (f *cholesky) Solve(b []float64) ([]float64, error) {
	if len(b) != f.n {
		panic(mat.ErrShape)
	}
	if f.n == 0 {
		return nil, nil
	}
	var x mat.VecDense
	err := f.chol.SolveVecTo(&x, mat.NewVecDense(f.n, b))
	var cond mat.Condition
	if errors.As(err, &cond) {
		return nil, dtrans.Fatalf("solve", "normal matrix is numerically singular: %v", err)
	} else if err != nil {
		return nil, dtrans.Fatalf("solve", "%w", err)
	}
	return x.RawVector().Data, nil
}
