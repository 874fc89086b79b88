package linsys_test

import (
	"math/rand"
	"testing"

	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/linsys"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestTripletToCSR(t *testing.T) {
	tr := linsys.NewTriplet(3, 4, 2)
	tr.Append(2, 3, 1)
	tr.Append(0, 1, 2)
	tr.Append(2, 0, -1)
	tr.Append(0, 1, 3) // duplicate of (0,1)
	tr.Append(2, 3, 0.5)
	assert.Equal(t, 5, tr.Len())
	csr := tr.ToCSR()
	assert.Equal(t, 3, csr.NNZ())
	want := mat.NewDense(3, 4, []float64{
		0, 5, 0, 0,
		0, 0, 0, 0,
		-1, 0, 0, 1.5,
	})
	assert.True(t, mat.Equal(want, csr), "got\n%v", mat.Formatted(csr))
	assert.True(t, mat.Equal(want, tr.Dense()))

	var rows []int
	csr.DoNonZero(func(i, j int, v float64) { rows = append(rows, i) })
	assert.IsNonDecreasing(t, rows)

	tt := tr.Transpose()
	r, c := tt.Dims()
	assert.Equal(t, [2]int{4, 3}, [2]int{r, c})
	assert.True(t, mat.Equal(want.T(), tt.ToCSR()))
}

func TestTripletAppendOutOfRange(t *testing.T) {
	tr := linsys.NewTriplet(2, 2, 0)
	assert.Panics(t, func() { tr.Append(2, 0, 1) })
	assert.Panics(t, func() { tr.Append(0, -1, 1) })
}

func randomSystem(rng *rand.Rand, rows, cols int) (*linsys.Triplet, []float64) {
	a := linsys.NewTriplet(rows, cols, 4*rows)
	// A diagonal band guarantees full column rank.
	for j := 0; j < cols; j++ {
		a.Append(j, j, 2+rng.Float64())
	}
	for i := 0; i < rows; i++ {
		for k := 0; k < 3; k++ {
			a.Append(i, rng.Intn(cols), rng.NormFloat64()*0.3)
		}
	}
	c := make([]float64, rows)
	for i := range c {
		c[i] = rng.NormFloat64()
	}
	return a, c
}

func TestLeastSquaresAgainstDense(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, method := range []linsys.Method{linsys.Auto, linsys.Cholesky, linsys.ConjugateGradient} {
		a, c := randomSystem(rng, 120, 45)
		x, err := linsys.LeastSquares(a, c, linsys.Options{Method: method})
		require.NoError(t, err, method)

		var want mat.VecDense
		require.NoError(t, want.SolveVec(a.Dense(), mat.NewVecDense(len(c), c)))
		assert.InDeltaSlicef(t, want.RawVector().Data, x, 1e-8, "method %v", method)

		n := linsys.NewNormal(a)
		var wantRes mat.VecDense
		wantRes.MulVec(a.Dense(), mat.NewVecDense(len(x), x))
		wantRes.SubVec(mat.NewVecDense(len(c), c), &wantRes)
		assert.InDelta(t, mat.Norm(&wantRes, 2), n.Residual(x, c), 1e-10)
	}
}

func TestFactorSolvesRepeatedly(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a, _ := randomSystem(rng, 60, 30)
	n := linsys.NewNormal(a)
	f, err := linsys.Factorize(n.AtA, linsys.Options{})
	require.NoError(t, err)
	assert.Equal(t, 30, f.Dim())
	for k := 0; k < 3; k++ {
		want := make([]float64, 30)
		for i := range want {
			want[i] = rng.Float64()
		}
		b := linsys.MulVec(n.AtA, want)
		got, err := f.Solve(b)
		require.NoError(t, err)
		assert.InDeltaSlice(t, want, got, 1e-9)
	}
}

func TestFactorizeFatal(t *testing.T) {
	// Column 1 never appears.
	a := linsys.NewTriplet(2, 2, 2)
	a.Append(0, 0, 1)
	a.Append(1, 0, 1)
	_, err := linsys.Factorize(linsys.NewNormal(a).AtA, linsys.Options{})
	assert.True(t, dtrans.IsFatal(err), "zero column: %v", err)

	// Rank deficient with positive diagonal.
	a = linsys.NewTriplet(2, 2, 4)
	a.Append(0, 0, 1)
	a.Append(0, 1, 1)
	a.Append(1, 0, 2)
	a.Append(1, 1, 2)
	_, err = linsys.Factorize(linsys.NewNormal(a).AtA, linsys.Options{Method: linsys.Cholesky})
	assert.True(t, dtrans.IsFatal(err), "singular: %v", err)

	_, err = linsys.LeastSquares(a, []float64{1}, linsys.Options{})
	assert.True(t, dtrans.IsFatal(err), "rhs length: %v", err)
}

func TestConjugateGradientIterationLimit(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	a, c := randomSystem(rng, 200, 100)
	_, err := linsys.LeastSquares(a, c, linsys.Options{Method: linsys.ConjugateGradient, MaxIterations: 1, Tolerance: 1e-14})
	assert.True(t, dtrans.IsFatal(err))
}

func TestParseMethod(t *testing.T) {
	for _, test := range []struct {
		in   string
		want linsys.Method
	}{
		{"", linsys.Auto},
		{"auto", linsys.Auto},
		{"Cholesky", linsys.Cholesky},
		{"dense", linsys.Cholesky},
		{"cg", linsys.ConjugateGradient},
	} {
		var m linsys.Method
		require.NoError(t, m.Set(test.in))
		assert.Equal(t, test.want, m)
	}
	_, err := linsys.ParseMethod("lu")
	assert.Error(t, err)
	assert.Equal(t, "cg", linsys.ConjugateGradient.String())
}
