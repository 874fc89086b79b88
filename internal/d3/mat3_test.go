package d3

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestMat3Inverse(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		var m Mat3
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				m[r][c] = rng.Float64()*2 - 1
			}
		}
		inv, ok := m.Inverse()
		if !ok {
			continue
		}
		flat := m.Flat()
		var want mat.Dense
		if err := want.Inverse(mat.NewDense(3, 3, flat[:])); err != nil {
			continue // ill conditioned, gonum refuses.
		}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				if d := inv[r][c] - want.At(r, c); d > 1e-8 || d < -1e-8 {
					t.Fatalf("inverse mismatch at (%d,%d): got %g, want %g", r, c, inv[r][c], want.At(r, c))
				}
			}
		}
		if !m.Mul(inv).EqualWithin(Identity(), 1e-8) {
			t.Errorf("m*inv(m) not identity: %v", m.Mul(inv))
		}
	}
}

func TestMat3Singular(t *testing.T) {
	m := FromCols(r3.Vec{X: 1}, r3.Vec{X: 2}, r3.Vec{Z: 1})
	if _, ok := m.Inverse(); ok {
		t.Error("expected singular matrix to fail inversion")
	}
}

func TestMat3MulAgainstGonum(t *testing.T) {
	a := Mat3{{1, 2, 3}, {4, 5, 6}, {7, 8, 10}}
	b := Mat3{{-1, 0, 2}, {3, 1, 1}, {0, 2, -3}}
	fa, fb := a.Flat(), b.Flat()
	var want r3.Mat
	want.Mul(r3.NewMat(fa[:]), r3.NewMat(fb[:]))
	got := a.Mul(b)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			if d := got[r][c] - want.At(r, c); d > 1e-12 || d < -1e-12 {
				t.Errorf("(%d,%d): got %g, want %g", r, c, got[r][c], want.At(r, c))
			}
		}
	}
	if d := a.Det() - r3.NewMat(fa[:]).Det(); d > 1e-12 || d < -1e-12 {
		t.Errorf("determinant mismatch by %g", d)
	}
}

func TestBoxDist2(t *testing.T) {
	b := BoxOf([]r3.Vec{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 2, Z: 3}})
	for _, test := range []struct {
		p    r3.Vec
		want float64
	}{
		{r3.Vec{X: 0.5, Y: 1, Z: 1}, 0},
		{r3.Vec{X: -1, Y: 1, Z: 1}, 1},
		{r3.Vec{X: 2, Y: 3, Z: 5}, 1 + 1 + 4},
	} {
		if got := b.Dist2(test.p); got != test.want {
			t.Errorf("Dist2(%v) = %g, want %g", test.p, got, test.want)
		}
	}
	if got := b.HalfArea(); got != 1*2+2*3+3*1 {
		t.Errorf("HalfArea = %g", got)
	}
}
