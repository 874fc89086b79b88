package corres

import (
	"math"
	"math/rand"
	"testing"

	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/internal/d3"
	"github.com/soypat/dtrans/internal/meshtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestClassifyVertices(t *testing.T) {
	cons := dtrans.Constraints{{Src: 7, Tgt: 0}, {Src: 0, Tgt: 3}, {Src: 4, Tgt: 1}}
	cons.Sort()
	l := ClassifyVertices(9, cons)
	assert.Equal(t, 6, l.NumFree)
	assert.Equal(t, 3, l.NumConstrained)
	nextFree := 0
	for v, info := range l.Info {
		switch info.Kind {
		case Free:
			if info.Index != nextFree {
				t.Errorf("vertex %d: free index %d, want %d", v, info.Index, nextFree)
			}
			nextFree++
			assert.Equal(t, 3*info.Index+2, l.FreeVar(v, 2))
		case Constrained:
			if cons[info.Index].Src != v {
				t.Errorf("vertex %d maps to constraint %v", v, cons[info.Index])
			}
			assert.Equal(t, dtrans.NoIndex, l.FreeVar(v, 0))
		}
	}
	assert.Equal(t, 3*(6+2)+1, l.PhantomVar(2, 1))
	assert.Equal(t, 3*(6+5), l.NumVars(5))

	vars := l.TriangleVars(1, dtrans.Triangle{V: [3]int{0, 1, 2}})
	for dim := 0; dim < 3; dim++ {
		assert.Equal(t, dtrans.NoIndex, vars[dim][0])
		assert.Equal(t, dim, vars[dim][1])
		assert.Equal(t, 3+dim, vars[dim][2])
		assert.Equal(t, l.PhantomVar(1, dim), vars[dim][3])
	}
}

func TestClassifyVerticesPanics(t *testing.T) {
	assert.Panics(t, func() {
		ClassifyVertices(4, dtrans.Constraints{{Src: 2}, {Src: 1}})
	}, "unsorted")
	assert.Panics(t, func() {
		ClassifyVertices(4, dtrans.Constraints{{Src: 1}, {Src: 9}})
	}, "out of range")
	assert.NotPanics(t, func() { ClassifyVertices(0, nil) })
}

// gradient evaluates T = [u2-u1, u3-u1, u4-u1]·inv row major.
func gradient(u [4]r3.Vec, inv dtrans.Mat3) (T [9]float64) {
	U := d3.FromCols(r3.Sub(u[1], u[0]), r3.Sub(u[2], u[0]), r3.Sub(u[3], u[0]))
	return U.Mul(inv).Flat()
}

func TestTermFoldsConstrainedCorners(t *testing.T) {
	src := meshtest.Sphere(1)
	tgt := meshtest.Affine(src, dtrans.Mat3{{2, 0, 0}, {0, 1, 0.5}, {0, 0, 1}}, r3.Vec{X: 3})
	tri := 5
	tv := src.Triangles[tri].V
	cons := dtrans.Constraints{{Src: tv[0], Tgt: 1}, {Src: tv[2], Tgt: 4}}
	cons.Sort()
	info := ClassifyVertices(len(src.Vertices), cons)
	inv, err := src.SurfaceInverses()
	require.NoError(t, err)
	term := NewTerm(src, tgt, cons, info, tri, inv[tri])

	rng := rand.New(rand.NewSource(1))
	var u [4]r3.Vec
	for k := range u {
		u[k] = r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
	}
	for k := 0; k < 3; k++ {
		if vi := info.Info[tv[k]]; vi.Kind == Constrained {
			u[k] = tgt.Vertices[cons[vi.Index].Tgt]
		}
	}
	want := gradient(u, inv[tri])
	for row := 0; row < 9; row++ {
		dim := row / 3
		got := -term.C[row]
		for k := 0; k < 4; k++ {
			got += term.M[row][k] * d3.Comp(u[k], dim)
		}
		assert.InDelta(t, want[row], got, 1e-12, "row %d", row)
		assert.Zero(t, term.M[row][0])
		assert.Zero(t, term.M[row][2])
	}
}

func TestSystemRows(t *testing.T) {
	src := meshtest.Grid(3, 2, 1)
	cons := dtrans.Constraints{{Src: 0, Tgt: 0}, {Src: 5, Tgt: 5}}
	info := ClassifyVertices(len(src.Vertices), cons)
	adj, err := dtrans.ResolveAdjacency(src)
	require.NoError(t, err)
	inv, err := src.SurfaceInverses()
	require.NoError(t, err)
	terms := BuildTerms(src, src, cons, info, inv)

	sys := NewSystem(src, info, adj.Count, true)
	rows, cols := SystemSize(len(src.Triangles), adj.Count, info.NumFree, true)
	r, c := sys.M.Dims()
	assert.Equal(t, rows, r)
	assert.Equal(t, cols, c)

	row := sys.AppendSmoothness(0, adj, terms, 1)
	assert.Equal(t, 9*adj.Count, row)
	row = sys.AppendIdentity(row, terms, 0.1)
	assert.Equal(t, 9*(adj.Count+len(src.Triangles)), row)
	join := newJoin(len(src.Vertices))
	join.Target[1] = 1
	row = sys.AppendClosest(row, src, join, 2)
	assert.Equal(t, sys.Rows(), row)

	// The undeformed source satisfies every term.
	x := make([]float64, cols)
	for v, vi := range info.Info {
		if vi.Kind == Free {
			x[3*vi.Index], x[3*vi.Index+1], x[3*vi.Index+2] = src.Vertices[v].X, src.Vertices[v].Y, src.Vertices[v].Z
		}
	}
	for i := range src.Triangles {
		p := src.PhantomVertex(i)
		j := info.PhantomVar(i, 0)
		x[j], x[j+1], x[j+2] = p.X, p.Y, p.Z
	}
	y := make([]float64, r)
	for k := range sys.M.V {
		y[sys.M.I[k]] += sys.M.V[k] * x[sys.M.J[k]]
	}
	for i := range y {
		assert.InDelta(t, sys.C[i], y[i], 1e-12, "row %d", i)
	}
}

func TestSpatialJoin(t *testing.T) {
	tgt := meshtest.Sphere(2)
	src := meshtest.Affine(tgt, dtrans.Mat3{{1.1, 0, 0}, {0, 0.9, 0}, {0.1, 0, 1}}, r3.Vec{Y: 0.05})
	cons := dtrans.Constraints{{Src: 0, Tgt: 0}}
	info := ClassifyVertices(len(src.Vertices), cons)
	sn, tn := src.ComputeVertexNormals(), tgt.ComputeVertexNormals()
	// Flip one target normal so the nearest vertex of its twin is rejected.
	tn[10] = r3.Scale(-1, tn[10])

	got := SpatialJoin(src, sn, VertexTree(tgt), tn, info)
	want := SpatialJoinBruteForce(src, tgt, sn, tn, info)
	assert.Equal(t, dtrans.NoIndex, got.Target[0])
	assert.Equal(t, want.Unmatched, got.Unmatched)
	assert.InDelta(t, want.MeanDist2, got.MeanDist2, 1e-12)
	for v := range src.Vertices {
		if v == 0 {
			continue
		}
		require.NotEqual(t, dtrans.NoIndex, got.Target[v])
		assert.NotEqual(t, 10, got.Target[v])
		dg := r3.Norm2(r3.Sub(src.Vertices[v], tgt.Vertices[got.Target[v]]))
		dw := r3.Norm2(r3.Sub(src.Vertices[v], tgt.Vertices[want.Target[v]]))
		assert.InDelta(t, dw, dg, 1e-12, "vertex %d", v)
	}
}

func TestSpatialJoinUnmatched(t *testing.T) {
	src := meshtest.Grid(1, 1, 1)
	tgt := meshtest.Grid(1, 1, 1)
	info := ClassifyVertices(len(src.Vertices), nil)
	sn := src.ComputeVertexNormals()
	tn := make([]r3.Vec, len(tgt.Vertices))
	for i := range tn {
		tn[i] = r3.Vec{Z: -1}
	}
	j := SpatialJoin(src, sn, VertexTree(tgt), tn, info)
	assert.Equal(t, 4, j.Unmatched)
	assert.Zero(t, j.MeanDist2)
	for _, v := range j.Target {
		assert.Equal(t, dtrans.NoIndex, v)
	}
}

func TestScheduleIterations(t *testing.T) {
	for _, tc := range []struct {
		s    Schedule
		want int
	}{
		{Schedule{1, 500, 5000}, 10},
		{Schedule{0, 1, 3}, 3},
		{Schedule{0, 1, 3.5}, 4},
		{Schedule{0, 0.1, 0.3}, 3},
		{Schedule{0, 1, 0}, 0},
		{Schedule{5, 1, 1}, 0},
		{Schedule{0, 0, 1}, 0},
		{Schedule{0, -1, 1}, 0},
		{Schedule{0, math.NaN(), 1}, 0},
		{Schedule{0, 1e-300, 1}, MaxIterations},
		{Schedule{0, 1, math.MaxFloat64}, MaxIterations},
	} {
		got := tc.s.Iterations()
		if got != tc.want {
			t.Errorf("%v: got %d iterations, want %d", tc.s, got, tc.want)
		}
		for i := 0; i < got; i++ {
			if w := tc.s.Weight(i); w >= tc.s.End {
				t.Errorf("%v: weight %d = %g not below end", tc.s, i, w)
			}
		}
	}
}

func TestParseSchedule(t *testing.T) {
	s, err := ParseSchedule("[1:500:5000]")
	require.NoError(t, err)
	assert.Equal(t, Schedule{1, 500, 5000}, s)
	s, err = ParseSchedule(" 0.5 : 2 : 10 ")
	require.NoError(t, err)
	assert.Equal(t, Schedule{0.5, 2, 10}, s)
	for _, bad := range []string{"", "1:2", "[1:2:3", "a:b:c", "1:2:3:4"} {
		_, err := ParseSchedule(bad)
		assert.Error(t, err, bad)
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	cfg := DefaultConfig()
	cfg.WeightSmooth = -1
	cfg.Radius = math.Inf(1)
	cfg.MaxCorrs = -2
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weight_smooth")
	assert.Contains(t, err.Error(), "radius")
	assert.Contains(t, err.Error(), "max_corrs")

	cfg = DefaultConfig()
	cfg.Schedule = Schedule{Start: 0, Step: 1e-300, End: 1}
	assert.ErrorContains(t, cfg.Validate(), "exceeds")
	cfg.Schedule = Schedule{Start: 0, Step: 1, End: MaxIterations}
	assert.NoError(t, cfg.Validate())
}
