package meshio

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Weld builds an indexed mesh from a triangle soup, merging corners that
// fall in the same cell of a grid of spacing tol. A zero tol uses 1/256 of
// the shortest edge.
func Weld(soup [][3]r3.Vec, tol float64) (*dtrans.Mesh, error) {
	if len(soup) == 0 {
		return nil, errors.New("no triangles to weld")
	}
	box := d3.Box{Min: d3.Elem(math.MaxFloat64), Max: d3.Elem(-math.MaxFloat64)}
	minEdge2, maxEdge2 := math.MaxFloat64, 0.0
	for _, tri := range soup {
		for j, v := range tri {
			if !d3.IsFinite(v) {
				return nil, fmt.Errorf("non-finite vertex %v", v)
			}
			box = box.Include(v)
			e2 := r3.Norm2(r3.Sub(tri[(j+1)%3], v))
			minEdge2 = math.Min(minEdge2, e2)
			maxEdge2 = math.Max(maxEdge2, e2)
		}
	}
	if tol < 0 {
		return nil, fmt.Errorf("negative weld tolerance %g", tol)
	}
	suggested := math.Sqrt(minEdge2) / 256
	if tol > math.Sqrt(maxEdge2)/2 {
		return nil, fmt.Errorf("weld tolerance too large, suggested tolerance: %g", suggested)
	}
	if tol == 0 {
		tol = suggested
	}
	if tol == 0 {
		return nil, errors.New("soup has a zero length edge, give a weld tolerance")
	}
	size := box.Size()
	if math.Max(size.X, math.Max(size.Y, size.Z))/tol > math.MaxInt64/2 {
		return nil, errors.New("weld tolerance too small, overflowed int64")
	}
	m := &dtrans.Mesh{Triangles: make([]dtrans.Triangle, len(soup))}
	cache := make(map[[3]int64]int)
	ri := 1 / tol
	for i, tri := range soup {
		t := dtrans.Triangle{N: [3]int{dtrans.NoIndex, dtrans.NoIndex, dtrans.NoIndex}}
		for j, v := range tri {
			s := r3.Scale(ri, v)
			key := [3]int64{int64(math.Round(s.X)), int64(math.Round(s.Y)), int64(math.Round(s.Z))}
			idx, ok := cache[key]
			if !ok {
				idx = len(m.Vertices)
				cache[key] = idx
				m.Vertices = append(m.Vertices, v)
			}
			t.V[j] = idx
		}
		m.Triangles[i] = t
	}
	return m, nil
}

// Soup returns the corner positions of every triangle of m.
func Soup(m *dtrans.Mesh) [][3]r3.Vec {
	soup := make([][3]r3.Vec, len(m.Triangles))
	for i := range soup {
		soup[i] = m.Corners(i)
	}
	return soup
}
