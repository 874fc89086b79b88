package d3

import (
	"gonum.org/v1/gonum/spatial/r3"
)

// Box is a 3d bounding box.
type Box r3.Box

// BoxOf returns the smallest box containing every point in pts.
// The zero Box is returned for an empty set.
func BoxOf(pts []r3.Vec) Box {
	if len(pts) == 0 {
		return Box{}
	}
	return Box{Min: Set(pts).Min(), Max: Set(pts).Max()}
}

// Include enlarges a 3d box to include a point.
func (a Box) Include(v r3.Vec) Box {
	return Box{
		Min: MinElem(a.Min, v),
		Max: MaxElem(a.Max, v),
	}
}

// Size returns the size of a 3d box.
func (a Box) Size() r3.Vec {
	return r3.Sub(a.Max, a.Min)
}

// HalfArea returns half the surface area of the box, dx*dy + dy*dz + dz*dx.
func (a Box) HalfArea() float64 {
	sz := a.Size()
	return sz.X*sz.Y + sz.Y*sz.Z + sz.Z*sz.X
}

// Dist2 returns the squared distance from p to the closest point of the box.
// Points inside the box are at distance zero.
func (a Box) Dist2(p r3.Vec) float64 {
	var d2 float64
	for dim := 0; dim < 3; dim++ {
		c := Comp(p, dim)
		lo, hi := Comp(a.Min, dim), Comp(a.Max, dim)
		switch {
		case c < lo:
			d2 += (lo - c) * (lo - c)
		case c > hi:
			d2 += (c - hi) * (c - hi)
		}
	}
	return d2
}
