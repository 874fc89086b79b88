package tricorr

import (
	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// Radius returns the larger CorrespondenceRadius of the two meshes, the
// expected spacing of neighbouring triangle centroids.
func Radius(src, tgt *dtrans.Mesh) float64 {
	return max(src.CorrespondenceRadius(), tgt.CorrespondenceRadius())
}

// orientation accepts source triangles facing the same half space as a
// reference normal.
type orientation struct {
	normals []r3.Vec
	ref     r3.Vec
}

func (o *orientation) keep(p kdtree.Point) bool {
	return r3.Dot(o.normals[p.ID], o.ref) > 0
}

// Resolve matches every target triangle to the triangles of the deformed
// source whose centroid lies within radius of its own and whose normal
// points into the same half space. A radius <= 0 is replaced by Radius.
// Entries are appended in target order; use Strip to sort and cap them.
func Resolve(src, tgt *dtrans.Mesh, radius float64) List {
	if radius <= 0 {
		radius = Radius(src, tgt)
	}
	pts := make([]kdtree.Point, len(src.Triangles))
	normals := make([]r3.Vec, len(src.Triangles))
	for i := range pts {
		pts[i] = kdtree.Point{Pos: src.Centroid(i), ID: i}
		normals[i] = src.FaceNormal(i)
	}
	tree := kdtree.New(pts)
	o := &orientation{normals: normals}
	var l List
	for t := range tgt.Triangles {
		o.ref = tgt.FaceNormal(t)
		for _, m := range tree.Range(tgt.Centroid(t), radius, o.keep) {
			l = append(l, Corr{Src: m.ID, Tgt: t, Dist2: m.Dist2})
		}
	}
	return l
}
