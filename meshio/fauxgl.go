package meshio

import (
	"github.com/fogleman/fauxgl"
	"github.com/nfnt/resize"
	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// LoadFauxGL reads any mesh format fauxgl understands (STL in ASCII or
// binary, OBJ, PLY and 3DS, chosen by extension) and welds it with
// tolerance tol.
func LoadFauxGL(path string, tol float64) (*dtrans.Mesh, error) {
	fm, err := fauxgl.LoadMesh(path)
	if err != nil {
		return nil, err
	}
	soup := make([][3]r3.Vec, len(fm.Triangles))
	for i, t := range fm.Triangles {
		soup[i] = [3]r3.Vec{fromFauxGL(t.V1.Position), fromFauxGL(t.V2.Position), fromFauxGL(t.V3.Position)}
	}
	return Weld(soup, tol)
}

// ToFauxGL converts m to a fauxgl mesh with flat face normals.
func ToFauxGL(m *dtrans.Mesh) *fauxgl.Mesh {
	tris := make([]*fauxgl.Triangle, len(m.Triangles))
	for i := range m.Triangles {
		c := m.Corners(i)
		tris[i] = fauxgl.NewTriangleForPoints(toFauxGL(c[0]), toFauxGL(c[1]), toFauxGL(c[2]))
	}
	return fauxgl.NewTriangleMesh(tris)
}

func fromFauxGL(v fauxgl.Vector) r3.Vec { return r3.Vec{X: v.X, Y: v.Y, Z: v.Z} }

func toFauxGL(v r3.Vec) fauxgl.Vector { return fauxgl.V(v.X, v.Y, v.Z) }

// View places the camera of a preview.
type View struct {
	// LookAt is the point at the image center.
	LookAt r3.Vec
	// Up is the direction pointing to the top of the image.
	Up r3.Vec
	// Eye is the camera position.
	Eye        r3.Vec
	Near, Far  float64
	Color      string // object color in hex
	Background string // background color in hex
}

// DefaultView is an isometric view of a mesh fit in the bi-unit cube.
var DefaultView = View{
	Up:         r3.Vec{Z: 1},
	Eye:        d3.Elem(2.4),
	Near:       1,
	Far:        10,
	Color:      "#468966",
	Background: "#FFF8E3",
}

// SavePreview renders m with a Phong shader to a width by height PNG.
// The mesh is scaled to the bi-unit cube and rendered at four times the
// resolution before downsampling.
func SavePreview(path string, m *dtrans.Mesh, width, height int, view View) error {
	const (
		scale = 4  // supersampling
		fovy  = 30 // vertical field of view in degrees
	)
	mesh := ToFauxGL(m)
	mesh.BiUnitCube()
	var (
		eye    = toFauxGL(view.Eye)
		center = toFauxGL(view.LookAt)
		up     = toFauxGL(view.Up)
		light  = fauxgl.V(-0.75, 1, 0.25).Normalize()
	)
	context := fauxgl.NewContext(width*scale, height*scale)
	context.ClearColorBufferWith(fauxgl.HexColor(view.Background))
	aspect := float64(width) / float64(height)
	matrix := fauxgl.LookAt(eye, center, up).Perspective(fovy, aspect, view.Near, view.Far)
	shader := fauxgl.NewPhongShader(matrix, light, eye)
	shader.ObjectColor = fauxgl.HexColor(view.Color)
	context.Shader = shader
	context.DrawMesh(mesh)
	image := resize.Resize(uint(width), uint(height), context.Image(), resize.Bilinear)
	return fauxgl.SavePNG(path, image)
}
