// Package transfer replays the deformation of a source mesh onto a target
// mesh through a fixed set of triangle correspondences.
//
// A Transformer factorizes the normal equations of the target system once.
// Every call to Transfer then only builds a new right hand side from the
// deformation gradients of the deformed source and solves against the
// existing factorization.
package transfer

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/internal/d3"
	"github.com/soypat/dtrans/linsys"
	"github.com/soypat/dtrans/tricorr"
	"gonum.org/v1/gonum/spatial/r3"
)

// Options configures a Transformer.
type Options struct {
	// MaxCorrs caps the correspondences used per target triangle, zero
	// uses all.
	MaxCorrs int `toml:"max_corrs"`
	// AnchorWeight weighs the rows fixing the centroid of every connected
	// component of the target.
	AnchorWeight float64        `toml:"anchor_weight"`
	Solver       linsys.Options `toml:"solver"`
}

// DefaultOptions returns the options used by the command line tools.
func DefaultOptions() Options {
	return Options{
		MaxCorrs:     3,
		AnchorWeight: 1,
		Solver:       linsys.DefaultOptions(),
	}
}

// Validate rejects a negative MaxCorrs and a non-positive AnchorWeight.
func (o Options) Validate() error {
	var errs []error
	if o.MaxCorrs < 0 {
		errs = append(errs, fmt.Errorf("max_corrs must be non-negative, got %d", o.MaxCorrs))
	}
	if !(o.AnchorWeight > 0) || math.IsInf(o.AnchorWeight, 0) {
		errs = append(errs, fmt.Errorf("anchor_weight must be finite and positive, got %g", o.AnchorWeight))
	}
	return errors.Join(errs...)
}

// Transformer deforms a target reference mesh like a source reference mesh
// is deformed.
type Transformer struct {
	opts   Options
	log    *log.Logger
	srcRef *dtrans.Mesh
	tgtRef *dtrans.Mesh
	srcInv []dtrans.Mat3
	dict   *tricorr.Dict
	anchor anchor

	normal *linsys.Normal
	factor linsys.Factor
}

// anchor groups the target vertices by connected component.
type anchor struct {
	label    []int
	size     []int
	centroid []r3.Vec
}

func newAnchor(m *dtrans.Mesh) anchor {
	label, n := m.Components()
	a := anchor{label: label, size: make([]int, n), centroid: make([]r3.Vec, n)}
	for v, c := range label {
		a.size[c]++
		a.centroid[c] = r3.Add(a.centroid[c], m.Vertices[v])
	}
	for c := range a.centroid {
		a.centroid[c] = r3.Scale(1/float64(a.size[c]), a.centroid[c])
	}
	return a
}

// New builds and factorizes the transfer system. corrs maps triangles of
// srcRef to triangles of tgtRef. A nil logger discards output.
func New(srcRef, tgtRef *dtrans.Mesh, corrs tricorr.List, opts Options, logger *log.Logger) (*Transformer, error) {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := srcRef.Validate(); err != nil {
		return nil, fmt.Errorf("source reference: %w", err)
	}
	if err := tgtRef.Validate(); err != nil {
		return nil, fmt.Errorf("target reference: %w", err)
	}
	dict, err := tricorr.NewDict(len(tgtRef.Triangles), corrs.Strip(opts.MaxCorrs))
	if err != nil {
		return nil, err
	}
	if m := dict.MaxSrc(); m >= len(srcRef.Triangles) {
		return nil, fmt.Errorf("correspondence references source triangle %d of %d", m, len(srcRef.Triangles))
	}
	srcInv, err := srcRef.SurfaceInverses()
	if err != nil {
		return nil, err
	}
	tgtInv, err := tgtRef.SurfaceInverses()
	if err != nil {
		return nil, err
	}
	t := &Transformer{
		opts:   opts,
		log:    logger,
		srcRef: srcRef.Clone(),
		tgtRef: tgtRef.Clone(),
		srcInv: srcInv,
		dict:   dict,
		anchor: newAnchor(tgtRef),
	}
	a := BuildCoefficientMatrix(tgtRef, dict, tgtInv, len(t.anchor.size))
	t.appendAnchorRows(a)
	r, c := a.Dims()
	logger.Info("factorizing transfer system", "rows", r, "unknowns", c,
		"correspondences", len(dict.List()), "components", len(t.anchor.size))
	t.normal = linsys.NewNormal(a)
	t.factor, err = linsys.Factorize(t.normal.AtA, opts.Solver)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Correspondences returns the correspondences in use, grouped by target
// triangle.
func (t *Transformer) Correspondences() tricorr.List { return t.dict.List() }

// equations returns the number of 9 row blocks of target triangle tri.
func equations(dict *tricorr.Dict, tri int) int {
	return max(dict.Count(tri), 1)
}

// BuildCoefficientMatrix returns the transfer system over the vertices and
// phantom vertices of tgtRef: one elementary block per correspondence of
// each target triangle, or a single block for a triangle without any,
// followed by nanchor empty triples of anchor rows. inv holds the inverse
// surface matrices of tgtRef.
func BuildCoefficientMatrix(tgtRef *dtrans.Mesh, dict *tricorr.Dict, inv []dtrans.Mat3, nanchor int) *linsys.Triplet {
	nv := len(tgtRef.Vertices)
	blocks := 0
	for tri := range tgtRef.Triangles {
		blocks += equations(dict, tri)
	}
	a := linsys.NewTriplet(9*blocks+3*nanchor, 3*(nv+len(tgtRef.Triangles)), 36*blocks+3*nv)
	row := 0
	for tri, tr := range tgtRef.Triangles {
		b := dtrans.ElementaryBlock(inv[tri])
		for e := equations(dict, tri); e > 0; e-- {
			for r := 0; r < 9; r++ {
				dim := r / 3
				for k := 0; k < 3; k++ {
					a.Append(row+r, 3*tr.V[k]+dim, b[r][k])
				}
				a.Append(row+r, 3*(nv+tri)+dim, b[r][3])
			}
			row += 9
		}
	}
	return a
}

func (t *Transformer) appendAnchorRows(a *linsys.Triplet) {
	r, _ := a.Dims()
	row := r - 3*len(t.anchor.size)
	w := t.opts.AnchorWeight
	for v, c := range t.anchor.label {
		for dim := 0; dim < 3; dim++ {
			a.Append(row+3*c+dim, 3*v+dim, w/float64(t.anchor.size[c]))
		}
	}
}

// BuildRhs returns the right hand side for deformed: the row major
// deformation gradient of each corresponding source triangle, the identity
// for target triangles without one, and the anchored component centroids
// moved by the mean displacement of the source vertices.
func (t *Transformer) BuildRhs(deformed *dtrans.Mesh) []float64 {
	rows, _ := t.normal.A.Dims()
	c := make([]float64, 0, rows)
	identity := d3.Identity().Flat()
	for tri := range t.tgtRef.Triangles {
		corrs := t.dict.Of(tri)
		if len(corrs) == 0 {
			c = append(c, identity[:]...)
			continue
		}
		for _, corr := range corrs {
			T := deformed.SurfaceMatrix(corr.Src).Mul(t.srcInv[corr.Src]).Flat()
			c = append(c, T[:]...)
		}
	}
	shift := r3.Sub(d3.Set(deformed.Vertices).Mean(), d3.Set(t.srcRef.Vertices).Mean())
	w := t.opts.AnchorWeight
	for _, centroid := range t.anchor.centroid {
		p := r3.Scale(w, r3.Add(centroid, shift))
		c = append(c, p.X, p.Y, p.Z)
	}
	return c
}

// Transfer returns the target reference deformed like the source reference
// is deformed into deformed, which must share the source topology.
func (t *Transformer) Transfer(deformed *dtrans.Mesh) (*dtrans.Mesh, error) {
	if err := dtrans.SameTopology(t.srcRef, deformed); err != nil {
		return nil, fmt.Errorf("deformed source: %w", err)
	}
	c := t.BuildRhs(deformed)
	for i, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("deformed source: non-finite deformation gradient at row %d", i)
		}
	}
	x, err := t.factor.Solve(t.normal.Rhs(c))
	if err != nil {
		return nil, err
	}
	t.log.Debug("transfer solved", "residual", t.normal.Residual(x, c))
	// Reference normals no longer apply to the deformed surface.
	out := t.tgtRef.Clone()
	out.Normals = nil
	for i := range out.Triangles {
		out.Triangles[i].N = [3]int{dtrans.NoIndex, dtrans.NoIndex, dtrans.NoIndex}
	}
	for v := range out.Vertices {
		out.Vertices[v] = r3.Vec{X: x[3*v], Y: x[3*v+1], Z: x[3*v+2]}
	}
	return out, nil
}
