package corres

import (
	"context"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/kdtree"
	"github.com/soypat/dtrans/linsys"
	"github.com/soypat/dtrans/tricorr"
	"gonum.org/v1/gonum/spatial/r3"
)

// State is the stage a Problem executes on its next Step.
type State uint8

const (
	Start State = iota
	Phase1
	Phase2
	Done
)

func (s State) String() string {
	switch s {
	case Start:
		return "start"
	case Phase1:
		return "phase1"
	case Phase2:
		return "phase2"
	case Done:
		return "done"
	}
	return "State(?)"
}

// IterationStat records one closest point iteration.
type IterationStat struct {
	Weight    float64
	MeanDist2 float64
	Residual  float64
	Unmatched int
}

// Problem deforms a copy of a source mesh onto a target mesh.
type Problem struct {
	cfg  Config
	log  *log.Logger
	src  *dtrans.Mesh
	tgt  *dtrans.Mesh
	cons dtrans.Constraints
	info *VertexInfoList
	adj  *dtrans.Adjacency

	state State
	iter  int
	niter int

	tree       *kdtree.Tree
	tgtNormals []r3.Vec
	srcNormals []r3.Vec

	stats  []IterationStat
	result tricorr.List
}

// NewProblem prepares the correspondence problem between src and tgt under
// the marker constraints cons. src and cons are copied. A nil logger
// discards output.
func NewProblem(src, tgt *dtrans.Mesh, cons dtrans.Constraints, cfg Config, logger *log.Logger) (*Problem, error) {
	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("source mesh: %w", err)
	}
	if err := tgt.Validate(); err != nil {
		return nil, fmt.Errorf("target mesh: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cons = append(dtrans.Constraints(nil), cons...)
	cons.Sort()
	if err := cons.Validate(len(src.Vertices), len(tgt.Vertices)); err != nil {
		return nil, err
	}
	adj, err := dtrans.ResolveAdjacency(src)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Problem{
		cfg:   cfg,
		log:   logger,
		src:   src.Clone(),
		tgt:   tgt,
		cons:  cons,
		info:  ClassifyVertices(len(src.Vertices), cons),
		adj:   adj,
		niter: cfg.Iterations(),
	}, nil
}

// State returns the stage executed by the next Step.
func (p *Problem) State() State { return p.state }

// Iteration returns the number of closest point iterations performed and
// the total the schedule asks for.
func (p *Problem) Iteration() (done, total int) { return p.iter, p.niter }

// Deformed returns the source mesh in its current deformation.
func (p *Problem) Deformed() *dtrans.Mesh { return p.src }

// Correspondences returns the triangle correspondences, empty until Done.
func (p *Problem) Correspondences() tricorr.List { return p.result }

// Stats returns one entry per closest point iteration performed.
func (p *Problem) Stats() []IterationStat { return p.stats }

// Adjacency returns the source triangle adjacency.
func (p *Problem) Adjacency() *dtrans.Adjacency { return p.adj }

// VertexInfo returns the source vertex classification.
func (p *Problem) VertexInfo() *VertexInfoList { return p.info }

// Run steps p until it is Done. ctx is checked between steps.
func (p *Problem) Run(ctx context.Context) error {
	for p.state != Done {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Step executes the current stage. Phase2 runs one closest point iteration
// per Step and resolves the triangle correspondences once the schedule is
// exhausted. Stepping a Done problem does nothing.
func (p *Problem) Step() error {
	switch p.state {
	case Start:
		p.log.Info("correspondence problem",
			"vertices", len(p.src.Vertices), "triangles", len(p.src.Triangles),
			"free", p.info.NumFree, "constrained", p.info.NumConstrained,
			"adjacency", p.adj.Count, "schedule", p.cfg.Schedule, "iterations", p.niter)
		p.state = Phase1

	case Phase1:
		res, err := p.solve(0, nil)
		if err != nil {
			return err
		}
		p.log.Info("phase 1 solved", "residual", res)
		p.state = Phase2

	case Phase2:
		if p.iter >= p.niter {
			p.finish()
			p.state = Done
			return nil
		}
		return p.iterate()
	}
	return nil
}

func (p *Problem) iterate() error {
	if p.tree == nil {
		p.tree = VertexTree(p.tgt)
		p.tgtNormals = p.tgt.VertexNormals(true)
		if !p.cfg.RecomputeNormals {
			p.srcNormals = p.src.VertexNormals(true)
		}
	}
	srcNormals := p.srcNormals
	if p.cfg.RecomputeNormals {
		srcNormals = p.src.ComputeVertexNormals()
	}
	w := p.cfg.Weight(p.iter)
	join := SpatialJoin(p.src, srcNormals, p.tree, p.tgtNormals, p.info)
	if join.Unmatched > 0 {
		p.log.Warn("vertices without compatible target vertex", "count", join.Unmatched)
	}
	res, err := p.solve(w, join)
	if err != nil {
		return err
	}
	p.stats = append(p.stats, IterationStat{
		Weight:    w,
		MeanDist2: join.MeanDist2,
		Residual:  res,
		Unmatched: join.Unmatched,
	})
	p.iter++
	p.log.Info("closest point iteration", "iter", p.iter, "of", p.niter,
		"weight", w, "meandist", math.Sqrt(join.MeanDist2), "residual", res)
	return nil
}

// solve builds the system over the current deformation, solves it and
// applies the solution. join is nil in phase 1.
func (p *Problem) solve(weight float64, join *Join) (residual float64, err error) {
	inv, err := p.src.SurfaceInverses()
	if err != nil {
		return 0, err
	}
	terms := BuildTerms(p.src, p.tgt, p.cons, p.info, inv)
	sys := NewSystem(p.src, p.info, p.adj.Count, join != nil)
	row := sys.AppendSmoothness(0, p.adj, terms, math.Sqrt(p.cfg.WeightSmooth))
	row = sys.AppendIdentity(row, terms, math.Sqrt(p.cfg.WeightIdentity))
	if join != nil {
		row = sys.AppendClosest(row, p.tgt, join, weight)
	}
	if row != sys.Rows() {
		panic(fmt.Sprintf("corres: assembled %d rows of %d", row, sys.Rows()))
	}
	p.log.Debug("solving", "rows", sys.Rows(), "unknowns", p.info.NumVars(len(p.src.Triangles)), "entries", sys.M.Len())
	n := linsys.NewNormal(sys.M)
	f, err := linsys.Factorize(n.AtA, p.cfg.Solver)
	if err != nil {
		return 0, err
	}
	x, err := f.Solve(n.Rhs(sys.C))
	if err != nil {
		return 0, err
	}
	p.apply(x)
	return n.Residual(x, sys.C), nil
}

// apply moves free vertices to the solution and constrained vertices onto
// their target vertex.
func (p *Problem) apply(x []float64) {
	for v, info := range p.info.Info {
		if info.Kind == Free {
			i := 3 * info.Index
			p.src.Vertices[v] = r3.Vec{X: x[i], Y: x[i+1], Z: x[i+2]}
		} else {
			p.src.Vertices[v] = p.tgt.Vertices[p.cons[info.Index].Tgt]
		}
	}
}

func (p *Problem) finish() {
	radius := p.cfg.Radius
	if radius <= 0 {
		radius = tricorr.Radius(p.src, p.tgt)
	}
	p.result = tricorr.Resolve(p.src, p.tgt, radius).Strip(p.cfg.MaxCorrs)
	p.log.Info("triangle correspondences", "count", len(p.result), "radius", radius)
}
