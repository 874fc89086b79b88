package cli

import (
	"errors"
	"fmt"

	"github.com/soypat/dtrans/corres"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// saveConvergencePlot plots the residual and mean squared closest point
// distance of every closest point iteration on a log scale. The format is
// taken from the extension of path.
func saveConvergencePlot(path string, stats []corres.IterationStat) error {
	if len(stats) == 0 {
		return errors.New("no iterations to plot")
	}
	residual := make(plotter.XYs, 0, len(stats))
	dist := make(plotter.XYs, 0, len(stats))
	for i, s := range stats {
		// Log axes cannot show zeros.
		if s.Residual > 0 {
			residual = append(residual, plotter.XY{X: float64(i + 1), Y: s.Residual})
		}
		if s.MeanDist2 > 0 {
			dist = append(dist, plotter.XY{X: float64(i + 1), Y: s.MeanDist2})
		}
	}
	p := plot.New()
	p.Title.Text = "Correspondence convergence"
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Value"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	var lines []any
	if len(residual) > 0 {
		lines = append(lines, "residual", residual)
	}
	if len(dist) > 0 {
		lines = append(lines, "mean distance²", dist)
	}
	if len(lines) == 0 {
		return errors.New("no positive values to plot")
	}
	if err := plotutil.AddLinePoints(p, lines...); err != nil {
		return fmt.Errorf("convergence plot: %w", err)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
