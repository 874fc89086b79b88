package cli

import (
	"github.com/soypat/dtrans/corres"
	"github.com/soypat/dtrans/meshio"
	"github.com/spf13/cobra"
)

type correspondOpts struct {
	out       string
	tricorrs  string
	plot      string
	adjacency string
	preview   string
}

func (c *CLI) correspondCommand() *cobra.Command {
	var opts correspondOpts
	cmd := &cobra.Command{
		Use:   "correspond SOURCE TARGET MARKERS [start:step:end]",
		Short: "Deform SOURCE onto TARGET and resolve triangle correspondences",
		Long: `Deform SOURCE onto TARGET keeping the MARKERS vertex pairs fixed, then match
the triangles of the deformed source to those of TARGET.

The optional schedule lists the closest point weights of the iterations,
for example [1:500:5000]. It overrides the configuration file.`,
		Args: cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runCorrespond(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "deformed.obj", "deformed source mesh output")
	f.StringVarP(&opts.tricorrs, "tricorrs", "t", "out.tricorrs", "triangle correspondence output")
	f.StringVar(&opts.plot, "plot", "", "write a convergence plot (png, svg or pdf)")
	f.StringVar(&opts.adjacency, "adjacency", "", "write the source triangle adjacency")
	f.StringVar(&opts.preview, "preview", "", "render the deformed source to a PNG")
	return cmd
}

func (c *CLI) runCorrespond(cmd *cobra.Command, args []string, opts correspondOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	cfg := c.cfg.Corres
	if len(args) == 4 {
		s, err := corres.ParseSchedule(args[3])
		if err != nil {
			return err
		}
		cfg.Schedule = s
	}
	src, err := meshio.LoadMesh(args[0])
	if err != nil {
		return err
	}
	tgt, err := meshio.LoadMesh(args[1])
	if err != nil {
		return err
	}
	cons, err := meshio.LoadConstraints(args[2])
	if err != nil {
		return err
	}
	logger.Info("loaded meshes",
		"source", args[0], "source_triangles", len(src.Triangles),
		"target", args[1], "target_triangles", len(tgt.Triangles),
		"markers", len(cons), "schedule", cfg.Schedule)

	prog := newProgress(logger)
	p, err := corres.NewProblem(src, tgt, cons, cfg, logger)
	if err != nil {
		return err
	}
	if err := p.Run(ctx); err != nil {
		return err
	}
	prog.done("correspondence solved", "correspondences", len(p.Correspondences()))

	if err := meshio.SaveMesh(opts.out, p.Deformed()); err != nil {
		return err
	}
	if err := meshio.SaveTriCorrs(opts.tricorrs, p.Correspondences()); err != nil {
		return err
	}
	logger.Info("wrote results", "mesh", opts.out, "tricorrs", opts.tricorrs)
	if opts.adjacency != "" {
		if err := meshio.SaveAdjacency(opts.adjacency, p.Adjacency()); err != nil {
			return err
		}
	}
	if opts.plot != "" {
		if err := saveConvergencePlot(opts.plot, p.Stats()); err != nil {
			return err
		}
		logger.Debug("wrote convergence plot", "path", opts.plot)
	}
	if opts.preview != "" {
		return meshio.SavePreview(opts.preview, p.Deformed(), c.cfg.Preview.Width, c.cfg.Preview.Height, meshio.DefaultView)
	}
	return nil
}
