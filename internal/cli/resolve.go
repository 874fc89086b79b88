package cli

import (
	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/meshio"
	"github.com/soypat/dtrans/tricorr"
	"github.com/spf13/cobra"
)

type resolveOpts struct {
	radius   float64
	maxCorrs int
	segment  string
	out      string
}

func (c *CLI) resolveCommand() *cobra.Command {
	var opts resolveOpts
	cmd := &cobra.Command{
		Use:   "resolve SOURCE TARGET",
		Short: "Match the triangles of two aligned meshes",
		Long: `Match every TARGET triangle to the SOURCE triangles whose centroid lies
within a radius of its own and whose normal faces the same way. SOURCE is
usually a source mesh already deformed onto TARGET.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runResolve(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.Float64Var(&opts.radius, "radius", 0, "centroid search radius, zero estimates it from the meshes")
	f.IntVar(&opts.maxCorrs, "max-corrs", -1, "correspondences kept per target triangle, negative uses the configuration")
	f.StringVar(&opts.segment, "segment", "", "restrict correspondences to the target triangles listed in this file")
	f.StringVarP(&opts.out, "out", "o", "", "output file, standard output if empty")
	return cmd
}

func (c *CLI) runResolve(cmd *cobra.Command, args []string, opts resolveOpts) error {
	logger := loggerFromContext(cmd.Context())
	src, err := meshio.LoadMesh(args[0])
	if err != nil {
		return err
	}
	tgt, err := meshio.LoadMesh(args[1])
	if err != nil {
		return err
	}
	maxCorrs := opts.maxCorrs
	if maxCorrs < 0 {
		maxCorrs = c.cfg.Corres.MaxCorrs
	}
	radius := opts.radius
	if radius <= 0 {
		radius = tricorr.Radius(src, tgt)
	}
	corrs := tricorr.Resolve(src, tgt, radius).Strip(maxCorrs)
	if opts.segment != "" {
		if corrs, err = segment(opts.segment, corrs); err != nil {
			return err
		}
	}
	logger.Info("resolved correspondences", "count", len(corrs), "radius", radius)
	if opts.out == "" {
		return meshio.WriteTriCorrs(cmd.OutOrStdout(), corrs)
	}
	return meshio.SaveTriCorrs(opts.out, corrs)
}

type adjacencyOpts struct {
	bruteForce bool
	out        string
}

func (c *CLI) adjacencyCommand() *cobra.Command {
	var opts adjacencyOpts
	cmd := &cobra.Command{
		Use:   "adjacency MESH",
		Short: "Write the edge neighbours of every triangle of MESH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := meshio.LoadMesh(args[0])
			if err != nil {
				return err
			}
			var adj *dtrans.Adjacency
			if opts.bruteForce {
				adj = dtrans.ResolveAdjacencyBruteForce(m)
			} else if adj, err = dtrans.ResolveAdjacency(m); err != nil {
				return err
			}
			loggerFromContext(cmd.Context()).Info("resolved adjacency", "triangles", len(m.Triangles), "neighbours", adj.Count)
			if opts.out == "" {
				return meshio.WriteAdjacency(cmd.OutOrStdout(), adj)
			}
			return meshio.SaveAdjacency(opts.out, adj)
		},
	}
	cmd.Flags().BoolVar(&opts.bruteForce, "brute-force", false, "compare all triangle pairs")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "", "output file, standard output if empty")
	return cmd
}
