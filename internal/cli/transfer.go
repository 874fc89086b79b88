package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/soypat/dtrans/meshio"
	"github.com/soypat/dtrans/transfer"
	"github.com/soypat/dtrans/tricorr"
	"github.com/spf13/cobra"
)

type transferOpts struct {
	out     string
	segment string
	preview string
}

func (c *CLI) transferCommand() *cobra.Command {
	var opts transferOpts
	cmd := &cobra.Command{
		Use:   "transfer SRC_REF TGT_REF TRICORRS DEFORMED...",
		Short: "Replay deformations of the source reference on the target reference",
		Long: `Deform TGT_REF like each DEFORMED mesh deforms SRC_REF, matching triangles
through TRICORRS. Every DEFORMED mesh must share the topology of SRC_REF.

The output and preview paths are formatted with the index of the deformed
mesh, for example out_%d.obj.`,
		Args: cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTransfer(cmd, args, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "out_%d.obj", "output path pattern")
	f.StringVar(&opts.segment, "segment", "", "restrict correspondences to the target triangles listed in this file")
	f.StringVar(&opts.preview, "preview", "", "preview PNG path pattern")
	return cmd
}

// indexedPath formats pattern with i when it holds a verb. A pattern without
// one is only accepted for a single output.
func indexedPath(pattern string, i, n int) (string, error) {
	if strings.Contains(pattern, "%") {
		return fmt.Sprintf(pattern, i), nil
	}
	if n > 1 {
		return "", fmt.Errorf("output pattern %q has no index verb for %d meshes", pattern, n)
	}
	return pattern, nil
}

func (c *CLI) runTransfer(cmd *cobra.Command, args []string, opts transferOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	srcRef, err := meshio.LoadMesh(args[0])
	if err != nil {
		return err
	}
	tgtRef, err := meshio.LoadMesh(args[1])
	if err != nil {
		return err
	}
	corrs, err := meshio.LoadTriCorrs(args[2])
	if err != nil {
		return err
	}
	if opts.segment != "" {
		corrs, err = segment(opts.segment, corrs)
		if err != nil {
			return err
		}
		logger.Info("restricted to segment", "path", opts.segment, "correspondences", len(corrs))
	}

	prog := newProgress(logger)
	tr, err := transfer.New(srcRef, tgtRef, corrs, c.cfg.Transfer, logger)
	if err != nil {
		return err
	}
	prog.done("factorized transfer system", "correspondences", len(tr.Correspondences()))

	deformed := args[3:]
	prog = newProgress(logger)
	for i, path := range deformed {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := indexedPath(opts.out, i, len(deformed))
		if err != nil {
			return err
		}
		def, err := meshio.LoadMesh(path)
		if err != nil {
			return err
		}
		result, err := tr.Transfer(def)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := meshio.SaveMesh(out, result); err != nil {
			return err
		}
		logger.Debug("transferred", "deformed", path, "out", out)
		if opts.preview != "" {
			png, err := indexedPath(opts.preview, i, len(deformed))
			if err != nil {
				return err
			}
			err = meshio.SavePreview(png, result, c.cfg.Preview.Width, c.cfg.Preview.Height, meshio.DefaultView)
			if err != nil {
				return err
			}
		}
	}
	prog.done("transferred deformations", "meshes", len(deformed))
	return nil
}

func segment(path string, corrs tricorr.List) (tricorr.List, error) {
	seg, err := meshio.LoadSegment(path)
	if err != nil {
		return nil, err
	}
	corrs = corrs.Segment(seg)
	if len(corrs) == 0 {
		return nil, errors.New("segment " + path + " keeps no correspondences")
	}
	return corrs, nil
}
