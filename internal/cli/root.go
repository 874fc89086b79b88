package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/soypat/dtrans/linsys"
	"github.com/spf13/cobra"
)

var version = "devel"

// SetVersion sets the version reported by --version.
func SetVersion(v string) { version = v }

// CLI holds the state shared by all commands.
type CLI struct {
	stderr io.Writer

	configPath string
	verbose    bool
	logLevel   string
	solver     linsys.Method

	cfg Config
}

// New returns a CLI logging to stderr.
func New(stderr io.Writer) *CLI {
	return &CLI{stderr: stderr, logLevel: "info", cfg: DefaultConfig()}
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "dtrans transfers deformations between triangle meshes",
		Long: `dtrans deforms a source mesh onto a target mesh guided by marker vertices,
resolves triangle correspondences between the two and replays deformations of
the source on the target.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&c.configPath, "config", "c", "", "TOML configuration file")
	pf.BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&c.logLevel, "log-level", c.logLevel, "log level: debug, info, warn or error")
	pf.Var(&c.solver, "solver", "linear solver: auto, cholesky or cg")

	root.AddCommand(c.correspondCommand())
	root.AddCommand(c.transferCommand())
	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.adjacencyCommand())
	return root
}

// setup attaches the logger to the command context and loads the
// configuration.
func (c *CLI) setup(cmd *cobra.Command, args []string) error {
	level, err := log.ParseLevel(c.logLevel)
	if err != nil {
		return err
	}
	if c.verbose {
		level = log.DebugLevel
	}
	logger := newLogger(c.stderr, level)
	cmd.SetContext(withLogger(cmd.Context(), logger))

	cfg, err := LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	if f := cmd.Flag("solver"); f != nil && f.Changed {
		cfg.Corres.Solver.Method = c.solver
		cfg.Transfer.Solver.Method = c.solver
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	c.cfg = cfg
	if c.configPath != "" {
		logger.Debug("loaded configuration", "path", c.configPath)
	}
	return nil
}

// Execute runs the command line in args.
func Execute(ctx context.Context, args []string) error {
	root := New(os.Stderr).RootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}
