// Package cli implements the dtrans command-line interface.
//
// The commands wrap the correspondence and transfer packages:
//   - correspond: deform a source mesh onto a target guided by markers and
//     resolve triangle correspondences
//   - transfer: replay source deformations on a target through the
//     correspondences
//   - resolve: compute triangle correspondences between two aligned meshes
//   - adjacency: write the triangle adjacency of a mesh
//
// Parameters are read from an optional TOML file given by --config; flags
// override individual values. All commands log through charmbracelet/log,
// --verbose enables debug output.
package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
	"github.com/soypat/dtrans/corres"
	"github.com/soypat/dtrans/transfer"
)

const appName = "dtrans"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// Config is the content of a configuration file. Missing keys keep the
// values of DefaultConfig.
type Config struct {
	Corres   corres.Config    `toml:"corres"`
	Transfer transfer.Options `toml:"transfer"`
	Preview  PreviewConfig    `toml:"preview"`
}

// PreviewConfig sizes the PNG previews written by --preview.
type PreviewConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Corres:   corres.DefaultConfig(),
		Transfer: transfer.DefaultOptions(),
		Preview:  PreviewConfig{Width: 800, Height: 600},
	}
}

// Validate checks every section of c.
func (c Config) Validate() error {
	var errs []error
	if err := c.Corres.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("[corres] %w", err))
	}
	if err := c.Transfer.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("[transfer] %w", err))
	}
	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		errs = append(errs, fmt.Errorf("[preview] size must be positive, got %dx%d", c.Preview.Width, c.Preview.Height))
	}
	return errors.Join(errs...)
}

// LoadConfig decodes the TOML file at path over DefaultConfig. Unknown keys
// are an error. An empty path returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, checkUndecoded(path, md)
}

// DecodeConfig is LoadConfig reading from a string.
func DecodeConfig(data string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.Decode(data, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, checkUndecoded("config", md)
}

func checkUndecoded(name string, md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return fmt.Errorf("%s: unknown keys %s", name, strings.Join(names, ", "))
}
