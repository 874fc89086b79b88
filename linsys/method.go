package linsys

import (
	"fmt"
	"strings"
)

// Method selects how normal equations are factorized.
type Method int

const (
	// Auto uses Cholesky up to Options.DenseLimit unknowns and
	// ConjugateGradient beyond.
	Auto Method = iota
	// Cholesky factorizes the normal matrix densely. Exact, O(n³).
	Cholesky
	// ConjugateGradient iterates with a Jacobi preconditioner.
	ConjugateGradient
)

var methodNames = [...]string{Auto: "auto", Cholesky: "cholesky", ConjugateGradient: "cg"}

func (m Method) String() string {
	if m < 0 || int(m) >= len(methodNames) {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// ParseMethod parses the names returned by String. "dense" is accepted for
// Cholesky.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "cholesky", "dense":
		return Cholesky, nil
	case "cg", "conjugate-gradient":
		return ConjugateGradient, nil
	}
	return Auto, fmt.Errorf("unknown solver method %q (want auto, cholesky or cg)", s)
}

// UnmarshalText implements encoding.TextUnmarshaler for configuration files.
func (m *Method) UnmarshalText(b []byte) error {
	v, err := ParseMethod(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Set implements the flag value interface.
func (m *Method) Set(s string) error { return m.UnmarshalText([]byte(s)) }

// Type implements the flag value interface.
func (m *Method) Type() string { return "method" }

// Options configures Factorize.
type Options struct {
	Method Method `toml:"method"`
	// DenseLimit is the largest unknown count Auto factorizes densely.
	DenseLimit int `toml:"dense_limit"`
	// Tolerance is the relative residual ‖r‖/‖b‖ at which conjugate
	// gradients stop.
	Tolerance float64 `toml:"tolerance"`
	// MaxIterations bounds conjugate gradient iterations. Zero means 10n.
	MaxIterations int `toml:"max_iterations"`
}

// DefaultOptions returns the options used for a zero Options value.
func DefaultOptions() Options {
	return Options{
		Method:     Auto,
		DenseLimit: 3000,
		Tolerance:  1e-10,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DenseLimit <= 0 {
		o.DenseLimit = def.DenseLimit
	}
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	return o
}
