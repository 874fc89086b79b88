package corres

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/soypat/dtrans/linsys"
)

// Schedule is the half open range of closest point weights
// start, start+step, ... below end.
type Schedule struct {
	Start float64 `toml:"closest_start"`
	Step  float64 `toml:"closest_step"`
	End   float64 `toml:"closest_end"`
}

// MaxIterations bounds the number of weights of a Schedule.
const MaxIterations = 1 << 20

// Iterations returns the number of weights in the schedule. A non-positive
// step or an empty range yields zero. The result never exceeds MaxIterations.
func (s Schedule) Iterations() int {
	if !(s.Step > 0) || !(s.Start < s.End) || math.IsInf(s.End-s.Start, 0) {
		return 0
	}
	if s.ratio() > MaxIterations {
		return MaxIterations
	}
	n := int(math.Ceil(s.ratio()))
	for n > 0 && s.Weight(n-1) >= s.End {
		n--
	}
	for n < MaxIterations && s.Weight(n) < s.End {
		n++
	}
	return n
}

func (s Schedule) ratio() float64 { return (s.End - s.Start) / s.Step }

// Weight returns the weight of iteration i.
func (s Schedule) Weight(i int) float64 {
	return s.Start + float64(i)*s.Step
}

func (s Schedule) String() string {
	return fmt.Sprintf("[%g:%g:%g]", s.Start, s.Step, s.End)
}

// ParseSchedule parses "start:step:end", optionally enclosed in brackets.
func ParseSchedule(str string) (Schedule, error) {
	body := strings.TrimSpace(str)
	if strings.HasPrefix(body, "[") && strings.HasSuffix(body, "]") {
		body = body[1 : len(body)-1]
	}
	parts := strings.Split(body, ":")
	if len(parts) != 3 {
		return Schedule{}, fmt.Errorf("schedule %q: want start:step:end", str)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Schedule{}, fmt.Errorf("schedule %q: %w", str, err)
		}
		v[i] = f
	}
	return Schedule{Start: v[0], Step: v[1], End: v[2]}, nil
}

// Config parametrizes a Problem.
type Config struct {
	WeightSmooth   float64 `toml:"weight_smooth"`
	WeightIdentity float64 `toml:"weight_identity"`
	Schedule
	// MaxCorrs caps the correspondences kept per target triangle, zero
	// keeps all.
	MaxCorrs int `toml:"max_corrs"`
	// Radius of the final correspondence search, zero estimates it from
	// the meshes.
	Radius float64 `toml:"radius"`
	// RecomputeNormals joins vertices using normals of the deformed source
	// recomputed each iteration instead of the source's initial normals.
	RecomputeNormals bool           `toml:"recompute_normals"`
	Solver           linsys.Options `toml:"solver"`
}

// DefaultConfig returns the configuration used by the command line tools.
func DefaultConfig() Config {
	return Config{
		WeightSmooth:     1,
		WeightIdentity:   0.01,
		Schedule:         Schedule{Start: 1, Step: 500, End: 5000},
		MaxCorrs:         3,
		RecomputeNormals: true,
		Solver:           linsys.DefaultOptions(),
	}
}

// Validate rejects negative or non-finite weights and limits.
func (c Config) Validate() error {
	var errs []error
	check := func(name string, v float64) {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("%s must be finite and non-negative, got %g", name, v))
		}
	}
	check("weight_smooth", c.WeightSmooth)
	check("weight_identity", c.WeightIdentity)
	check("radius", c.Radius)
	for _, v := range []float64{c.Start, c.Step, c.End} {
		if math.IsNaN(v) {
			errs = append(errs, fmt.Errorf("schedule %v has NaN bound", c.Schedule))
			break
		}
	}
	if c.Step > 0 && c.Start < c.End && !(c.ratio() <= MaxIterations) {
		errs = append(errs, fmt.Errorf("schedule %v exceeds %d iterations", c.Schedule, MaxIterations))
	}
	if c.MaxCorrs < 0 {
		errs = append(errs, fmt.Errorf("max_corrs must be non-negative, got %d", c.MaxCorrs))
	}
	return errors.Join(errs...)
}
