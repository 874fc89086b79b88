package dtrans

import (
	"fmt"
	"sort"
)

// Constraint pins source vertex Src to target vertex Tgt.
type Constraint struct {
	Src, Tgt int
}

// Constraints is a marker list. Vertex classification expects it sorted.
type Constraints []Constraint

// Sort orders c ascending by source then target index.
func (c Constraints) Sort() {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Src != c[j].Src {
			return c[i].Src < c[j].Src
		}
		return c[i].Tgt < c[j].Tgt
	})
}

// IsSorted reports whether c is ascending by source index.
func (c Constraints) IsSorted() bool {
	return sort.SliceIsSorted(c, func(i, j int) bool { return c[i].Src < c[j].Src })
}

// Validate checks indices against the source and target vertex counts and
// rejects source vertices constrained more than once.
func (c Constraints) Validate(nsrc, ntgt int) error {
	seen := make(map[int]int, len(c))
	for i, con := range c {
		if con.Src < 0 || con.Src >= nsrc {
			return fmt.Errorf("constraint %d: source vertex %d out of range [0,%d)", i, con.Src, nsrc)
		}
		if con.Tgt < 0 || con.Tgt >= ntgt {
			return fmt.Errorf("constraint %d: target vertex %d out of range [0,%d)", i, con.Tgt, ntgt)
		}
		if j, dup := seen[con.Src]; dup {
			return fmt.Errorf("constraints %d and %d both pin source vertex %d", j, i, con.Src)
		}
		seen[con.Src] = i
	}
	return nil
}
