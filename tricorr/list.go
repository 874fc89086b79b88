// Package tricorr holds triangle correspondences between a source and a
// target mesh and resolves them from two aligned meshes.
package tricorr

import (
	"fmt"
	"sort"
)

// Corr matches source triangle Src to target triangle Tgt. Dist2 is the
// squared distance between their centroids.
type Corr struct {
	Src, Tgt int
	Dist2    float64
}

// List is a growable list of correspondences.
type List []Corr

func less(a, b Corr) bool {
	if a.Tgt != b.Tgt {
		return a.Tgt < b.Tgt
	}
	if a.Dist2 != b.Dist2 {
		return a.Dist2 < b.Dist2
	}
	return a.Src < b.Src
}

// SortUnique returns the entries of l sorted by target triangle, distance
// and source triangle with at most one entry per (Src, Tgt) pair, the
// closest one. l is not modified.
func (l List) SortUnique() List {
	out := append(List(nil), l...)
	// Group pairs with the closest first, drop the rest of each group.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Tgt != b.Tgt {
			return a.Tgt < b.Tgt
		}
		if a.Src != b.Src {
			return a.Src < b.Src
		}
		return a.Dist2 < b.Dist2
	})
	w := 0
	for i, c := range out {
		if i > 0 && c.Src == out[w-1].Src && c.Tgt == out[w-1].Tgt {
			continue
		}
		out[w] = c
		w++
	}
	out = out[:w]
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Strip returns the sorted unique entries of l keeping the k closest per
// target triangle. k <= 0 keeps every entry.
func (l List) Strip(k int) List {
	out := l.SortUnique()
	if k <= 0 {
		return out
	}
	w, run := 0, 0
	for i, c := range out {
		if i == 0 || c.Tgt != out[i-1].Tgt {
			run = 0
		}
		run++
		if run > k {
			continue
		}
		out[w] = c
		w++
	}
	return out[:w]
}

// Segment returns the entries of l whose target triangle is listed in seg,
// in their original order.
func (l List) Segment(seg []int) List {
	in := make(map[int]bool, len(seg))
	for _, t := range seg {
		in[t] = true
	}
	var out List
	for _, c := range l {
		if in[c.Tgt] {
			out = append(out, c)
		}
	}
	return out
}

// Dict indexes a sorted unique List by target triangle.
type Dict struct {
	list  List
	start []int // entries of target t are list[start[t]:start[t+1]]
}

// NewDict builds the dictionary for ntgt target triangles. Target indices
// outside [0,ntgt) and negative source indices are an error. l is not modified.
func NewDict(ntgt int, l List) (*Dict, error) {
	d := &Dict{list: l.SortUnique(), start: make([]int, ntgt+1)}
	for _, c := range d.list {
		if c.Tgt < 0 || c.Tgt >= ntgt {
			return nil, fmt.Errorf("correspondence %d->%d: target triangle out of range [0,%d)", c.Src, c.Tgt, ntgt)
		}
		if c.Src < 0 {
			return nil, fmt.Errorf("correspondence %d->%d: negative source triangle", c.Src, c.Tgt)
		}
		d.start[c.Tgt+1]++
	}
	for t := 0; t < ntgt; t++ {
		d.start[t+1] += d.start[t]
	}
	return d, nil
}

// Len returns the number of target triangles.
func (d *Dict) Len() int { return len(d.start) - 1 }

// Count returns the number of correspondences of target triangle tgt.
func (d *Dict) Count(tgt int) int { return d.start[tgt+1] - d.start[tgt] }

// Of returns the correspondences of target triangle tgt, closest first.
func (d *Dict) Of(tgt int) []Corr { return d.list[d.start[tgt]:d.start[tgt+1]:d.start[tgt+1]] }

// List returns every entry in dictionary order.
func (d *Dict) List() List { return d.list }

// MaxSrc returns the largest source triangle index referenced, -1 if none.
func (d *Dict) MaxSrc() int {
	m := -1
	for _, c := range d.list {
		m = max(m, c.Src)
	}
	return m
}
