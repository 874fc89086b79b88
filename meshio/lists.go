package meshio

import (
	"bufio"
	"fmt"
	"io"

	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/tricorr"
)

// ReadConstraints reads a marker file: a count line then "src, tgt" lines.
func ReadConstraints(r io.Reader) (dtrans.Constraints, error) {
	t := newTokenizer(r)
	n, err := t.count()
	if err != nil {
		return nil, err
	}
	cons := make(dtrans.Constraints, n)
	for i := range cons {
		if cons[i].Src, err = t.int(); err != nil {
			return nil, err
		}
		if cons[i].Tgt, err = t.int(); err != nil {
			return nil, err
		}
	}
	return cons, t.end()
}

// WriteConstraints writes cons in the format read by ReadConstraints.
func WriteConstraints(w io.Writer, cons dtrans.Constraints) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(cons))
	for _, c := range cons {
		fmt.Fprintf(bw, "%d, %d\n", c.Src, c.Tgt)
	}
	return bw.Flush()
}

// ReadTriCorrs reads a triangle correspondence file: a count line then
// "src, tgt, dist2" lines.
func ReadTriCorrs(r io.Reader) (tricorr.List, error) {
	t := newTokenizer(r)
	n, err := t.count()
	if err != nil {
		return nil, err
	}
	l := make(tricorr.List, n)
	for i := range l {
		if l[i].Src, err = t.int(); err != nil {
			return nil, err
		}
		if l[i].Tgt, err = t.int(); err != nil {
			return nil, err
		}
		if l[i].Dist2, err = t.float(); err != nil {
			return nil, err
		}
	}
	return l, t.end()
}

// WriteTriCorrs writes l in the format read by ReadTriCorrs.
func WriteTriCorrs(w io.Writer, l tricorr.List) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(l))
	for _, c := range l {
		fmt.Fprintf(bw, "%d, %d, %12.9f\n", c.Src, c.Tgt, c.Dist2)
	}
	return bw.Flush()
}

// ReadAdjacency reads an adjacency file: a count line, one
// "i: [a, b, c]" line per triangle in order, and the total neighbour count.
// Lines without the colon are accepted.
func ReadAdjacency(r io.Reader) (*dtrans.Adjacency, error) {
	t := newTokenizer(r)
	n, err := t.count()
	if err != nil {
		return nil, err
	}
	adj := &dtrans.Adjacency{Neighbors: make([][3]int, n)}
	for i := range adj.Neighbors {
		idx, err := t.int()
		if err != nil {
			return nil, err
		}
		if idx != i {
			return nil, &SyntaxError{Line: t.line, Err: fmt.Errorf("adjacency of triangle %d listed at position %d", idx, i)}
		}
		for k := 0; k < 3; k++ {
			v, err := t.int()
			if err != nil {
				return nil, err
			}
			if v < dtrans.NoIndex || v >= n {
				return nil, &SyntaxError{Line: t.line, Err: fmt.Errorf("neighbour %d out of range", v)}
			}
			adj.Neighbors[i][k] = v
			if v != dtrans.NoIndex {
				adj.Count++
			}
		}
	}
	total, err := t.count()
	if err != nil {
		return nil, err
	}
	if total != adj.Count {
		return nil, &SyntaxError{Line: t.line, Err: fmt.Errorf("adjacency total %d, counted %d", total, adj.Count)}
	}
	return adj, t.end()
}

// WriteAdjacency writes adj in the format read by ReadAdjacency.
func WriteAdjacency(w io.Writer, adj *dtrans.Adjacency) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(adj.Neighbors))
	for i, n := range adj.Neighbors {
		fmt.Fprintf(bw, "%d: [%d, %d, %d]\n", i, n[0], n[1], n[2])
	}
	fmt.Fprintf(bw, "%d\n", adj.Count)
	return bw.Flush()
}

// ReadSegment reads a mesh segment file: a count followed by that many
// triangle indices separated by whitespace.
func ReadSegment(r io.Reader) ([]int, error) {
	t := newTokenizer(r)
	n, err := t.count()
	if err != nil {
		return nil, err
	}
	seg := make([]int, n)
	for i := range seg {
		if seg[i], err = t.int(); err != nil {
			return nil, err
		}
	}
	return seg, t.end()
}

// WriteSegment writes seg in the format read by ReadSegment.
func WriteSegment(w io.Writer, seg []int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n", len(seg))
	for _, s := range seg {
		fmt.Fprintf(bw, "%d\n", s)
	}
	return bw.Flush()
}
