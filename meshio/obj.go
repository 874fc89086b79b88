package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/soypat/dtrans"
	"gonum.org/v1/gonum/spatial/r3"
)

// ReadOBJ reads the v, vn and f records of a Wavefront OBJ file. Face
// corners may be written a, a/t, a/t/n or a//n; faces with more than three
// corners are split into a fan. Other records are ignored.
func ReadOBJ(r io.Reader) (*dtrans.Mesh, error) {
	m := &dtrans.Mesh{}
	s := bufio.NewScanner(r)
	s.Buffer(nil, 1<<20)
	line := 0
	for s.Scan() {
		line++
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		var err error
		switch fields[0] {
		case "v":
			var v r3.Vec
			v, err = parseVec(fields[1:])
			m.Vertices = append(m.Vertices, v)
		case "vn":
			var v r3.Vec
			v, err = parseVec(fields[1:])
			m.Normals = append(m.Normals, v)
		case "f":
			err = parseFace(m, fields[1:])
		}
		if err != nil {
			return nil, &SyntaxError{Line: line, Err: err}
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseVec(f []string) (v r3.Vec, err error) {
	if len(f) < 3 {
		return v, fmt.Errorf("want 3 coordinates, got %d", len(f))
	}
	var c [3]float64
	for i := range c {
		c[i], err = strconv.ParseFloat(f[i], 64)
		if err != nil {
			return v, err
		}
	}
	return r3.Vec{X: c[0], Y: c[1], Z: c[2]}, nil
}

// parseFace appends the triangles of a face record to m.
func parseFace(m *dtrans.Mesh, f []string) error {
	if len(f) < 3 {
		return fmt.Errorf("face with %d corners", len(f))
	}
	v := make([]int, len(f))
	n := make([]int, len(f))
	for i, corner := range f {
		parts := strings.Split(corner, "/")
		if len(parts) > 3 {
			return fmt.Errorf("malformed face corner %q", corner)
		}
		var err error
		v[i], err = objIndex(parts[0], len(m.Vertices))
		if err != nil {
			return err
		}
		n[i] = dtrans.NoIndex
		if len(parts) == 3 && parts[2] != "" {
			n[i], err = objIndex(parts[2], len(m.Normals))
			if err != nil {
				return err
			}
		}
	}
	for k := 1; k+1 < len(f); k++ {
		m.Triangles = append(m.Triangles, dtrans.Triangle{
			V: [3]int{v[0], v[k], v[k+1]},
			N: [3]int{n[0], n[k], n[k+1]},
		})
	}
	return nil
}

// objIndex converts a one based index to zero based. Negative indices count
// back from the last of the count elements read so far.
func objIndex(s string, count int) (int, error) {
	i, err := strconv.Atoi(s)
	switch {
	case err != nil:
		return 0, err
	case i > 0:
		return i - 1, nil
	case i < 0 && count+i >= 0:
		return count + i, nil
	case i < 0:
		return 0, fmt.Errorf("relative index %d before first element", i)
	}
	return 0, fmt.Errorf("index 0 in face")
}

// WriteOBJ writes m as Wavefront OBJ. Triangles whose three corners carry a
// normal index are written a//n.
func WriteOBJ(w io.Writer, m *dtrans.Mesh) error {
	bw := bufio.NewWriter(w)
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v   %12.9f   %12.9f   %12.9f\n", v.X, v.Y, v.Z)
	}
	for _, n := range m.Normals {
		fmt.Fprintf(bw, "vn   %12.9f   %12.9f   %12.9f\n", n.X, n.Y, n.Z)
	}
	for _, t := range m.Triangles {
		if t.N[0] != dtrans.NoIndex && t.N[1] != dtrans.NoIndex && t.N[2] != dtrans.NoIndex {
			fmt.Fprintf(bw, "f %d//%d %d//%d %d//%d\n",
				t.V[0]+1, t.N[0]+1, t.V[1]+1, t.N[1]+1, t.V[2]+1, t.N[2]+1)
		} else {
			fmt.Fprintf(bw, "f %d %d %d\n", t.V[0]+1, t.V[1]+1, t.V[2]+1)
		}
	}
	return bw.Flush()
}
