package meshio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/soypat/dtrans"
	"github.com/soypat/dtrans/tricorr"
)

// LoadMesh reads the mesh at path choosing the format by extension. Binary
// STL is read directly; an STL starting with "solid" and lacking a binary
// size match is handed to fauxgl, as are other extensions. Facet normal
// mismatches in STL files are not reported.
func LoadMesh(path string) (*dtrans.Mesh, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return loadFile(path, ReadOBJ)
	case ".stl":
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if !isBinarySTL(b) {
			return LoadFauxGL(path, 0)
		}
		m, err := ReadSTL(bytes.NewReader(b), 0)
		if errors.Is(err, ErrNormalMismatch) {
			err = nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, nil
	}
	return LoadFauxGL(path, 0)
}

// isBinarySTL reports whether the triangle count in the header matches the
// size of b.
func isBinarySTL(b []byte) bool {
	const header = 84
	if len(b) < header {
		return false
	}
	n := int(b[80]) | int(b[81])<<8 | int(b[82])<<16 | int(b[83])<<24
	return len(b) == header+50*n || !bytes.HasPrefix(b, []byte("solid"))
}

// SaveMesh writes m to path as OBJ, or binary STL for an .stl extension.
func SaveMesh(path string, m *dtrans.Mesh) error {
	if strings.EqualFold(filepath.Ext(path), ".stl") {
		return saveFile(path, func(w io.Writer) error { return WriteSTL(w, m) })
	}
	return saveFile(path, func(w io.Writer) error { return WriteOBJ(w, m) })
}

// LoadConstraints reads the marker file at path.
func LoadConstraints(path string) (dtrans.Constraints, error) {
	return loadFile(path, ReadConstraints)
}

// SaveConstraints writes a marker file.
func SaveConstraints(path string, cons dtrans.Constraints) error {
	return saveFile(path, func(w io.Writer) error { return WriteConstraints(w, cons) })
}

// LoadTriCorrs reads the triangle correspondence file at path.
func LoadTriCorrs(path string) (tricorr.List, error) {
	return loadFile(path, ReadTriCorrs)
}

// SaveTriCorrs writes a triangle correspondence file.
func SaveTriCorrs(path string, l tricorr.List) error {
	return saveFile(path, func(w io.Writer) error { return WriteTriCorrs(w, l) })
}

// LoadAdjacency reads the adjacency file at path.
func LoadAdjacency(path string) (*dtrans.Adjacency, error) {
	return loadFile(path, ReadAdjacency)
}

// SaveAdjacency writes an adjacency file.
func SaveAdjacency(path string, adj *dtrans.Adjacency) error {
	return saveFile(path, func(w io.Writer) error { return WriteAdjacency(w, adj) })
}

// LoadSegment reads the mesh segment file at path.
func LoadSegment(path string) ([]int, error) {
	return loadFile(path, ReadSegment)
}

// SaveSegment writes a mesh segment file.
func SaveSegment(path string, seg []int) error {
	return saveFile(path, func(w io.Writer) error { return WriteSegment(w, seg) })
}

func loadFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	fp, err := os.Open(path)
	if err != nil {
		var zero T
		return zero, err
	}
	defer fp.Close()
	v, err := read(fp)
	if err != nil {
		return v, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

func saveFile(path string, write func(io.Writer) error) error {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(fp); err != nil {
		fp.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return fp.Close()
}
