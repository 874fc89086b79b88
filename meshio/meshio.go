// Package meshio reads and writes meshes and the index files used by the
// correspondence and transfer tools.
//
// Meshes are read from Wavefront OBJ and binary STL directly; ASCII STL, PLY
// and 3DS go through fauxgl. Triangle soups are welded into indexed meshes.
// Marker constraints, triangle correspondences, adjacency lists and mesh
// segments are stored as text: a count line followed by one entry per line.
package meshio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SyntaxError reports a malformed line of a text file.
type SyntaxError struct {
	Line int
	Err  error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *SyntaxError) Unwrap() error { return e.Err }

// tokenizer yields the whitespace separated fields of a text file, treating
// commas, colons and brackets as whitespace and skipping # comments.
type tokenizer struct {
	s    *bufio.Scanner
	line int
	toks []string
}

var separators = strings.NewReplacer(",", " ", ":", " ", "[", " ", "]", " ")

func newTokenizer(r io.Reader) *tokenizer {
	return &tokenizer{s: bufio.NewScanner(r)}
}

func (t *tokenizer) next() (string, error) {
	for len(t.toks) == 0 {
		if !t.s.Scan() {
			if err := t.s.Err(); err != nil {
				return "", err
			}
			return "", &SyntaxError{Line: t.line, Err: io.ErrUnexpectedEOF}
		}
		t.line++
		text := t.s.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		t.toks = strings.Fields(separators.Replace(text))
	}
	tok := t.toks[0]
	t.toks = t.toks[1:]
	return tok, nil
}

func (t *tokenizer) int() (int, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, &SyntaxError{Line: t.line, Err: err}
	}
	return v, nil
}

func (t *tokenizer) float() (float64, error) {
	tok, err := t.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, &SyntaxError{Line: t.line, Err: err}
	}
	return v, nil
}

// count reads a non-negative entry count.
func (t *tokenizer) count() (int, error) {
	n, err := t.int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, &SyntaxError{Line: t.line, Err: fmt.Errorf("negative count %d", n)}
	}
	return n, nil
}

// end fails if tokens remain past the last expected entry.
func (t *tokenizer) end() error {
	tok, err := t.next()
	if err == nil {
		return &SyntaxError{Line: t.line, Err: fmt.Errorf("unexpected %q after last entry", tok)}
	}
	if se, ok := err.(*SyntaxError); ok && se.Err == io.ErrUnexpectedEOF {
		return nil
	}
	return err
}
