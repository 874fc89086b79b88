package dtrans

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrFatal is matched through errors.Is by every FatalError.
var ErrFatal = errors.New("fatal")

// FatalError reports a numerical backend failure or a broken internal
// invariant. Unlike I/O and input validation errors these are not
// recoverable: the computation that produced one must be abandoned.
type FatalError struct {
	// Op names the failing operation, i.e. "factorize" or "adjacency".
	Op string
	// Where holds the function and line that raised the error.
	Where string
	Err   error
}

func (e *FatalError) Error() string {
	if e.Where == "" {
		return fmt.Sprintf("fatal: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("fatal: %s (%s): %v", e.Op, e.Where, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Is reports true for ErrFatal.
func (e *FatalError) Is(target error) bool { return target == ErrFatal }

// Fatalf returns a *FatalError for op annotated with the caller's function
// name and line number.
func Fatalf(op, format string, args ...any) error {
	e := &FatalError{Op: op, Err: fmt.Errorf(format, args...)}
	if pc, _, line, ok := runtime.Caller(1); ok {
		e.Where = fmt.Sprintf("%s line %d", runtime.FuncForPC(pc).Name(), line)
	}
	return e
}

// IsFatal reports whether err or any error it wraps is fatal.
func IsFatal(err error) bool { return errors.Is(err, ErrFatal) }
