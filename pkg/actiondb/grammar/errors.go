package grammar

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by CompileError.Is.
var (
	ErrSyntax         = errors.New("syntax error")
	ErrDuplicateField = errors.New("duplicate field")
)

// ErrorKind classifies a CompileError.
type ErrorKind int

const (
	// Syntax covers malformed templates: unterminated delimiters, unknown
	// field kinds, bad names and bad parameters.
	Syntax ErrorKind = iota + 1
	// DuplicateField means a binding name appears twice in one template.
	DuplicateField
)

func (k ErrorKind) String() string {
	switch k {
	case Syntax:
		return "syntax error"
	case DuplicateField:
		return "duplicate field"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CompileError reports why a template could not be compiled.
type CompileError struct {
	Kind ErrorKind
	Pos  int    // byte offset in the template
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s at offset %d: %s", e.Kind, e.Pos, e.Msg)
}

// Is makes errors.Is(err, ErrSyntax) and errors.Is(err, ErrDuplicateField) work.
func (e *CompileError) Is(target error) bool {
	switch target {
	case ErrSyntax:
		return e.Kind == Syntax
	case ErrDuplicateField:
		return e.Kind == DuplicateField
	}
	return false
}

func syntaxError(pos int, format string, args ...any) *CompileError {
	return &CompileError{Kind: Syntax, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
