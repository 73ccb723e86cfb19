package pattern

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by LoadError.Is.
var (
	ErrMissingField  = errors.New("missing field")
	ErrTypeMismatch  = errors.New("type mismatch")
	ErrDuplicateUUID = errors.New("duplicate uuid")
)

// ValidationError represents a document-level error: the pattern file as a
// whole cannot be used (wrong top-level shape, unsupported version).
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// LoadErrorKind classifies a per-record loading failure.
type LoadErrorKind int

const (
	// MissingField: a required field is absent or unusable. The record is excluded.
	MissingField LoadErrorKind = iota + 1
	// TypeMismatch: an optional field is malformed and was treated as empty.
	// The record is still loaded. A record that is not a mapping at all is
	// also reported as a TypeMismatch on "record" and excluded.
	TypeMismatch
	// DuplicateUUID: the uuid was already used by an earlier record. The
	// later record is excluded.
	DuplicateUUID
)

func (k LoadErrorKind) String() string {
	switch k {
	case MissingField:
		return "missing field"
	case TypeMismatch:
		return "type mismatch"
	case DuplicateUUID:
		return "duplicate uuid"
	}
	return fmt.Sprintf("LoadErrorKind(%d)", int(k))
}

// LoadError is the kind of failure plus the record field it concerns.
type LoadError struct {
	Kind  LoadErrorKind
	Field string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s %q", e.Kind, e.Field)
}

// Is makes errors.Is work against ErrMissingField, ErrTypeMismatch and
// ErrDuplicateUUID.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Kind == MissingField
	case ErrTypeMismatch:
		return e.Kind == TypeMismatch
	case ErrDuplicateUUID:
		return e.Kind == DuplicateUUID
	}
	return false
}

// Diagnostic reports one recoverable anomaly found while loading a record.
// Diagnostics never abort a load.
type Diagnostic struct {
	Index  int    // 0-based index of the record in the file
	Name   string // record name, empty if missing
	UUID   string // raw uuid text, empty if missing
	Err    *LoadError
	Detail string
	Cause  error // underlying error, e.g. a *grammar.CompileError
}

// Excluded reports whether the record was left out of the Repository.
func (d Diagnostic) Excluded() bool {
	return d.Err == nil || d.Err.Kind != TypeMismatch || d.Err.Field == recordField
}

func (d Diagnostic) Error() string {
	msg := d.Detail
	if msg == "" && d.Err != nil {
		msg = d.Err.Kind.String()
	}
	field := ""
	if d.Err != nil {
		field = d.Err.Field
	}
	if d.Name != "" {
		return fmt.Sprintf("pattern %q: %s: %s", d.Name, field, msg)
	}
	return fmt.Sprintf("pattern[%d]: %s: %s", d.Index, field, msg)
}

// Unwrap exposes both the LoadError and the underlying cause to errors.Is
// and errors.As.
func (d Diagnostic) Unwrap() []error {
	var errs []error
	if d.Err != nil {
		errs = append(errs, d.Err)
	}
	if d.Cause != nil {
		errs = append(errs, d.Cause)
	}
	return errs
}

// recordField is the pseudo field used when a record is not a mapping.
const recordField = "record"
