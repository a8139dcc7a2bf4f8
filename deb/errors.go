package deb

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput reports that a directory or the control file needed
	// to build a package does not exist.
	ErrMissingInput = errors.New("missing input")

	// ErrMalformedControl reports a control file that cannot be used to
	// build a package.
	ErrMalformedControl = errors.New("malformed control file")

	// ErrMemberName reports an archive member name that does not fit the
	// 16 bytes of an ar header.
	ErrMemberName = errors.New("invalid ar member name")
)

// MissingFieldError is returned by ControlSet.Validate when a mandatory
// field is absent or empty.
type MissingFieldError struct {
	Field  ControlField
	Source string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: mandatory field %q is missing", e.Source, e.Field)
}

// Unwrap makes the error match ErrMalformedControl.
func (e *MissingFieldError) Unwrap() error { return ErrMalformedControl }

// SyntaxError reports a control line that is neither a field nor a
// continuation line.
type SyntaxError struct {
	Source string
	Line   int
	Text   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d: expected \"Name: value\", got %q", e.Source, e.Line, e.Text)
}

// Unwrap makes the error match ErrMalformedControl.
func (e *SyntaxError) Unwrap() error { return ErrMalformedControl }

// IOError wraps a failed read, write or copy on a file of the build.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
