package wire

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidJSON  = errors.New("invalid json")
	ErrNotObject    = errors.New("envelope is not an object")
	ErrMissingType  = errors.New("envelope has no type")
	ErrBadBatch     = errors.New("batch has no messages array")
	ErrTooDeep      = errors.New("batch nesting too deep")
	ErrMissingField = errors.New("missing required field")
)

// ParseError reports a message that could not be normalized or decoded. It is
// recoverable: the offending message is dropped and the stream continues.
type ParseError struct {
	Type string // envelope type when known
	Err  error
}

func (e *ParseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("parse error: %v", e.Err)
	}
	return fmt.Sprintf("parse error [%s]: %v", e.Type, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func missingField(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingField, name)
}
