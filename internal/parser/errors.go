package parser

import "fmt"

// CoercionError is a numeric or boolean field whose text cannot be converted.
type CoercionError struct {
	Field string
	Value string
	Cause error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("field %s: cannot convert %q: %v", e.Field, e.Value, e.Cause)
}

func (e *CoercionError) Unwrap() error {
	return e.Cause
}

// SchemaMismatchError is a value of the wrong shape at Path, e.g. a nested element where
// text was expected.
type SchemaMismatchError struct {
	Path string
	Want string
	Got  string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Want, e.Got)
}
