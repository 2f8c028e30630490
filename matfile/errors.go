// Package matfile provides a pure Go reader for MAT-file level 5 data files.
package matfile

import "errors"

// Common errors
var (
	ErrNotMAT             = errors.New("not a MAT-file")
	ErrMAT4               = errors.New("level 4 MAT-file is not supported")
	ErrUnsupportedVersion = errors.New("unsupported MAT-file version")
	ErrCorrupt            = errors.New("malformed MAT-file element")
	ErrVarNotFound        = errors.New("variable not found")
	ErrUnsupportedClass   = errors.New("unsupported array class")
	ErrTypeMismatch       = errors.New("array class does not match requested type")
	ErrClosed             = errors.New("file is closed")
	ErrTooDeep            = errors.New("maximum array nesting depth exceeded")
)

// MaxNesting is the default maximum depth of nested cell and struct arrays.
// This prevents stack overflow from deeply nested or malicious files.
const MaxNesting = 100
