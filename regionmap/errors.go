// Package regionmap loads persisted multi-scale image segmentations: a
// hierarchy of compound pixel regions, the image dimensions, and a
// run-length-encoded per-pixel map of atomic region identifiers.
package regionmap

import "errors"

// Loader errors
var (
	ErrMissingField     = errors.New("required field missing")
	ErrInvalidStructure = errors.New("invalid data structure")
	ErrInvalidShape     = errors.New("invalid array shape")
	ErrUnsupportedType  = errors.New("unsupported element type")
	ErrInconsistentRLE  = errors.New("run lengths do not cover the image")
	ErrMaxDepth         = errors.New("maximum region tree depth exceeded")
)

// DefaultMaxDepth caps the recursion depth of tree loading. This prevents
// stack overflow from deeply nested or malicious files.
const DefaultMaxDepth = 100
