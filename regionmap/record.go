package regionmap

import "fmt"

// Kind is the structural tag of a Record.
type Kind uint8

const (
	KindOther   Kind = iota // classes the loaders never consume
	KindNumeric             // numeric array
	KindStruct              // struct record
	KindCells               // array of records
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindStruct:
		return "struct"
	case KindCells:
		return "cells"
	default:
		return "other"
	}
}

// NumericType is the element encoding of a numeric Record.
type NumericType uint8

const (
	NumericInvalid NumericType = iota
	NumericInt8
	NumericUint8
	NumericInt16
	NumericUint16
	NumericInt32
	NumericUint32
	NumericInt64
	NumericUint64
	NumericSingle
	NumericDouble
)

func (t NumericType) String() string {
	switch t {
	case NumericInt8:
		return "int8"
	case NumericUint8:
		return "uint8"
	case NumericInt16:
		return "int16"
	case NumericUint16:
		return "uint16"
	case NumericInt32:
		return "int32"
	case NumericUint32:
		return "uint32"
	case NumericInt64:
		return "int64"
	case NumericUint64:
		return "uint64"
	case NumericSingle:
		return "single"
	case NumericDouble:
		return "double"
	default:
		return fmt.Sprintf("invalid(%d)", uint8(t))
	}
}

// Record is one dynamically-tagged value from a segmentation container. The
// loaders consume this boundary instead of a concrete container type so the
// recursion and cleanup contracts can be tested without container files.
//
// Ownership follows the container model: records reached through Field stay
// owned by the container and must not be released; records returned by Cells
// are individually owned by the caller and must each be released exactly
// once.
type Record interface {
	Kind() Kind

	// NumericType returns the element encoding of a numeric record, or
	// NumericInvalid for other kinds.
	NumericType() NumericType

	Dims() []int
	NumBytes() int
	IsComplex() bool

	// Field returns the named field of a struct record, or nil if the record
	// is not a struct or has no such field.
	Field(name string) Record

	// Cells returns count elements of a cell record, starting at start and
	// stepping by stride. Ownership of every returned element transfers to
	// the caller.
	Cells(start, stride, count int) ([]Record, error)

	// Release frees a record obtained from Cells.
	Release()

	// Int64s returns integer elements widened to 64 bits, in storage order.
	Int64s() ([]int64, error)

	// Float64s returns floating-point elements widened to 64 bits, in
	// storage order.
	Float64s() ([]float64, error)
}
