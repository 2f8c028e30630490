package matfile

import (
	"fmt"

	"github.com/JohannaYH/multi-scale-label-map-extraction/internal/element"
)

// Class identifies the MATLAB array class of a variable.
type Class uint8

const (
	ClassCell     Class = 1  // mxCELL_CLASS
	ClassStruct   Class = 2  // mxSTRUCT_CLASS
	ClassObject   Class = 3  // mxOBJECT_CLASS
	ClassChar     Class = 4  // mxCHAR_CLASS
	ClassSparse   Class = 5  // mxSPARSE_CLASS
	ClassDouble   Class = 6  // mxDOUBLE_CLASS
	ClassSingle   Class = 7  // mxSINGLE_CLASS
	ClassInt8     Class = 8  // mxINT8_CLASS
	ClassUInt8    Class = 9  // mxUINT8_CLASS
	ClassInt16    Class = 10 // mxINT16_CLASS
	ClassUInt16   Class = 11 // mxUINT16_CLASS
	ClassInt32    Class = 12 // mxINT32_CLASS
	ClassUInt32   Class = 13 // mxUINT32_CLASS
	ClassInt64    Class = 14 // mxINT64_CLASS
	ClassUInt64   Class = 15 // mxUINT64_CLASS
	ClassFunction Class = 16 // mxFUNCTION_CLASS
	ClassOpaque   Class = 17 // mxOPAQUE_CLASS
)

// Numeric returns true for the integer and floating-point classes.
func (c Class) Numeric() bool {
	return c >= ClassDouble && c <= ClassUInt64
}

// Integer returns true for the integer classes.
func (c Class) Integer() bool {
	return c >= ClassInt8 && c <= ClassUInt64
}

// Float returns true for the floating-point classes.
func (c Class) Float() bool {
	return c == ClassDouble || c == ClassSingle
}

// ElementType returns the element encoding that matches this class. Numeric
// payloads are normalized to this type at parse time regardless of how they
// were stored.
func (c Class) ElementType() element.Type {
	switch c {
	case ClassDouble:
		return element.Double
	case ClassSingle:
		return element.Single
	case ClassInt8:
		return element.Int8
	case ClassUInt8:
		return element.UInt8
	case ClassInt16:
		return element.Int16
	case ClassUInt16:
		return element.UInt16
	case ClassInt32:
		return element.Int32
	case ClassUInt32:
		return element.UInt32
	case ClassInt64:
		return element.Int64
	case ClassUInt64:
		return element.UInt64
	case ClassChar:
		return element.UTF16
	default:
		return element.Matrix
	}
}

func (c Class) String() string {
	switch c {
	case ClassCell:
		return "cell"
	case ClassStruct:
		return "struct"
	case ClassObject:
		return "object"
	case ClassChar:
		return "char"
	case ClassSparse:
		return "sparse"
	case ClassDouble:
		return "double"
	case ClassSingle:
		return "single"
	case ClassInt8:
		return "int8"
	case ClassUInt8:
		return "uint8"
	case ClassInt16:
		return "int16"
	case ClassUInt16:
		return "uint16"
	case ClassInt32:
		return "int32"
	case ClassUInt32:
		return "uint32"
	case ClassInt64:
		return "int64"
	case ClassUInt64:
		return "uint64"
	case ClassFunction:
		return "function"
	case ClassOpaque:
		return "opaque"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// Variable is one parsed MATLAB array: numeric, char, cell, or struct.
// Nested cell elements and struct field values are themselves Variables.
type Variable struct {
	name    string
	class   Class
	dims    []int
	complex bool
	global  bool
	logical bool

	// Numeric payload, normalized to the class width. Holds one of []int8,
	// []uint8, []int16, []uint16, []int32, []uint32, []int64, []uint64,
	// []float32, or []float64 in column-major element order.
	data any
	imag any

	str string

	cells []*Variable

	fieldNames []string
	fields     [][]*Variable // indexed [element][field]
}

// Name returns the variable name. Nested cell elements and struct field
// values usually have an empty name.
func (v *Variable) Name() string {
	return v.name
}

// Class returns the MATLAB array class.
func (v *Variable) Class() Class {
	return v.class
}

// Type returns the class-equivalent element encoding.
func (v *Variable) Type() element.Type {
	return v.class.ElementType()
}

// Dims returns the array dimensions.
func (v *Variable) Dims() []int {
	return v.dims
}

// Rank returns the number of dimensions.
func (v *Variable) Rank() int {
	return len(v.dims)
}

// NumElements returns the total number of array elements.
func (v *Variable) NumElements() int {
	n := 1
	for _, d := range v.dims {
		n *= d
	}
	return n
}

// NumBytes returns the size of the variable's payload. For numeric arrays
// this is the element count times the class width; container classes report
// a nominal per-entry size so that non-empty containers are never zero.
func (v *Variable) NumBytes() int {
	switch v.class {
	case ClassCell:
		return len(v.cells) * 8
	case ClassStruct:
		return len(v.fields) * len(v.fieldNames) * 8
	case ClassChar:
		return len(v.str)
	default:
		return sliceLen(v.data) * v.class.ElementType().Size()
	}
}

// IsComplex returns true if the array has an imaginary part.
func (v *Variable) IsComplex() bool {
	return v.complex
}

// IsGlobal returns true if the array was saved from the global workspace.
func (v *Variable) IsGlobal() bool {
	return v.global
}

// IsLogical returns true if the array holds MATLAB logical values.
func (v *Variable) IsLogical() bool {
	return v.logical
}

// IsScalar returns true if the array holds exactly one element.
func (v *Variable) IsScalar() bool {
	return v.NumElements() == 1
}

// IsEmpty returns true if the array holds no elements.
func (v *Variable) IsEmpty() bool {
	return v.NumElements() == 0
}

// Real returns the normalized numeric payload, or nil for non-numeric
// classes. The concrete type is the class-width slice.
func (v *Variable) Real() any {
	return v.data
}

// Imag returns the imaginary part for complex arrays, or nil.
func (v *Variable) Imag() any {
	return v.imag
}

// Int64s returns the real part of an integer-class array widened to int64.
func (v *Variable) Int64s() ([]int64, error) {
	if !v.class.Integer() {
		return nil, fmt.Errorf("%v array read as integer: %w", v.class, ErrTypeMismatch)
	}
	switch d := v.data.(type) {
	case []int8:
		return widenSlice[int8, int64](d), nil
	case []uint8:
		return widenSlice[uint8, int64](d), nil
	case []int16:
		return widenSlice[int16, int64](d), nil
	case []uint16:
		return widenSlice[uint16, int64](d), nil
	case []int32:
		return widenSlice[int32, int64](d), nil
	case []uint32:
		return widenSlice[uint32, int64](d), nil
	case []int64:
		return d, nil
	case []uint64:
		return widenSlice[uint64, int64](d), nil
	}
	return nil, fmt.Errorf("%v array has no numeric payload: %w", v.class, ErrCorrupt)
}

// Uint64s returns the real part of an integer-class array converted to
// uint64. Negative values wrap.
func (v *Variable) Uint64s() ([]uint64, error) {
	if !v.class.Integer() {
		return nil, fmt.Errorf("%v array read as unsigned integer: %w", v.class, ErrTypeMismatch)
	}
	switch d := v.data.(type) {
	case []int8:
		return widenSlice[int8, uint64](d), nil
	case []uint8:
		return widenSlice[uint8, uint64](d), nil
	case []int16:
		return widenSlice[int16, uint64](d), nil
	case []uint16:
		return widenSlice[uint16, uint64](d), nil
	case []int32:
		return widenSlice[int32, uint64](d), nil
	case []uint32:
		return widenSlice[uint32, uint64](d), nil
	case []int64:
		return widenSlice[int64, uint64](d), nil
	case []uint64:
		return d, nil
	}
	return nil, fmt.Errorf("%v array has no numeric payload: %w", v.class, ErrCorrupt)
}

// Float64s returns the real part of a floating-point-class array widened to
// float64.
func (v *Variable) Float64s() ([]float64, error) {
	if !v.class.Float() {
		return nil, fmt.Errorf("%v array read as float: %w", v.class, ErrTypeMismatch)
	}
	switch d := v.data.(type) {
	case []float32:
		return widenSlice[float32, float64](d), nil
	case []float64:
		return d, nil
	}
	return nil, fmt.Errorf("%v array has no numeric payload: %w", v.class, ErrCorrupt)
}

// Int64 returns the first element of an integer-class array.
func (v *Variable) Int64() (int64, error) {
	vals, err := v.Int64s()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("empty %v array read as scalar: %w", v.class, ErrTypeMismatch)
	}
	return vals[0], nil
}

// Float64 returns the first element of a floating-point-class array.
func (v *Variable) Float64() (float64, error) {
	vals, err := v.Float64s()
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("empty %v array read as scalar: %w", v.class, ErrTypeMismatch)
	}
	return vals[0], nil
}

// Text returns the contents of a char array as a Go string.
func (v *Variable) Text() (string, error) {
	if v.class != ClassChar {
		return "", fmt.Errorf("%v array read as text: %w", v.class, ErrTypeMismatch)
	}
	return v.str, nil
}

// FieldNames returns the field names of a struct array, in declaration
// order, or nil for other classes.
func (v *Variable) FieldNames() []string {
	return v.fieldNames
}

// NumFields returns the number of struct fields.
func (v *Variable) NumFields() int {
	return len(v.fieldNames)
}

// Field returns the named field of the first struct element, or nil if the
// variable is not a struct, is empty, or has no such field.
func (v *Variable) Field(name string) *Variable {
	return v.FieldAt(0, name)
}

// FieldAt returns the named field of struct element i, or nil.
func (v *Variable) FieldAt(i int, name string) *Variable {
	if v.class != ClassStruct || i < 0 || i >= len(v.fields) {
		return nil
	}
	for j, fn := range v.fieldNames {
		if fn == name {
			return v.fields[i][j]
		}
	}
	return nil
}

// Cell returns element i of a cell array in column-major linear order, or
// nil if the variable is not a cell array or i is out of range.
func (v *Variable) Cell(i int) *Variable {
	if v.class != ClassCell || i < 0 || i >= len(v.cells) {
		return nil
	}
	return v.cells[i]
}

// sliceLen returns the length of any of the normalized payload slice types.
func sliceLen(data any) int {
	switch d := data.(type) {
	case []int8:
		return len(d)
	case []uint8:
		return len(d)
	case []int16:
		return len(d)
	case []uint16:
		return len(d)
	case []int32:
		return len(d)
	case []uint32:
		return len(d)
	case []int64:
		return len(d)
	case []uint64:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	}
	return 0
}
