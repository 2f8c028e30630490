package regionmap

import (
	"fmt"

	"github.com/JohannaYH/multi-scale-label-map-extraction/matfile"
)

// matRecord adapts a parsed MATLAB variable to the Record boundary. Parsed
// variables are plain Go values owned by their file, so Release is a no-op;
// the transfer contract still applies to backends with per-record handles.
type matRecord struct {
	v *matfile.Variable
}

// NewRecord wraps a parsed MATLAB variable as a boundary Record. A nil
// variable yields a nil Record.
func NewRecord(v *matfile.Variable) Record {
	if v == nil {
		return nil
	}
	return &matRecord{v: v}
}

func (m *matRecord) Kind() Kind {
	switch {
	case m.v.Class() == matfile.ClassStruct:
		return KindStruct
	case m.v.Class() == matfile.ClassCell:
		return KindCells
	case m.v.Class().Numeric():
		return KindNumeric
	default:
		return KindOther
	}
}

func (m *matRecord) NumericType() NumericType {
	switch m.v.Class() {
	case matfile.ClassInt8:
		return NumericInt8
	case matfile.ClassUInt8:
		return NumericUint8
	case matfile.ClassInt16:
		return NumericInt16
	case matfile.ClassUInt16:
		return NumericUint16
	case matfile.ClassInt32:
		return NumericInt32
	case matfile.ClassUInt32:
		return NumericUint32
	case matfile.ClassInt64:
		return NumericInt64
	case matfile.ClassUInt64:
		return NumericUint64
	case matfile.ClassSingle:
		return NumericSingle
	case matfile.ClassDouble:
		return NumericDouble
	default:
		return NumericInvalid
	}
}

func (m *matRecord) Dims() []int {
	return m.v.Dims()
}

func (m *matRecord) NumBytes() int {
	return m.v.NumBytes()
}

func (m *matRecord) IsComplex() bool {
	return m.v.IsComplex()
}

func (m *matRecord) Field(name string) Record {
	return NewRecord(m.v.Field(name))
}

func (m *matRecord) Cells(start, stride, count int) ([]Record, error) {
	out := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		c := m.v.Cell(start + i*stride)
		if c == nil {
			return nil, fmt.Errorf("cell %d out of range: %w", start+i*stride, ErrInvalidStructure)
		}
		out = append(out, &matRecord{v: c})
	}
	return out, nil
}

func (m *matRecord) Release() {}

func (m *matRecord) Int64s() ([]int64, error) {
	return m.v.Int64s()
}

func (m *matRecord) Float64s() ([]float64, error) {
	return m.v.Float64s()
}
