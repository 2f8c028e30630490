package matfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/JohannaYH/multi-scale-label-map-extraction/internal/element"
)

// numeric constrains the Go types a normalized payload can hold.
type numeric interface {
	~int8 | ~uint8 | ~int16 | ~uint16 | ~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// widenSlice converts between numeric slice types element-wise.
func widenSlice[S, D numeric](src []S) []D {
	out := make([]D, len(src))
	for i, v := range src {
		out[i] = D(v)
	}
	return out
}

// decodeNumeric decodes a stored payload into a slice of the destination
// type, converting each element. MATLAB writers routinely store wide classes
// with a narrower encoding when the values fit, so the stored type is
// independent of the array class.
func decodeNumeric[D numeric](raw []byte, stored element.Type, order binary.ByteOrder) ([]D, error) {
	width := stored.Size()
	if width == 0 {
		return nil, fmt.Errorf("%v payload is not numeric: %w", stored, ErrCorrupt)
	}
	if len(raw)%width != 0 {
		return nil, fmt.Errorf("%v payload of %d bytes is not a whole number of elements: %w", stored, len(raw), ErrCorrupt)
	}
	n := len(raw) / width
	out := make([]D, n)

	switch stored {
	case element.Int8:
		for i := 0; i < n; i++ {
			out[i] = D(int8(raw[i]))
		}
	case element.UInt8:
		for i := 0; i < n; i++ {
			out[i] = D(raw[i])
		}
	case element.Int16:
		for i := 0; i < n; i++ {
			out[i] = D(int16(order.Uint16(raw[2*i:])))
		}
	case element.UInt16:
		for i := 0; i < n; i++ {
			out[i] = D(order.Uint16(raw[2*i:]))
		}
	case element.Int32:
		for i := 0; i < n; i++ {
			out[i] = D(int32(order.Uint32(raw[4*i:])))
		}
	case element.UInt32:
		for i := 0; i < n; i++ {
			out[i] = D(order.Uint32(raw[4*i:]))
		}
	case element.Int64:
		for i := 0; i < n; i++ {
			out[i] = D(int64(order.Uint64(raw[8*i:])))
		}
	case element.UInt64:
		for i := 0; i < n; i++ {
			out[i] = D(order.Uint64(raw[8*i:]))
		}
	case element.Single:
		for i := 0; i < n; i++ {
			out[i] = D(math.Float32frombits(order.Uint32(raw[4*i:])))
		}
	case element.Double:
		for i := 0; i < n; i++ {
			out[i] = D(math.Float64frombits(order.Uint64(raw[8*i:])))
		}
	default:
		return nil, fmt.Errorf("%v payload is not numeric: %w", stored, ErrCorrupt)
	}

	return out, nil
}

// decodeForClass normalizes a stored payload to the class-width slice type.
func decodeForClass(class Class, stored element.Type, raw []byte, order binary.ByteOrder) (any, error) {
	switch class {
	case ClassDouble:
		return decodeNumeric[float64](raw, stored, order)
	case ClassSingle:
		return decodeNumeric[float32](raw, stored, order)
	case ClassInt8:
		return decodeNumeric[int8](raw, stored, order)
	case ClassUInt8:
		return decodeNumeric[uint8](raw, stored, order)
	case ClassInt16:
		return decodeNumeric[int16](raw, stored, order)
	case ClassUInt16:
		return decodeNumeric[uint16](raw, stored, order)
	case ClassInt32:
		return decodeNumeric[int32](raw, stored, order)
	case ClassUInt32:
		return decodeNumeric[uint32](raw, stored, order)
	case ClassInt64:
		return decodeNumeric[int64](raw, stored, order)
	case ClassUInt64:
		return decodeNumeric[uint64](raw, stored, order)
	default:
		return nil, fmt.Errorf("%v: %w", class, ErrUnsupportedClass)
	}
}

// emptyDataFor returns the zero-length class-width slice for empty arrays.
func emptyDataFor(class Class) any {
	switch class {
	case ClassDouble:
		return []float64{}
	case ClassSingle:
		return []float32{}
	case ClassInt8:
		return []int8{}
	case ClassUInt8:
		return []uint8{}
	case ClassInt16:
		return []int16{}
	case ClassUInt16:
		return []uint16{}
	case ClassInt32:
		return []int32{}
	case ClassUInt32:
		return []uint32{}
	case ClassInt64:
		return []int64{}
	case ClassUInt64:
		return []uint64{}
	}
	return nil
}

// decodeChars decodes a char array payload to a Go string.
func decodeChars(raw []byte, stored element.Type, order binary.ByteOrder) (string, error) {
	switch stored {
	case element.UTF8:
		return string(raw), nil
	case element.Int8, element.UInt8:
		// Single-byte text predates the UTF encodings; treat as Latin-1.
		runes := make([]rune, len(raw))
		for i, b := range raw {
			runes[i] = rune(b)
		}
		return string(runes), nil
	case element.UTF16, element.UInt16, element.Int16:
		if len(raw)%2 != 0 {
			return "", fmt.Errorf("UTF-16 payload of %d bytes: %w", len(raw), ErrCorrupt)
		}
		units := make([]uint16, len(raw)/2)
		for i := range units {
			units[i] = order.Uint16(raw[2*i:])
		}
		return string(utf16.Decode(units)), nil
	case element.UTF32:
		if len(raw)%4 != 0 {
			return "", fmt.Errorf("UTF-32 payload of %d bytes: %w", len(raw), ErrCorrupt)
		}
		runes := make([]rune, len(raw)/4)
		for i := range runes {
			runes[i] = rune(order.Uint32(raw[4*i:]))
		}
		return string(runes), nil
	default:
		return "", fmt.Errorf("char data stored as %v: %w", stored, ErrCorrupt)
	}
}
