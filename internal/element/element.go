// Package element defines the MAT-file level 5 data element model: the tagged
// type constants, tag decoding including the packed small-element form, and
// the padding rule that places consecutive elements on 8-byte boundaries.
package element

import (
	"fmt"

	"github.com/JohannaYH/multi-scale-label-map-extraction/internal/binary"
)

// Type identifies the encoding of a data element's payload.
type Type uint32

const (
	Int8       Type = 1  // miINT8
	UInt8      Type = 2  // miUINT8
	Int16      Type = 3  // miINT16
	UInt16     Type = 4  // miUINT16
	Int32      Type = 5  // miINT32
	UInt32     Type = 6  // miUINT32
	Single     Type = 7  // miSINGLE
	Double     Type = 9  // miDOUBLE
	Int64      Type = 12 // miINT64
	UInt64     Type = 13 // miUINT64
	Matrix     Type = 14 // miMATRIX
	Compressed Type = 15 // miCOMPRESSED
	UTF8       Type = 16 // miUTF8
	UTF16      Type = 17 // miUTF16
	UTF32      Type = 18 // miUTF32
)

// Size returns the width in bytes of one element of this type, or 0 for
// container types (Matrix, Compressed) and unknown values.
func (t Type) Size() int {
	switch t {
	case Int8, UInt8, UTF8:
		return 1
	case Int16, UInt16, UTF16:
		return 2
	case Int32, UInt32, Single, UTF32:
		return 4
	case Int64, UInt64, Double:
		return 8
	default:
		return 0
	}
}

// Numeric returns true if this type encodes integer or floating-point data.
func (t Type) Numeric() bool {
	switch t {
	case Int8, UInt8, Int16, UInt16, Int32, UInt32, Int64, UInt64, Single, Double:
		return true
	default:
		return false
	}
}

func (t Type) String() string {
	switch t {
	case Int8:
		return "miINT8"
	case UInt8:
		return "miUINT8"
	case Int16:
		return "miINT16"
	case UInt16:
		return "miUINT16"
	case Int32:
		return "miINT32"
	case UInt32:
		return "miUINT32"
	case Single:
		return "miSINGLE"
	case Double:
		return "miDOUBLE"
	case Int64:
		return "miINT64"
	case UInt64:
		return "miUINT64"
	case Matrix:
		return "miMATRIX"
	case Compressed:
		return "miCOMPRESSED"
	case UTF8:
		return "miUTF8"
	case UTF16:
		return "miUTF16"
	case UTF32:
		return "miUTF32"
	default:
		return fmt.Sprintf("miUNKNOWN(%d)", uint32(t))
	}
}

// Tag is the decoded header of one data element. A regular tag occupies 8
// bytes and is followed by NBytes of payload; a small tag packs type, size,
// and up to 4 payload bytes into a single 8-byte unit.
type Tag struct {
	Type   Type
	NBytes uint32
	Small  bool
}

// ReadTag decodes the element tag at the reader's current position and leaves
// the reader positioned at the first payload byte.
//
// The small-element form is detected from the first 32-bit word: a regular
// tag stores the type there, and no type value uses the upper 16 bits, so a
// nonzero upper half means the word packs the payload size (upper 16 bits)
// and type (lower 16 bits) together. This holds under either byte order as
// long as the word is read in file order.
func ReadTag(r *binary.Reader) (Tag, error) {
	word, err := r.ReadUint32()
	if err != nil {
		return Tag{}, err
	}
	if nbytes := word >> 16; nbytes != 0 {
		return Tag{Type: Type(word & 0xFFFF), NBytes: nbytes, Small: true}, nil
	}
	nbytes, err := r.ReadUint32()
	if err != nil {
		return Tag{}, err
	}
	return Tag{Type: Type(word), NBytes: nbytes}, nil
}

// Next returns the position of the element that follows a tag read at start.
//
// Small elements always occupy exactly 8 bytes. Regular element payloads are
// padded so the next element begins on an 8-byte boundary, except compressed
// payloads, which are written back to back with no padding.
func (t Tag) Next(start int64) int64 {
	if t.Small {
		return start + 8
	}
	end := start + 8 + int64(t.NBytes)
	if t.Type == Compressed {
		return end
	}
	if rem := end % 8; rem != 0 {
		end += 8 - rem
	}
	return end
}
