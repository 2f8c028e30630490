package matfile

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// headerSize is the fixed size of the MAT-file level 5 header.
const headerSize = 128

// Header holds the MAT-file level 5 header fields: 116 bytes of descriptive
// text, the subsystem data offset, the format version, and the endian
// indicator that fixes the byte order for the rest of the file.
type Header struct {
	Text         string
	SubsysOffset uint64
	Version      uint16
	ByteOrder    binary.ByteOrder
}

// readHeader validates the 128-byte header and determines the byte order.
//
// The endian indicator at bytes 126-127 holds the characters "MI" written as
// a 16-bit integer, so a little-endian writer produces "IM" on disk and a
// big-endian writer produces "MI". Level 4 files have no text header; their
// first four bytes encode a numeric type code with zero bytes in it.
func readHeader(r io.ReaderAt) (Header, error) {
	buf := make([]byte, headerSize)
	if _, err := r.ReadAt(buf, 0); err != nil {
		return Header{}, fmt.Errorf("file shorter than the %d-byte header: %w", headerSize, ErrNotMAT)
	}

	if buf[0] == 0 || buf[1] == 0 || buf[2] == 0 || buf[3] == 0 {
		return Header{}, ErrMAT4
	}

	var order binary.ByteOrder
	switch {
	case buf[126] == 'I' && buf[127] == 'M':
		order = binary.LittleEndian
	case buf[126] == 'M' && buf[127] == 'I':
		order = binary.BigEndian
	default:
		return Header{}, fmt.Errorf("bad endian indicator %q: %w", buf[126:128], ErrNotMAT)
	}

	version := order.Uint16(buf[124:126])
	if version != 0x0100 {
		return Header{}, fmt.Errorf("version 0x%04x: %w", version, ErrUnsupportedVersion)
	}

	return Header{
		Text:         strings.TrimRight(string(buf[:116]), " \x00"),
		SubsysOffset: subsysOffset(buf[116:124], order),
		Version:      version,
		ByteOrder:    order,
	}, nil
}

// subsysOffset decodes the subsystem data offset field. Writers with no
// subsystem data fill the field with spaces or zeros.
func subsysOffset(b []byte, order binary.ByteOrder) uint64 {
	for _, c := range b {
		if c != ' ' && c != 0 {
			return order.Uint64(b)
		}
	}
	return 0
}
