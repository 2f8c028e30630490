package matfile

import (
	"encoding/binary"
	"fmt"

	binpkg "github.com/JohannaYH/multi-scale-label-map-extraction/internal/binary"
	"github.com/JohannaYH/multi-scale-label-map-extraction/internal/element"
)

// Array flags word bits.
const (
	flagComplex = 0x0800
	flagGlobal  = 0x0400
	flagLogical = 0x0200
)

// parser decodes miMATRIX elements. The reader's byte order comes from the
// file header; position advances through the element as it is parsed.
type parser struct {
	r          *binpkg.Reader
	order      binary.ByteOrder
	maxNesting int
	maxDims    int
}

// parseMatrix decodes one matrix element starting at the reader's current
// position and leaves the reader at the element's end.
func (p *parser) parseMatrix(depth int) (*Variable, error) {
	if depth > p.maxNesting {
		return nil, fmt.Errorf("arrays nested deeper than %d levels: %w", p.maxNesting, ErrTooDeep)
	}

	start := p.r.Pos()
	tag, err := element.ReadTag(p.r)
	if err != nil {
		return nil, fmt.Errorf("reading element tag at offset %d: %w", start, err)
	}
	if tag.Small || tag.Type != element.Matrix {
		return nil, fmt.Errorf("expected matrix element at offset %d, found %v: %w", start, tag.Type, ErrCorrupt)
	}

	// MATLAB writes a bare zero-length tag for [] stored inside containers.
	if tag.NBytes == 0 {
		return &Variable{class: ClassDouble, dims: []int{0, 0}, data: emptyDataFor(ClassDouble)}, nil
	}

	end := start + 8 + int64(tag.NBytes)
	v := &Variable{}
	if err := p.parseHead(v, end); err != nil {
		return nil, err
	}

	switch {
	case v.class == ClassCell:
		err = p.parseCells(v, end, depth)
	case v.class == ClassStruct:
		err = p.parseStruct(v, end, depth)
	case v.class == ClassChar:
		err = p.parseChars(v, end)
	case v.class.Numeric():
		err = p.parseNumeric(v, end)
	default:
		err = fmt.Errorf("%v arrays: %w", v.class, ErrUnsupportedClass)
	}
	if err != nil {
		if v.name != "" {
			return nil, fmt.Errorf("array %q: %w", v.name, err)
		}
		return nil, err
	}

	p.r = p.r.At(end)
	return v, nil
}

// parseHead reads the array flags, dimensions, and name subelements common
// to every array class.
func (p *parser) parseHead(v *Variable, end int64) error {
	tag, flags, err := p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("array flags: %w", err)
	}
	if tag.Type != element.UInt32 || len(flags) != 8 {
		return fmt.Errorf("array flags element is %v of %d bytes: %w", tag.Type, len(flags), ErrCorrupt)
	}
	word := p.order.Uint32(flags[:4])
	v.class = Class(word & 0xFF)
	v.complex = word&flagComplex != 0
	v.global = word&flagGlobal != 0
	v.logical = word&flagLogical != 0
	if v.class < ClassCell || v.class > ClassOpaque {
		return fmt.Errorf("array flags carry class %d: %w", word&0xFF, ErrCorrupt)
	}

	tag, dimData, err := p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("dimensions: %w", err)
	}
	if tag.Type != element.Int32 || len(dimData)%4 != 0 {
		return fmt.Errorf("dimensions element is %v of %d bytes: %w", tag.Type, len(dimData), ErrCorrupt)
	}
	rank := len(dimData) / 4
	if rank > p.maxDims {
		return fmt.Errorf("rank %d exceeds the %d-dimension limit: %w", rank, p.maxDims, ErrCorrupt)
	}
	v.dims = make([]int, rank)
	for i := range v.dims {
		d := int32(p.order.Uint32(dimData[4*i:]))
		if d < 0 {
			return fmt.Errorf("negative dimension %d: %w", d, ErrCorrupt)
		}
		v.dims[i] = int(d)
	}

	tag, nameData, err := p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("array name: %w", err)
	}
	switch tag.Type {
	case element.Int8, element.UInt8, element.UTF8:
		v.name = string(nameData)
	default:
		return fmt.Errorf("array name element is %v: %w", tag.Type, ErrCorrupt)
	}
	return nil
}

func (p *parser) parseNumeric(v *Variable, end int64) error {
	if !p.more(end) {
		if v.NumElements() == 0 {
			v.data = emptyDataFor(v.class)
			return nil
		}
		return fmt.Errorf("numeric data missing: %w", ErrCorrupt)
	}
	tag, raw, err := p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("real part: %w", err)
	}
	if !tag.Type.Numeric() {
		return fmt.Errorf("real part stored as %v: %w", tag.Type, ErrCorrupt)
	}
	v.data, err = decodeForClass(v.class, tag.Type, raw, p.order)
	if err != nil {
		return fmt.Errorf("real part: %w", err)
	}
	if n := sliceLen(v.data); n != v.NumElements() {
		return fmt.Errorf("real part has %d elements, dimensions give %d: %w", n, v.NumElements(), ErrCorrupt)
	}

	if !v.complex {
		return nil
	}
	if !p.more(end) {
		return fmt.Errorf("imaginary part missing: %w", ErrCorrupt)
	}
	tag, raw, err = p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("imaginary part: %w", err)
	}
	if !tag.Type.Numeric() {
		return fmt.Errorf("imaginary part stored as %v: %w", tag.Type, ErrCorrupt)
	}
	v.imag, err = decodeForClass(v.class, tag.Type, raw, p.order)
	if err != nil {
		return fmt.Errorf("imaginary part: %w", err)
	}
	if n := sliceLen(v.imag); n != v.NumElements() {
		return fmt.Errorf("imaginary part has %d elements, dimensions give %d: %w", n, v.NumElements(), ErrCorrupt)
	}
	return nil
}

func (p *parser) parseChars(v *Variable, end int64) error {
	if !p.more(end) {
		if v.NumElements() == 0 {
			return nil
		}
		return fmt.Errorf("char data missing: %w", ErrCorrupt)
	}
	tag, raw, err := p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("char data: %w", err)
	}
	v.str, err = decodeChars(raw, tag.Type, p.order)
	return err
}

func (p *parser) parseCells(v *Variable, end int64, depth int) error {
	n := v.NumElements()
	p.r.Align(8)
	if int64(n)*8 > end-p.r.Pos() {
		return fmt.Errorf("cell array of %d elements in %d bytes: %w", n, end-p.r.Pos(), ErrCorrupt)
	}
	v.cells = make([]*Variable, 0, n)
	for i := 0; i < n; i++ {
		p.r.Align(8)
		if p.r.Pos() >= end {
			return fmt.Errorf("cell array truncated after %d of %d elements: %w", i, n, ErrCorrupt)
		}
		c, err := p.parseMatrix(depth + 1)
		if err != nil {
			return fmt.Errorf("cell %d: %w", i, err)
		}
		v.cells = append(v.cells, c)
	}
	return nil
}

func (p *parser) parseStruct(v *Variable, end int64, depth int) error {
	tag, lenData, err := p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("field name length: %w", err)
	}
	if tag.Type != element.Int32 || len(lenData) != 4 {
		return fmt.Errorf("field name length element is %v of %d bytes: %w", tag.Type, len(lenData), ErrCorrupt)
	}
	maxLen := int(int32(p.order.Uint32(lenData)))

	tag, nameData, err := p.readSubelement(end)
	if err != nil {
		return fmt.Errorf("field names: %w", err)
	}
	if tag.Type != element.Int8 && tag.Type != element.UInt8 {
		return fmt.Errorf("field names element is %v: %w", tag.Type, ErrCorrupt)
	}
	var nfields int
	switch {
	case len(nameData) == 0:
		nfields = 0
	case maxLen <= 0 || len(nameData)%maxLen != 0:
		return fmt.Errorf("field names of %d bytes with name length %d: %w", len(nameData), maxLen, ErrCorrupt)
	default:
		nfields = len(nameData) / maxLen
	}

	v.fieldNames = make([]string, nfields)
	for i := 0; i < nfields; i++ {
		v.fieldNames[i] = cString(nameData[i*maxLen : (i+1)*maxLen])
	}

	n := v.NumElements()
	p.r.Align(8)
	if int64(n)*int64(nfields)*8 > end-p.r.Pos() {
		return fmt.Errorf("struct array of %d elements with %d fields in %d bytes: %w", n, nfields, end-p.r.Pos(), ErrCorrupt)
	}

	// Field values follow grouped per element, each field in declaration
	// order.
	v.fields = make([][]*Variable, n)
	for e := 0; e < n; e++ {
		v.fields[e] = make([]*Variable, nfields)
		for f := 0; f < nfields; f++ {
			p.r.Align(8)
			if p.r.Pos() >= end {
				return fmt.Errorf("struct array truncated at element %d field %q: %w", e, v.fieldNames[f], ErrCorrupt)
			}
			fv, err := p.parseMatrix(depth + 1)
			if err != nil {
				return fmt.Errorf("element %d field %q: %w", e, v.fieldNames[f], err)
			}
			v.fields[e][f] = fv
		}
	}
	return nil
}

// readSubelement reads one leaf subelement, bounds-checked against the
// parent element's end.
func (p *parser) readSubelement(end int64) (element.Tag, []byte, error) {
	p.r.Align(8)
	pos := p.r.Pos()
	if pos >= end {
		return element.Tag{}, nil, fmt.Errorf("element truncated at offset %d: %w", pos, ErrCorrupt)
	}
	tag, err := element.ReadTag(p.r)
	if err != nil {
		return element.Tag{}, nil, fmt.Errorf("reading tag at offset %d: %w", pos, err)
	}
	if p.r.Pos()+int64(tag.NBytes) > end {
		return element.Tag{}, nil, fmt.Errorf("%v payload of %d bytes overruns element end: %w", tag.Type, tag.NBytes, ErrCorrupt)
	}
	data, err := p.r.ReadBytes(int(tag.NBytes))
	if err != nil {
		return element.Tag{}, nil, fmt.Errorf("reading %v payload at offset %d: %w", tag.Type, pos, err)
	}
	return tag, data, nil
}

// more reports whether another subelement begins before end.
func (p *parser) more(end int64) bool {
	p.r.Align(8)
	return p.r.Pos() < end
}

// cString returns the bytes up to the first NUL.
func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
