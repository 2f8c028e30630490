package matfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zlib"
	"go.uber.org/zap"

	binpkg "github.com/JohannaYH/multi-scale-label-map-extraction/internal/binary"
	"github.com/JohannaYH/multi-scale-label-map-extraction/internal/element"
)

// VarInfo describes one top-level variable without reading its data. Bytes
// is the stored element payload size, which for compressed variables is the
// compressed size.
type VarInfo struct {
	Name       string
	Class      Class
	Dims       []int
	Bytes      int
	Compressed bool
}

// dirEntry locates a top-level element in the file.
type dirEntry struct {
	info   VarInfo
	offset int64 // element tag offset in the file
	nbytes int64 // payload length, needed to bound compressed entries
}

// File represents an open MAT-file.
type File struct {
	path    string
	file    *os.File
	ra      io.ReaderAt
	reader  *binpkg.Reader
	header  Header
	entries []dirEntry
	opts    *options
	size    int64
	closed  bool
}

// Open opens a MAT-file for reading.
func Open(path string, opt ...Option) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("measuring file: %w", err)
	}
	mf, err := newFile(f, st.Size(), opt...)
	if err != nil {
		f.Close()
		return nil, err
	}
	mf.path = path
	mf.file = f
	return mf, nil
}

// OpenReader reads MAT-file data from r, which must cover size bytes.
// Closing the returned File does not close r.
func OpenReader(r io.ReaderAt, size int64, opt ...Option) (*File, error) {
	return newFile(r, size, opt...)
}

func newFile(r io.ReaderAt, size int64, opt ...Option) (*File, error) {
	opts := defaultOptions()
	for _, o := range opt {
		o(opts)
	}

	hdr, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	f := &File{
		ra:     r,
		reader: binpkg.NewReader(r, binpkg.Config{ByteOrder: hdr.ByteOrder}),
		header: hdr,
		opts:   opts,
		size:   size,
	}
	if err := f.scan(); err != nil {
		return nil, err
	}

	opts.logger.Debug("opened MAT-file",
		zap.Uint16("version", hdr.Version),
		zap.Stringer("byteOrder", hdr.ByteOrder),
		zap.Int("variables", len(f.entries)))
	return f, nil
}

// Close releases the underlying file. Files opened with OpenReader hold no
// file handle; Close then only marks the File unusable.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Path returns the file path, or "" for files opened from a reader.
func (f *File) Path() string {
	return f.path
}

// Header returns the parsed file header.
func (f *File) Header() Header {
	return f.header
}

// Variables returns the names of the top-level variables in file order.
func (f *File) Variables() []string {
	names := make([]string, len(f.entries))
	for i, e := range f.entries {
		names[i] = e.info.Name
	}
	return names
}

// Dir describes the top-level variables without reading their data.
func (f *File) Dir() []VarInfo {
	infos := make([]VarInfo, len(f.entries))
	for i, e := range f.entries {
		infos[i] = e.info
	}
	return infos
}

// Var reads the named top-level variable, decoding its data fully. If the
// file binds the same name more than once the first occurrence wins.
func (f *File) Var(name string) (*Variable, error) {
	if f.closed {
		return nil, ErrClosed
	}
	for _, e := range f.entries {
		if e.info.Name != name {
			continue
		}
		v, err := f.readEntry(e)
		if err != nil {
			return nil, fmt.Errorf("reading variable %q: %w", name, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("variable %q: %w", name, ErrVarNotFound)
}

func (f *File) readEntry(e dirEntry) (*Variable, error) {
	if !e.info.Compressed {
		return f.newParser(f.reader.At(e.offset)).parseMatrix(0)
	}

	// The compressed payload holds exactly one matrix element.
	data, err := f.inflate(e.offset+8, e.nbytes)
	if err != nil {
		return nil, err
	}
	r := binpkg.NewReader(bytes.NewReader(data), binpkg.Config{ByteOrder: f.header.ByteOrder})
	return f.newParser(r).parseMatrix(0)
}

func (f *File) newParser(r *binpkg.Reader) *parser {
	return &parser{
		r:          r,
		order:      f.header.ByteOrder,
		maxNesting: f.opts.maxNesting,
		maxDims:    f.opts.maxDims,
	}
}

// scan walks the top-level elements and records a directory entry for each
// variable. Array data is not decoded until Var is called.
func (f *File) scan() error {
	r := f.reader.At(headerSize)
	for r.Pos() < f.size {
		start := r.Pos()
		if f.size-start < 8 {
			return fmt.Errorf("trailing %d bytes at offset %d: %w", f.size-start, start, ErrCorrupt)
		}
		tag, err := element.ReadTag(r)
		if err != nil {
			return fmt.Errorf("reading element tag at offset %d: %w", start, err)
		}
		if tag.Small {
			return fmt.Errorf("top-level element at offset %d uses the small format: %w", start, ErrCorrupt)
		}
		next := tag.Next(start)
		if next > f.size {
			return fmt.Errorf("element at offset %d runs past end of file: %w", start, ErrCorrupt)
		}

		var info VarInfo
		switch tag.Type {
		case element.Matrix:
			info, err = f.headInfo(f.reader.At(start))
		case element.Compressed:
			info, err = f.compressedHeadInfo(start+8, int64(tag.NBytes))
			info.Compressed = true
		default:
			return fmt.Errorf("top-level element at offset %d has type %v: %w", start, tag.Type, ErrCorrupt)
		}
		if err != nil {
			return fmt.Errorf("describing element at offset %d: %w", start, err)
		}
		info.Bytes = int(tag.NBytes)

		f.entries = append(f.entries, dirEntry{info: info, offset: start, nbytes: int64(tag.NBytes)})
		f.opts.logger.Debug("scanned variable",
			zap.String("name", info.Name),
			zap.Stringer("class", info.Class),
			zap.Ints("dims", info.Dims),
			zap.Bool("compressed", info.Compressed))

		r = r.At(next)
	}
	return nil
}

// headInfo decodes just the array flags, dimensions, and name of the matrix
// element beginning at r's position.
func (f *File) headInfo(r *binpkg.Reader) (VarInfo, error) {
	p := f.newParser(r)
	start := p.r.Pos()
	tag, err := element.ReadTag(p.r)
	if err != nil {
		return VarInfo{}, err
	}
	if tag.Small || tag.Type != element.Matrix {
		return VarInfo{}, fmt.Errorf("expected matrix element, found %v: %w", tag.Type, ErrCorrupt)
	}
	v := &Variable{}
	if err := p.parseHead(v, start+8+int64(tag.NBytes)); err != nil {
		return VarInfo{}, err
	}
	return VarInfo{Name: v.name, Class: v.class, Dims: v.dims}, nil
}

// compressedHeadSize is the decompressed prefix inflated during scanning.
// It covers the flags, dimensions, and name subelements of any variable
// with a reasonable name.
const compressedHeadSize = 512

// compressedHeadInfo describes the matrix inside a compressed element by
// inflating only a prefix of it. The full payload is inflated later, and
// only if the variable is actually read.
func (f *File) compressedHeadInfo(offset, nbytes int64) (VarInfo, error) {
	zr, err := zlib.NewReader(io.NewSectionReader(f.ra, offset, nbytes))
	if err != nil {
		return VarInfo{}, fmt.Errorf("opening compressed element: %w", err)
	}
	defer zr.Close()

	head := make([]byte, compressedHeadSize)
	n, err := io.ReadFull(zr, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return VarInfo{}, fmt.Errorf("inflating element head: %w", err)
	}

	info, err := f.headInfo(binpkg.NewReader(bytes.NewReader(head[:n]), binpkg.Config{ByteOrder: f.header.ByteOrder}))
	if err != nil && n == compressedHeadSize {
		// The head subelements did not fit the probe window.
		data, ferr := f.inflate(offset, nbytes)
		if ferr != nil {
			return VarInfo{}, ferr
		}
		return f.headInfo(binpkg.NewReader(bytes.NewReader(data), binpkg.Config{ByteOrder: f.header.ByteOrder}))
	}
	return info, err
}

// inflate decompresses a complete compressed element payload.
func (f *File) inflate(offset, nbytes int64) ([]byte, error) {
	zr, err := zlib.NewReader(io.NewSectionReader(f.ra, offset, nbytes))
	if err != nil {
		return nil, fmt.Errorf("opening compressed element: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("inflating element: %w", err)
	}
	return data, nil
}
