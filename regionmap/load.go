package regionmap

import "fmt"

// Field and variable names fixed by the container layout.
const (
	fieldSuperpixels = "list_of_atomic_superpixels"
	fieldScale       = "scale"
	fieldChildren    = "children"
	varImageShape    = "image_shape"
	varRLE           = "atomic_SLIC_rle"
)

// getField reads the named field of a struct record. Absent fields and
// fields declaring no storage both count as missing: optional misses return
// nil, required misses fail with ErrMissingField. The result stays owned by
// the container.
func getField(rec Record, name string, optional bool) (Record, error) {
	f := rec.Field(name)
	if f == nil || f.NumBytes() <= 0 {
		if optional {
			return nil, nil
		}
		return nil, fmt.Errorf("field %q: %w", name, ErrMissingField)
	}
	return f, nil
}

// LoadRegion converts one struct record into a flat compound region: the
// list of atomic superpixel identifiers it covers. Identifiers may be
// stored as 32- or 64-bit integers.
func LoadRegion(rec Record) (CompoundRegion, error) {
	if rec == nil || rec.Kind() != KindStruct {
		return CompoundRegion{}, fmt.Errorf("region record is not a struct: %w", ErrInvalidStructure)
	}
	field, err := getField(rec, fieldSuperpixels, false)
	if err != nil {
		return CompoundRegion{}, err
	}
	ids, err := widenedIDs(field, fieldSuperpixels)
	if err != nil {
		return CompoundRegion{}, err
	}
	return CompoundRegion{AtomicSuperpixels: ids}, nil
}

// widenedIDs reads an int32- or int64-encoded field as uint64 identifiers.
func widenedIDs(rec Record, name string) ([]uint64, error) {
	switch rec.NumericType() {
	case NumericInt32, NumericInt64:
	default:
		return nil, fmt.Errorf("field %q has type %v: %w", name, rec.NumericType(), ErrUnsupportedType)
	}
	vals, err := rec.Int64s()
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	ids := make([]uint64, len(vals))
	for i, v := range vals {
		ids[i] = uint64(v)
	}
	return ids, nil
}

// LoadRegionTree converts a cell array of region records into an ordered
// forest of hierarchical regions. Each record carries the region's
// superpixel list, its scale, and optionally a nested cell array of children
// loaded by the same procedure.
//
// Enumerating the cell array transfers ownership of every element here;
// each is released exactly once whether loading succeeds or fails partway.
func LoadRegionTree(cells Record, opts ...Option) ([]*HierarchicalRegion, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return loadForest(cells, 0, o.maxDepth)
}

func loadForest(cells Record, depth, maxDepth int) ([]*HierarchicalRegion, error) {
	if depth >= maxDepth {
		return nil, fmt.Errorf("region tree deeper than %d levels: %w", maxDepth, ErrMaxDepth)
	}
	if cells == nil || cells.Kind() != KindCells || cells.NumBytes() <= 0 {
		return nil, fmt.Errorf("invalid tree data structure: %w", ErrInvalidStructure)
	}

	count := dimsProduct(cells.Dims())
	recs, err := cells.Cells(0, 1, count)
	if err != nil {
		return nil, fmt.Errorf("enumerating %d tree records: %w", count, err)
	}
	// Entries still pending when an error aborts the loop are released here;
	// processed entries are released and cleared inline.
	defer func() {
		for _, r := range recs {
			if r != nil {
				r.Release()
			}
		}
	}()

	forest := make([]*HierarchicalRegion, 0, count)
	for i := range recs {
		node, err := loadNode(recs[i], depth, maxDepth)
		recs[i].Release()
		recs[i] = nil
		if err != nil {
			return nil, fmt.Errorf("tree record %d: %w", i, err)
		}
		forest = append(forest, node)
	}
	return forest, nil
}

func loadNode(rec Record, depth, maxDepth int) (*HierarchicalRegion, error) {
	region, err := LoadRegion(rec)
	if err != nil {
		return nil, err
	}

	scaleField, err := getField(rec, fieldScale, false)
	if err != nil {
		return nil, err
	}
	scale, err := scaleValue(scaleField)
	if err != nil {
		return nil, err
	}

	node := &HierarchicalRegion{CompoundRegion: region, Scale: scale}

	childField, err := getField(rec, fieldChildren, true)
	if err != nil {
		return nil, err
	}
	if childField != nil {
		node.Children, err = loadForest(childField, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// scaleValue reads a region's scale from its single- or double-width float
// encoding.
func scaleValue(rec Record) (float64, error) {
	switch rec.NumericType() {
	case NumericSingle, NumericDouble:
	default:
		return 0, fmt.Errorf("scale has unknown type %v: %w", rec.NumericType(), ErrUnsupportedType)
	}
	vals, err := rec.Float64s()
	if err != nil {
		return 0, fmt.Errorf("field %q: %w", fieldScale, err)
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("field %q is empty: %w", fieldScale, ErrMissingField)
	}
	return vals[0], nil
}

// LoadImageSize reads the image_shape record: a 1x3 vector holding the
// pixel rows, columns, and row stride of the segmented image.
func LoadImageSize(rec Record) (ImageSize, error) {
	if rec == nil {
		return ImageSize{}, fmt.Errorf("file does not include %s: %w", varImageShape, ErrMissingField)
	}
	dims := rec.Dims()
	if rec.IsComplex() || len(dims) != 2 || dims[0] != 1 || dims[1] != 3 {
		return ImageSize{}, fmt.Errorf("%s is invalid: %w", varImageShape, ErrInvalidShape)
	}
	switch rec.NumericType() {
	case NumericInt32, NumericInt64:
	default:
		return ImageSize{}, fmt.Errorf("%s has type %v: %w", varImageShape, rec.NumericType(), ErrUnsupportedType)
	}
	vals, err := rec.Int64s()
	if err != nil {
		return ImageSize{}, fmt.Errorf("%s: %w", varImageShape, err)
	}
	if len(vals) != 3 || vals[0] < 0 || vals[1] < 0 || vals[2] < 0 {
		return ImageSize{}, fmt.Errorf("%s is invalid: %w", varImageShape, ErrInvalidShape)
	}
	return ImageSize{Rows: int(vals[0]), Cols: int(vals[1]), Stride: int(vals[2])}, nil
}

// ExpandRLE expands the atomic_SLIC_rle run-length table into a dense
// per-pixel array of atomic region identifiers. The table's two columns are
// stored as two contiguous blocks, run lengths first and then region ids,
// and the runs must cover Rows*Cols pixels exactly.
func ExpandRLE(rec Record, size ImageSize) ([]uint64, error) {
	if rec == nil {
		return nil, fmt.Errorf("file does not include %s: %w", varRLE, ErrMissingField)
	}
	dims := rec.Dims()
	if rec.IsComplex() || len(dims) != 2 || dims[1] != 2 {
		return nil, fmt.Errorf("%s is invalid: %w", varRLE, ErrInvalidShape)
	}
	switch rec.NumericType() {
	case NumericInt32, NumericInt64:
	default:
		return nil, fmt.Errorf("%s has type %v: %w", varRLE, rec.NumericType(), ErrUnsupportedType)
	}
	vals, err := rec.Int64s()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", varRLE, err)
	}
	runs := dims[0]
	if len(vals) != 2*runs {
		return nil, fmt.Errorf("%s is invalid: %w", varRLE, ErrInvalidShape)
	}

	out := make([]uint64, size.NumPixels())
	cursor := 0
	for i := 0; i < runs; i++ {
		run := vals[i]
		id := uint64(vals[runs+i])
		if run < 0 || run > int64(len(out)-cursor) {
			return nil, fmt.Errorf("%s run %d of length %d does not fit the %d-pixel image: %w",
				varRLE, i, run, len(out), ErrInconsistentRLE)
		}
		for j := int64(0); j < run; j++ {
			out[cursor] = id
			cursor++
		}
	}
	if cursor != len(out) {
		return nil, fmt.Errorf("%s runs cover %d of %d pixels: %w", varRLE, cursor, len(out), ErrInconsistentRLE)
	}
	return out, nil
}

func dimsProduct(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
