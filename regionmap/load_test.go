package regionmap

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

// === FAKE RECORDS ===
//
// fakeRecord implements the Record boundary in memory and counts Release
// calls so tests can enforce the ownership contract: every record handed out
// by Cells must be released exactly once, on success and on every failure
// path.

type releaseTracker struct {
	owned []*fakeRecord
}

func (e *releaseTracker) verify(t *testing.T) {
	t.Helper()
	for i, r := range e.owned {
		if r.released != 1 {
			t.Errorf("enumerated record %d released %d times, want exactly once", i, r.released)
		}
	}
}

type fakeRecord struct {
	kind   Kind
	ntype  NumericType
	dims   []int
	nbytes int
	cmplx  bool
	fields map[string]*fakeRecord
	cells  []*fakeRecord
	ints   []int64
	floats []float64

	env      *releaseTracker
	released int
}

func (f *fakeRecord) Kind() Kind               { return f.kind }
func (f *fakeRecord) NumericType() NumericType { return f.ntype }
func (f *fakeRecord) Dims() []int              { return f.dims }
func (f *fakeRecord) NumBytes() int            { return f.nbytes }
func (f *fakeRecord) IsComplex() bool          { return f.cmplx }

func (f *fakeRecord) Field(name string) Record {
	r, ok := f.fields[name]
	if !ok {
		return nil
	}
	return r
}

func (f *fakeRecord) Cells(start, stride, count int) ([]Record, error) {
	out := make([]Record, 0, count)
	for i := 0; i < count; i++ {
		idx := start + i*stride
		if idx < 0 || idx >= len(f.cells) {
			return nil, fmt.Errorf("cell %d out of range", idx)
		}
		c := f.cells[idx]
		if f.env != nil {
			f.env.owned = append(f.env.owned, c)
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRecord) Release() { f.released++ }

func (f *fakeRecord) Int64s() ([]int64, error) {
	if f.ints == nil {
		return nil, fmt.Errorf("record holds no integer data")
	}
	return f.ints, nil
}

func (f *fakeRecord) Float64s() ([]float64, error) {
	if f.floats == nil {
		return nil, fmt.Errorf("record holds no float data")
	}
	return f.floats, nil
}

func intsRec(ntype NumericType, vals ...int64) *fakeRecord {
	width := 4
	if ntype == NumericInt64 {
		width = 8
	}
	return &fakeRecord{
		kind:   KindNumeric,
		ntype:  ntype,
		dims:   []int{1, len(vals)},
		nbytes: width * len(vals),
		ints:   vals,
	}
}

func scaleRec(ntype NumericType, v float64) *fakeRecord {
	width := 4
	if ntype == NumericDouble {
		width = 8
	}
	return &fakeRecord{
		kind:   KindNumeric,
		ntype:  ntype,
		dims:   []int{1, 1},
		nbytes: width,
		floats: []float64{v},
	}
}

func regionRec(ids, scale, children *fakeRecord) *fakeRecord {
	fields := make(map[string]*fakeRecord)
	if ids != nil {
		fields[fieldSuperpixels] = ids
	}
	if scale != nil {
		fields[fieldScale] = scale
	}
	if children != nil {
		fields[fieldChildren] = children
	}
	return &fakeRecord{kind: KindStruct, dims: []int{1, 1}, nbytes: 8, fields: fields}
}

func cellsRec(env *releaseTracker, elems ...*fakeRecord) *fakeRecord {
	return &fakeRecord{
		kind:   KindCells,
		dims:   []int{1, len(elems)},
		nbytes: 8 * len(elems),
		env:    env,
		cells:  elems,
	}
}

func rleRec(ntype NumericType, runs, ids []int64) *fakeRecord {
	width := 4
	if ntype == NumericInt64 {
		width = 8
	}
	vals := append(append([]int64{}, runs...), ids...)
	return &fakeRecord{
		kind:   KindNumeric,
		ntype:  ntype,
		dims:   []int{len(runs), 2},
		nbytes: width * len(vals),
		ints:   vals,
	}
}

// === ACCESSOR TESTS ===

func TestGetFieldOptionalVsRequired(t *testing.T) {
	rec := regionRec(intsRec(NumericInt32, 1), scaleRec(NumericSingle, 1), nil)

	f, err := getField(rec, fieldChildren, true)
	if err != nil || f != nil {
		t.Errorf("optional getField = %v, %v, want nil, nil", f, err)
	}

	_, err = getField(rec, fieldChildren, false)
	if !errors.Is(err, ErrMissingField) {
		t.Fatalf("required getField error = %v, want %v", err, ErrMissingField)
	}
	if !strings.Contains(err.Error(), fieldChildren) {
		t.Errorf("error %q does not name the missing field", err)
	}
}

func TestGetFieldZeroStorage(t *testing.T) {
	// A present field with zero declared bytes counts as missing.
	empty := &fakeRecord{kind: KindNumeric, ntype: NumericInt32, dims: []int{0, 0}}
	rec := &fakeRecord{kind: KindStruct, fields: map[string]*fakeRecord{"x": empty}}

	f, err := getField(rec, "x", true)
	if err != nil || f != nil {
		t.Errorf("optional getField = %v, %v, want nil, nil", f, err)
	}
	if _, err := getField(rec, "x", false); !errors.Is(err, ErrMissingField) {
		t.Errorf("required getField error = %v, want %v", err, ErrMissingField)
	}
}

// === REGION LOADER TESTS ===

func TestLoadRegionWidthInvariance(t *testing.T) {
	want := []uint64{10, 20, 30}
	for _, ntype := range []NumericType{NumericInt32, NumericInt64} {
		t.Run(ntype.String(), func(t *testing.T) {
			rec := regionRec(intsRec(ntype, 10, 20, 30), scaleRec(NumericDouble, 1), nil)
			region, err := LoadRegion(rec)
			if err != nil {
				t.Fatalf("LoadRegion failed: %v", err)
			}
			if !reflect.DeepEqual(region.AtomicSuperpixels, want) {
				t.Errorf("superpixels = %v, want %v", region.AtomicSuperpixels, want)
			}
			if region.Size() != 3 {
				t.Errorf("Size = %d, want 3", region.Size())
			}
		})
	}
}

func TestLoadRegionErrors(t *testing.T) {
	floatIDs := &fakeRecord{
		kind: KindNumeric, ntype: NumericDouble,
		dims: []int{1, 1}, nbytes: 8, floats: []float64{1},
	}
	tests := []struct {
		name string
		rec  Record
		want error
	}{
		{"nil record", nil, ErrInvalidStructure},
		{"numeric record", intsRec(NumericInt32, 1), ErrInvalidStructure},
		{"missing list", regionRec(nil, scaleRec(NumericDouble, 1), nil), ErrMissingField},
		{"float ids", regionRec(floatIDs, nil, nil), ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRegion(tt.rec); !errors.Is(err, tt.want) {
				t.Errorf("LoadRegion error = %v, want %v", err, tt.want)
			}
		})
	}
}

// === TREE LOADER TESTS ===

func TestLoadRegionTreeEndToEnd(t *testing.T) {
	env := &releaseTracker{}
	child := regionRec(intsRec(NumericInt32, 1, 2, 3), scaleRec(NumericSingle, 1.0), nil)
	elem0 := regionRec(intsRec(NumericInt32, 1, 2, 3), scaleRec(NumericSingle, 1.0), nil)
	elem1 := regionRec(intsRec(NumericInt64, 4), scaleRec(NumericDouble, 0.5), cellsRec(env, child))
	tree := cellsRec(env, elem0, elem1)

	forest, err := LoadRegionTree(tree)
	if err != nil {
		t.Fatalf("LoadRegionTree failed: %v", err)
	}
	if len(forest) != 2 {
		t.Fatalf("forest has %d nodes, want 2", len(forest))
	}

	n0 := forest[0]
	if !reflect.DeepEqual(n0.AtomicSuperpixels, []uint64{1, 2, 3}) {
		t.Errorf("node 0 superpixels = %v, want [1 2 3]", n0.AtomicSuperpixels)
	}
	if n0.Scale != 1.0 || len(n0.Children) != 0 {
		t.Errorf("node 0 scale = %v children = %d, want 1.0 and none", n0.Scale, len(n0.Children))
	}

	n1 := forest[1]
	if !reflect.DeepEqual(n1.AtomicSuperpixels, []uint64{4}) || n1.Scale != 0.5 {
		t.Errorf("node 1 = %v scale %v, want [4] scale 0.5", n1.AtomicSuperpixels, n1.Scale)
	}
	if len(n1.Children) != 1 {
		t.Fatalf("node 1 has %d children, want 1", len(n1.Children))
	}
	c := n1.Children[0]
	if !reflect.DeepEqual(c.AtomicSuperpixels, []uint64{1, 2, 3}) || c.Scale != 1.0 {
		t.Errorf("child = %v scale %v, want [1 2 3] scale 1.0", c.AtomicSuperpixels, c.Scale)
	}

	env.verify(t)
}

func TestLoadRegionTreeInvalidInput(t *testing.T) {
	env := &releaseTracker{}
	tests := []struct {
		name string
		rec  Record
	}{
		{"nil", nil},
		{"numeric record", intsRec(NumericInt32, 1)},
		{"struct record", regionRec(intsRec(NumericInt32, 1), scaleRec(NumericDouble, 1), nil)},
		{"zero storage cells", cellsRec(env)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadRegionTree(tt.rec); !errors.Is(err, ErrInvalidStructure) {
				t.Errorf("LoadRegionTree error = %v, want %v", err, ErrInvalidStructure)
			}
		})
	}
}

func TestLoadRegionTreeScaleTypeRejected(t *testing.T) {
	env := &releaseTracker{}
	badScale := intsRec(NumericInt32, 1)
	tree := cellsRec(env, regionRec(intsRec(NumericInt32, 1), badScale, nil))

	_, err := LoadRegionTree(tree)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("LoadRegionTree error = %v, want %v", err, ErrUnsupportedType)
	}
	if !strings.Contains(err.Error(), "scale has unknown type") {
		t.Errorf("error %q does not describe the scale type", err)
	}
	env.verify(t)
}

func TestLoadRegionTreeReleaseOnFailure(t *testing.T) {
	env := &releaseTracker{}
	floatIDs := &fakeRecord{
		kind: KindNumeric, ntype: NumericDouble,
		dims: []int{1, 1}, nbytes: 8, floats: []float64{1},
	}
	good := regionRec(intsRec(NumericInt32, 1), scaleRec(NumericDouble, 2.0), nil)
	badLeaf := regionRec(floatIDs, scaleRec(NumericDouble, 1), nil)
	mid := regionRec(intsRec(NumericInt32, 2), scaleRec(NumericDouble, 1.5), cellsRec(env, badLeaf))
	trailing := regionRec(intsRec(NumericInt32, 3), scaleRec(NumericDouble, 1), nil)
	tree := cellsRec(env, good, mid, trailing)

	_, err := LoadRegionTree(tree)
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("LoadRegionTree error = %v, want %v", err, ErrUnsupportedType)
	}
	// good, mid, trailing, and the nested badLeaf were all enumerated; each
	// must be released exactly once despite the mid-iteration failure.
	if len(env.owned) != 4 {
		t.Fatalf("enumerated %d records, want 4", len(env.owned))
	}
	env.verify(t)
}

func TestLoadRegionTreeDepthLimit(t *testing.T) {
	deepChain := func(env *releaseTracker, levels int) *fakeRecord {
		node := regionRec(intsRec(NumericInt32, 1), scaleRec(NumericDouble, 1), nil)
		for i := 1; i < levels; i++ {
			node = regionRec(intsRec(NumericInt32, 1), scaleRec(NumericDouble, 1), cellsRec(env, node))
		}
		return node
	}

	env := &releaseTracker{}
	forest, err := LoadRegionTree(cellsRec(env, deepChain(env, DefaultMaxDepth)))
	if err != nil {
		t.Fatalf("LoadRegionTree at the depth limit failed: %v", err)
	}
	if got := MaxTreeDepth(forest); got != DefaultMaxDepth {
		t.Errorf("MaxTreeDepth = %d, want %d", got, DefaultMaxDepth)
	}
	env.verify(t)

	env = &releaseTracker{}
	_, err = LoadRegionTree(cellsRec(env, deepChain(env, DefaultMaxDepth+1)))
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("LoadRegionTree past the limit error = %v, want %v", err, ErrMaxDepth)
	}
	env.verify(t)

	env = &releaseTracker{}
	_, err = LoadRegionTree(cellsRec(env, deepChain(env, 3)), WithMaxDepth(2))
	if !errors.Is(err, ErrMaxDepth) {
		t.Fatalf("LoadRegionTree with WithMaxDepth(2) error = %v, want %v", err, ErrMaxDepth)
	}
	env.verify(t)
}

// === IMAGE SIZE TESTS ===

func TestLoadImageSize(t *testing.T) {
	for _, ntype := range []NumericType{NumericInt32, NumericInt64} {
		t.Run(ntype.String(), func(t *testing.T) {
			rec := &fakeRecord{
				kind: KindNumeric, ntype: ntype,
				dims: []int{1, 3}, nbytes: 12, ints: []int64{480, 640, 480},
			}
			size, err := LoadImageSize(rec)
			if err != nil {
				t.Fatalf("LoadImageSize failed: %v", err)
			}
			if size.Rows != 480 || size.Cols != 640 || size.Stride != 480 {
				t.Errorf("size = %+v, want {480 640 480}", size)
			}
			if size.NumPixels() != 480*640 {
				t.Errorf("NumPixels = %d, want %d", size.NumPixels(), 480*640)
			}
		})
	}
}

func TestLoadImageSizeRejections(t *testing.T) {
	shapeRec := func(dims []int, cmplx bool, ntype NumericType) *fakeRecord {
		n := 1
		for _, d := range dims {
			n *= d
		}
		r := &fakeRecord{kind: KindNumeric, ntype: ntype, dims: dims, nbytes: 4 * n, cmplx: cmplx}
		if ntype == NumericDouble {
			r.floats = make([]float64, n)
		} else {
			r.ints = make([]int64, n)
		}
		return r
	}
	tests := []struct {
		name string
		rec  Record
		want error
	}{
		{"nil", nil, ErrMissingField},
		{"1x2", shapeRec([]int{1, 2}, false, NumericInt32), ErrInvalidShape},
		{"2x3", shapeRec([]int{2, 3}, false, NumericInt32), ErrInvalidShape},
		{"rank 3", shapeRec([]int{1, 3, 1}, false, NumericInt32), ErrInvalidShape},
		{"complex", shapeRec([]int{1, 3}, true, NumericInt32), ErrInvalidShape},
		{"double", shapeRec([]int{1, 3}, false, NumericDouble), ErrUnsupportedType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LoadImageSize(tt.rec); !errors.Is(err, tt.want) {
				t.Errorf("LoadImageSize error = %v, want %v", err, tt.want)
			}
		})
	}
}

// === RLE TESTS ===

func TestExpandRLE(t *testing.T) {
	out, err := ExpandRLE(rleRec(NumericInt32, []int64{2, 3}, []int64{7, 9}), ImageSize{Rows: 1, Cols: 5, Stride: 1})
	if err != nil {
		t.Fatalf("ExpandRLE failed: %v", err)
	}
	want := []uint64{7, 7, 9, 9, 9}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("output = %v, want %v", out, want)
	}
}

func TestExpandRLERoundTrip(t *testing.T) {
	runs := []int64{4, 1, 7, 3, 5}
	ids := []int64{3, 9, 2, 9, 1}
	size := ImageSize{Rows: 4, Cols: 5, Stride: 4}

	out, err := ExpandRLE(rleRec(NumericInt64, runs, ids), size)
	if err != nil {
		t.Fatalf("ExpandRLE failed: %v", err)
	}
	if len(out) != size.NumPixels() {
		t.Fatalf("output length = %d, want %d", len(out), size.NumPixels())
	}

	// Re-derive the run table by scanning for value changes.
	var gotRuns, gotIDs []int64
	for i := 0; i < len(out); {
		j := i
		for j < len(out) && out[j] == out[i] {
			j++
		}
		gotRuns = append(gotRuns, int64(j-i))
		gotIDs = append(gotIDs, int64(out[i]))
		i = j
	}
	if !reflect.DeepEqual(gotRuns, runs) {
		t.Errorf("recovered runs = %v, want %v", gotRuns, runs)
	}
	if !reflect.DeepEqual(gotIDs, ids) {
		t.Errorf("recovered ids = %v, want %v", gotIDs, ids)
	}
}

func TestExpandRLERejections(t *testing.T) {
	size := ImageSize{Rows: 1, Cols: 5, Stride: 1}
	threeCols := &fakeRecord{
		kind: KindNumeric, ntype: NumericInt32,
		dims: []int{5, 3}, nbytes: 60, ints: make([]int64, 15),
	}
	floatTable := &fakeRecord{
		kind: KindNumeric, ntype: NumericDouble,
		dims: []int{1, 2}, nbytes: 16, floats: []float64{5, 1},
	}
	complexTable := &fakeRecord{
		kind: KindNumeric, ntype: NumericInt32,
		dims: []int{1, 2}, nbytes: 8, ints: []int64{5, 1}, cmplx: true,
	}
	rank1 := &fakeRecord{
		kind: KindNumeric, ntype: NumericInt32,
		dims: []int{4}, nbytes: 16, ints: make([]int64, 4),
	}

	tests := []struct {
		name string
		rec  Record
		want error
	}{
		{"nil", nil, ErrMissingField},
		{"three columns", threeCols, ErrInvalidShape},
		{"rank 1", rank1, ErrInvalidShape},
		{"complex", complexTable, ErrInvalidShape},
		{"float", floatTable, ErrUnsupportedType},
		{"sum under", rleRec(NumericInt32, []int64{2, 2}, []int64{7, 9}), ErrInconsistentRLE},
		{"sum over", rleRec(NumericInt32, []int64{3, 3}, []int64{7, 9}), ErrInconsistentRLE},
		{"negative run", rleRec(NumericInt32, []int64{4, -1}, []int64{7, 9}), ErrInconsistentRLE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ExpandRLE(tt.rec, size); !errors.Is(err, tt.want) {
				t.Errorf("ExpandRLE error = %v, want %v", err, tt.want)
			}
		})
	}
}
