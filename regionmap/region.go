package regionmap

// CompoundRegion groups the atomic superpixels that make up one segmentation
// unit. Identifier order is the encoding order from the container, not a
// semantic ordering.
type CompoundRegion struct {
	AtomicSuperpixels []uint64
}

// Size returns the number of atomic superpixels in the region.
func (r CompoundRegion) Size() int {
	return len(r.AtomicSuperpixels)
}

// HierarchicalRegion is one node of the multi-scale region tree: a compound
// region annotated with the spatial scale it was segmented at, holding the
// finer-scale regions nested inside it. Children are exclusively owned by
// their parent; the structure is a tree, never a DAG.
type HierarchicalRegion struct {
	CompoundRegion
	Scale    float64
	Children []*HierarchicalRegion
}

// ImageSize holds the pixel grid dimensions of the segmented image.
type ImageSize struct {
	Rows   int
	Cols   int
	Stride int
}

// NumPixels returns Rows*Cols, the length of a dense label map.
func (s ImageSize) NumPixels() int {
	return s.Rows * s.Cols
}
