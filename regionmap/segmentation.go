package regionmap

import (
	"errors"
	"fmt"

	"github.com/JohannaYH/multi-scale-label-map-extraction/matfile"
)

// SegmentationMap is the fully loaded content of one segmentation container:
// the image dimensions, the dense per-pixel map of atomic region ids, and
// the multi-scale region forest.
type SegmentationMap struct {
	Size          ImageSize
	AtomicRegions []uint64
	Regions       []*HierarchicalRegion
}

// Load opens a segmentation container and decodes its content.
func Load(path string, opts ...Option) (*SegmentationMap, error) {
	f, err := matfile.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f, opts...)
}

// Decode loads the image size, the atomic region map, and the region forest
// from an opened container. The forest variable is autodetected unless named
// with WithTreeVariable.
func Decode(f *matfile.File, opts ...Option) (*SegmentationMap, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	shape, err := optionalVar(f, varImageShape)
	if err != nil {
		return nil, err
	}
	size, err := LoadImageSize(NewRecord(shape))
	if err != nil {
		return nil, err
	}

	rle, err := optionalVar(f, varRLE)
	if err != nil {
		return nil, err
	}
	atomic, err := ExpandRLE(NewRecord(rle), size)
	if err != nil {
		return nil, err
	}

	treeName := o.treeVar
	if treeName == "" {
		treeName, err = findTreeVariable(f)
		if err != nil {
			return nil, err
		}
	}
	tree, err := f.Var(treeName)
	if err != nil {
		return nil, fmt.Errorf("reading tree variable: %w", err)
	}
	forest, err := LoadRegionTree(NewRecord(tree), WithMaxDepth(o.maxDepth))
	if err != nil {
		return nil, err
	}

	return &SegmentationMap{Size: size, AtomicRegions: atomic, Regions: forest}, nil
}

// optionalVar reads a variable, mapping "not found" to nil so the loaders
// report their own missing-field errors.
func optionalVar(f *matfile.File, name string) (*matfile.Variable, error) {
	v, err := f.Var(name)
	if errors.Is(err, matfile.ErrVarNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// findTreeVariable picks the region forest variable. Containers store the
// forest under a scene-dependent name, but it is the only top-level cell
// array.
func findTreeVariable(f *matfile.File) (string, error) {
	var name string
	n := 0
	for _, info := range f.Dir() {
		if info.Class == matfile.ClassCell {
			name = info.Name
			n++
		}
	}
	switch n {
	case 1:
		return name, nil
	case 0:
		return "", fmt.Errorf("no cell-array variable holds the region tree: %w", ErrMissingField)
	default:
		return "", fmt.Errorf("%d cell-array variables are candidate region trees, name one with WithTreeVariable: %w",
			n, ErrInvalidStructure)
	}
}
