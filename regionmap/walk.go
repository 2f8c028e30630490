package regionmap

import "errors"

// ErrStopWalk can be returned from a WalkFunc to stop walking early without
// reporting an error.
var ErrStopWalk = errors.New("walk stopped")

// WalkFunc is called for each region during traversal.
// parent is nil for top-level regions. depth is 0 for top-level regions and
// grows by one per nesting level.
// Return nil to continue walking, ErrStopWalk to stop early, or any other
// error to stop and propagate it.
type WalkFunc func(r, parent *HierarchicalRegion, depth int) error

// Walk traverses the forest depth-first. Siblings are visited in array
// order, each region before its children.
//
// Example:
//
//	regionmap.Walk(m.Regions, func(r, _ *regionmap.HierarchicalRegion, depth int) error {
//	    fmt.Printf("%*sscale %g: %d superpixels\n", 2*depth, "", r.Scale, r.Size())
//	    return nil
//	})
func Walk(forest []*HierarchicalRegion, fn WalkFunc) error {
	err := walk(forest, nil, 0, fn)
	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

func walk(nodes []*HierarchicalRegion, parent *HierarchicalRegion, depth int, fn WalkFunc) error {
	for _, n := range nodes {
		if err := fn(n, parent, depth); err != nil {
			return err
		}
		if err := walk(n.Children, n, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// NodeCount returns the total number of regions in the forest.
func NodeCount(forest []*HierarchicalRegion) int {
	n := 0
	Walk(forest, func(*HierarchicalRegion, *HierarchicalRegion, int) error {
		n++
		return nil
	})
	return n
}

// MaxTreeDepth returns the nesting depth of the forest: 1 for a flat forest,
// 0 for an empty one.
func MaxTreeDepth(forest []*HierarchicalRegion) int {
	max := 0
	Walk(forest, func(_, _ *HierarchicalRegion, depth int) error {
		if depth+1 > max {
			max = depth + 1
		}
		return nil
	})
	return max
}

// Scales returns the distinct scale values of the forest in order of first
// appearance, which for well-formed files runs coarse to fine.
func Scales(forest []*HierarchicalRegion) []float64 {
	var scales []float64
	seen := make(map[float64]bool)
	Walk(forest, func(r, _ *HierarchicalRegion, _ int) error {
		if !seen[r.Scale] {
			seen[r.Scale] = true
			scales = append(scales, r.Scale)
		}
		return nil
	})
	return scales
}
