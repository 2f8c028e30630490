// regioninfo prints the contents of a multi-scale segmentation container:
// the variable directory, the image dimensions, run statistics of the atomic
// region map, and a summary of the region hierarchy.
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/JohannaYH/multi-scale-label-map-extraction/matfile"
	"github.com/JohannaYH/multi-scale-label-map-extraction/regionmap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		treeName string
		maxDepth int
		dumpTree bool
		verbose  bool
	)

	flags := pflag.NewFlagSet("regioninfo", pflag.ContinueOnError)
	flags.StringVar(&treeName, "tree-var", "", "region tree variable (default: the only cell array)")
	flags.IntVar(&maxDepth, "max-depth", regionmap.DefaultMaxDepth, "maximum region tree depth")
	flags.BoolVar(&dumpTree, "tree", false, "print the full region hierarchy")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log the container parse at debug level")
	flags.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: regioninfo [flags] <file.mat>")
		flags.PrintDefaults()
	}

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return fmt.Errorf("expected one segmentation file argument")
	}

	var matOpts []matfile.Option
	if verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		defer logger.Sync()
		matOpts = append(matOpts, matfile.WithLogger(logger))
	}

	f, err := matfile.Open(flags.Arg(0), matOpts...)
	if err != nil {
		return err
	}
	defer f.Close()

	printDirectory(f)

	opts := []regionmap.Option{regionmap.WithMaxDepth(maxDepth)}
	if treeName != "" {
		opts = append(opts, regionmap.WithTreeVariable(treeName))
	}
	m, err := regionmap.Decode(f, opts...)
	if err != nil {
		return err
	}

	printSummary(m)
	if dumpTree {
		fmt.Println()
		printTree(m.Regions)
	}
	return nil
}

func printDirectory(f *matfile.File) {
	hdr := f.Header()
	dir := f.Dir()
	fmt.Printf("=== %s ===\n", f.Path())
	fmt.Printf("%s\n", hdr.Text)
	fmt.Printf("Level 5 MAT-file, %v byte order, %d variables\n\n", hdr.ByteOrder, len(dir))

	for _, info := range dir {
		line := fmt.Sprintf("  %-24s %-8v %-12s %d bytes", info.Name, info.Class, dimsString(info.Dims), info.Bytes)
		if info.Compressed {
			line += " (compressed)"
		}
		fmt.Println(line)
	}
	fmt.Println()
}

func printSummary(m *regionmap.SegmentationMap) {
	fmt.Printf("Image: %d x %d pixels, row stride %d\n", m.Size.Rows, m.Size.Cols, m.Size.Stride)

	runs, distinct := atomicStats(m.AtomicRegions)
	fmt.Printf("Atomic map: %d pixels in %d runs, %d distinct regions\n", len(m.AtomicRegions), runs, distinct)

	fmt.Printf("Forest: %d top-level regions, %d nodes, depth %d\n",
		len(m.Regions), regionmap.NodeCount(m.Regions), regionmap.MaxTreeDepth(m.Regions))
	counts := make(map[float64]int)
	regionmap.Walk(m.Regions, func(r, _ *regionmap.HierarchicalRegion, _ int) error {
		counts[r.Scale]++
		return nil
	})
	for _, s := range regionmap.Scales(m.Regions) {
		fmt.Printf("  scale %g: %d regions\n", s, counts[s])
	}
}

func printTree(forest []*regionmap.HierarchicalRegion) {
	fmt.Println("Region hierarchy:")
	regionmap.Walk(forest, func(r, _ *regionmap.HierarchicalRegion, depth int) error {
		fmt.Printf("%*sscale %g: %d superpixels\n", 2*depth+2, "", r.Scale, r.Size())
		return nil
	})
}

// atomicStats counts the value runs and distinct identifiers of the dense
// atomic region map.
func atomicStats(pixels []uint64) (runs, distinct int) {
	seen := make(map[uint64]struct{})
	for i, id := range pixels {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			distinct++
		}
		if i == 0 || pixels[i-1] != id {
			runs++
		}
	}
	return runs, distinct
}

func dimsString(dims []int) string {
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}
