package regionmap

// Option configures tree loading and container decoding.
type Option func(*options)

type options struct {
	maxDepth int
	treeVar  string
}

func defaultOptions() options {
	return options{maxDepth: DefaultMaxDepth}
}

// WithMaxDepth caps the recursion depth of region tree loading.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxDepth = depth
		}
	}
}

// WithTreeVariable names the container variable holding the region forest,
// overriding autodetection.
func WithTreeVariable(name string) Option {
	return func(o *options) {
		o.treeVar = name
	}
}
