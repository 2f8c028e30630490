package matfile

import "go.uber.org/zap"

// MaxDims is the default maximum number of array dimensions accepted when
// parsing. Real MATLAB arrays rarely exceed a handful of dimensions.
const MaxDims = 32

// Option configures how a file is opened and parsed.
type Option func(*options)

type options struct {
	logger     *zap.Logger
	maxNesting int
	maxDims    int
}

func defaultOptions() *options {
	return &options{
		logger:     zap.NewNop(),
		maxNesting: MaxNesting,
		maxDims:    MaxDims,
	}
}

// WithLogger attaches a logger used for debug-level parse tracing.
// By default no output is produced.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxNesting sets the maximum depth of nested cell and struct arrays.
func WithMaxNesting(depth int) Option {
	return func(o *options) {
		if depth > 0 {
			o.maxNesting = depth
		}
	}
}

// WithMaxDims sets the maximum number of array dimensions accepted.
func WithMaxDims(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxDims = n
		}
	}
}
