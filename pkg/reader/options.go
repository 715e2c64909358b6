package reader

// ReadOptions are the per-call parameters of a read.
type ReadOptions struct {
	// Container is the top-level namespace the path is resolved within:
	// a bucket for object stores, "owner/repo" for GitHub, an optional
	// sub-directory for local readers.
	Container string

	// Verbose logs full diagnostic detail to the reader's logger when a
	// read fails. It never changes the returned error.
	Verbose bool
}

// ReadOption configures a single call.
type ReadOption func(*ReadOptions)

// WithContainer sets the container for a call.
func WithContainer(container string) ReadOption {
	return func(o *ReadOptions) {
		o.Container = container
	}
}

// WithVerbose toggles diagnostic logging on failure.
func WithVerbose(verbose bool) ReadOption {
	return func(o *ReadOptions) {
		o.Verbose = verbose
	}
}

// defaultOptions returns options with Verbose enabled.
func defaultOptions() ReadOptions {
	return ReadOptions{Verbose: true}
}

// resolve applies defaults and then per-call options. An empty container
// from a call does not clear a configured default.
func resolve(defaults ReadOptions, opts []ReadOption) ReadOptions {
	o := defaults

	for _, opt := range opts {
		opt(&o)
	}

	if o.Container == "" {
		o.Container = defaults.Container
	}

	return o
}

// buildDefaults folds constructor options over defaultOptions.
func buildDefaults(opts []ReadOption) ReadOptions {
	o := defaultOptions()

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
