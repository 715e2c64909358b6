package reader

// Listing is the result of ListTree: either the paths below a prefix or
// the marker that the backend cannot traverse. An unsupported listing is
// never the same thing as an empty one.
type Listing struct {
	paths     []string
	supported bool
}

// Supported returns a listing of paths. A nil slice is normalized to an
// empty one so a supported listing is never confused with Unsupported.
func Supported(paths []string) Listing {
	if paths == nil {
		paths = []string{}
	}

	return Listing{paths: paths, supported: true}
}

// Unsupported returns the listing of a backend without traversal support.
func Unsupported() Listing {
	return Listing{}
}

// IsSupported reports whether the backend produced a listing.
func (l Listing) IsSupported() bool {
	return l.supported
}

// Paths returns the listed paths, or nil when unsupported.
func (l Listing) Paths() []string {
	return l.paths
}

// Result returns the paths, or ErrUnsupported for backends that cannot
// list.
func (l Listing) Result() ([]string, error) {
	if !l.supported {
		return nil, ErrUnsupported
	}

	return l.paths, nil
}
