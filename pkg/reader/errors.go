package reader

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is wrapped by causes that mean the object or its
	// container does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidPath is the cause for empty, absolute or traversing paths.
	ErrInvalidPath = errors.New("invalid path")

	// ErrContainerRequired is the cause when a backend needs a container
	// (bucket or repository) and none was given.
	ErrContainerRequired = errors.New("container is required")

	// ErrUnsupported signals that a backend does not implement an
	// operation. It is distinct from an empty result.
	ErrUnsupported = errors.New("operation not supported by backend")
)

// Compile-time interface check.
var _ error = (*ReadError)(nil)

// ReadError is the only failure returned by Reader operations. It carries
// the offending path and the underlying cause.
type ReadError struct {
	Backend string
	Path    string
	Err     error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf(
		"error fetching file [%s] from %s: %v", e.Path, e.Backend, e.Err,
	)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a read failure caused by a missing
// object or container.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// notFound wraps a backend specific cause with ErrNotFound.
func notFound(cause error) error {
	return fmt.Errorf("%w: %w", ErrNotFound, cause)
}
