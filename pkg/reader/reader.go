// Package reader fetches the complete byte content of objects from backend
// stores (local disk, S3, Google Cloud Storage, GitHub) behind a single
// Reader capability. Every backend failure is returned as a *ReadError.
//
// A Reader borrows the client handle it is constructed with and holds no
// mutable state between calls. It performs no retries, caching or internal
// concurrency; callers that want parallel reads issue them from their own
// goroutines.
package reader

import "context"

// Backend names.
const (
	BackendLocal  = "local"
	BackendS3     = "s3"
	BackendGCS    = "gcs"
	BackendGitHub = "github"
)

// Reader provides read access to objects stored in a backend.
type Reader interface {
	// Read returns the full content of the object at path. On failure it
	// returns a nil slice and a *ReadError.
	Read(ctx context.Context, path string, opts ...ReadOption) ([]byte, error)

	// ListTree returns the object paths below path. Backends without
	// traversal support return Unsupported() and a nil error.
	ListTree(ctx context.Context, path string, opts ...ReadOption) (Listing, error)

	// Backend returns the backend name, e.g. "s3".
	Backend() string
}
