package storage

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by DownloadText when the object does not
// exist. Callers treat it as "no state yet", not as a transient failure.
var ErrObjectNotFound = errors.New("storage: object not found")

// BlobStorage is the object-store collaborator the pipeline is built
// against. Implementations must be safe for concurrent use.
type BlobStorage interface {
	// ListPaths returns every object path under the given prefix.
	ListPaths(ctx context.Context, prefix string) ([]string, error)
	// DownloadText returns the full text content of an object.
	// Returns ErrObjectNotFound (possibly wrapped) when the object is absent.
	DownloadText(ctx context.Context, path string) (string, error)
	// UploadText replaces the object at path wholesale.
	UploadText(ctx context.Context, path, content, contentType string) error
	// Exists reports whether an object is present at path.
	Exists(ctx context.Context, path string) (bool, error)
}
