// Package handlers provides the persistence boundaries for evaluated content:
// a git-backed content store for versioned records and a cloud object store
// for bulk artifacts.
package handlers

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by content stores when the requested record does
// not exist at the given revision.
var ErrNotFound = errors.New("content not found")

// ContentStore persists versioned records of evaluated samples. Put returns
// an opaque revision identifier that Get accepts to read the record back.
type ContentStore interface {
	// Get reads the file at path as of the given revision. An empty revision
	// means the latest on the default branch.
	Get(ctx context.Context, revision, path string) ([]byte, error)
	// Put writes content under folder/key with the given extension and
	// returns the new revision identifier.
	Put(ctx context.Context, content []byte, folder, ext, key, branch string) (string, error)
}

// ObjectStore persists bulk artifacts (model weights, datasets) under a
// bucket. Implementations infer the content type from the key's extension.
type ObjectStore interface {
	// Put uploads data under key. When public is set the object is readable
	// without credentials.
	Put(ctx context.Context, key string, data []byte, public bool) error
	// Get downloads the object at key. The bool reports whether it existed.
	Get(ctx context.Context, key string) ([]byte, bool, error)
}
