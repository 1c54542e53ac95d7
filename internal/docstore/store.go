// Package docstore provides the document collections the dashboard mirrors.
// A Store keeps schemaless documents grouped in named collections and
// supports a standing live query that pushes the full result set whenever
// the collection changes.
package docstore

import (
	"context"
	"errors"
)

// Backend names accepted by STORE_BACKEND.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

var (
	ErrNotFound       = errors.New("document not found")
	ErrEmptyUpdate    = errors.New("update has no fields")
	ErrUnknownBackend = errors.New("unknown document store backend")
)

// Document is one stored record. ID is assigned by the store and is never
// part of Data.
type Document struct {
	ID   string
	Data map[string]interface{}
}

// Snapshot is the complete content of a collection at one point in time.
// A snapshot carrying Err is the last one delivered on its stream.
type Snapshot struct {
	Documents []Document
	Err       error
}

// Store is implemented by every backend.
type Store interface {
	// Watch starts a live query on collection. The first snapshot is
	// delivered as soon as the collection has been read; later snapshots
	// follow every change. The channel is closed after ctx is cancelled or
	// after a snapshot carrying an error.
	Watch(ctx context.Context, collection string) (<-chan Snapshot, error)

	// Add writes a new document and returns its store-assigned id.
	Add(ctx context.Context, collection string, data map[string]interface{}) (string, error)

	// Update sets the fields in set and removes the fields named in clear,
	// leaving every other field untouched. It fails with ErrNotFound when
	// the document does not exist.
	Update(ctx context.Context, collection, id string, set map[string]interface{}, clear []string) error

	// Delete removes the document, failing with ErrNotFound when it does
	// not exist.
	Delete(ctx context.Context, collection, id string) error

	Close() error
}

func copyData(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// send delivers s unless ctx is done first.
func send(ctx context.Context, out chan<- Snapshot, s Snapshot) bool {
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	}
}
