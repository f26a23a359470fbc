// Package vectorstore persists embedded passages into named collections of
// a document/vector store with overwrite-on-duplicate semantics.
package vectorstore

import (
	"context"

	"docindex/internal/index_service/pipeline/schema"
)

// Store is the interface the pipeline's terminal node writes through.
type Store interface {
	// EnsureCollection makes sure the named collection exists with the
	// given vector dimension before any write.
	EnsureCollection(ctx context.Context, name string, dim int) error

	// Upsert writes documents into the collection. A document whose ID
	// matches an existing one replaces it rather than creating a second
	// copy.
	Upsert(ctx context.Context, collection string, docs []*schema.Document) error
}
