package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// ExistsDocument reports whether any chunk for the document
	// identity is published in the collection.
	ExistsDocument(ctx context.Context, collection, documentID string) (bool, error)

	// InsertChunks publishes all chunks in one transaction. If the
	// document identity is already published it returns
	// ErrAlreadyExists and writes nothing.
	InsertChunks(ctx context.Context, chunks []*Chunk) error

	// VectorSearch returns the chunks nearest to the query vector,
	// most similar first.
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*ScoredChunk, error)

	// ListChunks lists chunks matching the filter, ordered by chunk
	// type, section, then position.
	ListChunks(ctx context.Context, find *FindChunk) ([]*Chunk, error)

	// DeleteChunks removes a document's chunks and returns how many
	// were removed.
	DeleteChunks(ctx context.Context, delete *DeleteChunk) (int, error)

	// Stats summarizes a collection.
	Stats(ctx context.Context, collection string) (*KnowledgeStats, error)
}
