package store

import (
	"context"

	"github.com/doclave/doclave/internal/profile"
)

// Store provides database access to the knowledge base.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) ExistsDocument(ctx context.Context, collection, documentID string) (bool, error) {
	return s.driver.ExistsDocument(ctx, collection, documentID)
}

func (s *Store) InsertChunks(ctx context.Context, chunks []*Chunk) error {
	return s.driver.InsertChunks(ctx, chunks)
}

func (s *Store) VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*ScoredChunk, error) {
	return s.driver.VectorSearch(ctx, opts)
}

func (s *Store) ListChunks(ctx context.Context, find *FindChunk) ([]*Chunk, error) {
	return s.driver.ListChunks(ctx, find)
}

func (s *Store) DeleteChunks(ctx context.Context, delete *DeleteChunk) (int, error) {
	return s.driver.DeleteChunks(ctx, delete)
}

func (s *Store) Stats(ctx context.Context, collection string) (*KnowledgeStats, error) {
	return s.driver.Stats(ctx, collection)
}
