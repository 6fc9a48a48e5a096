package store

import (
	"github.com/pkg/errors"
)

// ChunkType identifies which chunk family a chunk belongs to.
type ChunkType string

const (
	// ChunkTypeFullText is a chunk of the document's whole text.
	ChunkTypeFullText ChunkType = "full_text"
	// ChunkTypeSection is a chunk of a single section's body.
	ChunkTypeSection ChunkType = "section"
)

// ErrAlreadyExists is returned when inserting chunks for a document
// identity that is already published in the collection.
var ErrAlreadyExists = errors.New("document already exists in collection")

// Chunk is one embedded text fragment of an ingested document.
type Chunk struct {
	// ID is deterministic per document identity, chunk family, and
	// position, e.g. "a1b2_full_0" or "a1b2_section_Purpose_1".
	ID          string
	Collection  string
	DocumentID  string
	Filename    string
	ContentHash string
	Type        ChunkType
	// Section is the owning section title for section chunks, empty
	// for full-text chunks.
	Section   string
	Position  int
	Text      string
	Embedding []float32
	CreatedTs int64
}

// ScoredChunk pairs a chunk with its similarity score in [0, 1],
// higher is more similar.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// VectorSearchOptions controls a similarity query.
type VectorSearchOptions struct {
	Collection string
	Vector     []float32
	Limit      int

	// DocumentID restricts results to one document when set.
	DocumentID string
	// Type restricts results to one chunk family when set.
	Type ChunkType
}

// FindChunk filters chunk listings.
type FindChunk struct {
	Collection string
	DocumentID *string
	Type       *ChunkType
	Section    *string
}

// DeleteChunk identifies the chunks to remove.
type DeleteChunk struct {
	Collection string
	DocumentID string
}

// DocumentStats summarizes one published document.
type DocumentStats struct {
	DocumentID     string `json:"documentId"`
	Filename       string `json:"filename"`
	ContentHash    string `json:"contentHash"`
	ChunkCount     int    `json:"chunkCount"`
	FullTextChunks int    `json:"fullTextChunks"`
	SectionChunks  int    `json:"sectionChunks"`
}

// KnowledgeStats summarizes a collection.
type KnowledgeStats struct {
	Collection      string           `json:"collection"`
	TotalChunks     int              `json:"totalChunks"`
	DocumentCount   int              `json:"documentCount"`
	ChunkTypeCounts map[string]int   `json:"chunkTypeCounts"`
	Documents       []*DocumentStats `json:"documents"`
}
