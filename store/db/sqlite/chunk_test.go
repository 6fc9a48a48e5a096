package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/store"
)

func newTestDB(t *testing.T) store.Driver {
	t.Helper()
	p := &profile.Profile{
		Mode:   "dev",
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "doclave_test.db"),
	}
	driver, err := NewDB(p)
	require.NoError(t, err)
	t.Cleanup(func() { driver.Close() })
	return driver
}

func testChunks(docID string) []*store.Chunk {
	return []*store.Chunk{
		{
			ID:          docID + "_full_0",
			Collection:  "compliance_kb",
			DocumentID:  docID,
			Filename:    "sop_cleaning.pdf",
			ContentHash: "abcd1234abcd1234",
			Type:        store.ChunkTypeFullText,
			Position:    0,
			Text:        "Equipment must be cleaned after each use.",
			Embedding:   []float32{1, 0, 0},
			CreatedTs:   100,
		},
		{
			ID:          docID + "_section_Purpose_0",
			Collection:  "compliance_kb",
			DocumentID:  docID,
			Filename:    "sop_cleaning.pdf",
			ContentHash: "abcd1234abcd1234",
			Type:        store.ChunkTypeSection,
			Section:     "Purpose",
			Position:    0,
			Text:        "This SOP defines cleaning procedures.",
			Embedding:   []float32{0, 1, 0},
			CreatedTs:   100,
		},
	}
}

func TestInsertAndExists(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	exists, err := d.ExistsDocument(ctx, "compliance_kb", "doc1")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))

	exists, err = d.ExistsDocument(ctx, "compliance_kb", "doc1")
	require.NoError(t, err)
	require.True(t, exists)

	// Same document in another collection is independent.
	exists, err = d.ExistsDocument(ctx, "other_kb", "doc1")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestInsertDuplicateDocument(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))
	err := d.InsertChunks(ctx, testChunks("doc1"))
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	// No duplicate rows got through.
	chunks, err := d.ListChunks(ctx, &store.FindChunk{Collection: "compliance_kb"})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
}

func TestVectorSearchOrdering(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))

	results, err := d.VectorSearch(ctx, &store.VectorSearchOptions{
		Collection: "compliance_kb",
		Vector:     []float32{1, 0, 0},
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "doc1_full_0", results[0].Chunk.ID)
	require.InDelta(t, 1.0, float64(results[0].Score), 1e-6)
	require.InDelta(t, 0.0, float64(results[1].Score), 1e-6)
}

func TestVectorSearchFilters(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))

	results, err := d.VectorSearch(ctx, &store.VectorSearchOptions{
		Collection: "compliance_kb",
		Vector:     []float32{1, 0, 0},
		Type:       store.ChunkTypeSection,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, store.ChunkTypeSection, results[0].Chunk.Type)

	results, err = d.VectorSearch(ctx, &store.VectorSearchOptions{
		Collection: "compliance_kb",
		Vector:     []float32{1, 0, 0},
		DocumentID: "missing",
	})
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestVectorSearchLimit(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))

	results, err := d.VectorSearch(ctx, &store.VectorSearchOptions{
		Collection: "compliance_kb",
		Vector:     []float32{1, 0, 0},
		Limit:      1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestListChunksRoundtrip(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))

	docID := "doc1"
	chunks, err := d.ListChunks(ctx, &store.FindChunk{Collection: "compliance_kb", DocumentID: &docID})
	require.NoError(t, err)
	require.Len(t, chunks, 2)

	// full_text sorts before section.
	require.Equal(t, store.ChunkTypeFullText, chunks[0].Type)
	require.Equal(t, []float32{1, 0, 0}, chunks[0].Embedding)
	require.Equal(t, "Purpose", chunks[1].Section)
	require.Equal(t, []float32{0, 1, 0}, chunks[1].Embedding)
}

func TestDeleteChunks(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))
	require.NoError(t, d.InsertChunks(ctx, testChunks("doc2")))

	n, err := d.DeleteChunks(ctx, &store.DeleteChunk{Collection: "compliance_kb", DocumentID: "doc1"})
	require.NoError(t, err)
	require.Equal(t, 2, n)

	exists, err := d.ExistsDocument(ctx, "compliance_kb", "doc1")
	require.NoError(t, err)
	require.False(t, exists)

	exists, err = d.ExistsDocument(ctx, "compliance_kb", "doc2")
	require.NoError(t, err)
	require.True(t, exists)

	n, err = d.DeleteChunks(ctx, &store.DeleteChunk{Collection: "compliance_kb", DocumentID: "doc1"})
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestStats(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()

	stats, err := d.Stats(ctx, "compliance_kb")
	require.NoError(t, err)
	require.Zero(t, stats.TotalChunks)
	require.Zero(t, stats.DocumentCount)

	require.NoError(t, d.InsertChunks(ctx, testChunks("doc1")))
	require.NoError(t, d.InsertChunks(ctx, testChunks("doc2")))

	stats, err = d.Stats(ctx, "compliance_kb")
	require.NoError(t, err)
	require.Equal(t, 4, stats.TotalChunks)
	require.Equal(t, 2, stats.DocumentCount)
	require.Len(t, stats.Documents, 2)
	require.Equal(t, 1, stats.Documents[0].FullTextChunks)
	require.Equal(t, 1, stats.Documents[0].SectionChunks)
	require.Equal(t, map[string]int{
		string(store.ChunkTypeFullText): 2,
		string(store.ChunkTypeSection):  2,
	}, stats.ChunkTypeCounts)
}

func TestFloat32Roundtrip(t *testing.T) {
	vec := []float32{0.25, -1.5, 3.14159, 0}
	require.Equal(t, vec, bytesToFloat32Slice(float32SliceToBytes(vec)))
	require.Empty(t, bytesToFloat32Slice(nil))
}

func TestCosineSimilarity(t *testing.T) {
	require.InDelta(t, 1.0, float64(cosineSimilarity([]float32{1, 2}, []float32{2, 4})), 1e-6)
	require.InDelta(t, 0.0, float64(cosineSimilarity([]float32{1, 0}, []float32{0, 1})), 1e-6)
	require.InDelta(t, -1.0, float64(cosineSimilarity([]float32{1, 0}, []float32{-1, 0})), 1e-6)
	require.Zero(t, cosineSimilarity([]float32{1}, []float32{1, 2}))
	require.Zero(t, cosineSimilarity(nil, nil))
}
