package ingest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/plugin/parser"
	"github.com/doclave/doclave/server/internal/errors"
	"github.com/doclave/doclave/store"
	"github.com/doclave/doclave/store/db/sqlite"
)

func newTestIngestor(t *testing.T) (*Ingestor, *store.Store, *ai.MockEmbeddingService) {
	t.Helper()
	p := &profile.Profile{
		Mode:         "dev",
		Driver:       "sqlite",
		DSN:          filepath.Join(t.TempDir(), "doclave_test.db"),
		Collection:   "compliance_kb",
		ChunkSize:    100,
		ChunkOverlap: 20,
	}
	driver, err := sqlite.NewDB(p)
	require.NoError(t, err)
	s := store.New(driver, p)
	t.Cleanup(func() { s.Close() })

	embedder := ai.NewMockEmbeddingService(8)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewIngestor(s, embedder, p, logger), s, embedder
}

func testDocument() *parser.ParsedDocument {
	doc := &parser.ParsedDocument{
		Sections: []parser.Section{
			{Title: "Purpose", Body: "This SOP defines cleaning procedures for production equipment."},
			{Title: "Scope", Body: "Applies to all manufacturing areas."},
		},
		FullText: "Document ID: SOP-001\nThis SOP defines cleaning procedures for production equipment.\nApplies to all manufacturing areas.",
	}
	doc.Metadata.DocumentID = "SOP-001"
	return doc
}

func TestIngestDocumentStored(t *testing.T) {
	in, s, _ := newTestIngestor(t)
	ctx := context.Background()

	result, err := in.IngestDocument(ctx, "sop_cleaning.txt", testDocument())
	require.NoError(t, err)
	require.Equal(t, StatusStored, result.Status)
	require.NotEmpty(t, result.DocumentID)
	require.Len(t, result.ContentHash, 16)
	require.Positive(t, result.FullTextChunks)
	require.Equal(t, 2, result.SectionChunks)
	require.Equal(t, result.FullTextChunks+result.SectionChunks, result.ChunkCount)

	chunks, err := s.ListChunks(ctx, &store.FindChunk{Collection: "compliance_kb"})
	require.NoError(t, err)
	require.Len(t, chunks, result.ChunkCount)
	for _, c := range chunks {
		require.Len(t, c.Embedding, 8)
		require.Equal(t, result.DocumentID, c.DocumentID)
		require.Equal(t, "sop_cleaning.txt", c.Filename)
	}
}

func TestIngestDocumentIdempotent(t *testing.T) {
	in, s, _ := newTestIngestor(t)
	ctx := context.Background()

	first, err := in.IngestDocument(ctx, "sop.txt", testDocument())
	require.NoError(t, err)
	require.Equal(t, StatusStored, first.Status)

	second, err := in.IngestDocument(ctx, "sop.txt", testDocument())
	require.NoError(t, err)
	require.Equal(t, StatusAlreadyExists, second.Status)
	require.Equal(t, first.DocumentID, second.DocumentID)
	require.Zero(t, second.ChunkCount)

	chunks, err := s.ListChunks(ctx, &store.FindChunk{Collection: "compliance_kb"})
	require.NoError(t, err)
	require.Len(t, chunks, first.ChunkCount)
}

func TestIngestIdentitySensitivity(t *testing.T) {
	in, _, _ := newTestIngestor(t)
	ctx := context.Background()

	base, err := in.IngestDocument(ctx, "sop.txt", testDocument())
	require.NoError(t, err)

	// Same content under another filename is a distinct identity.
	renamed, err := in.IngestDocument(ctx, "sop_v2.txt", testDocument())
	require.NoError(t, err)
	require.Equal(t, StatusStored, renamed.Status)
	require.NotEqual(t, base.DocumentID, renamed.DocumentID)

	// Changed content under the same filename is a distinct identity.
	changed := testDocument()
	changed.FullText += "\nNew revision paragraph."
	edited, err := in.IngestDocument(ctx, "sop.txt", changed)
	require.NoError(t, err)
	require.Equal(t, StatusStored, edited.Status)
	require.NotEqual(t, base.DocumentID, edited.DocumentID)
	require.NotEqual(t, base.ContentHash, edited.ContentHash)
}

func TestIngestEmptyDocumentFails(t *testing.T) {
	in, _, _ := newTestIngestor(t)

	result, err := in.IngestDocument(context.Background(), "empty.txt", &parser.ParsedDocument{})
	require.Error(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.True(t, errors.IsCode(err, errors.ErrCodeInvalidArgument))
}

func TestIngestEmbeddingFailurePublishesNothing(t *testing.T) {
	in, s, embedder := newTestIngestor(t)
	ctx := context.Background()

	embedder.Err = errors.EmbeddingFailed("provider down", nil)

	result, err := in.IngestDocument(ctx, "sop.txt", testDocument())
	require.Error(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.True(t, errors.IsCode(err, errors.ErrCodeEmbeddingFailed))

	chunks, err := s.ListChunks(ctx, &store.FindChunk{Collection: "compliance_kb"})
	require.NoError(t, err)
	require.Empty(t, chunks)

	// The failed attempt must not block a retry.
	embedder.Err = nil
	result, err = in.IngestDocument(ctx, "sop.txt", testDocument())
	require.NoError(t, err)
	require.Equal(t, StatusStored, result.Status)
}

func TestIngestConcurrentSameDocument(t *testing.T) {
	in, s, _ := newTestIngestor(t)
	ctx := context.Background()

	const workers = 8
	results := make([]*Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := in.IngestDocument(ctx, "sop.txt", testDocument())
			require.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	stored := 0
	for _, r := range results {
		if r.Status == StatusStored {
			stored++
		} else {
			require.Equal(t, StatusAlreadyExists, r.Status)
		}
	}
	require.Equal(t, 1, stored)

	chunks, err := s.ListChunks(ctx, &store.FindChunk{Collection: "compliance_kb"})
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	seen := map[string]bool{}
	for _, c := range chunks {
		require.False(t, seen[c.ID], "duplicate chunk id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestIngestFileUnsupportedFormat(t *testing.T) {
	in, _, _ := newTestIngestor(t)

	result, err := in.IngestFile(context.Background(), "report.docx", []byte("data"))
	require.Error(t, err)
	require.Equal(t, StatusFailed, result.Status)
	require.True(t, errors.IsCode(err, errors.ErrCodeDecodeUnavailable))
}

func TestIngestFilePlainText(t *testing.T) {
	in, _, _ := newTestIngestor(t)

	content := "Document ID: SOP-007\nVersion: 1.0\n\nPurpose\nDefines procedures.\n"
	result, err := in.IngestFile(context.Background(), "sop.txt", []byte(content))
	require.NoError(t, err)
	require.Equal(t, StatusStored, result.Status)
	require.NotNil(t, result.Metadata)
	require.Equal(t, "SOP-007", result.Metadata.DocumentID)
}

func TestContentFingerprintAndIdentity(t *testing.T) {
	hash := ContentFingerprint("some full text")
	require.Len(t, hash, 16)
	require.Equal(t, hash, ContentFingerprint("some full text"))
	require.NotEqual(t, hash, ContentFingerprint("other text"))

	id := DocumentIdentity("sop.pdf", hash)
	require.Len(t, id, 32)
	require.Equal(t, id, DocumentIdentity("sop.pdf", hash))
	require.NotEqual(t, id, DocumentIdentity("other.pdf", hash))
}
