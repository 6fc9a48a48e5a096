// Package ingest turns regulated documents into embedded, retrievable
// chunks. Ingestion is idempotent per document identity: the same
// filename and content never publish twice.
package ingest

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goerrors "github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/plugin/chunker"
	"github.com/doclave/doclave/plugin/decoder"
	"github.com/doclave/doclave/plugin/parser"
	"github.com/doclave/doclave/server/internal/errors"
	"github.com/doclave/doclave/server/internal/observability"
	"github.com/doclave/doclave/store"
)

// Status reports the outcome of one ingestion.
type Status string

const (
	// StatusStored means all chunks were published.
	StatusStored Status = "stored"
	// StatusAlreadyExists means the document identity was already published.
	StatusAlreadyExists Status = "already_exists"
	// StatusFailed means nothing was published.
	StatusFailed Status = "failed"
)

// embedBatchSize is how many chunk texts go into one embedding request.
const embedBatchSize = 32

// embedConcurrency bounds parallel embedding requests per document.
const embedConcurrency = 4

// Result describes the outcome of ingesting one document.
type Result struct {
	DocumentID     string           `json:"documentId"`
	ContentHash    string           `json:"contentHash"`
	Filename       string           `json:"filename"`
	Status         Status           `json:"status"`
	ChunkCount     int              `json:"chunkCount"`
	FullTextChunks int              `json:"fullTextChunks"`
	SectionChunks  int              `json:"sectionChunks"`
	Metadata       *parser.Metadata `json:"metadata,omitempty"`
}

// Ingestor orchestrates decode, segmentation, chunking, embedding, and
// publication.
type Ingestor struct {
	store    *store.Store
	embedder ai.EmbeddingService
	profile  *profile.Profile
	logger   *slog.Logger

	// locks serializes ingestion per document identity so concurrent
	// submissions of the same document cannot race the existence check.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIngestor creates a new Ingestor.
func NewIngestor(s *store.Store, embedder ai.EmbeddingService, p *profile.Profile, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		store:    s,
		embedder: embedder,
		profile:  p,
		logger:   logger,
		locks:    make(map[string]*sync.Mutex),
	}
}

// ContentFingerprint returns the first 16 hex characters of the
// SHA-256 of the full text.
func ContentFingerprint(fullText string) string {
	sum := sha256.Sum256([]byte(fullText))
	return hex.EncodeToString(sum[:])[:16]
}

// DocumentIdentity derives the stable document ID from filename and
// content fingerprint.
func DocumentIdentity(filename, contentHash string) string {
	sum := md5.Sum([]byte(filename + "_" + contentHash))
	return hex.EncodeToString(sum[:])
}

// IngestFile decodes raw bytes and ingests the resulting document.
func (in *Ingestor) IngestFile(ctx context.Context, filename string, content []byte) (*Result, error) {
	decoded, err := decoder.Decode(filename, content)
	if err != nil {
		return &Result{Filename: filename, Status: StatusFailed},
			errors.DecodeUnavailable(fmt.Sprintf("cannot decode %s", filename), err)
	}

	doc := parser.Segment(decoded.Blocks, decoded.Styled)
	doc.Metadata.PageCount = decoded.PageCount
	return in.IngestDocument(ctx, filename, doc)
}

// IngestDocument embeds and publishes a segmented document.
func (in *Ingestor) IngestDocument(ctx context.Context, filename string, doc *parser.ParsedDocument) (*Result, error) {
	reqCtx := observability.NewRequestContext(ctx, in.logger, "ingest", in.profile.Collection)
	observability.GlobalMetrics().RecordRequest("ingest")

	result, err := in.ingest(ctx, filename, doc)
	if err != nil {
		observability.GlobalMetrics().RecordFailure("ingest")
		reqCtx.Error("ingestion failed", err,
			slog.String(observability.LogFieldFilename, filename),
			slog.String(observability.LogFieldErrorCode, string(errors.GetCodeFromError(err))),
		)
		return result, err
	}

	observability.GlobalMetrics().RecordDuration("ingest", reqCtx.Duration())
	reqCtx.Info("ingestion finished",
		slog.String(observability.LogFieldFilename, filename),
		slog.String(observability.LogFieldDocumentID, result.DocumentID),
		slog.String("status", string(result.Status)),
		slog.Int(observability.LogFieldChunkCount, result.ChunkCount),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return result, nil
}

func (in *Ingestor) ingest(ctx context.Context, filename string, doc *parser.ParsedDocument) (*Result, error) {
	if doc == nil || doc.FullText == "" {
		return &Result{Filename: filename, Status: StatusFailed},
			errors.InvalidArgument(fmt.Sprintf("document %s has no extractable text", filename))
	}

	contentHash := ContentFingerprint(doc.FullText)
	documentID := DocumentIdentity(filename, contentHash)
	result := &Result{
		DocumentID:  documentID,
		ContentHash: contentHash,
		Filename:    filename,
		Status:      StatusFailed,
		Metadata:    &doc.Metadata,
	}

	lock := in.documentLock(documentID)
	lock.Lock()
	defer lock.Unlock()

	exists, err := in.store.ExistsDocument(ctx, in.profile.Collection, documentID)
	if err != nil {
		return result, errors.StoreUnavailable("existence check failed", err)
	}
	if exists {
		result.Status = StatusAlreadyExists
		return result, nil
	}

	chunks := in.buildChunks(documentID, filename, contentHash, doc)
	if len(chunks) == 0 {
		return result, errors.InvalidArgument(fmt.Sprintf("document %s produced no chunks", filename))
	}

	if err := in.embedChunks(ctx, chunks); err != nil {
		return result, errors.EmbeddingFailed("chunk embedding failed", err)
	}

	if err := in.store.InsertChunks(ctx, chunks); err != nil {
		if goerrors.Is(err, store.ErrAlreadyExists) {
			result.Status = StatusAlreadyExists
			return result, nil
		}
		return result, errors.StoreUnavailable("chunk publication failed", err)
	}

	result.Status = StatusStored
	result.ChunkCount = len(chunks)
	for _, c := range chunks {
		switch c.Type {
		case store.ChunkTypeFullText:
			result.FullTextChunks++
		case store.ChunkTypeSection:
			result.SectionChunks++
		}
	}
	return result, nil
}

// buildChunks produces the full-text chunk family followed by one
// family per section. IDs are deterministic per identity, family, and
// position.
func (in *Ingestor) buildChunks(documentID, filename, contentHash string, doc *parser.ParsedDocument) []*store.Chunk {
	now := time.Now().Unix()
	var chunks []*store.Chunk

	newChunk := func(id string, chunkType store.ChunkType, section string, position int, text string) *store.Chunk {
		return &store.Chunk{
			ID:          id,
			Collection:  in.profile.Collection,
			DocumentID:  documentID,
			Filename:    filename,
			ContentHash: contentHash,
			Type:        chunkType,
			Section:     section,
			Position:    position,
			Text:        text,
			CreatedTs:   now,
		}
	}

	for i, text := range chunker.Split(doc.FullText, in.profile.ChunkSize, in.profile.ChunkOverlap) {
		id := fmt.Sprintf("%s_full_%d", documentID, i)
		chunks = append(chunks, newChunk(id, store.ChunkTypeFullText, "", i, text))
	}

	for _, section := range doc.Sections {
		for i, text := range chunker.Split(section.Body, in.profile.ChunkSize, in.profile.ChunkOverlap) {
			id := fmt.Sprintf("%s_section_%s_%d", documentID, section.Title, i)
			chunks = append(chunks, newChunk(id, store.ChunkTypeSection, section.Title, i, text))
		}
	}

	return chunks
}

// embedChunks fills chunk embeddings in place with bounded parallel
// batch requests. Any batch failure aborts the whole document.
func (in *Ingestor) embedChunks(ctx context.Context, chunks []*store.Chunk) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := in.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return err
			}
			for i := range batch {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}

	return g.Wait()
}

func (in *Ingestor) documentLock(documentID string) *sync.Mutex {
	in.mu.Lock()
	defer in.mu.Unlock()
	lock, ok := in.locks[documentID]
	if !ok {
		lock = &sync.Mutex{}
		in.locks[documentID] = lock
	}
	return lock
}
