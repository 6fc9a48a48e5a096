// Package retrieval answers similarity queries against the published
// knowledge base.
package retrieval

import (
	"context"
	"log/slog"
	"time"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/plugin/ai"
	"github.com/doclave/doclave/plugin/ai/cache"
	"github.com/doclave/doclave/server/internal/errors"
	"github.com/doclave/doclave/server/internal/observability"
	"github.com/doclave/doclave/store"
)

// DefaultLimit is how many chunks a query returns when unspecified.
const DefaultLimit = 5

// QueryOptions narrows a similarity query.
type QueryOptions struct {
	Limit      int
	DocumentID string
	Type       store.ChunkType
}

// Retriever embeds queries and searches the vector store.
type Retriever struct {
	store    *store.Store
	embedder ai.EmbeddingService
	reranker ai.RerankerService
	cache    *cache.EmbeddingCache
	profile  *profile.Profile
	logger   *slog.Logger
}

// NewRetriever creates a new Retriever.
func NewRetriever(s *store.Store, embedder ai.EmbeddingService, p *profile.Profile, logger *slog.Logger) *Retriever {
	return &Retriever{
		store:    s,
		embedder: embedder,
		cache:    cache.NewEmbeddingCache(1000, 10*time.Minute),
		profile:  p,
		logger:   logger,
	}
}

// SetReranker enables second-stage re-ranking of query results.
func (r *Retriever) SetReranker(reranker ai.RerankerService) {
	r.reranker = reranker
}

// Query returns the chunks most similar to the query text, most
// similar first, with their scores.
func (r *Retriever) Query(ctx context.Context, query string, opts QueryOptions) ([]*store.ScoredChunk, error) {
	if query == "" {
		return nil, errors.InvalidArgument("query text is empty")
	}

	reqCtx := observability.NewRequestContext(ctx, r.logger, "retrieve", r.profile.Collection)
	observability.GlobalMetrics().RecordRequest("retrieve")

	vector, err := r.queryVector(ctx, query)
	if err != nil {
		observability.GlobalMetrics().RecordFailure("retrieve")
		return nil, errors.EmbeddingFailed("query embedding failed", err)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	// Over-fetch candidates when a reranker gets a second pass.
	candidateLimit := limit
	if r.reranker != nil && r.reranker.IsEnabled() {
		candidateLimit = limit * 3
	}

	results, err := r.store.VectorSearch(ctx, &store.VectorSearchOptions{
		Collection: r.profile.Collection,
		Vector:     vector,
		Limit:      candidateLimit,
		DocumentID: opts.DocumentID,
		Type:       opts.Type,
	})
	if err != nil {
		observability.GlobalMetrics().RecordFailure("retrieve")
		return nil, errors.StoreUnavailable("vector search failed", err)
	}

	results = r.rerank(ctx, query, results, limit)

	observability.GlobalMetrics().RecordDuration("retrieve", reqCtx.Duration())
	reqCtx.Debug("query answered",
		slog.Int("results", len(results)),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
	)
	return results, nil
}

// Retrieve returns just the texts of the most similar chunks. It
// degrades to an empty result on failure so enrichment callers never
// fail on retrieval problems.
func (r *Retriever) Retrieve(ctx context.Context, query string, limit int) []string {
	results, err := r.Query(ctx, query, QueryOptions{Limit: limit})
	if err != nil {
		r.logger.Warn("retrieval degraded to empty result",
			slog.String(observability.LogFieldCollection, r.profile.Collection),
			slog.String(observability.LogFieldErrorCode, string(errors.GetCodeFromError(err))),
			slog.String("error", err.Error()),
		)
		return []string{}
	}

	texts := make([]string, 0, len(results))
	for _, sc := range results {
		texts = append(texts, sc.Chunk.Text)
	}
	return texts
}

// rerank reorders the candidates with the rerank model, keeping the
// vector order when re-ranking is off or fails.
func (r *Retriever) rerank(ctx context.Context, query string, results []*store.ScoredChunk, limit int) []*store.ScoredChunk {
	if r.reranker == nil || !r.reranker.IsEnabled() || len(results) <= 1 {
		if len(results) > limit {
			return results[:limit]
		}
		return results
	}

	texts := make([]string, len(results))
	for i, sc := range results {
		texts[i] = sc.Chunk.Text
	}

	ranked, err := r.reranker.Rerank(ctx, query, texts, limit)
	if err != nil {
		r.logger.Warn("re-ranking failed, keeping vector order", "error", err)
		if len(results) > limit {
			return results[:limit]
		}
		return results
	}

	reordered := make([]*store.ScoredChunk, 0, len(ranked))
	for _, rr := range ranked {
		if rr.Index < 0 || rr.Index >= len(results) {
			continue
		}
		sc := results[rr.Index]
		sc.Score = rr.Score
		reordered = append(reordered, sc)
	}
	return reordered
}

func (r *Retriever) queryVector(ctx context.Context, query string) ([]float32, error) {
	if vector, ok := r.cache.Get(query); ok {
		return vector, nil
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	r.cache.Set(query, vector)
	return vector, nil
}
