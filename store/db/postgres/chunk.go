package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/doclave/doclave/store"
)

// placeholder returns the numbered PostgreSQL placeholder.
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}

func (d *DB) ExistsDocument(ctx context.Context, collection, documentID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM chunk WHERE collection = $1 AND document_id = $2 LIMIT 1`,
		collection, documentID,
	).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to check document existence")
	}
	return true, nil
}

func (d *DB) InsertChunks(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return errors.New("no chunks to insert")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM chunk WHERE collection = $1 AND document_id = $2 LIMIT 1`,
		chunks[0].Collection, chunks[0].DocumentID,
	).Scan(&one)
	if err == nil {
		return store.ErrAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "failed to check document existence")
	}

	stmt := `
		INSERT INTO chunk (collection, id, document_id, filename, content_hash, chunk_type, section, position, text, embedding, created_ts)
		VALUES (` + placeholders(11) + `)
	`
	for _, chunk := range chunks {
		_, err := tx.ExecContext(ctx, stmt,
			chunk.Collection,
			chunk.ID,
			chunk.DocumentID,
			chunk.Filename,
			chunk.ContentHash,
			string(chunk.Type),
			chunk.Section,
			chunk.Position,
			chunk.Text,
			pgvector.NewVector(chunk.Embedding),
			chunk.CreatedTs,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return store.ErrAlreadyExists
			}
			return errors.Wrapf(err, "failed to insert chunk %s", chunk.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit chunks")
}

// VectorSearch performs vector similarity search using pgvector.
// The <=> operator computes cosine distance, so 1 - distance is the
// similarity and ascending distance order yields most similar first.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ScoredChunk, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	vector := pgvector.NewVector(opts.Vector)
	where, args := []string{"collection = $2"}, []any{vector, opts.Collection}
	if opts.DocumentID != "" {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, opts.DocumentID)
	}
	if opts.Type != "" {
		where, args = append(where, "chunk_type = "+placeholder(len(args)+1)), append(args, string(opts.Type))
	}
	args = append(args, limit)

	query := `
		SELECT collection, id, document_id, filename, content_hash, chunk_type, section, position, text, embedding, created_ts,
			1 - (embedding <=> $1) AS score
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> $1, id
		LIMIT ` + placeholder(len(args))

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.ScoredChunk{}
	for rows.Next() {
		var chunk store.Chunk
		var chunkType string
		var embedding pgvector.Vector
		var score float32
		err := rows.Scan(
			&chunk.Collection,
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Filename,
			&chunk.ContentHash,
			&chunkType,
			&chunk.Section,
			&chunk.Position,
			&chunk.Text,
			&embedding,
			&chunk.CreatedTs,
			&score,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan scored chunk")
		}
		chunk.Type = store.ChunkType(chunkType)
		chunk.Embedding = embedding.Slice()
		results = append(results, &store.ScoredChunk{Chunk: &chunk, Score: score})
	}
	return results, errors.Wrap(rows.Err(), "failed to iterate scored chunks")
}

func (d *DB) ListChunks(ctx context.Context, find *store.FindChunk) ([]*store.Chunk, error) {
	where, args := []string{"collection = $1"}, []any{find.Collection}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = "+placeholder(len(args)+1)), append(args, *find.DocumentID)
	}
	if find.Type != nil {
		where, args = append(where, "chunk_type = "+placeholder(len(args)+1)), append(args, string(*find.Type))
	}
	if find.Section != nil {
		where, args = append(where, "section = "+placeholder(len(args)+1)), append(args, *find.Section)
	}

	query := `
		SELECT collection, id, document_id, filename, content_hash, chunk_type, section, position, text, embedding, created_ts
		FROM chunk
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY chunk_type, section, position
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chunks")
	}
	defer rows.Close()

	list := []*store.Chunk{}
	for rows.Next() {
		var chunk store.Chunk
		var chunkType string
		var embedding pgvector.Vector
		err := rows.Scan(
			&chunk.Collection,
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.Filename,
			&chunk.ContentHash,
			&chunkType,
			&chunk.Section,
			&chunk.Position,
			&chunk.Text,
			&embedding,
			&chunk.CreatedTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan chunk")
		}
		chunk.Type = store.ChunkType(chunkType)
		chunk.Embedding = embedding.Slice()
		list = append(list, &chunk)
	}
	return list, errors.Wrap(rows.Err(), "failed to iterate chunks")
}

func (d *DB) DeleteChunks(ctx context.Context, delete *store.DeleteChunk) (int, error) {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM chunk WHERE collection = $1 AND document_id = $2`,
		delete.Collection, delete.DocumentID,
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete chunks")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count deleted chunks")
	}
	return int(n), nil
}

func (d *DB) Stats(ctx context.Context, collection string) (*store.KnowledgeStats, error) {
	query := `
		SELECT document_id, filename, content_hash,
			COUNT(*),
			COUNT(*) FILTER (WHERE chunk_type = 'full_text'),
			COUNT(*) FILTER (WHERE chunk_type = 'section')
		FROM chunk
		WHERE collection = $1
		GROUP BY document_id, filename, content_hash
		ORDER BY filename, document_id
	`

	rows, err := d.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query stats")
	}
	defer rows.Close()

	stats := &store.KnowledgeStats{
		Collection:      collection,
		ChunkTypeCounts: map[string]int{},
		Documents:       []*store.DocumentStats{},
	}
	for rows.Next() {
		doc := &store.DocumentStats{}
		if err := rows.Scan(&doc.DocumentID, &doc.Filename, &doc.ContentHash, &doc.ChunkCount, &doc.FullTextChunks, &doc.SectionChunks); err != nil {
			return nil, errors.Wrap(err, "failed to scan document stats")
		}
		stats.Documents = append(stats.Documents, doc)
		stats.TotalChunks += doc.ChunkCount
		stats.ChunkTypeCounts[string(store.ChunkTypeFullText)] += doc.FullTextChunks
		stats.ChunkTypeCounts[string(store.ChunkTypeSection)] += doc.SectionChunks
	}
	stats.DocumentCount = len(stats.Documents)
	return stats, errors.Wrap(rows.Err(), "failed to iterate stats")
}
