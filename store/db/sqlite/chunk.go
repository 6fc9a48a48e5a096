package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/doclave/doclave/store"
)

func (d *DB) ExistsDocument(ctx context.Context, collection, documentID string) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx,
		`SELECT 1 FROM chunk WHERE collection = ? AND document_id = ? LIMIT 1`,
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
		`SELECT 1 FROM chunk WHERE collection = ? AND document_id = ? LIMIT 1`,
		chunks[0].Collection, chunks[0].DocumentID,
	).Scan(&one)
	if err == nil {
		return store.ErrAlreadyExists
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return errors.Wrap(err, "failed to check document existence")
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunk (collection, id, document_id, filename, content_hash, chunk_type, section, position, text, embedding, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		_, err := stmt.ExecContext(ctx,
			chunk.Collection,
			chunk.ID,
			chunk.DocumentID,
			chunk.Filename,
			chunk.ContentHash,
			string(chunk.Type),
			chunk.Section,
			chunk.Position,
			chunk.Text,
			float32SliceToBytes(chunk.Embedding),
			chunk.CreatedTs,
		)
		if err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return store.ErrAlreadyExists
			}
			return errors.Wrapf(err, "failed to insert chunk %s", chunk.ID)
		}
	}

	return errors.Wrap(tx.Commit(), "failed to commit chunks")
}

func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.ScoredChunk, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where, args := []string{"collection = ?"}, []any{opts.Collection}
	if opts.DocumentID != "" {
		where, args = append(where, "document_id = ?"), append(args, opts.DocumentID)
	}
	if opts.Type != "" {
		where, args = append(where, "chunk_type = ?"), append(args, string(opts.Type))
	}

	query := `
		SELECT collection, id, document_id, filename, content_hash, chunk_type, section, position, text, embedding, created_ts
		FROM chunk
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query chunks for vector search")
	}
	defer rows.Close()

	results := []*store.ScoredChunk{}
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, &store.ScoredChunk{
			Chunk: chunk,
			Score: cosineSimilarity(opts.Vector, chunk.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate chunks")
	}

	// Ties break on chunk ID so result order is stable.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (d *DB) ListChunks(ctx context.Context, find *store.FindChunk) ([]*store.Chunk, error) {
	where, args := []string{"collection = ?"}, []any{find.Collection}
	if find.DocumentID != nil {
		where, args = append(where, "document_id = ?"), append(args, *find.DocumentID)
	}
	if find.Type != nil {
		where, args = append(where, "chunk_type = ?"), append(args, string(*find.Type))
	}
	if find.Section != nil {
		where, args = append(where, "section = ?"), append(args, *find.Section)
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
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, chunk)
	}
	return list, errors.Wrap(rows.Err(), "failed to iterate chunks")
}

func (d *DB) DeleteChunks(ctx context.Context, delete *store.DeleteChunk) (int, error) {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM chunk WHERE collection = ? AND document_id = ?`,
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
			SUM(CASE WHEN chunk_type = 'full_text' THEN 1 ELSE 0 END),
			SUM(CASE WHEN chunk_type = 'section' THEN 1 ELSE 0 END)
		FROM chunk
		WHERE collection = ?
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (*store.Chunk, error) {
	var chunk store.Chunk
	var chunkType string
	var embedding []byte
	err := row.Scan(
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
	chunk.Embedding = bytesToFloat32Slice(embedding)
	return &chunk, nil
}

// float32SliceToBytes encodes a vector as little-endian float32 bytes.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
