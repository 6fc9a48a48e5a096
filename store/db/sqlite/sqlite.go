package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/store"
)

// DB is the SQLite store driver. Embeddings are stored as little-endian
// float32 BLOBs and scored in process.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

var schema = `
CREATE TABLE IF NOT EXISTS chunk (
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	document_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content_hash TEXT NOT NULL,
	chunk_type TEXT NOT NULL,
	section TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	embedding BLOB NOT NULL,
	created_ts BIGINT NOT NULL,
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_chunk_document ON chunk (collection, document_id);
`

// NewDB opens the SQLite database and applies the schema.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	// WAL keeps readers unblocked while the ingestor writes.
	db, err := sql.Open("sqlite", profile.DSN+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}
