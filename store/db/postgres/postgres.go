package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/store"
)

// DB is the PostgreSQL store driver. Vector scoring runs in the
// database through the pgvector extension.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the PostgreSQL connection and applies the schema. The
// vector column width comes from the profile's embedding dimensions.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database: %s", profile.DSN)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(2 * time.Hour)
	db.SetConnMaxIdleTime(15 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}

	d := &DB{db: db, profile: profile}
	if err := d.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

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
	embedding vector(%d) NOT NULL,
	created_ts BIGINT NOT NULL,
	PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_chunk_document ON chunk (collection, document_id);
`, d.profile.AIDimensions)

	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "failed to apply schema")
	}
	return nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}
