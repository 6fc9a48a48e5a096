package db

import (
	"github.com/pkg/errors"

	"github.com/doclave/doclave/internal/profile"
	"github.com/doclave/doclave/store"
	"github.com/doclave/doclave/store/db/postgres"
	"github.com/doclave/doclave/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite is the default. It stores vectors as BLOBs and scores them in
// process, which is fine for the collection sizes a single compliance
// knowledge base reaches. PostgreSQL with pgvector pushes scoring into
// the database for larger deployments.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
