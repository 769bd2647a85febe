package database

import (
	"context"
	"fmt"

	"git.sr.ht/~jakintosh/passgate/internal/service"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store is an identity store that owns a connection.
type Store interface {
	service.IdentityStore
	Close() error
}

// Open connects to the store named by driver. For sqlite, dsn is a file
// path or ":memory:"; for postgres it is a connection string.
func Open(
	ctx context.Context,
	driver string,
	dsn string,
) (
	Store,
	error,
) {
	switch driver {
	case DriverSQLite, "":
		store, err := NewSQLiteStore(dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	case DriverPostgres:
		store, err := NewPostgresStore(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", driver)
	}
}
