package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/passgate/internal/service"
	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func (s *SQLiteStore) InsertIdentity(
	ctx context.Context,
	identity *service.Identity,
) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO identity (uid, handle, secret, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?);`,
		identity.ID.String(),
		identity.Handle,
		identity.Secret,
		identity.CreatedAt.UnixNano(),
		identity.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return fmt.Errorf("%w: %s", service.ErrHandleExists, identity.Handle)
		}
		return fmt.Errorf("couldn't insert into identity: %v", err)
	}
	return nil
}

func (s *SQLiteStore) GetIdentity(
	ctx context.Context,
	handle string,
) (
	*service.Identity,
	error,
) {
	row := s.db.QueryRowContext(ctx, `
		SELECT uid, handle, secret, created_at, updated_at
		FROM identity i
		WHERE i.handle=?;`,
		handle,
	)

	var (
		uid       string
		identity  service.Identity
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&uid, &identity.Handle, &identity.Secret, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrAccountNotFound, handle)
		}
		return nil, fmt.Errorf("couldn't select from identity: %v", err)
	}

	identity.ID, err = uuid.Parse(uid)
	if err != nil {
		return nil, fmt.Errorf("corrupt identity uid %q: %v", uid, err)
	}
	identity.CreatedAt = time.Unix(0, createdAt).UTC()
	identity.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &identity, nil
}

func (s *SQLiteStore) UpdateSecret(
	ctx context.Context,
	handle string,
	secret []byte,
	updatedAt time.Time,
) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE identity
		SET secret=?, updated_at=?
		WHERE handle=?;`,
		secret,
		updatedAt.UnixNano(),
		handle,
	)
	if err != nil {
		return fmt.Errorf("couldn't update identity: %v", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("couldn't update identity: %v", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", service.ErrAccountNotFound, handle)
	}
	return nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
