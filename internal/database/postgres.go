package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~jakintosh/passgate/internal/service"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and creates the users table if needed.
func NewPostgresStore(
	ctx context.Context,
	dsn string,
) (
	*PostgresStore,
	error,
) {
	pool, err := connectPostgres(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %v", err)
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id             UUID PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			password_hash  TEXT NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			updated_at     TIMESTAMPTZ NOT NULL
		);`,
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to init 'users' table schema: %v", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func connectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, errors.New("empty database dsn")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute
	config.HealthCheckPeriod = 30 * time.Second

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (s *PostgresStore) IdentityStore() service.IdentityStore {
	return s
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertIdentity(
	ctx context.Context,
	identity *service.Identity,
) error {
	const q = `INSERT INTO users (id, email, password_hash, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)`
	_, err := s.pool.Exec(ctx, q,
		identity.ID.String(),
		identity.Handle,
		string(identity.Secret),
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("%w: %s", service.ErrHandleExists, identity.Handle)
		}
		return fmt.Errorf("couldn't insert into users: %v", err)
	}
	return nil
}

func (s *PostgresStore) GetIdentity(
	ctx context.Context,
	handle string,
) (
	*service.Identity,
	error,
) {
	const q = `SELECT id::text, email, password_hash, created_at, updated_at FROM users WHERE email=$1`

	var (
		id       string
		secret   string
		identity service.Identity
	)
	err := s.pool.QueryRow(ctx, q, handle).Scan(&id, &identity.Handle, &secret, &identity.CreatedAt, &identity.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", service.ErrAccountNotFound, handle)
		}
		return nil, fmt.Errorf("couldn't select from users: %v", err)
	}

	identity.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt user id %q: %v", id, err)
	}
	identity.Secret = []byte(secret)
	identity.CreatedAt = identity.CreatedAt.UTC()
	identity.UpdatedAt = identity.UpdatedAt.UTC()
	return &identity, nil
}

func (s *PostgresStore) UpdateSecret(
	ctx context.Context,
	handle string,
	secret []byte,
	updatedAt time.Time,
) error {
	const q = `UPDATE users SET password_hash=$1, updated_at=$2 WHERE email=$3`
	tag, err := s.pool.Exec(ctx, q, string(secret), updatedAt, handle)
	if err != nil {
		return fmt.Errorf("couldn't update users: %v", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", service.ErrAccountNotFound, handle)
	}
	return nil
}
